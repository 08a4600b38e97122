// Package session keeps each seeker's progress through the three sacrifices.
package session

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/viren/internal/oracle"
)

// Record is one seeker's state. First and Second are nil until submitted.
type Record struct {
	UserID      string      `json:"user_id"`
	First       *string     `json:"first,omitempty"`
	Second      *string     `json:"second,omitempty"`
	Surrendered bool        `json:"surrender"`
	ChosenPath  oracle.Path `json:"chosen_path,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Complete reports whether all three sacrifices have been given.
func (r Record) Complete() bool {
	return r.First != nil && r.Second != nil && r.Surrendered
}

func (r Record) clone() Record {
	c := r
	if r.First != nil {
		s := *r.First
		c.First = &s
	}
	if r.Second != nil {
		s := *r.Second
		c.Second = &s
	}
	return c
}

// Mutator edits a record in place. Returning an error discards the edit; a
// record that did not exist before is then not created.
type Mutator func(r *Record) error

// Store is the contract every backend satisfies. Upsert is an atomic
// read-modify-write per user id.
type Store interface {
	Get(ctx context.Context, userID string) (Record, bool, error)
	Upsert(ctx context.Context, userID string, fn Mutator) (Record, error)
	Reset(ctx context.Context, userID string) error
	Close() error
}

func newRecord(userID string, now time.Time) Record {
	return Record{UserID: userID, CreatedAt: now.UTC()}
}
