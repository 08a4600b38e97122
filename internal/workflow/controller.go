// Package workflow runs the three-sacrifice rite: it records each offering,
// relays it, and divines the seeker's Path once all three are given.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/viren/internal/oracle"
	"github.com/MikeSquared-Agency/viren/internal/relay"
	"github.com/MikeSquared-Agency/viren/internal/session"
)

const (
	DefaultDisplayLimit = 1900
	surrenderPhrase     = "i surrender"
)

// Relayer is satisfied by *relay.Client. Relay must not block.
type Relayer interface {
	Relay(o relay.Offering)
}

// PathAssigner is satisfied by *roles.Assigner. AssignPath must not block.
type PathAssigner interface {
	AssignPath(userID string, p oracle.Path)
}

// User identifies the caller of an operation.
type User struct {
	ID          string
	DisplayName string
}

// Link is a URL button attached to a reply.
type Link struct {
	Label string
	URL   string
}

// Reply is what the command surface shows the caller.
type Reply struct {
	Content string
	Links   []Link
}

// PathResult is the outcome of ComputePath. Ready is false when a sacrifice
// is still missing; Path is then empty.
type PathResult struct {
	Reply
	Ready bool
	Path  oracle.Path
}

type Options struct {
	DisplayLimit int
	FairyURL     string
	AltarURL     string

	// Roles, when set, grants the guild role for each chosen Path.
	Roles PathAssigner
}

type Controller struct {
	store session.Store
	relay Relayer
	roles PathAssigner
	limit int
	fairy Link
	altar Link
}

var (
	errNotReady     = errors.New("sacrifices incomplete")
	errAlreadyGiven = errors.New("sacrifice already given")
)

func New(store session.Store, r Relayer, opts Options) *Controller {
	limit := opts.DisplayLimit
	if limit <= 0 {
		limit = DefaultDisplayLimit
	}
	return &Controller{
		store: store,
		relay: r,
		roles: opts.Roles,
		limit: limit,
		fairy: Link{Label: "✨ The Fairy (Entry)", URL: opts.FairyURL},
		altar: Link{Label: "🕯️ The Altar (Submit)", URL: opts.AltarURL},
	}
}

// SubmitFirst records the First Quest. A text once given is never replaced;
// only Reset clears it.
func (c *Controller) SubmitFirst(ctx context.Context, u User, text string) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return c.reply("The altar takes nothing empty. Lay yourself bare, then `/first` again."), nil
	}
	_, err := c.store.Upsert(ctx, u.ID, func(r *session.Record) error {
		if r.First != nil {
			return errAlreadyGiven
		}
		r.First = &text
		return nil
	})
	if errors.Is(err, errAlreadyGiven) {
		return c.reply("Your First Sacrifice already burns on the altar. `/reset` to begin again."), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("store first sacrifice: %w", err)
	}

	c.relay.Relay(relay.Offering{UserID: u.ID, DisplayName: u.DisplayName, Kind: relay.KindFirst, Text: text})
	return c.reply("Seeker—your First Sacrifice is received.\nNext: `/second` for the Human Project, `/third` to surrender.", c.altar), nil
}

// SubmitSecond records the Human Project.
func (c *Controller) SubmitSecond(ctx context.Context, u User, text string) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return c.reply("The altar takes nothing empty. Name the trial, then `/second` again."), nil
	}
	_, err := c.store.Upsert(ctx, u.ID, func(r *session.Record) error {
		if r.Second != nil {
			return errAlreadyGiven
		}
		r.Second = &text
		return nil
	})
	if errors.Is(err, errAlreadyGiven) {
		return c.reply("The Human Project is already named. `/reset` to begin again."), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("store second sacrifice: %w", err)
	}

	c.relay.Relay(relay.Offering{UserID: u.ID, DisplayName: u.DisplayName, Kind: relay.KindSecond, Text: text})
	return c.reply("The Human Project stands named.\nWhen ready: `/third` to surrender choice.", c.altar), nil
}

// SubmitThird accepts only the exact surrender phrase, ignoring case and
// surrounding whitespace. Anything else changes nothing.
func (c *Controller) SubmitThird(ctx context.Context, u User, phrase string) (Reply, error) {
	if strings.ToLower(strings.TrimSpace(phrase)) != surrenderPhrase {
		return c.reply("The altar rejects half-measures. Type exactly: **I surrender**"), nil
	}
	if _, err := c.store.Upsert(ctx, u.ID, func(r *session.Record) error {
		r.Surrendered = true
		return nil
	}); err != nil {
		return Reply{}, fmt.Errorf("store third sacrifice: %w", err)
	}

	c.relay.Relay(relay.Offering{UserID: u.ID, DisplayName: u.DisplayName, Kind: relay.KindThird})
	return c.reply("The Third Sacrifice drops. Use `/path` and I will choose.", c.altar), nil
}

// ComputePath classifies a complete record and stores the result. Calling it
// again recomputes the same Path from the same texts.
func (c *Controller) ComputePath(ctx context.Context, userID string) (PathResult, error) {
	rec, err := c.store.Upsert(ctx, userID, func(r *session.Record) error {
		if !r.Complete() {
			return errNotReady
		}
		r.ChosenPath = oracle.Classify(*r.First, *r.Second)
		return nil
	})
	if errors.Is(err, errNotReady) {
		return PathResult{Reply: c.reply("Three keys or no door. `/first`, `/second`, `/third` first.")}, nil
	}
	if err != nil {
		return PathResult{}, fmt.Errorf("compute path: %w", err)
	}

	slog.Info("path chosen", "user_id", userID, "path", rec.ChosenPath)
	if c.roles != nil {
		c.roles.AssignPath(userID, rec.ChosenPath)
	}
	msg := fmt.Sprintf("**Chosen Path: %s**\n%s\n\n%s", rec.ChosenPath, oracle.Brief(rec.ChosenPath), oracle.Signoff)
	return PathResult{Reply: c.reply(msg), Ready: true, Path: rec.ChosenPath}, nil
}

// Status never mutates the store.
func (c *Controller) Status(ctx context.Context, userID string) (StatusView, error) {
	rec, _, err := c.store.Get(ctx, userID)
	if err != nil {
		return StatusView{}, fmt.Errorf("load status: %w", err)
	}
	return StatusView{
		First:       rec.First != nil,
		Second:      rec.Second != nil,
		Surrendered: rec.Surrendered,
		Path:        rec.ChosenPath,
	}, nil
}

// StatusReply renders Status for display with the Fairy and Altar links.
func (c *Controller) StatusReply(ctx context.Context, userID string) (Reply, error) {
	v, err := c.Status(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	return c.reply(v.Render(), c.fairy, c.altar), nil
}

// Reset forgets everything about the user.
func (c *Controller) Reset(ctx context.Context, userID string) (Reply, error) {
	if err := c.store.Reset(ctx, userID); err != nil {
		return Reply{}, fmt.Errorf("reset: %w", err)
	}
	return c.reply("Ashes scattered. Slate is clean."), nil
}

// Portal is the static Fairy + Altar reply.
func (c *Controller) Portal(text string) Reply {
	return c.reply(text, c.fairy, c.altar)
}

// Notice is a static reply with no links.
func (c *Controller) Notice(text string) Reply {
	return c.reply(text)
}

func (c *Controller) reply(text string, links ...Link) Reply {
	var kept []Link
	for _, l := range links {
		if l.URL != "" {
			kept = append(kept, l)
		}
	}
	return Reply{Content: Truncate(text, c.limit), Links: kept}
}
