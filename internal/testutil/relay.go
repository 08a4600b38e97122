package testutil

import (
	"sync"

	"github.com/MikeSquared-Agency/viren/internal/relay"
)

// RecordingRelay is a thread-safe stand-in for relay.Client that keeps every
// offering it is handed.
type RecordingRelay struct {
	mu        sync.Mutex
	offerings []relay.Offering
}

func NewRecordingRelay() *RecordingRelay {
	return &RecordingRelay{offerings: make([]relay.Offering, 0)}
}

func (r *RecordingRelay) Relay(o relay.Offering) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offerings = append(r.offerings, o)
}

// Count returns how many offerings were relayed.
func (r *RecordingRelay) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.offerings)
}

// Last returns the most recent offering, if any.
func (r *RecordingRelay) Last() (relay.Offering, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.offerings) == 0 {
		return relay.Offering{}, false
	}
	return r.offerings[len(r.offerings)-1], true
}

// Kinds returns the kinds relayed so far, in order.
func (r *RecordingRelay) Kinds() []relay.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]relay.Kind, len(r.offerings))
	for i, o := range r.offerings {
		kinds[i] = o.Kind
	}
	return kinds
}
