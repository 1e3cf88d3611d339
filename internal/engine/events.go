package engine

import (
	"sync"
	"time"
)

// Event is one entry on the run event log: a state transition, a dispatch,
// a finished attempt set, or a verdict.
type Event struct {
	Timestamp   string `json:"ts"`
	Type        string `json:"type"`
	CandidateID string `json:"candidate_id,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Bus is a thread-safe, append-only event log. Observers poll it with Since;
// the engine only ever appends.
type Bus struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends one event.
func (b *Bus) Emit(typ, candidateID, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Event{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Type:        typ,
		CandidateID: candidateID,
		Detail:      detail,
	})
}

// Since returns events at index idx and later. A negative idx is clamped
// to zero.
func (b *Bus) Since(idx int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx < 0 {
		idx = 0
	}
	if idx >= len(b.events) {
		return nil
	}
	out := make([]Event, len(b.events)-idx)
	copy(out, b.events[idx:])
	return out
}

// Len reports the number of emitted events.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
