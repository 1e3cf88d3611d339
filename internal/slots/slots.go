// Package slots bounds how many live driver invocations run at once.
package slots

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Manager is a fixed-capacity concurrency gate. At most Capacity holders
// exist at any instant; Acquire blocks until a slot frees up or the context
// is cancelled. An abandoned acquire never leaks a slot.
type Manager struct {
	tokens chan struct{}
	held   atomic.Int64
}

// NewManager creates a manager with the given capacity. Capacity must be
// at least 1.
func NewManager(capacity int) (*Manager, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("slots: capacity must be >= 1, got %d", capacity)
	}
	return &Manager{tokens: make(chan struct{}, capacity)}, nil
}

// Capacity reports the fixed slot count.
func (m *Manager) Capacity() int { return cap(m.tokens) }

// Held reports the current number of slot holders.
func (m *Manager) Held() int { return int(m.held.Load()) }

// Acquire blocks until a slot is free, then returns a release func. The
// release func is idempotent and must be called on every exit path. If ctx
// is cancelled while waiting, no slot is granted and ctx.Err() is returned.
func (m *Manager) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case m.tokens <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	m.held.Add(1)

	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			m.held.Add(-1)
			<-m.tokens
		}
	}, nil
}
