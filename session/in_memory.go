package session

import (
	"context"
	"sync"

	"github.com/agentkit-go/agentkit/core"
)

// InMemorySession is a volatile Session implementation storing items in a
// process local slice. It is safe for concurrent access and best suited for
// tests, demos and single-process chat loops.
type InMemorySession struct {
	id string

	mu    sync.Mutex
	items []core.Item
}

// NewInMemorySession creates an empty in-memory session. An empty sessionID
// gets a generated id.
func NewInMemorySession(sessionID string) *InMemorySession {
	if sessionID == "" {
		sessionID = core.NewID()
	}
	return &InMemorySession{id: sessionID}
}

// SessionID implements Session.
func (s *InMemorySession) SessionID() string { return s.id }

// GetItems implements Session.
func (s *InMemorySession) GetItems(ctx context.Context, limit int) ([]core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items
	if limit > 0 && limit < len(items) {
		items = items[len(items)-limit:]
	}

	out := make([]core.Item, len(items))
	copy(out, items)
	return out, nil
}

// AddItems implements Session.
func (s *InMemorySession) AddItems(ctx context.Context, items ...core.Item) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return nil
}

// PopItem implements Session.
func (s *InMemorySession) PopItem(ctx context.Context) (*core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil, nil
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return &last, nil
}

// Clear implements Session.
func (s *InMemorySession) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

var _ Session = (*InMemorySession)(nil)
