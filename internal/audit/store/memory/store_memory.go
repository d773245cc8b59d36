package memory

import (
	"context"
	"sync"

	"cobal/internal/audit"
	id "cobal/pkg/domain"
)

// InMemoryStore keeps audit events in memory. Used by tests and by
// deployments that have not configured a durable sink.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, recipientID id.RecipientID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, e := range s.events {
		if e.RecipientID == recipientID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every stored event in append order.
func (s *InMemoryStore) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
