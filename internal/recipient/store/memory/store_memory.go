// Package memory implements the recipient store in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"cobal/internal/recipient"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	recipients map[id.RecipientID]*recipient.Recipient
}

func New() *InMemoryStore {
	return &InMemoryStore{recipients: make(map[id.RecipientID]*recipient.Recipient)}
}

func (s *InMemoryStore) Insert(_ context.Context, rcpt *recipient.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recipients[rcpt.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "recipient already exists")
	}
	stored := *rcpt
	s.recipients[rcpt.ID] = &stored
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, rcpt *recipient.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recipients[rcpt.ID]; !exists {
		return dErrors.New(dErrors.CodeNotFound, "recipient not found")
	}
	stored := *rcpt
	s.recipients[rcpt.ID] = &stored
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recipientID id.RecipientID) (*recipient.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rcpt, ok := s.recipients[recipientID]
	if !ok {
		return nil, nil
	}
	out := *rcpt
	return &out, nil
}

func (s *InMemoryStore) FindByBookNumber(_ context.Context, bookNumber string) (*recipient.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rcpt := range s.recipients {
		if rcpt.BookNumber == bookNumber && rcpt.Active {
			out := *rcpt
			return &out, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*recipient.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*recipient.Recipient, 0, len(s.recipients))
	for _, rcpt := range s.recipients {
		copied := *rcpt
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Deactivate(_ context.Context, recipientID id.RecipientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rcpt, ok := s.recipients[recipientID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "recipient not found")
	}
	rcpt.Active = false
	return nil
}
