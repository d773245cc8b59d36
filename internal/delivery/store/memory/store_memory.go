// Package memory implements the delivery store in process memory. Used by
// tests and local development; the mutex provides the per-recipient
// serialization the insert guard relies on.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cobal/internal/delivery"
	"cobal/internal/recipient"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
)

// RecipientDirectory resolves recipient attributes for search rows.
type RecipientDirectory interface {
	FindByID(ctx context.Context, recipientID id.RecipientID) (*recipient.Recipient, error)
}

type InMemoryStore struct {
	mu        sync.RWMutex
	records   []delivery.Record
	directory RecipientDirectory
}

// New creates an empty in-memory delivery store. The directory may be nil
// when Search is not exercised.
func New(directory RecipientDirectory) *InMemoryStore {
	return &InMemoryStore{directory: directory}
}

func (s *InMemoryStore) LastDeliveryOf(_ context.Context, recipientID id.RecipientID, itemID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLocked(recipientID, itemID)
}

func (s *InMemoryStore) lastLocked(recipientID id.RecipientID, itemID string) (time.Time, bool, error) {
	var last time.Time
	found := false
	for _, r := range s.records {
		if r.RecipientID != recipientID {
			continue
		}
		if qty, ok := r.Items[itemID]; !ok || qty <= 0 {
			continue
		}
		if r.Timestamp.After(last) {
			last = r.Timestamp
			found = true
		}
	}
	return last, found, nil
}

func (s *InMemoryStore) Insert(_ context.Context, record delivery.Record, windows map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-verify recurrence gaps under the lock; two concurrent submits of
	// the same windowed item cannot both pass.
	for itemID, window := range windows {
		last, ok, _ := s.lastLocked(record.RecipientID, itemID)
		if !ok {
			continue
		}
		if int(record.Timestamp.Sub(last).Hours()/24) < window {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("item %q was delivered within its %d-day window", itemID, window))
		}
	}

	stored := record
	stored.Items = make(delivery.Quantities, len(record.Items))
	for k, v := range record.Items {
		stored.Items[k] = v
	}
	s.records = append(s.records, stored)
	return nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, recipientID id.RecipientID) ([]delivery.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []delivery.Record
	for _, r := range s.records {
		if r.RecipientID == recipientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *InMemoryStore) Search(ctx context.Context, filter delivery.SearchFilter) ([]delivery.RecordWithRecipient, error) {
	s.mu.RLock()
	records := make([]delivery.Record, len(s.records))
	copy(records, s.records)
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.After(records[j].Timestamp) })

	var rows []delivery.RecordWithRecipient
	for _, r := range records {
		if !filter.From.IsZero() && r.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && r.Timestamp.After(filter.To) {
			continue
		}

		row := delivery.RecordWithRecipient{Record: r}
		if s.directory != nil {
			rcpt, err := s.directory.FindByID(ctx, r.RecipientID)
			if err == nil && rcpt != nil {
				row.RecipientName = rcpt.Name
				row.BookNumber = rcpt.BookNumber
				row.Wing = rcpt.Wing
				row.Cell = rcpt.Cell
			}
		}

		if filter.RecipientName != "" && !strings.Contains(strings.ToLower(row.RecipientName), strings.ToLower(filter.RecipientName)) {
			continue
		}
		if filter.BookNumber != "" && row.BookNumber != filter.BookNumber {
			continue
		}
		if filter.Wing != "" && row.Wing != filter.Wing {
			continue
		}
		rows = append(rows, row)
	}

	// Pagination after filtering, newest first.
	if filter.Offset >= len(rows) {
		return nil, nil
	}
	rows = rows[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(rows) {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}
