package delivery

import (
	"context"
	"time"

	"cobal/internal/audit"
	id "cobal/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks HistoryAccessor,Store,AuditPublisher

// HistoryAccessor answers "when did this recipient last receive this item".
// It reflects only durably committed deliveries; a delivery currently being
// evaluated is never visible through it.
type HistoryAccessor interface {
	// LastDeliveryOf returns the timestamp of the most recent committed
	// delivery containing the item with quantity > 0, or ok=false when the
	// recipient never received it.
	LastDeliveryOf(ctx context.Context, recipientID id.RecipientID, itemID string) (last time.Time, ok bool, err error)
}

// Store persists delivery records.
type Store interface {
	HistoryAccessor

	// Insert persists the record atomically (all-or-nothing). The windows
	// argument maps each recurrence-limited item in the record to its
	// minimum gap in days; implementations re-verify those gaps under
	// per-recipient serialization before committing, closing the window
	// between evaluation and insert. A guard failure surfaces as a conflict
	// error and nothing is persisted.
	Insert(ctx context.Context, record Record, windows map[string]int) error

	// ListByRecipient returns a recipient's deliveries, newest first.
	ListByRecipient(ctx context.Context, recipientID id.RecipientID) ([]Record, error)

	// Search returns deliveries joined with recipient attributes, newest
	// first, honoring the filter's pagination.
	Search(ctx context.Context, filter SearchFilter) ([]RecordWithRecipient, error)
}

// AuditPublisher records audit events for deliveries.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
