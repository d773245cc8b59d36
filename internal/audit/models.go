// Package audit records who did what to whom. Events are append-only;
// corrections happen as new events, never edits.
package audit

import (
	"context"
	"time"

	id "cobal/pkg/domain"
)

// Action classifies an audit event.
type Action string

const (
	ActionDeliveryRecorded     Action = "delivery_recorded"
	ActionDeliveryRejected     Action = "delivery_rejected"
	ActionRecipientRegistered  Action = "recipient_registered"
	ActionRecipientUpdated     Action = "recipient_updated"
	ActionRecipientDeactivated Action = "recipient_deactivated"
)

// Event is one audit trail entry.
type Event struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Action      Action            `json:"action"`
	OperatorID  id.OperatorID     `json:"operator_id"`
	RecipientID id.RecipientID    `json:"recipient_id"`
	ClientIP    string            `json:"client_ip,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	Detail      map[string]string `json:"detail,omitempty"`
}

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRecipient(ctx context.Context, recipientID id.RecipientID) ([]Event, error)
}
