// Package postgres persists audit events with database/sql. The audit trail
// deliberately stays on its own connection pool so a flood of trail writes
// cannot starve the delivery stores.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"cobal/internal/audit"
	id "cobal/pkg/domain"
)

// Schema is the DDL for the audit trail table. Applied by operations, not by
// the service; kept here so integration tests and deploy scripts share one
// definition.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id           UUID PRIMARY KEY,
	timestamp    TIMESTAMPTZ NOT NULL,
	action       TEXT NOT NULL,
	operator_id  UUID,
	recipient_id UUID,
	client_ip    TEXT NOT NULL DEFAULT '',
	user_agent   TEXT NOT NULL DEFAULT '',
	detail       JSONB
);
CREATE INDEX IF NOT EXISTS audit_events_recipient_idx ON audit_events (recipient_id, timestamp DESC);
`

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one audit event. Idempotent via ON CONFLICT DO NOTHING so
// redelivery from an async sink cannot duplicate entries.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}

	var detail []byte
	if len(event.Detail) > 0 {
		detail, err = json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}

	var operatorID, recipientID *uuid.UUID
	if !event.OperatorID.IsNil() {
		u := uuid.UUID(event.OperatorID)
		operatorID = &u
	}
	if !event.RecipientID.IsNil() {
		u := uuid.UUID(event.RecipientID)
		recipientID = &u
	}

	query := `
		INSERT INTO audit_events (id, timestamp, action, operator_id, recipient_id, client_ip, user_agent, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		eventID,
		event.Timestamp,
		string(event.Action),
		operatorID,
		recipientID,
		event.ClientIP,
		event.UserAgent,
		detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByRecipient returns events for one recipient, newest first.
func (s *Store) ListByRecipient(ctx context.Context, recipientID id.RecipientID) ([]audit.Event, error) {
	query := `
		SELECT id, timestamp, action, operator_id, recipient_id, client_ip, user_agent, detail
		FROM audit_events
		WHERE recipient_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(recipientID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event       audit.Event
			eventID     uuid.UUID
			action      string
			operatorID  *uuid.UUID
			recipientID *uuid.UUID
			detail      []byte
		)
		if err := rows.Scan(&eventID, &event.Timestamp, &action, &operatorID, &recipientID, &event.ClientIP, &event.UserAgent, &detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.ID = eventID.String()
		event.Action = audit.Action(action)
		if operatorID != nil {
			event.OperatorID = id.OperatorID(*operatorID)
		}
		if recipientID != nil {
			event.RecipientID = id.RecipientID(*recipientID)
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
