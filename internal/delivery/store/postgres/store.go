// Package postgres implements the delivery store on PostgreSQL via pgx.
//
// Records are normalized into deliveries + delivery_items rather than a
// column per item, so the set of deliverable items is owned by the catalog,
// not the schema.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cobal/internal/delivery"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
)

// Schema is the DDL for the delivery tables. Applied by operations and by
// integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id           UUID PRIMARY KEY,
	recipient_id UUID NOT NULL REFERENCES recipients (id),
	delivered_at TIMESTAMPTZ NOT NULL,
	observations TEXT NOT NULL DEFAULT '',
	recorded_by  UUID
);
CREATE TABLE IF NOT EXISTS delivery_items (
	delivery_id UUID NOT NULL REFERENCES deliveries (id) ON DELETE CASCADE,
	item_id     TEXT NOT NULL,
	quantity    INT  NOT NULL CHECK (quantity > 0),
	PRIMARY KEY (delivery_id, item_id)
);
CREATE INDEX IF NOT EXISTS deliveries_recipient_idx ON deliveries (recipient_id, delivered_at DESC);
CREATE INDEX IF NOT EXISTS delivery_items_item_idx ON delivery_items (item_id);
`

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LastDeliveryOf(ctx context.Context, recipientID id.RecipientID, itemID string) (time.Time, bool, error) {
	query := `
		SELECT MAX(d.delivered_at)
		FROM deliveries d
		JOIN delivery_items di ON di.delivery_id = d.id
		WHERE d.recipient_id = $1 AND di.item_id = $2 AND di.quantity > 0
	`
	var last *time.Time
	if err := s.pool.QueryRow(ctx, query, uuid.UUID(recipientID), itemID).Scan(&last); err != nil {
		return time.Time{}, false, fmt.Errorf("query last delivery: %w", err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

// Insert persists the record in one transaction. A per-recipient advisory
// lock serializes concurrent submits, and the recurrence windows are
// re-verified under that lock so the evaluate-then-insert window cannot
// admit a duplicate windowed item.
func (s *Store) Insert(ctx context.Context, record delivery.Record, windows map[string]int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert delivery: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, record.RecipientID.String()); err != nil {
		return fmt.Errorf("acquire recipient lock: %w", err)
	}

	for itemID, window := range windows {
		var last *time.Time
		err := tx.QueryRow(ctx, `
			SELECT MAX(d.delivered_at)
			FROM deliveries d
			JOIN delivery_items di ON di.delivery_id = d.id
			WHERE d.recipient_id = $1 AND di.item_id = $2 AND di.quantity > 0
		`, uuid.UUID(record.RecipientID), itemID).Scan(&last)
		if err != nil {
			return fmt.Errorf("verify recurrence window: %w", err)
		}
		if last != nil && int(record.Timestamp.Sub(*last).Hours()/24) < window {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("item %q was delivered within its %d-day window", itemID, window))
		}
	}

	var recordedBy *uuid.UUID
	if !record.RecordedBy.IsNil() {
		u := uuid.UUID(record.RecordedBy)
		recordedBy = &u
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO deliveries (id, recipient_id, delivered_at, observations, recorded_by)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(record.ID), uuid.UUID(record.RecipientID), record.Timestamp, record.Observations, recordedBy)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}

	for itemID, qty := range record.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO delivery_items (delivery_id, item_id, quantity)
			VALUES ($1, $2, $3)
		`, uuid.UUID(record.ID), itemID, qty); err != nil {
			return fmt.Errorf("insert delivery item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delivery: %w", err)
	}
	return nil
}

func (s *Store) ListByRecipient(ctx context.Context, recipientID id.RecipientID) ([]delivery.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipient_id, delivered_at, observations, recorded_by
		FROM deliveries
		WHERE recipient_id = $1
		ORDER BY delivered_at DESC
	`, uuid.UUID(recipientID))
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	records, err := s.scanRecords(ctx, rows)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) Search(ctx context.Context, filter delivery.SearchFilter) ([]delivery.RecordWithRecipient, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.RecipientName != "" {
		where = append(where, "r.name ILIKE "+arg("%"+filter.RecipientName+"%"))
	}
	if filter.BookNumber != "" {
		where = append(where, "r.book_number = "+arg(filter.BookNumber))
	}
	if filter.Wing != "" {
		where = append(where, "r.wing = "+arg(filter.Wing))
	}
	if !filter.From.IsZero() {
		where = append(where, "d.delivered_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "d.delivered_at <= "+arg(filter.To))
	}

	query := `
		SELECT d.id, d.recipient_id, d.delivered_at, d.observations, d.recorded_by,
		       r.name, r.book_number, r.wing, r.cell
		FROM deliveries d
		JOIN recipients r ON r.id = d.recipient_id
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY d.delivered_at DESC LIMIT " + arg(filter.Limit) + " OFFSET " + arg(filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search deliveries: %w", err)
	}
	defer rows.Close()

	var out []delivery.RecordWithRecipient
	for rows.Next() {
		var (
			row        delivery.RecordWithRecipient
			deliveryID uuid.UUID
			rcptID     uuid.UUID
			recordedBy *uuid.UUID
		)
		if err := rows.Scan(&deliveryID, &rcptID, &row.Timestamp, &row.Observations, &recordedBy,
			&row.RecipientName, &row.BookNumber, &row.Wing, &row.Cell); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		row.ID = id.DeliveryID(deliveryID)
		row.RecipientID = id.RecipientID(rcptID)
		if recordedBy != nil {
			row.RecordedBy = id.OperatorID(*recordedBy)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	for i := range out {
		items, err := s.loadItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *Store) scanRecords(ctx context.Context, rows pgx.Rows) ([]delivery.Record, error) {
	var records []delivery.Record
	for rows.Next() {
		var (
			record     delivery.Record
			deliveryID uuid.UUID
			rcptID     uuid.UUID
			recordedBy *uuid.UUID
		)
		if err := rows.Scan(&deliveryID, &rcptID, &record.Timestamp, &record.Observations, &recordedBy); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		record.ID = id.DeliveryID(deliveryID)
		record.RecipientID = id.RecipientID(rcptID)
		if recordedBy != nil {
			record.RecordedBy = id.OperatorID(*recordedBy)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}

	for i := range records {
		items, err := s.loadItems(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Items = items
	}
	return records, nil
}

func (s *Store) loadItems(ctx context.Context, deliveryID id.DeliveryID) (delivery.Quantities, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT item_id, quantity FROM delivery_items WHERE delivery_id = $1
	`, uuid.UUID(deliveryID))
	if err != nil {
		return nil, fmt.Errorf("query delivery items: %w", err)
	}
	defer rows.Close()

	items := make(delivery.Quantities)
	for rows.Next() {
		var (
			itemID string
			qty    int
		)
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, fmt.Errorf("scan delivery item: %w", err)
		}
		items[itemID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery items: %w", err)
	}
	return items, nil
}

// FindByID returns one delivery record.
func (s *Store) FindByID(ctx context.Context, deliveryID id.DeliveryID) (*delivery.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipient_id, delivered_at, observations, recorded_by
		FROM deliveries
		WHERE id = $1
	`, uuid.UUID(deliveryID))
	if err != nil {
		return nil, fmt.Errorf("query delivery: %w", err)
	}
	defer rows.Close()

	records, err := s.scanRecords(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "delivery not found")
	}
	return &records[0], nil
}
