// Package postgres implements the recipient store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cobal/internal/recipient"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
)

// Schema is the DDL for the recipients table. Applied by operations and by
// integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS recipients (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	book_number TEXT NOT NULL,
	cpf         TEXT NOT NULL DEFAULT '',
	sex         TEXT NOT NULL,
	wing        TEXT NOT NULL,
	cell        TEXT NOT NULL,
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS recipients_book_number_active_idx
	ON recipients (book_number) WHERE active;
CREATE INDEX IF NOT EXISTS recipients_wing_idx ON recipients (wing);
`

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Insert(ctx context.Context, rcpt *recipient.Recipient) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO recipients (id, name, book_number, cpf, sex, wing, cell, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.UUID(rcpt.ID), rcpt.Name, rcpt.BookNumber, rcpt.CPF, string(rcpt.Sex),
		rcpt.Wing, rcpt.Cell, rcpt.Active, rcpt.CreatedAt, rcpt.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("book number %s is already registered", rcpt.BookNumber))
		}
		return fmt.Errorf("insert recipient: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, rcpt *recipient.Recipient) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE recipients
		SET name = $2, book_number = $3, cpf = $4, sex = $5, wing = $6, cell = $7, updated_at = $8
		WHERE id = $1
	`, uuid.UUID(rcpt.ID), rcpt.Name, rcpt.BookNumber, rcpt.CPF, string(rcpt.Sex),
		rcpt.Wing, rcpt.Cell, rcpt.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("book number %s is already registered", rcpt.BookNumber))
		}
		return fmt.Errorf("update recipient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dErrors.New(dErrors.CodeNotFound, "recipient not found")
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, recipientID id.RecipientID) (*recipient.Recipient, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(recipientID))
}

func (s *Store) FindByBookNumber(ctx context.Context, bookNumber string) (*recipient.Recipient, error) {
	return s.findOne(ctx, `WHERE book_number = $1 AND active`, bookNumber)
}

func (s *Store) findOne(ctx context.Context, where string, arg any) (*recipient.Recipient, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, book_number, cpf, sex, wing, cell, active, created_at, updated_at
		FROM recipients `+where, arg)
	rcpt, err := scanRecipient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query recipient: %w", err)
	}
	return rcpt, nil
}

func (s *Store) List(ctx context.Context) ([]*recipient.Recipient, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, book_number, cpf, sex, wing, cell, active, created_at, updated_at
		FROM recipients
		ORDER BY created_at DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var out []*recipient.Recipient
	for rows.Next() {
		rcpt, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, rcpt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}
	return out, nil
}

func (s *Store) Deactivate(ctx context.Context, recipientID id.RecipientID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE recipients SET active = FALSE, updated_at = NOW() WHERE id = $1
	`, uuid.UUID(recipientID))
	if err != nil {
		return fmt.Errorf("deactivate recipient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dErrors.New(dErrors.CodeNotFound, "recipient not found")
	}
	return nil
}

func scanRecipient(row pgx.Row) (*recipient.Recipient, error) {
	var (
		rcpt   recipient.Recipient
		rcptID uuid.UUID
		sex    string
	)
	if err := row.Scan(&rcptID, &rcpt.Name, &rcpt.BookNumber, &rcpt.CPF, &sex,
		&rcpt.Wing, &rcpt.Cell, &rcpt.Active, &rcpt.CreatedAt, &rcpt.UpdatedAt); err != nil {
		return nil, err
	}
	rcpt.ID = id.RecipientID(rcptID)
	rcpt.Sex = id.Sex(sex)
	return &rcpt, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
