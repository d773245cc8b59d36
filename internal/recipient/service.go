package recipient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cobal/internal/audit"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
	"cobal/pkg/requestcontext"
)

// Store persists recipients.
type Store interface {
	Insert(ctx context.Context, rcpt *Recipient) error
	Update(ctx context.Context, rcpt *Recipient) error
	FindByID(ctx context.Context, recipientID id.RecipientID) (*Recipient, error)
	FindByBookNumber(ctx context.Context, bookNumber string) (*Recipient, error)
	List(ctx context.Context) ([]*Recipient, error)
	Deactivate(ctx context.Context, recipientID id.RecipientID) error
}

// AuditPublisher records audit events for registry changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Params carries the caller-supplied recipient attributes for registration
// and update.
type Params struct {
	Name       string
	BookNumber string
	CPF        string
	Sex        string
	Wing       string
	Cell       string
}

type Service struct {
	store          Store
	auditPublisher AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("recipient store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register validates and stores a new recipient.
func (s *Service) Register(ctx context.Context, params Params) (*Recipient, error) {
	rcpt, err := s.build(id.NewRecipientID(), params)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	rcpt.Active = true
	rcpt.CreatedAt = now
	rcpt.UpdatedAt = now

	if existing, err := s.store.FindByBookNumber(ctx, rcpt.BookNumber); err == nil && existing != nil {
		return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("book number %s is already registered", rcpt.BookNumber))
	}

	if err := s.store.Insert(ctx, rcpt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register recipient")
	}

	s.emitAudit(ctx, audit.ActionRecipientRegistered, rcpt.ID, map[string]string{"book_number": rcpt.BookNumber})
	return rcpt, nil
}

// Update replaces a recipient's mutable attributes.
func (s *Service) Update(ctx context.Context, recipientID id.RecipientID, params Params) (*Recipient, error) {
	current, err := s.Get(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	updated, err := s.build(recipientID, params)
	if err != nil {
		return nil, err
	}
	updated.Active = current.Active
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = requestcontext.Now(ctx)

	if updated.BookNumber != current.BookNumber {
		if existing, err := s.store.FindByBookNumber(ctx, updated.BookNumber); err == nil && existing != nil {
			return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("book number %s is already registered", updated.BookNumber))
		}
	}

	if err := s.store.Update(ctx, updated); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update recipient")
	}

	s.emitAudit(ctx, audit.ActionRecipientUpdated, recipientID, nil)
	return updated, nil
}

// Get returns one recipient.
func (s *Service) Get(ctx context.Context, recipientID id.RecipientID) (*Recipient, error) {
	if recipientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "recipient id is required")
	}
	rcpt, err := s.store.FindByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if rcpt == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "recipient not found")
	}
	return rcpt, nil
}

// GetByBookNumber returns the recipient registered under a book number.
func (s *Service) GetByBookNumber(ctx context.Context, bookNumber string) (*Recipient, error) {
	bookNumber = strings.TrimSpace(bookNumber)
	if bookNumber == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "book number is required")
	}
	rcpt, err := s.store.FindByBookNumber(ctx, bookNumber)
	if err != nil {
		return nil, err
	}
	if rcpt == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "recipient not found")
	}
	return rcpt, nil
}

// List returns all recipients, newest first.
func (s *Service) List(ctx context.Context) ([]*Recipient, error) {
	recipients, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list recipients")
	}
	return recipients, nil
}

// Deactivate soft-deletes a recipient. Delivery history survives so the
// recurrence rules keep working if the recipient is re-registered.
func (s *Service) Deactivate(ctx context.Context, recipientID id.RecipientID) error {
	if _, err := s.Get(ctx, recipientID); err != nil {
		return err
	}
	if err := s.store.Deactivate(ctx, recipientID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate recipient")
	}
	s.emitAudit(ctx, audit.ActionRecipientDeactivated, recipientID, nil)
	return nil
}

// build validates params into a Recipient.
func (s *Service) build(recipientID id.RecipientID, params Params) (*Recipient, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	bookNumber := strings.TrimSpace(params.BookNumber)
	if bookNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "book number is required")
	}
	sex, err := id.ParseSex(params.Sex)
	if err != nil {
		return nil, err
	}
	if !ValidLocation(params.Wing, params.Cell) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown wing/cell %s/%s", params.Wing, params.Cell))
	}
	cpf := NormalizeCPF(params.CPF)
	if cpf != "" && !ValidCPF(cpf) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "cpf check digits do not match")
	}

	return &Recipient{
		ID:         recipientID,
		Name:       name,
		BookNumber: bookNumber,
		CPF:        cpf,
		Sex:        sex,
		Wing:       params.Wing,
		Cell:       params.Cell,
	}, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, recipientID id.RecipientID, detail map[string]string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:      action,
		RecipientID: recipientID,
		Detail:      detail,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", action,
			"error", err,
		)
	}
}
