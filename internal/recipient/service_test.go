package recipient_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cobal/internal/audit"
	auditmemory "cobal/internal/audit/store/memory"
	"cobal/internal/recipient"
	"cobal/internal/recipient/store/memory"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
	"cobal/pkg/requestcontext"
)

type RecipientServiceSuite struct {
	suite.Suite
	store      *memory.InMemoryStore
	auditStore *auditmemory.InMemoryStore
	service    *recipient.Service
	now        time.Time
}

func TestRecipientServiceSuite(t *testing.T) {
	suite.Run(t, new(RecipientServiceSuite))
}

func (s *RecipientServiceSuite) SetupTest() {
	s.store = memory.New()
	s.auditStore = auditmemory.NewInMemoryStore()
	publisher := audit.NewPublisher(s.auditStore)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := recipient.New(s.store,
		recipient.WithLogger(logger),
		recipient.WithAuditPublisher(publisher),
	)
	s.Require().NoError(err)
	s.service = svc
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RecipientServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *RecipientServiceSuite) validParams() recipient.Params {
	return recipient.Params{
		Name:       "Carlos Souza",
		BookNumber: "12345",
		CPF:        "529.982.247-25",
		Sex:        "male",
		Wing:       "B",
		Cell:       "4",
	}
}

func (s *RecipientServiceSuite) TestRegister() {
	rcpt, err := s.service.Register(s.ctx(), s.validParams())
	s.Require().NoError(err)

	s.False(rcpt.ID.IsNil())
	s.Equal("Carlos Souza", rcpt.Name)
	s.Equal("52998224725", rcpt.CPF) // normalized
	s.Equal(id.SexMale, rcpt.Sex)
	s.True(rcpt.Active)
	s.Equal(s.now, rcpt.CreatedAt)

	events, err := s.auditStore.ListByRecipient(s.ctx(), rcpt.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionRecipientRegistered, events[0].Action)
	s.Equal("12345", events[0].Detail["book_number"])
}

func (s *RecipientServiceSuite) TestRegister_Validation() {
	tests := []struct {
		name   string
		mutate func(*recipient.Params)
	}{
		{"empty name", func(p *recipient.Params) { p.Name = "  " }},
		{"empty book number", func(p *recipient.Params) { p.BookNumber = "" }},
		{"invalid sex", func(p *recipient.Params) { p.Sex = "other" }},
		{"unknown wing", func(p *recipient.Params) { p.Wing = "Z" }},
		{"unknown cell", func(p *recipient.Params) { p.Wing = "D"; p.Cell = "9" }},
		{"bad cpf check digits", func(p *recipient.Params) { p.CPF = "52998224726" }},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			params := s.validParams()
			tt.mutate(&params)
			_, err := s.service.Register(s.ctx(), params)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func (s *RecipientServiceSuite) TestRegister_OptionalCPF() {
	params := s.validParams()
	params.CPF = ""
	rcpt, err := s.service.Register(s.ctx(), params)
	s.Require().NoError(err)
	s.Empty(rcpt.CPF)
}

func (s *RecipientServiceSuite) TestRegister_DuplicateBookNumber() {
	_, err := s.service.Register(s.ctx(), s.validParams())
	s.Require().NoError(err)

	params := s.validParams()
	params.Name = "Outro Nome"
	_, err = s.service.Register(s.ctx(), params)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RecipientServiceSuite) TestUpdate() {
	rcpt, err := s.service.Register(s.ctx(), s.validParams())
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
	params := s.validParams()
	params.Wing = "C"
	params.Cell = "Seguro"
	updated, err := s.service.Update(later, rcpt.ID, params)
	s.Require().NoError(err)

	s.Equal("C", updated.Wing)
	s.Equal("Seguro", updated.Cell)
	s.Equal(rcpt.CreatedAt, updated.CreatedAt)
	s.Equal(s.now.Add(time.Hour), updated.UpdatedAt)
}

func (s *RecipientServiceSuite) TestUpdate_UnknownRecipient() {
	_, err := s.service.Update(s.ctx(), id.NewRecipientID(), s.validParams())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RecipientServiceSuite) TestGetByBookNumber() {
	registered, err := s.service.Register(s.ctx(), s.validParams())
	s.Require().NoError(err)

	found, err := s.service.GetByBookNumber(s.ctx(), "12345")
	s.Require().NoError(err)
	s.Equal(registered.ID, found.ID)

	_, err = s.service.GetByBookNumber(s.ctx(), "00000")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RecipientServiceSuite) TestDeactivate() {
	rcpt, err := s.service.Register(s.ctx(), s.validParams())
	s.Require().NoError(err)

	s.Require().NoError(s.service.Deactivate(s.ctx(), rcpt.ID))

	got, err := s.service.Get(s.ctx(), rcpt.ID)
	s.Require().NoError(err)
	s.False(got.Active)

	// The book number frees up for re-registration.
	_, err = s.service.Register(s.ctx(), s.validParams())
	s.NoError(err)

	events, err := s.auditStore.ListByRecipient(s.ctx(), rcpt.ID)
	s.Require().NoError(err)
	s.Len(events, 2) // registered + deactivated
}

func (s *RecipientServiceSuite) TestList() {
	first, err := s.service.Register(s.ctx(), s.validParams())
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(time.Minute))
	params := s.validParams()
	params.BookNumber = "67890"
	params.Name = "Maria Lima"
	params.Sex = "female"
	second, err := s.service.Register(later, params)
	s.Require().NoError(err)

	recipients, err := s.service.List(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(recipients, 2)
	// Newest first.
	s.Equal(second.ID, recipients[0].ID)
	s.Equal(first.ID, recipients[1].ID)
}
