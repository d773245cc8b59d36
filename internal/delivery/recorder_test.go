package delivery_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cobal/internal/audit"
	"cobal/internal/catalog"
	"cobal/internal/delivery"
	"cobal/internal/delivery/mocks"
	"cobal/internal/recipient"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
	"cobal/pkg/requestcontext"
)

type RecorderSuite struct {
	suite.Suite
	ctrl               *gomock.Controller
	mockStore          *mocks.MockStore
	mockAuditPublisher *mocks.MockAuditPublisher
	service            *delivery.Service
	catalog            *catalog.Catalog
	rcpt               *recipient.Recipient
	now                time.Time
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockAuditPublisher = mocks.NewMockAuditPublisher(s.ctrl)

	cat, err := catalog.LoadDefault()
	s.Require().NoError(err)
	s.catalog = cat

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service, err = delivery.NewService(cat, s.mockStore,
		delivery.WithLogger(logger),
		delivery.WithAuditPublisher(s.mockAuditPublisher),
	)
	s.Require().NoError(err)

	s.rcpt = &recipient.Recipient{
		ID:         id.NewRecipientID(),
		Name:       "Maria Lima",
		BookNumber: "98765",
		Sex:        id.SexFemale,
		Wing:       "C",
		Cell:       "2",
		Active:     true,
	}
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RecorderSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RecorderSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *RecorderSuite) TestNewService() {
	s.Run("nil catalog returns error", func() {
		_, err := delivery.NewService(nil, s.mockStore)
		s.Error(err)
		s.Contains(err.Error(), "catalog is required")
	})

	s.Run("nil store returns error", func() {
		_, err := delivery.NewService(s.catalog, nil)
		s.Error(err)
		s.Contains(err.Error(), "delivery store is required")
	})
}

func (s *RecorderSuite) TestSubmit_AcceptedPersistsAndAudits() {
	s.mockStore.EXPECT().LastDeliveryOf(gomock.Any(), s.rcpt.ID, "absorvente").
		Return(time.Time{}, false, nil)

	var inserted delivery.Record
	s.mockStore.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, record delivery.Record, windows map[string]int) error {
			inserted = record
			s.Equal(map[string]int{"absorvente": 15}, windows)
			return nil
		})

	var emitted audit.Event
	s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			emitted = event
			return nil
		})

	deliveryID, result, err := s.service.Submit(s.ctx(), s.rcpt, delivery.Request{
		RecipientID:  s.rcpt.ID,
		Items:        delivery.Quantities{"absorvente": 10},
		Observations: "entrega da tarde",
	})
	s.NoError(err)
	s.True(result.Accepted())
	s.False(deliveryID.IsNil())

	s.Equal(deliveryID, inserted.ID)
	s.Equal(s.rcpt.ID, inserted.RecipientID)
	s.Equal(s.now, inserted.Timestamp)
	s.Equal(delivery.Quantities{"absorvente": 10}, inserted.Items)
	s.Equal("entrega da tarde", inserted.Observations)

	s.Equal(audit.ActionDeliveryRecorded, emitted.Action)
	s.Equal(s.rcpt.ID, emitted.RecipientID)
	s.Equal(deliveryID.String(), emitted.Detail["delivery_id"])
}

func (s *RecorderSuite) TestSubmit_RejectedPersistsNothing() {
	// No Insert expectation: a rejected request must not touch storage.
	var emitted audit.Event
	s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			emitted = event
			return nil
		})

	deliveryID, result, err := s.service.Submit(s.ctx(), s.rcpt, delivery.Request{
		RecipientID: s.rcpt.ID,
		Items:       delivery.Quantities{"papel_higienico": 1}, // male-only
	})
	s.NoError(err)
	s.False(result.Accepted())
	s.True(deliveryID.IsNil())
	s.Equal(audit.ActionDeliveryRejected, emitted.Action)
	s.NotEmpty(emitted.Detail)
}

func (s *RecorderSuite) TestSubmit_InsertConflictPassesThrough() {
	s.mockStore.EXPECT().LastDeliveryOf(gomock.Any(), s.rcpt.ID, "toalha").
		Return(time.Time{}, false, nil)
	s.mockStore.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(dErrors.New(dErrors.CodeConflict, "item was delivered within its window"))

	deliveryID, result, err := s.service.Submit(s.ctx(), s.rcpt, delivery.Request{
		RecipientID: s.rcpt.ID,
		Items:       delivery.Quantities{"toalha": 1},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Nil(result)
	s.True(deliveryID.IsNil())
}

func (s *RecorderSuite) TestSubmit_InsertFailureIsUnavailable() {
	s.mockStore.EXPECT().LastDeliveryOf(gomock.Any(), s.rcpt.ID, "toalha").
		Return(time.Time{}, false, nil)
	s.mockStore.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("connection reset"))

	_, _, err := s.service.Submit(s.ctx(), s.rcpt, delivery.Request{
		RecipientID: s.rcpt.ID,
		Items:       delivery.Quantities{"toalha": 1},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *RecorderSuite) TestSubmit_AuditFailureDoesNotFailDelivery() {
	s.mockStore.EXPECT().LastDeliveryOf(gomock.Any(), s.rcpt.ID, "toalha").
		Return(time.Time{}, false, nil)
	s.mockStore.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
		Return(errors.New("audit buffer full"))

	deliveryID, result, err := s.service.Submit(s.ctx(), s.rcpt, delivery.Request{
		RecipientID: s.rcpt.ID,
		Items:       delivery.Quantities{"toalha": 1},
	})
	s.NoError(err)
	s.True(result.Accepted())
	s.False(deliveryID.IsNil())
}

func (s *RecorderSuite) TestSubmit_OneTimeItemHasNoWindow() {
	s.mockStore.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ delivery.Record, windows map[string]int) error {
			s.Empty(windows)
			return nil
		})
	s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	_, result, err := s.service.Submit(s.ctx(), s.rcpt, delivery.Request{
		RecipientID: s.rcpt.ID,
		Items:       delivery.Quantities{"colchao": 1},
	})
	s.NoError(err)
	s.True(result.Accepted())
}

func (s *RecorderSuite) TestSearch_ClampsPagination() {
	s.mockStore.EXPECT().Search(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter delivery.SearchFilter) ([]delivery.RecordWithRecipient, error) {
			s.Equal(50, filter.Limit)
			s.Equal(0, filter.Offset)
			return nil, nil
		})

	_, err := s.service.Search(s.ctx(), delivery.SearchFilter{Limit: 10_000, Offset: -3})
	s.NoError(err)
}

func (s *RecorderSuite) TestListByRecipient_WrapsStoreError() {
	s.mockStore.EXPECT().ListByRecipient(gomock.Any(), s.rcpt.ID).
		Return(nil, errors.New("boom"))

	_, err := s.service.ListByRecipient(s.ctx(), s.rcpt.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
