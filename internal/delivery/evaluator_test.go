package delivery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cobal/internal/catalog"
	"cobal/internal/delivery"
	"cobal/internal/delivery/mocks"
	"cobal/internal/recipient"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
	"cobal/pkg/requestcontext"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.LoadDefault()
	require.NoError(t, err)
	return cat
}

func testRecipient(sex id.Sex) *recipient.Recipient {
	return &recipient.Recipient{
		ID:         id.NewRecipientID(),
		Name:       "Carlos Souza",
		BookNumber: "12345",
		Sex:        sex,
		Wing:       "B",
		Cell:       "3",
		Active:     true,
	}
}

func ctxAt(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func TestEvaluate_AcceptsWithinLimits(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistoryAccessor(ctrl)
	history.EXPECT().LastDeliveryOf(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(time.Time{}, false, nil).AnyTimes()

	e := delivery.NewEvaluator(testCatalog(t), history)
	rcpt := testRecipient(id.SexMale)

	result, err := e.Evaluate(ctxAt(time.Now()), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"papel_higienico": 2, "creme_dental": 1},
	})
	require.NoError(t, err)
	require.True(t, result.Accepted())
	require.Len(t, result.Items, 2)
	for _, verdict := range result.Items {
		require.True(t, verdict.Accepted())
	}
}

func TestEvaluate_EmptyRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := delivery.NewEvaluator(testCatalog(t), mocks.NewMockHistoryAccessor(ctrl))
	rcpt := testRecipient(id.SexMale)

	for name, items := range map[string]delivery.Quantities{
		"nil items":            nil,
		"no items":             {},
		"only zero quantities": {"sabonete_liquido": 0},
	} {
		t.Run(name, func(t *testing.T) {
			result, err := e.Evaluate(ctxAt(time.Now()), rcpt, delivery.Request{RecipientID: rcpt.ID, Items: items})
			require.NoError(t, err)
			require.False(t, result.Accepted())
			require.Len(t, result.Violations, 1)
			require.Equal(t, delivery.ViolationEmptyRequest, result.Violations[0].Code)
		})
	}
}

func TestEvaluate_UnknownItem(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := delivery.NewEvaluator(testCatalog(t), mocks.NewMockHistoryAccessor(ctrl))
	rcpt := testRecipient(id.SexMale)

	result, err := e.Evaluate(ctxAt(time.Now()), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"cigarros": 1},
	})
	require.NoError(t, err)
	require.False(t, result.Accepted())
	require.Equal(t, delivery.ViolationUnknownItem, result.Violations[0].Code)
	require.Equal(t, "cigarros", result.Violations[0].ItemID)
}

func TestEvaluate_NegativeQuantity(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := delivery.NewEvaluator(testCatalog(t), mocks.NewMockHistoryAccessor(ctrl))
	rcpt := testRecipient(id.SexMale)

	result, err := e.Evaluate(ctxAt(time.Now()), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"sabonete_liquido": -1},
	})
	require.NoError(t, err)
	require.False(t, result.Accepted())
	require.Equal(t, delivery.ViolationInvalidQuantity, result.Violations[0].Code)
}

func TestEvaluate_QuantityBoundary(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistoryAccessor(ctrl)
	history.EXPECT().LastDeliveryOf(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(time.Time{}, false, nil).AnyTimes()

	cat := testCatalog(t)
	e := delivery.NewEvaluator(cat, history)
	rcpt := testRecipient(id.SexMale)

	papel, err := cat.Get("papel_higienico")
	require.NoError(t, err)

	// Exactly the maximum passes.
	result, err := e.Evaluate(ctxAt(time.Now()), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"papel_higienico": papel.MaxQuantity},
	})
	require.NoError(t, err)
	require.True(t, result.Accepted())

	// One over the maximum is rejected with both numbers reported.
	result, err = e.Evaluate(ctxAt(time.Now()), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"papel_higienico": papel.MaxQuantity + 1},
	})
	require.NoError(t, err)
	require.False(t, result.Accepted())
	v := result.Violations[0]
	require.Equal(t, delivery.ViolationQuantityExceeded, v.Code)
	require.Equal(t, papel.MaxQuantity, v.Allowed)
	require.Equal(t, papel.MaxQuantity+1, v.Requested)
}

func TestEvaluate_SexRestriction(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistoryAccessor(ctrl)
	history.EXPECT().LastDeliveryOf(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(time.Time{}, false, nil).AnyTimes()

	e := delivery.NewEvaluator(testCatalog(t), history)

	// Absorvente is female-only.
	result, err := e.Evaluate(ctxAt(time.Now()), testRecipient(id.SexMale), delivery.Request{
		RecipientID: id.NewRecipientID(),
		Items:       delivery.Quantities{"absorvente": 1},
	})
	require.NoError(t, err)
	require.False(t, result.Accepted())
	require.Equal(t, delivery.ViolationSexRestricted, result.Violations[0].Code)

	result, err = e.Evaluate(ctxAt(time.Now()), testRecipient(id.SexFemale), delivery.Request{
		RecipientID: id.NewRecipientID(),
		Items:       delivery.Quantities{"absorvente": 1},
	})
	require.NoError(t, err)
	require.True(t, result.Accepted())

	// Papel higienico comum is male-only.
	result, err = e.Evaluate(ctxAt(time.Now()), testRecipient(id.SexFemale), delivery.Request{
		RecipientID: id.NewRecipientID(),
		Items:       delivery.Quantities{"papel_higienico": 1},
	})
	require.NoError(t, err)
	require.False(t, result.Accepted())
	require.Equal(t, delivery.ViolationSexRestricted, result.Violations[0].Code)
}

func TestEvaluate_RecurrenceWindowBoundary(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistoryAccessor(ctrl)
	e := delivery.NewEvaluator(testCatalog(t), history)
	rcpt := testRecipient(id.SexMale)

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	// Toalha is every-90-days. A delivery exactly 90 days ago passes.
	history.EXPECT().LastDeliveryOf(gomock.Any(), rcpt.ID, "toalha").
		Return(now.AddDate(0, 0, -90), true, nil)
	result, err := e.Evaluate(ctxAt(now), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"toalha": 1},
	})
	require.NoError(t, err)
	require.True(t, result.Accepted())

	// 89 days ago is one day short.
	history.EXPECT().LastDeliveryOf(gomock.Any(), rcpt.ID, "toalha").
		Return(now.AddDate(0, 0, -89), true, nil)
	result, err = e.Evaluate(ctxAt(now), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"toalha": 1},
	})
	require.NoError(t, err)
	require.False(t, result.Accepted())
	v := result.Violations[0]
	require.Equal(t, delivery.ViolationTooSoon, v.Code)
	require.Equal(t, 1, v.DaysRemaining)
}

func TestEvaluate_DeliveredYesterday(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistoryAccessor(ctrl)
	e := delivery.NewEvaluator(testCatalog(t), history)
	rcpt := testRecipient(id.SexMale)

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	history.EXPECT().LastDeliveryOf(gomock.Any(), rcpt.ID, "toalha").
		Return(now.AddDate(0, 0, -1), true, nil)

	result, err := e.Evaluate(ctxAt(now), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"toalha": 1},
	})
	require.NoError(t, err)
	require.False(t, result.Accepted())
	v := result.Violations[0]
	require.Equal(t, delivery.ViolationTooSoon, v.Code)
	require.Equal(t, 89, v.DaysRemaining)
}

func TestEvaluate_OneTimeItemsIgnoreHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	// No LastDeliveryOf expectation: one-time items must not consult history.
	history := mocks.NewMockHistoryAccessor(ctrl)
	e := delivery.NewEvaluator(testCatalog(t), history)
	rcpt := testRecipient(id.SexMale)

	result, err := e.Evaluate(ctxAt(time.Now()), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"colchao": 1},
	})
	require.NoError(t, err)
	require.True(t, result.Accepted())
}

func TestEvaluate_AccumulatesAllViolations(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistoryAccessor(ctrl)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rcpt := testRecipient(id.SexMale)
	history.EXPECT().LastDeliveryOf(gomock.Any(), rcpt.ID, "toalha").
		Return(now.AddDate(0, 0, -10), true, nil)
	history.EXPECT().LastDeliveryOf(gomock.Any(), rcpt.ID, "creme_dental").
		Return(time.Time{}, false, nil)

	e := delivery.NewEvaluator(testCatalog(t), history)

	result, err := e.Evaluate(ctxAt(now), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items: delivery.Quantities{
			"absorvente":       1,  // sex restricted
			"foo":              1,  // unknown
			"sabonete_liquido": 99, // over max
			"toalha":           1,  // too soon
			"creme_dental":     1,  // fine
		},
	})
	require.NoError(t, err)
	require.False(t, result.Accepted())
	require.Len(t, result.Items, 5)
	require.Len(t, result.Violations, 4)

	// Violations follow ascending item-id order.
	codes := make([]delivery.ViolationCode, 0, len(result.Violations))
	for _, v := range result.Violations {
		codes = append(codes, v.Code)
	}
	require.Equal(t, []delivery.ViolationCode{
		delivery.ViolationSexRestricted,    // absorvente
		delivery.ViolationUnknownItem,      // foo
		delivery.ViolationQuantityExceeded, // sabonete_liquido
		delivery.ViolationTooSoon,          // toalha
	}, codes)
}

func TestEvaluate_Deterministic(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistoryAccessor(ctrl)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rcpt := testRecipient(id.SexMale)
	history.EXPECT().LastDeliveryOf(gomock.Any(), rcpt.ID, gomock.Any()).
		Return(now.AddDate(0, 0, -5), true, nil).AnyTimes()

	e := delivery.NewEvaluator(testCatalog(t), history)
	req := delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"toalha": 1, "cotonetes": 5, "papel_higienico": 1},
	}

	first, err := e.Evaluate(ctxAt(now), rcpt, req)
	require.NoError(t, err)
	second, err := e.Evaluate(ctxAt(now), rcpt, req)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEvaluate_HistoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistoryAccessor(ctrl)
	history.EXPECT().LastDeliveryOf(gomock.Any(), gomock.Any(), "toalha").
		Return(time.Time{}, false, errors.New("connection refused"))

	e := delivery.NewEvaluator(testCatalog(t), history)
	rcpt := testRecipient(id.SexMale)

	result, err := e.Evaluate(ctxAt(time.Now()), rcpt, delivery.Request{
		RecipientID: rcpt.ID,
		Items:       delivery.Quantities{"toalha": 1},
	})
	require.Error(t, err)
	require.Nil(t, result)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}
