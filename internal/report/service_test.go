package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cobal/internal/delivery"
	deliverymemory "cobal/internal/delivery/store/memory"
	"cobal/internal/recipient"
	recipientmemory "cobal/internal/recipient/store/memory"
	"cobal/internal/report"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
)

func seedRecipient(t *testing.T, store *recipientmemory.InMemoryStore, name, book, wing string) *recipient.Recipient {
	t.Helper()
	rcpt := &recipient.Recipient{
		ID: id.NewRecipientID(), Name: name, BookNumber: book,
		Sex: id.SexMale, Wing: wing, Cell: "1", Active: true,
	}
	require.NoError(t, store.Insert(context.Background(), rcpt))
	return rcpt
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	recipients := recipientmemory.New()
	deliveries := deliverymemory.New(recipients)

	carlos := seedRecipient(t, recipients, "Carlos Souza", "111", "A")
	maria := seedRecipient(t, recipients, "Maria Lima", "222", "B")

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insert := func(rcptID id.RecipientID, at time.Time, items delivery.Quantities) {
		require.NoError(t, deliveries.Insert(ctx, delivery.Record{
			ID: id.NewDeliveryID(), RecipientID: rcptID, Timestamp: at, Items: items,
		}, nil))
	}

	insert(carlos.ID, base, delivery.Quantities{"toalha": 1, "creme_dental": 1})
	insert(carlos.ID, base.AddDate(0, 0, 2), delivery.Quantities{"creme_dental": 1})
	insert(maria.ID, base.AddDate(0, 0, 3), delivery.Quantities{"cotonetes": 15})
	// Outside the window, must not count.
	insert(maria.ID, base.AddDate(0, 1, 0), delivery.Quantities{"toalha": 1})

	svc, err := report.New(deliveries)
	require.NoError(t, err)

	summary, err := svc.Summarize(ctx, base, base.AddDate(0, 0, 10))
	require.NoError(t, err)

	require.Equal(t, 3, summary.TotalDeliveries)
	require.Equal(t, 2, summary.DistinctRecipients)
	require.Equal(t, map[string]int{"A": 2, "B": 1}, summary.WingCounts)
	require.Equal(t, []report.ItemTotal{
		{ItemID: "cotonetes", Quantity: 15},
		{ItemID: "creme_dental", Quantity: 2},
		{ItemID: "toalha", Quantity: 1},
	}, summary.ItemTotals)
}

func TestSummarize_EmptyWindow(t *testing.T) {
	recipients := recipientmemory.New()
	svc, err := report.New(deliverymemory.New(recipients))
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	summary, err := svc.Summarize(context.Background(), from, from.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Zero(t, summary.TotalDeliveries)
	require.Zero(t, summary.DistinctRecipients)
	require.Empty(t, summary.ItemTotals)
}

func TestSummarize_InvertedWindow(t *testing.T) {
	recipients := recipientmemory.New()
	svc, err := report.New(deliverymemory.New(recipients))
	require.NoError(t, err)

	from := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	_, err = svc.Summarize(context.Background(), from, from.AddDate(0, 0, -1))
	require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestNew_RequiresSearcher(t *testing.T) {
	_, err := report.New(nil)
	require.Error(t, err)
}
