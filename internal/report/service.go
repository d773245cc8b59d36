// Package report aggregates delivery activity over a time window for the
// facility's oversight reports.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cobal/internal/delivery"
	dErrors "cobal/pkg/domain-errors"
)

// DeliverySearcher provides the delivery rows a summary aggregates over.
type DeliverySearcher interface {
	Search(ctx context.Context, filter delivery.SearchFilter) ([]delivery.RecordWithRecipient, error)
}

// Summary is the aggregate view of deliveries in a window.
type Summary struct {
	From               time.Time      `json:"from"`
	To                 time.Time      `json:"to"`
	TotalDeliveries    int            `json:"total_deliveries"`
	DistinctRecipients int            `json:"distinct_recipients"`
	ItemTotals         []ItemTotal    `json:"item_totals"`
	WingCounts         map[string]int `json:"wing_counts"`
}

// ItemTotal is the delivered quantity of one item across the window.
type ItemTotal struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type Service struct {
	deliveries DeliverySearcher
}

func New(deliveries DeliverySearcher) (*Service, error) {
	if deliveries == nil {
		return nil, fmt.Errorf("delivery searcher is required")
	}
	return &Service{deliveries: deliveries}, nil
}

// searchPageSize bounds each page pulled from the store while aggregating.
const searchPageSize = 200

// Summarize aggregates all deliveries between from and to (inclusive).
func (s *Service) Summarize(ctx context.Context, from, to time.Time) (*Summary, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "to must not precede from")
	}

	summary := &Summary{
		From:       from,
		To:         to,
		WingCounts: make(map[string]int),
	}
	itemTotals := make(map[string]int)
	recipients := make(map[string]struct{})

	for offset := 0; ; offset += searchPageSize {
		rows, err := s.deliveries.Search(ctx, delivery.SearchFilter{
			From:   from,
			To:     to,
			Limit:  searchPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate deliveries")
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			summary.TotalDeliveries++
			recipients[row.RecipientID.String()] = struct{}{}
			if row.Wing != "" {
				summary.WingCounts[row.Wing]++
			}
			for itemID, qty := range row.Items {
				itemTotals[itemID] += qty
			}
		}

		if len(rows) < searchPageSize {
			break
		}
	}

	summary.DistinctRecipients = len(recipients)
	summary.ItemTotals = make([]ItemTotal, 0, len(itemTotals))
	for itemID, qty := range itemTotals {
		summary.ItemTotals = append(summary.ItemTotals, ItemTotal{ItemID: itemID, Quantity: qty})
	}
	sort.Slice(summary.ItemTotals, func(i, j int) bool {
		if summary.ItemTotals[i].Quantity != summary.ItemTotals[j].Quantity {
			return summary.ItemTotals[i].Quantity > summary.ItemTotals[j].Quantity
		}
		return summary.ItemTotals[i].ItemID < summary.ItemTotals[j].ItemID
	})

	return summary, nil
}
