package handler

import (
	"strconv"
	"strings"
	"time"

	"cobal/internal/delivery"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
)

// deliveryRequest is the JSON body for evaluate and submit.
type deliveryRequest struct {
	RecipientID  string         `json:"recipient_id"`
	Items        map[string]int `json:"items"`
	Observations string         `json:"observations,omitempty"`
}

func (r deliveryRequest) toDomain() (delivery.Request, error) {
	recipientID, err := id.ParseRecipientID(strings.TrimSpace(r.RecipientID))
	if err != nil {
		return delivery.Request{}, err
	}
	return delivery.Request{
		RecipientID:  recipientID,
		Items:        delivery.Quantities(r.Items),
		Observations: r.Observations,
	}, nil
}

// searchFilterFromQuery builds a delivery search filter from URL query
// parameters: name, book_number, wing, from, to (RFC 3339), limit, offset.
func searchFilterFromQuery(query map[string][]string) (delivery.SearchFilter, error) {
	get := func(key string) string {
		if vs := query[key]; len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}

	filter := delivery.SearchFilter{
		RecipientName: get("name"),
		BookNumber:    get("book_number"),
		Wing:          get("wing"),
	}

	for _, bound := range []struct {
		key string
		dst *time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		raw := get(bound.key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return delivery.SearchFilter{}, dErrors.New(dErrors.CodeBadRequest, bound.key+" must be RFC 3339")
		}
		*bound.dst = t
	}

	for _, n := range []struct {
		key string
		dst *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		raw := get(n.key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return delivery.SearchFilter{}, dErrors.New(dErrors.CodeBadRequest, n.key+" must be a non-negative integer")
		}
		*n.dst = v
	}

	return filter, nil
}
