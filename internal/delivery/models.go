// Package delivery implements the eligibility rule engine and delivery
// recording: which items a recipient may receive, in what quantity, and how
// often.
package delivery

import (
	"fmt"
	"time"

	id "cobal/pkg/domain"
)

// Quantities maps item id to a delivered or requested quantity. Only items
// with quantity > 0 are present.
type Quantities map[string]int

// Request is a proposed delivery, constructed by the caller and discarded
// after evaluation. Never persisted.
type Request struct {
	RecipientID id.RecipientID
	Items       Quantities
	// Observations is free-form operator commentary carried onto the record
	// when the request is accepted.
	Observations string
}

// Record is one persisted delivery. Created exactly once and immutable
// afterwards; corrections are modeled as new records.
type Record struct {
	ID           id.DeliveryID
	RecipientID  id.RecipientID
	Timestamp    time.Time
	Items        Quantities
	Observations string
	RecordedBy   id.OperatorID
}

// RecordWithRecipient is a search row: the record joined with the recipient
// attributes the search screen displays.
type RecordWithRecipient struct {
	Record
	RecipientName string
	BookNumber    string
	Wing          string
	Cell          string
}

// SearchFilter narrows a delivery search. Zero values mean "no filter".
type SearchFilter struct {
	RecipientName string
	BookNumber    string
	Wing          string
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}

// ViolationCode classifies why a requested item was rejected.
type ViolationCode string

const (
	ViolationEmptyRequest     ViolationCode = "empty_request"
	ViolationUnknownItem      ViolationCode = "unknown_item"
	ViolationInvalidQuantity  ViolationCode = "invalid_quantity"
	ViolationQuantityExceeded ViolationCode = "quantity_exceeded"
	ViolationSexRestricted    ViolationCode = "sex_restricted"
	ViolationTooSoon          ViolationCode = "too_soon"
)

// Violation is one rule failure, structured so the caller can render every
// field without parsing messages.
type Violation struct {
	ItemID        string        `json:"item_id,omitempty"`
	Code          ViolationCode `json:"code"`
	Allowed       int           `json:"allowed,omitempty"`
	Requested     int           `json:"requested,omitempty"`
	DaysRemaining int           `json:"days_remaining,omitempty"`
	Message       string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// ItemVerdict is the per-item outcome of an evaluation.
type ItemVerdict struct {
	ItemID    string     `json:"item_id"`
	Quantity  int        `json:"quantity"`
	Violation *Violation `json:"violation,omitempty"`
}

// Accepted reports whether the item passed every rule.
func (v ItemVerdict) Accepted() bool { return v.Violation == nil }

// EvaluationResult is the full verdict for one request. Items appear in
// ascending item-id order so error ordering is reproducible.
type EvaluationResult struct {
	Items      []ItemVerdict `json:"items"`
	Violations []Violation   `json:"violations,omitempty"`
}

// Accepted reports whether every requested item passed.
func (r *EvaluationResult) Accepted() bool { return len(r.Violations) == 0 }
