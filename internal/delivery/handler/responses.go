package handler

import (
	"time"

	"cobal/internal/delivery"
)

// evaluationResponse is returned by POST /deliveries/evaluate and, with a
// delivery id, by POST /deliveries.
type evaluationResponse struct {
	Accepted   bool                   `json:"accepted"`
	DeliveryID string                 `json:"delivery_id,omitempty"`
	Items      []delivery.ItemVerdict `json:"items"`
	Violations []delivery.Violation   `json:"violations,omitempty"`
}

type recordResponse struct {
	ID           string         `json:"id"`
	RecipientID  string         `json:"recipient_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Items        map[string]int `json:"items"`
	Observations string         `json:"observations,omitempty"`
	RecordedBy   string         `json:"recorded_by,omitempty"`
}

type searchRowResponse struct {
	recordResponse
	RecipientName string `json:"recipient_name,omitempty"`
	BookNumber    string `json:"book_number,omitempty"`
	Wing          string `json:"wing,omitempty"`
	Cell          string `json:"cell,omitempty"`
}

func toEvaluationResponse(result *delivery.EvaluationResult) evaluationResponse {
	return evaluationResponse{
		Accepted:   result.Accepted(),
		Items:      result.Items,
		Violations: result.Violations,
	}
}

func toRecordResponse(r delivery.Record) recordResponse {
	resp := recordResponse{
		ID:           r.ID.String(),
		RecipientID:  r.RecipientID.String(),
		Timestamp:    r.Timestamp,
		Items:        r.Items,
		Observations: r.Observations,
	}
	if !r.RecordedBy.IsNil() {
		resp.RecordedBy = r.RecordedBy.String()
	}
	return resp
}

func toSearchRowResponse(row delivery.RecordWithRecipient) searchRowResponse {
	return searchRowResponse{
		recordResponse: toRecordResponse(row.Record),
		RecipientName:  row.RecipientName,
		BookNumber:     row.BookNumber,
		Wing:           row.Wing,
		Cell:           row.Cell,
	}
}
