// Package handler exposes the delivery endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cobal/internal/delivery"
	"cobal/internal/recipient"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
	"cobal/pkg/platform/httputil"
	"cobal/pkg/requestcontext"
)

// Service defines the delivery operations the handler needs.
type Service interface {
	Evaluate(ctx context.Context, rcpt *recipient.Recipient, req delivery.Request) (*delivery.EvaluationResult, error)
	Submit(ctx context.Context, rcpt *recipient.Recipient, req delivery.Request) (id.DeliveryID, *delivery.EvaluationResult, error)
	ListByRecipient(ctx context.Context, recipientID id.RecipientID) ([]delivery.Record, error)
	Search(ctx context.Context, filter delivery.SearchFilter) ([]delivery.RecordWithRecipient, error)
}

// RecipientLookup resolves the recipient a request targets.
type RecipientLookup interface {
	Get(ctx context.Context, recipientID id.RecipientID) (*recipient.Recipient, error)
}

type Handler struct {
	service    Service
	recipients RecipientLookup
	logger     *slog.Logger
}

func New(service Service, recipients RecipientLookup, logger *slog.Logger) *Handler {
	return &Handler{service: service, recipients: recipients, logger: logger}
}

// Register registers the delivery routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/deliveries/evaluate", h.handleEvaluate)
	r.Post("/deliveries", h.handleSubmit)
	r.Get("/deliveries", h.handleSearch)
	r.Get("/recipients/{recipientID}/deliveries", h.handleListByRecipient)
}

// handleEvaluate runs the rule engine without persisting anything, so the
// operator can pre-check a delivery while still filling the form.
func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[deliveryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req, rcpt, ok := h.resolve(w, ctx, requestID, body)
	if !ok {
		return
	}

	result, err := h.service.Evaluate(ctx, rcpt, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "evaluation failed",
			"request_id", requestID,
			"recipient_id", rcpt.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toEvaluationResponse(result))
}

// handleSubmit evaluates and, when accepted, records the delivery. An
// accepted delivery returns 201 with its id; a rejected one returns 422 with
// every violation.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[deliveryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req, rcpt, ok := h.resolve(w, ctx, requestID, body)
	if !ok {
		return
	}

	deliveryID, result, err := h.service.Submit(ctx, rcpt, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "delivery submit failed",
			"request_id", requestID,
			"recipient_id", rcpt.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := toEvaluationResponse(result)
	if !result.Accepted() {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	h.logger.InfoContext(ctx, "delivery recorded",
		"request_id", requestID,
		"recipient_id", rcpt.ID,
		"delivery_id", deliveryID,
	)
	resp.DeliveryID = deliveryID.String()
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := searchFilterFromQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rows, err := h.service.Search(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "delivery search failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]searchRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSearchRowResponse(row))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListByRecipient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recipientID, err := id.ParseRecipientID(chi.URLParam(r, "recipientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.ListByRecipient(ctx, recipientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "delivery history lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"recipient_id", recipientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordResponse(record))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// resolve parses the request body into a domain request and loads its target
// recipient, writing the error response on failure.
func (h *Handler) resolve(w http.ResponseWriter, ctx context.Context, requestID string, body deliveryRequest) (delivery.Request, *recipient.Recipient, bool) {
	req, err := body.toDomain()
	if err != nil {
		httputil.WriteError(w, err)
		return delivery.Request{}, nil, false
	}

	rcpt, err := h.recipients.Get(ctx, req.RecipientID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "recipient lookup failed",
				"request_id", requestID,
				"recipient_id", req.RecipientID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return delivery.Request{}, nil, false
	}
	if !rcpt.Active {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "recipient is deactivated"))
		return delivery.Request{}, nil, false
	}

	return req, rcpt, true
}
