// Package handler exposes the recipient registry endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cobal/internal/recipient"
	id "cobal/pkg/domain"
	"cobal/pkg/platform/httputil"
	"cobal/pkg/requestcontext"
)

// Service defines the recipient operations the handler needs.
type Service interface {
	Register(ctx context.Context, params recipient.Params) (*recipient.Recipient, error)
	Update(ctx context.Context, recipientID id.RecipientID, params recipient.Params) (*recipient.Recipient, error)
	Get(ctx context.Context, recipientID id.RecipientID) (*recipient.Recipient, error)
	GetByBookNumber(ctx context.Context, bookNumber string) (*recipient.Recipient, error)
	List(ctx context.Context) ([]*recipient.Recipient, error)
	Deactivate(ctx context.Context, recipientID id.RecipientID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the recipient routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/recipients", h.handleRegister)
	r.Get("/recipients", h.handleList)
	r.Get("/recipients/{recipientID}", h.handleGet)
	r.Put("/recipients/{recipientID}", h.handleUpdate)
	r.Delete("/recipients/{recipientID}", h.handleDeactivate)
}

type recipientRequest struct {
	Name       string `json:"name"`
	BookNumber string `json:"book_number"`
	CPF        string `json:"cpf,omitempty"`
	Sex        string `json:"sex"`
	Wing       string `json:"wing"`
	Cell       string `json:"cell"`
}

func (r recipientRequest) toParams() recipient.Params {
	return recipient.Params{
		Name:       r.Name,
		BookNumber: r.BookNumber,
		CPF:        r.CPF,
		Sex:        r.Sex,
		Wing:       r.Wing,
		Cell:       r.Cell,
	}
}

type recipientResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	BookNumber string    `json:"book_number"`
	CPF        string    `json:"cpf,omitempty"`
	Sex        string    `json:"sex"`
	Wing       string    `json:"wing"`
	Cell       string    `json:"cell"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toResponse(rcpt *recipient.Recipient) recipientResponse {
	return recipientResponse{
		ID:         rcpt.ID.String(),
		Name:       rcpt.Name,
		BookNumber: rcpt.BookNumber,
		CPF:        rcpt.CPF,
		Sex:        string(rcpt.Sex),
		Wing:       rcpt.Wing,
		Cell:       rcpt.Cell,
		Active:     rcpt.Active,
		CreatedAt:  rcpt.CreatedAt,
		UpdatedAt:  rcpt.UpdatedAt,
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[recipientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rcpt, err := h.service.Register(ctx, body.toParams())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "recipient registered",
		"request_id", requestID,
		"recipient_id", rcpt.ID,
		"book_number", rcpt.BookNumber,
	)
	httputil.WriteJSON(w, http.StatusCreated, toResponse(rcpt))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	recipientID, err := id.ParseRecipientID(chi.URLParam(r, "recipientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[recipientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rcpt, err := h.service.Update(ctx, recipientID, body.toParams())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(rcpt))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recipientID, err := id.ParseRecipientID(chi.URLParam(r, "recipientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rcpt, err := h.service.Get(ctx, recipientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(rcpt))
}

// handleList returns all recipients, or a single-element list when the
// book_number query parameter is present.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if bookNumber := r.URL.Query().Get("book_number"); bookNumber != "" {
		rcpt, err := h.service.GetByBookNumber(ctx, bookNumber)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, []recipientResponse{toResponse(rcpt)})
		return
	}

	recipients, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "recipient list failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]recipientResponse, 0, len(recipients))
	for _, rcpt := range recipients {
		out = append(out, toResponse(rcpt))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recipientID, err := id.ParseRecipientID(chi.URLParam(r, "recipientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Deactivate(ctx, recipientID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "recipient deactivated",
		"request_id", requestcontext.RequestID(ctx),
		"recipient_id", recipientID,
	)
	w.WriteHeader(http.StatusNoContent)
}
