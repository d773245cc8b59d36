// Package handler exposes the reporting endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cobal/internal/report"
	dErrors "cobal/pkg/domain-errors"
	"cobal/pkg/platform/httputil"
	"cobal/pkg/requestcontext"
)

// Service defines the reporting operations the handler needs.
type Service interface {
	Summarize(ctx context.Context, from, to time.Time) (*report.Summary, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the report routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reports/summary", h.handleSummary)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, ok := parseBound(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseBound(w, r, "to")
	if !ok {
		return
	}

	summary, err := h.service.Summarize(ctx, from, to)
	if err != nil {
		h.logger.ErrorContext(ctx, "summary report failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

func parseBound(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, key+" must be RFC 3339"))
		return time.Time{}, false
	}
	return t, true
}
