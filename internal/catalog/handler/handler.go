// Package handler exposes the item catalog endpoints.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cobal/internal/catalog"
	dErrors "cobal/pkg/domain-errors"
	"cobal/pkg/platform/httputil"
)

type Handler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func New(cat *catalog.Catalog, logger *slog.Logger) *Handler {
	return &Handler{catalog: cat, logger: logger}
}

// Register registers the catalog routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/items", h.handleList)
	r.Get("/items/{itemID}", h.handleGet)
}

type itemResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Unit           string `json:"unit"`
	MaxQuantity    int    `json:"max_quantity"`
	Recurrence     string `json:"recurrence"`
	SexRestriction string `json:"sex_restriction,omitempty"`
}

func toItemResponse(item catalog.ItemDefinition) itemResponse {
	return itemResponse{
		ID:             item.ID,
		Name:           item.Name,
		Unit:           item.Unit,
		MaxQuantity:    item.MaxQuantity,
		Recurrence:     string(item.Recurrence),
		SexRestriction: string(item.SexRestriction),
	}
}

// handleList returns catalog items in declaration order, optionally filtered
// by the class query parameter.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	class := catalog.Recurrence(r.URL.Query().Get("class"))
	if class != "" && !class.IsValid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			"class must be one of one-time, every-15-days, every-90-days"))
		return
	}

	items := h.catalog.List(class)
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Get(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toItemResponse(item))
}
