package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"invoicedash/internal/core"
	"invoicedash/internal/types"
)

// CustomerRepo defines the data access contract for customer reads.
type CustomerRepo interface {
	Fields(ctx context.Context) ([]types.CustomerField, error)
	FilteredSummaries(ctx context.Context, search string) ([]types.CustomerSummary, error)
}

// CustomerHandler serves the customer endpoints.
type CustomerHandler struct {
	customers CustomerRepo
	logger    *slog.Logger
}

// NewCustomerHandler constructs the handler.
func NewCustomerHandler(customers CustomerRepo, logger *slog.Logger) *CustomerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerHandler{customers: customers, logger: logger}
}

// RegisterRoutes mounts customer routes on the provided chi.Router.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/fields", h.Fields)
	})
}

// Fields serves GET /customers/fields: the id/name pairs that populate
// the customer select on the invoice form.
func (h *CustomerHandler) Fields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.customers.Fields(r.Context())
	if err != nil {
		core.Error(w, r, databaseError("fetch customers", err))
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: fields})
}

// List serves GET /customers: per-customer invoice aggregates, optionally
// filtered by the query parameter.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("query")

	summaries, err := h.customers.FilteredSummaries(r.Context(), search)
	if err != nil {
		core.Error(w, r, databaseError("fetch customer table", err))
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: summaries})
}
