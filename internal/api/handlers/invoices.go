// Package handlers contains the HTTP handler implementations for the
// invoicing dashboard API. Handlers depend on locally defined interfaces
// rather than concrete repository types so they can be mocked in tests.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"invoicedash/internal/core"
	"invoicedash/internal/types"
)

// --- Service Interfaces ---

// InvoiceRepo defines the data access contract for invoice operations.
// Mirrors the concrete db.InvoiceRepository methods used by this handler.
type InvoiceRepo interface {
	List(ctx context.Context, query types.InvoiceQuery) ([]types.InvoiceListItem, error)
	CountPages(ctx context.Context, search string, itemsPerPage int) (int, error)
	AllIDs(ctx context.Context) ([]string, error)
	GetByID(ctx context.Context, id string) (*types.InvoiceForm, error)
	Create(ctx context.Context, customerID string, amount int64, status types.InvoiceStatus) error
	Update(ctx context.Context, id, customerID string, amount int64, status types.InvoiceStatus) error
	Delete(ctx context.Context, id string) error
}

// --- Request/Response Models ---

// InvoiceInput is the request body for creating or updating an invoice.
// Amount is in major currency units (dollars), converted to cents at the
// repository boundary.
type InvoiceInput struct {
	CustomerID string  `json:"customer_id" validate:"required,uuid"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Status     string  `json:"status" validate:"required,oneof=pending paid"`
}

// invoiceFieldMessages maps validation failures to the messages the
// dashboard shows next to each form field.
var invoiceFieldMessages = map[string]string{
	"customer_id": "Please select a customer.",
	"amount":      "Please enter an amount greater than $0.",
	"status":      "Please select an invoice status.",
}

// InvoiceListResponse is the response for the invoice listing endpoint.
type InvoiceListResponse struct {
	Invoices   []types.InvoiceListItem `json:"invoices"`
	Page       int                     `json:"page"`
	TotalPages int                     `json:"total_pages"`
}

// InvoiceMutationResponse reports the outcome of a create/update/delete.
// Errors is non-nil only for validation failures; NeedRedirect tells the
// caller the mutation succeeded and the listing should be revisited.
type InvoiceMutationResponse struct {
	Message      string              `json:"message,omitempty"`
	Errors       map[string][]string `json:"errors,omitempty"`
	NeedRedirect bool                `json:"need_redirect"`
}

// InvoiceHandler serves the invoice endpoints.
type InvoiceHandler struct {
	invoices  InvoiceRepo
	validator *core.Validator
	bounds    types.PageBounds
	logger    *slog.Logger
}

// NewInvoiceHandler constructs the handler.
func NewInvoiceHandler(invoices InvoiceRepo, validator *core.Validator, bounds types.PageBounds, logger *slog.Logger) *InvoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHandler{
		invoices:  invoices,
		validator: validator,
		bounds:    bounds,
		logger:    logger,
	}
}

// RegisterRoutes mounts invoice routes on the provided chi.Router.
func (h *InvoiceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/ids", h.IDs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// List serves GET /invoices. Query parameters: query (search term), page,
// items_per_page, sort, direction. Out-of-range pages are clamped to the
// nearest valid page so a stale link never serves an empty listing.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := types.NormalizeInvoiceQuery(
		params.Get("query"),
		params.Get("page"),
		params.Get("items_per_page"),
		params.Get("sort"),
		params.Get("direction"),
		h.bounds,
	)

	totalPages, err := h.invoices.CountPages(r.Context(), query.Search, query.ItemsPerPage)
	if err != nil {
		core.Error(w, r, databaseError("fetch invoices", err))
		return
	}
	query.Page = types.ClampPage(query.Page, totalPages)

	invoices, err := h.invoices.List(r.Context(), query)
	if err != nil {
		core.Error(w, r, databaseError("fetch invoices", err))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: InvoiceListResponse{
		Invoices:   invoices,
		Page:       query.Page,
		TotalPages: totalPages,
	}})
}

// IDs serves GET /invoices/ids, the full list of invoice ids. Consumers
// use it to pre-render one detail page per invoice.
func (h *InvoiceHandler) IDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.invoices.AllIDs(r.Context())
	if err != nil {
		core.Error(w, r, databaseError("fetch invoice ids", err))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: ids})
}

// Get serves GET /invoices/{id}. An unknown id is a 404, not a fault.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	form, err := h.invoices.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, databaseError("fetch invoice", err))
		return
	}
	if form == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundInvoice, "invoice not found", nil))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: form})
}

// Create serves POST /invoices. Requires an authenticated identity; the
// auth check short-circuits before any validation or query runs.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := types.GetIdentity(r.Context()); !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthNotAuthenticated, "You are not authenticated.", nil))
		return
	}

	var input InvoiceInput
	if err := core.DecodeJSON(w, r, &input); err != nil {
		core.Error(w, r, err)
		return
	}

	if fieldErrs := h.validator.FieldErrors(input, invoiceFieldMessages); fieldErrs != nil {
		core.JSON(w, r, http.StatusBadRequest, InvoiceMutationResponse{
			Message: "Missing Fields. Failed to Create Invoice.",
			Errors:  fieldErrs,
		})
		return
	}

	amountCents := types.MajorToCents(input.Amount)
	if err := h.invoices.Create(r.Context(), input.CustomerID, amountCents, types.InvoiceStatus(input.Status)); err != nil {
		h.logger.Error("create invoice failed", slog.Any("error", err))
		core.JSON(w, r, http.StatusInternalServerError, InvoiceMutationResponse{
			Message: "Database Error: Failed to Create Invoice.",
		})
		return
	}

	core.JSON(w, r, http.StatusCreated, InvoiceMutationResponse{NeedRedirect: true})
}

// Update serves PUT /invoices/{id}.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := types.GetIdentity(r.Context()); !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthNotAuthenticated, "You are not authenticated.", nil))
		return
	}

	id := chi.URLParam(r, "id")

	var input InvoiceInput
	if err := core.DecodeJSON(w, r, &input); err != nil {
		core.Error(w, r, err)
		return
	}

	if fieldErrs := h.validator.FieldErrors(input, invoiceFieldMessages); fieldErrs != nil {
		core.JSON(w, r, http.StatusBadRequest, InvoiceMutationResponse{
			Message: "Missing Fields. Failed to Update Invoice.",
			Errors:  fieldErrs,
		})
		return
	}

	amountCents := types.MajorToCents(input.Amount)
	if err := h.invoices.Update(r.Context(), id, input.CustomerID, amountCents, types.InvoiceStatus(input.Status)); err != nil {
		h.logger.Error("update invoice failed", slog.String("id", id), slog.Any("error", err))
		core.JSON(w, r, http.StatusInternalServerError, InvoiceMutationResponse{
			Message: "Database Error: Failed to Update Invoice.",
		})
		return
	}

	core.JSON(w, r, http.StatusOK, InvoiceMutationResponse{NeedRedirect: true})
}

// Delete serves DELETE /invoices/{id}. Deletion is a soft outcome: the
// repository error is logged and swallowed, and the listing the caller
// lands on reflects whatever state the database is actually in.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := types.GetIdentity(r.Context()); !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthNotAuthenticated, "You are not authenticated.", nil))
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.invoices.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete invoice failed", slog.String("id", id), slog.Any("error", err))
	}

	core.JSON(w, r, http.StatusOK, InvoiceMutationResponse{Message: "Deleted Invoice."})
}

// databaseError passes structured repository errors through unchanged and
// wraps anything else in the generic database fault; the underlying cause
// stays in the logs only.
func databaseError(action string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return types.NewAppError(types.ErrCodeInternalDB, "failed to "+action, err)
}
