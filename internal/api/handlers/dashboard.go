package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"invoicedash/internal/core"
	"invoicedash/internal/types"
)

// DashboardInvoiceRepo provides the invoice reads the dashboard needs.
type DashboardInvoiceRepo interface {
	CardData(ctx context.Context) (*types.CardData, error)
	Latest(ctx context.Context) ([]types.LatestInvoice, error)
}

// RevenueRepo provides the monthly revenue series for the chart.
type RevenueRepo interface {
	All(ctx context.Context) ([]types.Revenue, error)
}

// DashboardResponse aggregates everything the overview page renders.
type DashboardResponse struct {
	Cards          *types.CardData       `json:"cards"`
	Revenue        []types.Revenue       `json:"revenue"`
	LatestInvoices []types.LatestInvoice `json:"latest_invoices"`
}

// DashboardHandler serves the overview endpoint.
type DashboardHandler struct {
	invoices DashboardInvoiceRepo
	revenue  RevenueRepo
	logger   *slog.Logger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(invoices DashboardInvoiceRepo, revenue RevenueRepo, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{invoices: invoices, revenue: revenue, logger: logger}
}

// RegisterRoutes mounts the dashboard route on the provided chi.Router.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Overview)
}

// Overview serves GET /dashboard. The three reads are independent, so they
// run in parallel; the first failure cancels the rest.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	var resp DashboardResponse

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		cards, err := h.invoices.CardData(ctx)
		resp.Cards = cards
		return err
	})
	g.Go(func() error {
		revenue, err := h.revenue.All(ctx)
		resp.Revenue = revenue
		return err
	})
	g.Go(func() error {
		latest, err := h.invoices.Latest(ctx)
		resp.LatestInvoices = latest
		return err
	})

	if err := g.Wait(); err != nil {
		core.Error(w, r, databaseError("fetch dashboard data", err))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}
