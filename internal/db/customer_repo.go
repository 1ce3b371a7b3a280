package db

import (
	"context"
	"log/slog"

	"invoicedash/internal/cache"
	"invoicedash/internal/sqlt"
	"invoicedash/internal/types"
)

// CustomerRepository provides read access to the customers table.
// Customers are managed by another system; this service never writes them.
type CustomerRepository struct {
	provider Provider
	logger   *slog.Logger
}

// NewCustomerRepository creates a CustomerRepository backed by the given
// provider.
func NewCustomerRepository(provider Provider, logger *slog.Logger) *CustomerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerRepository{provider: provider, logger: logger}
}

// Fields returns every customer's id and name, ordered by name, for
// populating the invoice form's customer select.
func (r *CustomerRepository) Fields(ctx context.Context) ([]types.CustomerField, error) {
	return cache.Memo(ctx, "customers.fields", nil, func() ([]types.CustomerField, error) {
		h, err := r.provider.Acquire(ctx)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch all customers", err)
		}
		defer h.Release()

		q := sqlt.New(`
		SELECT id, name
		FROM customers
		ORDER BY name ASC`)

		rows, err := h.Query(ctx, q)
		if err != nil {
			r.logger.Error("customer fields query failed", "error", err)
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch all customers", err)
		}
		defer rows.Close()

		var fields []types.CustomerField
		for rows.Next() {
			var f types.CustomerField
			if err := rows.Scan(&f.ID, &f.Name); err != nil {
				return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch all customers", err)
			}
			fields = append(fields, f)
		}
		if err := rows.Err(); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch all customers", err)
		}
		return fields, nil
	})
}

// FilteredSummaries returns the customers table view: each matching
// customer with invoice counts and pending/paid totals. The search term
// matches name or email as a case-insensitive substring.
func (r *CustomerRepository) FilteredSummaries(ctx context.Context, search string) ([]types.CustomerSummary, error) {
	return cache.Memo(ctx, "customers.filtered", search, func() ([]types.CustomerSummary, error) {
		h, err := r.provider.Acquire(ctx)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch customer table", err)
		}
		defer h.Release()

		pattern := "%" + search + "%"
		q := sqlt.New(`
		SELECT
			customers.id,
			customers.name,
			customers.email,
			customers.image_url,
			COUNT(invoices.id) AS total_invoices,
			COALESCE(SUM(CASE WHEN invoices.status = 'pending' THEN invoices.amount ELSE 0 END), 0) AS total_pending,
			COALESCE(SUM(CASE WHEN invoices.status = 'paid' THEN invoices.amount ELSE 0 END), 0) AS total_paid
		FROM customers
		LEFT JOIN invoices ON customers.id = invoices.customer_id
		WHERE
			customers.name ILIKE `).
			Add(sqlt.Value(pattern), ` OR
			customers.email ILIKE `).
			Add(sqlt.Value(pattern), `
		GROUP BY customers.id, customers.name, customers.email, customers.image_url
		ORDER BY customers.name ASC`)

		rows, err := h.Query(ctx, q)
		if err != nil {
			r.logger.Error("customer table query failed", "error", err)
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch customer table", err)
		}
		defer rows.Close()

		var summaries []types.CustomerSummary
		for rows.Next() {
			var s types.CustomerSummary
			var pending, paid int64
			if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.ImageURL, &s.TotalInvoices, &pending, &paid); err != nil {
				return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch customer table", err)
			}
			s.TotalPending = types.FormatCurrency(pending)
			s.TotalPaid = types.FormatCurrency(paid)
			summaries = append(summaries, s)
		}
		if err := rows.Err(); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch customer table", err)
		}
		return summaries, nil
	})
}
