package db

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"invoicedash/internal/cache"
	"invoicedash/internal/sqlt"
	"invoicedash/internal/types"
)

// sortColumns maps whitelisted sort keys to physical table/column pairs.
// This is the only source of identifiers spliced into ORDER BY; free-text
// input never reaches sqlt.Ident.
var sortColumns = map[string]struct{ table, column string }{
	"customer": {"customers", "name"},
	"amount":   {"invoices", "amount"},
	"date":     {"invoices", "date"},
	"status":   {"invoices", "status"},
	"email":    {"customers", "email"},
}

// resolveSort returns the physical sort target and direction keyword for a
// query. Unknown sort keys fall back to the default column; anything but
// an explicit descending request sorts ascending.
func resolveSort(q types.InvoiceQuery) (table, column, direction string) {
	target, ok := sortColumns[q.SortColumn]
	if !ok {
		target = sortColumns[types.DefaultSortColumn]
	}
	direction = "ASC"
	if q.SortDirection == types.SortDesc {
		direction = "DESC"
	}
	return target.table, target.column, direction
}

// InvoiceRepository provides data access for the invoices table and the
// dashboard aggregates built over it.
type InvoiceRepository struct {
	provider Provider
	clock    types.Clock
	logger   *slog.Logger
}

// NewInvoiceRepository creates an InvoiceRepository backed by the given
// provider. clock supplies the creation date; pass nil for the real clock.
func NewInvoiceRepository(provider Provider, clock types.Clock, logger *slog.Logger) *InvoiceRepository {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceRepository{provider: provider, clock: clock, logger: logger}
}

// searchPredicate appends the shared listing filter: the search term is
// matched case-insensitively as a substring against customer name, email,
// amount, date, and status, OR'ed together. The term enters only as a
// bound literal.
func searchPredicate(q *sqlt.Query, search string) *sqlt.Query {
	pattern := "%" + search + "%"
	return q.Text(`
		WHERE
			customers.name ILIKE `).
		Add(sqlt.Value(pattern), ` OR
			customers.email ILIKE `).
		Add(sqlt.Value(pattern), ` OR
			invoices.amount::text ILIKE `).
		Add(sqlt.Value(pattern), ` OR
			invoices.date::text ILIKE `).
		Add(sqlt.Value(pattern), ` OR
			invoices.status ILIKE `).
		Add(sqlt.Value(pattern), ``)
}

// List returns one page of the filtered invoice listing, ordered by the
// resolved sort column and direction. Amounts are formatted for display at
// this boundary; the cents value is preserved alongside.
func (r *InvoiceRepository) List(ctx context.Context, query types.InvoiceQuery) ([]types.InvoiceListItem, error) {
	return cache.Memo(ctx, "invoices.list", query, func() ([]types.InvoiceListItem, error) {
		table, column, direction := resolveSort(query)

		h, err := r.provider.Acquire(ctx)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoices", err)
		}
		defer h.Release()

		q := sqlt.New(`
		SELECT
			invoices.id,
			invoices.amount,
			invoices.date::text,
			invoices.status,
			customers.name,
			customers.email,
			customers.image_url
		FROM invoices
		JOIN customers ON invoices.customer_id = customers.id`)
		q = searchPredicate(q, query.Search)
		q = q.Text(`
		ORDER BY `).
			Add(sqlt.Ident(table), `.`).
			Add(sqlt.Ident(column), ` `).
			Add(sqlt.Raw(direction), `
		LIMIT `).
			Add(sqlt.Value(query.ItemsPerPage), ` OFFSET `).
			Add(sqlt.Value(query.Offset()), ``)

		rows, err := h.Query(ctx, q)
		if err != nil {
			r.logger.Error("invoice listing query failed", "error", err)
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoices", err)
		}
		defer rows.Close()

		var items []types.InvoiceListItem
		for rows.Next() {
			var it types.InvoiceListItem
			if err := rows.Scan(&it.ID, &it.Amount, &it.Date, &it.Status, &it.Name, &it.Email, &it.ImageURL); err != nil {
				return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoices", err)
			}
			it.AmountFormatted = types.FormatCurrency(it.Amount)
			items = append(items, it)
		}
		if err := rows.Err(); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoices", err)
		}
		return items, nil
	})
}

// CountPages returns the total number of listing pages for a search term:
// ceil(matching rows / itemsPerPage), using the same predicate as List.
func (r *InvoiceRepository) CountPages(ctx context.Context, search string, itemsPerPage int) (int, error) {
	return cache.Memo(ctx, "invoices.pages", []any{search, itemsPerPage}, func() (int, error) {
		h, err := r.provider.Acquire(ctx)
		if err != nil {
			return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count invoices", err)
		}
		defer h.Release()

		q := sqlt.New(`
		SELECT COUNT(*)
		FROM invoices
		JOIN customers ON invoices.customer_id = customers.id`)
		q = searchPredicate(q, search)

		count, err := queryInt(ctx, h, q)
		if err != nil {
			r.logger.Error("invoice count query failed", "error", err)
			return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count invoices", err)
		}

		return int(math.Ceil(float64(count) / float64(itemsPerPage))), nil
	})
}

// GetByID fetches one invoice shaped for the edit form, with the amount
// converted from cents to major units. An absent id is not an error: the
// result is nil and the caller renders a not-found outcome.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*types.InvoiceForm, error) {
	return cache.Memo(ctx, "invoices.byid", id, func() (*types.InvoiceForm, error) {
		h, err := r.provider.Acquire(ctx)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoice", err)
		}
		defer h.Release()

		q := sqlt.New(`
		SELECT
			invoices.id,
			invoices.customer_id,
			invoices.amount,
			invoices.status
		FROM invoices
		WHERE invoices.id = `).
			Add(sqlt.Value(id), ``)

		rows, err := h.Query(ctx, q)
		if err != nil {
			r.logger.Error("invoice fetch query failed", "invoice_id", id, "error", err)
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoice", err)
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoice", err)
			}
			return nil, nil
		}

		var form types.InvoiceForm
		var cents int64
		if err := rows.Scan(&form.ID, &form.CustomerID, &cents, &form.Status); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoice", err)
		}
		form.Amount = types.CentsToMajor(cents)
		return &form, nil
	})
}

// Latest returns the five most recent invoices for the dashboard panel.
func (r *InvoiceRepository) Latest(ctx context.Context) ([]types.LatestInvoice, error) {
	return cache.Memo(ctx, "invoices.latest", nil, func() ([]types.LatestInvoice, error) {
		h, err := r.provider.Acquire(ctx)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch the latest invoices", err)
		}
		defer h.Release()

		q := sqlt.New(`
		SELECT invoices.amount, customers.name, customers.image_url, customers.email, invoices.id
		FROM invoices
		JOIN customers ON invoices.customer_id = customers.id
		ORDER BY invoices.date DESC
		LIMIT 5`)

		rows, err := h.Query(ctx, q)
		if err != nil {
			r.logger.Error("latest invoices query failed", "error", err)
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch the latest invoices", err)
		}
		defer rows.Close()

		var latest []types.LatestInvoice
		for rows.Next() {
			var it types.LatestInvoice
			if err := rows.Scan(&it.Amount, &it.Name, &it.ImageURL, &it.Email, &it.ID); err != nil {
				return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch the latest invoices", err)
			}
			it.AmountFormatted = types.FormatCurrency(it.Amount)
			latest = append(latest, it)
		}
		if err := rows.Err(); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch the latest invoices", err)
		}
		return latest, nil
	})
}

// CardData fetches the dashboard counters in a single round trip. NULL
// sums (no invoices in a status) coalesce to zero before formatting.
func (r *InvoiceRepository) CardData(ctx context.Context) (*types.CardData, error) {
	return cache.Memo(ctx, "invoices.card", nil, func() (*types.CardData, error) {
		h, err := r.provider.Acquire(ctx)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch card data", err)
		}
		defer h.Release()

		q := sqlt.New(`
		SELECT invoices_num, customers_num, paid_invoices_num, pending_invoices_num FROM
			( SELECT COUNT(*) AS invoices_num FROM invoices ),
			( SELECT COUNT(*) AS customers_num FROM customers ),
			( SELECT COALESCE(SUM(CASE WHEN status = 'paid' THEN amount ELSE 0 END), 0) AS paid_invoices_num FROM invoices ),
			( SELECT COALESCE(SUM(CASE WHEN status = 'pending' THEN amount ELSE 0 END), 0) AS pending_invoices_num FROM invoices )`)

		rows, err := h.Query(ctx, q)
		if err != nil {
			r.logger.Error("card data query failed", "error", err)
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch card data", err)
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch card data", err)
			}
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch card data", nil)
		}

		var invoices, customers, paid, pending int64
		if err := rows.Scan(&invoices, &customers, &paid, &pending); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch card data", err)
		}

		return &types.CardData{
			NumberOfInvoices:     invoices,
			NumberOfCustomers:    customers,
			TotalPaidInvoices:    types.FormatCurrency(paid),
			TotalPendingInvoices: types.FormatCurrency(pending),
		}, nil
	})
}

// AllIDs returns every invoice id. Used for static route generation.
func (r *InvoiceRepository) AllIDs(ctx context.Context) ([]string, error) {
	return cache.Memo(ctx, "invoices.ids", nil, func() ([]string, error) {
		h, err := r.provider.Acquire(ctx)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoice IDs", err)
		}
		defer h.Release()

		rows, err := h.Query(ctx, sqlt.New(`SELECT id FROM invoices`))
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoice IDs", err)
		}
		defer rows.Close()

		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoice IDs", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch invoice IDs", err)
		}
		return ids, nil
	})
}

// Create inserts a new invoice dated today (UTC calendar date). amount is
// already in cents; the caller's validation guarantees it is positive.
// Listing reads memoized earlier in the request are invalidated.
func (r *InvoiceRepository) Create(ctx context.Context, customerID string, amount int64, status types.InvoiceStatus) error {
	date := r.clock.Now().UTC().Format("2006-01-02")
	id := uuid.NewString()

	h, err := r.provider.Acquire(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create invoice", err)
	}
	defer h.Release()

	q := sqlt.New(`INSERT INTO invoices (id, customer_id, amount, status, date) VALUES (`).
		Add(sqlt.Value(id), `, `).
		Add(sqlt.Value(customerID), `, `).
		Add(sqlt.Value(amount), `, `).
		Add(sqlt.Value(string(status)), `, `).
		Add(sqlt.Value(date), `)`)

	if _, err := h.Exec(ctx, q); err != nil {
		r.logger.Error("invoice insert failed", "customer_id", customerID, "error", err)
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create invoice", err)
	}

	cache.Invalidate(ctx, "invoices.")
	return nil
}

// Update rewrites customer, amount, and status for an existing invoice.
func (r *InvoiceRepository) Update(ctx context.Context, id, customerID string, amount int64, status types.InvoiceStatus) error {
	h, err := r.provider.Acquire(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update invoice", err)
	}
	defer h.Release()

	q := sqlt.New(`
		UPDATE invoices
		SET customer_id = `).
		Add(sqlt.Value(customerID), `, amount = `).
		Add(sqlt.Value(amount), `, status = `).
		Add(sqlt.Value(string(status)), `
		WHERE id = `).
		Add(sqlt.Value(id), ``)

	if _, err := h.Exec(ctx, q); err != nil {
		r.logger.Error("invoice update failed", "invoice_id", id, "error", err)
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update invoice", err)
	}

	cache.Invalidate(ctx, "invoices.")
	return nil
}

// Delete removes an invoice by id. A missing id is not an error; delete is
// idempotent from the caller's perspective.
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	h, err := r.provider.Acquire(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete invoice", err)
	}
	defer h.Release()

	q := sqlt.New(`DELETE FROM invoices WHERE id = `).Add(sqlt.Value(id), ``)

	if _, err := h.Exec(ctx, q); err != nil {
		r.logger.Error("invoice delete failed", "invoice_id", id, "error", err)
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete invoice", err)
	}

	cache.Invalidate(ctx, "invoices.")
	return nil
}

// queryInt runs a single-row single-column integer query.
func queryInt(ctx context.Context, h *Handle, q *sqlt.Query) (int64, error) {
	rows, err := h.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, nil
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
