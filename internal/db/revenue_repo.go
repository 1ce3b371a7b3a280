package db

import (
	"context"
	"log/slog"

	"invoicedash/internal/cache"
	"invoicedash/internal/sqlt"
	"invoicedash/internal/types"
)

// RevenueRepository reads the monthly revenue table for the dashboard
// chart.
type RevenueRepository struct {
	provider Provider
	logger   *slog.Logger
}

// NewRevenueRepository creates a RevenueRepository backed by the given
// provider.
func NewRevenueRepository(provider Provider, logger *slog.Logger) *RevenueRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &RevenueRepository{provider: provider, logger: logger}
}

// All returns every revenue row.
func (r *RevenueRepository) All(ctx context.Context) ([]types.Revenue, error) {
	return cache.Memo(ctx, "revenue.all", nil, func() ([]types.Revenue, error) {
		h, err := r.provider.Acquire(ctx)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch revenue data", err)
		}
		defer h.Release()

		rows, err := h.Query(ctx, sqlt.New(`SELECT month, revenue FROM revenue`))
		if err != nil {
			r.logger.Error("revenue query failed", "error", err)
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch revenue data", err)
		}
		defer rows.Close()

		var revenue []types.Revenue
		for rows.Next() {
			var rev types.Revenue
			if err := rows.Scan(&rev.Month, &rev.Revenue); err != nil {
				return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch revenue data", err)
			}
			revenue = append(revenue, rev)
		}
		if err := rows.Err(); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch revenue data", err)
		}
		return revenue, nil
	})
}
