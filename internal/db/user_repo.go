package db

import (
	"context"
	"log/slog"

	"invoicedash/internal/cache"
	"invoicedash/internal/sqlt"
	"invoicedash/internal/types"
)

// UserRepository provides data access for the users table. Only the
// credential lookup is needed here; user management is out of scope.
type UserRepository struct {
	provider Provider
	logger   *slog.Logger
}

// NewUserRepository creates a UserRepository backed by the given provider.
func NewUserRepository(provider Provider, logger *slog.Logger) *UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserRepository{provider: provider, logger: logger}
}

// GetByEmail retrieves a user by email address. Returns a not-found
// AppError when no user exists; the auth service maps that to an
// invalid-credentials outcome without revealing which part failed.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	return cache.Memo(ctx, "users.byemail", email, func() (*types.User, error) {
		h, err := r.provider.Acquire(ctx)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch user", err)
		}
		defer h.Release()

		q := sqlt.New(`SELECT id, name, email, password_hash FROM users WHERE email = `).
			Add(sqlt.Value(email), ``)

		rows, err := h.Query(ctx, q)
		if err != nil {
			r.logger.Error("user lookup failed", "error", err)
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch user", err)
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch user", err)
			}
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}

		var u types.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch user", err)
		}
		return &u, nil
	})
}
