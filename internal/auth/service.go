// Package auth implements the authentication capability the dashboard
// depends on: verify credentials against the users table and answer "is
// there an authenticated identity for this request". Session state is an
// in-memory token store; this is a single-process internal dashboard, not
// a distributed session fabric.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"invoicedash/internal/types"
)

// bcryptCost is the bcrypt cost factor used for password hashing.
const bcryptCost = 10

// UserRepo defines the data access the Service needs.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*types.User, error)
}

// PasswordHasher abstracts bcrypt operations for testability.
type PasswordHasher interface {
	CompareHashAndPassword(hashedPassword, password string) error
	GenerateFromPassword(password string) (string, error)
}

// bcryptHasher is the production implementation of PasswordHasher.
type bcryptHasher struct{}

func (b *bcryptHasher) CompareHashAndPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (b *bcryptHasher) GenerateFromPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// HashPassword produces a bcrypt hash for seeding and tests.
func HashPassword(password string) (string, error) {
	return (&bcryptHasher{}).GenerateFromPassword(password)
}

// Service verifies credentials against the users table.
type Service struct {
	users  UserRepo
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService creates an auth Service. hasher may be nil for production
// bcrypt.
func NewService(users UserRepo, hasher PasswordHasher, logger *slog.Logger) *Service {
	if hasher == nil {
		hasher = &bcryptHasher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, hasher: hasher, logger: logger}
}

// Authenticate verifies an email/password pair. Unknown users and wrong
// passwords both map to the same invalid-credentials error so the response
// does not reveal which part failed. Database faults pass through as-is.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*types.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundUser {
			return nil, types.NewAppError(types.ErrCodeAuthInvalidCreds, "invalid credentials", nil)
		}
		return nil, err
	}

	if err := s.hasher.CompareHashAndPassword(user.PasswordHash, password); err != nil {
		return nil, types.NewAppError(types.ErrCodeAuthInvalidCreds, "invalid credentials", nil)
	}

	return user, nil
}
