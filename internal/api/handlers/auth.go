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

// Authenticator verifies an email/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*types.User, error)
}

// SessionIssuer creates and revokes session tokens.
type SessionIssuer interface {
	Issue(id types.Identity) (string, error)
	Invalidate(token string)
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// loginFieldMessages maps login validation failures to client messages.
var loginFieldMessages = map[string]string{
	"email":        "Please enter a valid email address.",
	"password.min": "Password must be at least 6 characters.",
	"password":     "Please enter a password.",
}

// LoginResponse carries the session token and the signed-in user.
type LoginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

// AuthHandler serves login and logout.
type AuthHandler struct {
	auth      Authenticator
	sessions  SessionIssuer
	validator *core.Validator
	logger    *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(auth Authenticator, sessions SessionIssuer, validator *core.Validator, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{auth: auth, sessions: sessions, validator: validator, logger: logger}
}

// RegisterRoutes mounts auth routes on the provided chi.Router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})
}

// Login serves POST /auth/login. Bad credentials answer "Invalid
// credentials."; any other failure answers "Something went wrong." without
// revealing the cause.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if fieldErrs := h.validator.FieldErrors(req, loginFieldMessages); fieldErrs != nil {
		core.JSON(w, r, http.StatusBadRequest, InvoiceMutationResponse{
			Message: "Invalid credentials.",
			Errors:  fieldErrs,
		})
		return
	}

	user, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeAuthInvalidCreds {
			core.Error(w, r, types.NewAppError(types.ErrCodeAuthInvalidCreds, "Invalid credentials.", nil))
			return
		}
		h.logger.Error("login failed", slog.Any("error", err))
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected, "Something went wrong.", err))
		return
	}

	token, err := h.sessions.Issue(types.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		h.logger.Error("session issue failed", slog.Any("error", err))
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected, "Something went wrong.", err))
		return
	}

	resp := LoginResponse{Token: token}
	resp.User.ID = user.ID
	resp.User.Name = user.Name
	resp.User.Email = user.Email
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}

// Logout serves POST /auth/logout. Revoking an unknown token is a no-op.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := core.BearerToken(r); token != "" {
		h.sessions.Invalidate(token)
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Message: "Signed out."})
}
