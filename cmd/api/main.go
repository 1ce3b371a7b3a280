// Package main is the entry point for the invoicing dashboard API server.
//
// It loads configuration, builds the structured logger, constructs the
// database provider for the configured backend mode (self-managed pgx pool
// or the hosted HTTP SQL endpoint), wires repositories and handlers onto
// the core chassis, and serves HTTP with graceful shutdown on SIGINT and
// SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"invoicedash/internal/api/handlers"
	"invoicedash/internal/auth"
	"invoicedash/internal/config"
	"invoicedash/internal/core"
	"invoicedash/internal/db"
	"invoicedash/internal/hostedsql"
	"invoicedash/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("invoicedash API starting",
		"environment", cfg.Environment,
		"db_mode", string(cfg.Database.Mode),
		"port", cfg.Server.Port,
	)

	provider, err := newProvider(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("creating database provider: %w", err)
	}
	defer provider.Close()

	// Repositories share the provider; each read memoizes through the
	// per-request cache installed by the chassis middleware.
	invoiceRepo := db.NewInvoiceRepository(provider, types.RealClock{}, logger)
	customerRepo := db.NewCustomerRepository(provider, logger)
	revenueRepo := db.NewRevenueRepository(provider, logger)
	userRepo := db.NewUserRepository(provider, logger)

	sessions := auth.NewSessionStore(cfg.Auth.SessionTTL, nil)
	authService := auth.NewService(userRepo, nil, logger)

	srv, err := core.NewServer(cfg, sessions, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	bounds := types.PageBounds{
		Default: cfg.Pagination.ItemsPerPage,
		Min:     cfg.Pagination.MinItemsPerPage,
		Max:     cfg.Pagination.MaxItemsPerPage,
	}

	invoiceHandler := handlers.NewInvoiceHandler(invoiceRepo, srv.Validator, bounds, logger)
	customerHandler := handlers.NewCustomerHandler(customerRepo, logger)
	dashboardHandler := handlers.NewDashboardHandler(invoiceRepo, revenueRepo, logger)
	authHandler := handlers.NewAuthHandler(authService, sessions, srv.Validator, logger)

	srv.RouteRegistrars = append(srv.RouteRegistrars,
		func(r chi.Router) { invoiceHandler.RegisterRoutes(r) },
		func(r chi.Router) { customerHandler.RegisterRoutes(r) },
		func(r chi.Router) { dashboardHandler.RegisterRoutes(r) },
		func(r chi.Router) { authHandler.RegisterRoutes(r) },
	)
	srv.MountRoutes()

	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newProvider constructs the database provider for the configured mode.
// The mode is a startup decision; nothing downstream branches on it again.
func newProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (db.Provider, error) {
	switch cfg.Database.Mode {
	case config.DBModePool:
		return db.NewPoolProvider(ctx, db.PoolConfig{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			Database:     cfg.Database.Name,
			User:         cfg.Database.User,
			PasswordFile: cfg.Database.PasswordFile,
			MaxConns:     cfg.Database.MaxConns,
			MinConns:     cfg.Database.MinConns,
		})
	case config.DBModeHosted:
		clientCfg := hostedsql.DefaultConfig()
		clientCfg.URL = cfg.Hosted.URL
		clientCfg.Token = cfg.Hosted.Token
		client := hostedsql.New(&http.Client{Timeout: 30 * time.Second}, clientCfg)
		return db.NewHostedProvider(client), nil
	default:
		return nil, fmt.Errorf("unknown DB_MODE %q", cfg.Database.Mode)
	}
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
