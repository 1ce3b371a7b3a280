package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"invoicedash/internal/sqlt"
)

// PoolConfig holds the parameters for the self-managed connection pool.
// Password is read from PasswordFile once at construction time.
type PoolConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	PasswordFile string
	MaxConns     int32
	MinConns     int32
}

// PoolProvider is the self-managed Provider variant: a process-wide
// pgxpool constructed once at startup and injected into the data layer.
// Acquire checks out a single connection; Release returns it.
type PoolProvider struct {
	pool *pgxpool.Pool
}

// NewPoolProvider constructs the pool from cfg and verifies connectivity
// with a ping. The pool is owned by the caller and must be closed at
// shutdown via Close.
func NewPoolProvider(ctx context.Context, cfg PoolConfig) (*PoolProvider, error) {
	password, err := os.ReadFile(cfg.PasswordFile)
	if err != nil {
		return nil, fmt.Errorf("reading database password file: %w", err)
	}

	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User,
		strings.TrimSpace(string(password)),
	)

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PoolProvider{pool: pool}, nil
}

// Acquire checks a connection out of the pool. The returned Handle's
// Release returns the connection; the connection is used by exactly one
// in-flight query at a time.
func (p *PoolProvider) Acquire(ctx context.Context) (*Handle, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return NewHandle(&poolExecutor{conn: conn}, conn.Release), nil
}

// Close shuts down the pool.
func (p *PoolProvider) Close() {
	p.pool.Close()
}

// pgxQuerier is the slice of the pgx connection API the executor needs.
// Satisfied by *pgxpool.Conn, *pgxpool.Pool, and pgx.Tx.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// poolExecutor compiles queries with the placeholder backend and binds
// values through the driver.
type poolExecutor struct {
	conn pgxQuerier
}

func (e *poolExecutor) Query(ctx context.Context, q *sqlt.Query) (Rows, error) {
	sql, args, err := q.Bind()
	if err != nil {
		return nil, err
	}
	rows, err := e.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *poolExecutor) Exec(ctx context.Context, q *sqlt.Query) (int64, error) {
	sql, args, err := q.Bind()
	if err != nil {
		return 0, err
	}
	tag, err := e.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AcquireWithRetry acquires a handle with bounded attempts and a fixed
// delay between them, then gives up. Used by the seeding workflow and
// startup paths where the database container may not be ready yet.
func AcquireWithRetry(ctx context.Context, p Provider, attempts int, delay time.Duration, logger *slog.Logger) (*Handle, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		h, err := p.Acquire(ctx)
		if err == nil {
			return h, nil
		}
		lastErr = err
		logger.Warn("database connection failed, retrying",
			"attempt", i+1,
			"max_attempts", attempts,
			"error", err,
		)

		// Only wait when another attempt follows.
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to acquire connection after %d attempts: %w", attempts, lastErr)
}
