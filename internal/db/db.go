// Package db provides PostgreSQL-backed data access for the invoicing
// dashboard. Repositories are backend-agnostic: they compile queries with
// the sqlt package and run them through a Handle acquired from a Provider,
// which is either a self-managed pgx connection pool or the hosted HTTP
// SQL endpoint. Every operation releases its handle on every exit path.
package db

import (
	"context"
	"sync"

	"invoicedash/internal/sqlt"
)

// Rows is the minimal row iterator shared by pgx result sets and the
// hosted client's decoded results. It is the subset of pgx.Rows the
// repositories use, so *pgx.Rows satisfies it directly.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Executor runs a compiled query against one backend. Query streams rows;
// Exec returns the number of rows affected.
type Executor interface {
	Query(ctx context.Context, q *sqlt.Query) (Rows, error)
	Exec(ctx context.Context, q *sqlt.Query) (int64, error)
}

// Handle pairs an Executor with the release action for the underlying
// connection. Release is idempotent: a deferred Release after an explicit
// one is a no-op, never a double return to the pool.
type Handle struct {
	Executor

	releaseOnce sync.Once
	release     func()
}

// NewHandle builds a Handle. release may be nil for backends with no
// checkout semantics (the hosted client pools internally).
func NewHandle(ex Executor, release func()) *Handle {
	return &Handle{Executor: ex, release: release}
}

// Release returns the borrowed connection to its owner. Safe to call more
// than once; only the first call has effect.
func (h *Handle) Release() {
	h.releaseOnce.Do(func() {
		if h.release != nil {
			h.release()
		}
	})
}

// Provider resolves an executor and matching release handle for one unit
// of work. The concrete implementation is chosen once at startup by
// configuration, never per call.
type Provider interface {
	// Acquire borrows a Handle. Callers must Release it on every exit
	// path, including error paths.
	Acquire(ctx context.Context) (*Handle, error)

	// Close tears down the underlying pool or client. Called once at
	// process shutdown by the owner of the Provider.
	Close()
}
