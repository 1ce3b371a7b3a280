package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"invoicedash/internal/hostedsql"
	"invoicedash/internal/sqlt"
	"invoicedash/internal/types"
)

// HostedProvider is the managed-endpoint Provider variant. The endpoint is
// connection-pooled on the server side, so Acquire hands out the client
// directly and Release is a no-op. Data access code cannot tell the
// difference: the acquire/use/release shape is identical to pool mode.
type HostedProvider struct {
	client *hostedsql.Client
}

// NewHostedProvider wraps the hosted SQL client as a Provider.
func NewHostedProvider(client *hostedsql.Client) *HostedProvider {
	return &HostedProvider{client: client}
}

// Acquire returns a Handle over the shared client with a no-op release.
func (p *HostedProvider) Acquire(ctx context.Context) (*Handle, error) {
	return NewHandle(&hostedExecutor{client: p.client}, nil), nil
}

// Close is a no-op; the client holds no local connections.
func (p *HostedProvider) Close() {}

// hostedExecutor compiles queries with the inline backend, since the
// endpoint accepts only flat strings.
type hostedExecutor struct {
	client *hostedsql.Client
}

func (e *hostedExecutor) Query(ctx context.Context, q *sqlt.Query) (Rows, error) {
	sql, err := q.Inline()
	if err != nil {
		return nil, err
	}
	res, err := e.client.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return &hostedRows{result: res, idx: -1}, nil
}

func (e *hostedExecutor) Exec(ctx context.Context, q *sqlt.Query) (int64, error) {
	sql, err := q.Inline()
	if err != nil {
		return 0, err
	}
	res, err := e.client.Query(ctx, sql)
	if err != nil {
		return 0, err
	}
	return res.RowCount, nil
}

// hostedRows adapts a decoded JSON result to the Rows iterator. Values
// arrive as string/float64/bool/nil and are coerced into the scan targets
// the repositories use.
type hostedRows struct {
	result *hostedsql.Result
	idx    int
	err    error
}

func (r *hostedRows) Next() bool {
	if r.err != nil {
		return false
	}
	r.idx++
	return r.idx < len(r.result.Rows)
}

func (r *hostedRows) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.result.Rows) {
		return fmt.Errorf("hostedsql: Scan called without Next")
	}
	row := r.result.Rows[r.idx]
	if len(dest) != len(row) {
		r.err = fmt.Errorf("hostedsql: expected %d scan targets, got %d", len(row), len(dest))
		return r.err
	}
	for i, d := range dest {
		if err := coerce(row[i], d); err != nil {
			r.err = fmt.Errorf("hostedsql: column %d: %w", i, err)
			return r.err
		}
	}
	return nil
}

func (r *hostedRows) Err() error { return r.err }
func (r *hostedRows) Close()     {}

// coerce assigns a JSON-decoded value to a scan target. Postgres HTTP
// endpoints serialize bigints and numerics as strings, so numeric targets
// accept both float64 and string sources.
func coerce(src any, dest any) error {
	switch d := dest.(type) {
	case *string:
		switch s := src.(type) {
		case string:
			*d = s
		case nil:
			*d = ""
		case float64:
			*d = strconv.FormatFloat(s, 'f', -1, 64)
		default:
			return fmt.Errorf("cannot scan %T into *string", src)
		}
	case *types.InvoiceStatus:
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("cannot scan %T into *InvoiceStatus", src)
		}
		*d = types.InvoiceStatus(s)
	case *int64:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		*d = n
	case *int:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		*d = int(n)
	case *float64:
		switch s := src.(type) {
		case float64:
			*d = s
		case string:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("cannot parse %q as float", s)
			}
			*d = f
		case nil:
			*d = 0
		default:
			return fmt.Errorf("cannot scan %T into *float64", src)
		}
	case *bool:
		b, ok := src.(bool)
		if !ok {
			return fmt.Errorf("cannot scan %T into *bool", src)
		}
		*d = b
	case *time.Time:
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("cannot scan %T into *time.Time", src)
		}
		t, err := parseTime(s)
		if err != nil {
			return err
		}
		*d = t
	default:
		return fmt.Errorf("unsupported scan target %T", dest)
	}
	return nil
}

// toInt64 converts a JSON number or numeric string; nil maps to 0.
func toInt64(src any) (int64, error) {
	switch s := src.(type) {
	case float64:
		return int64(s), nil
	case string:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer", s)
		}
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot scan %T into integer", src)
	}
}

// parseTime accepts the date and timestamp formats the endpoint emits.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}
