package db

import (
	"context"
	"fmt"
	"reflect"

	"invoicedash/internal/sqlt"
)

// fakeRows serves canned rows. Scan assigns by reflection so tests can mix
// string, int64, and status targets freely.
type fakeRows struct {
	rows   [][]any
	idx    int
	err    error
	closed bool
}

func newFakeRows(rows ...[]any) *fakeRows {
	return &fakeRows{rows: rows, idx: -1}
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("fakeRows: %d targets for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		sv := reflect.ValueOf(row[i])
		dv.Set(sv.Convert(dv.Type()))
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     { r.closed = true }

// fakeExecutor records every compiled query and replays canned results.
type fakeExecutor struct {
	queries []*sqlt.Query

	rows     []*fakeRows
	queryErr error

	execAffected int64
	execErr      error
}

func (e *fakeExecutor) Query(ctx context.Context, q *sqlt.Query) (Rows, error) {
	e.queries = append(e.queries, q)
	if e.queryErr != nil {
		return nil, e.queryErr
	}
	if len(e.rows) == 0 {
		return newFakeRows(), nil
	}
	r := e.rows[0]
	e.rows = e.rows[1:]
	return r, nil
}

func (e *fakeExecutor) Exec(ctx context.Context, q *sqlt.Query) (int64, error) {
	e.queries = append(e.queries, q)
	if e.execErr != nil {
		return 0, e.execErr
	}
	return e.execAffected, nil
}

// fakeProvider hands out Handles over one executor and counts the
// acquire/release pairing.
type fakeProvider struct {
	executor   *fakeExecutor
	acquireErr error

	acquired int
	released int

	// failFirst makes the first n Acquire calls fail, for retry tests.
	failFirst int
}

func (p *fakeProvider) Acquire(ctx context.Context) (*Handle, error) {
	if p.failFirst > 0 {
		p.failFirst--
		return nil, fmt.Errorf("connection refused")
	}
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return NewHandle(p.executor, func() { p.released++ }), nil
}

func (p *fakeProvider) Close() {}

// lastSQL compiles the most recent captured query with the binding backend.
func (e *fakeExecutor) lastSQL() (string, []any, error) {
	if len(e.queries) == 0 {
		return "", nil, fmt.Errorf("no queries captured")
	}
	return e.queries[len(e.queries)-1].Bind()
}
