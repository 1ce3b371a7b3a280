// Package cache implements request-scoped memoization of data-layer reads.
// A RequestCache is created by middleware for each incoming request and
// dropped with it: repeated reads with identical arguments during one
// rendering pass return the computed result instead of re-querying, and
// concurrent duplicates share a single in-flight execution. Nothing
// persists across requests, so there is no growth to bound and no
// cross-request staleness. Writes are never memoized; they invalidate the
// request's matching read entries instead.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

type contextKey struct{}

// RequestCache maps (operation, serialized arguments) to resolved results
// for the lifetime of one request.
type RequestCache struct {
	mu      sync.Mutex
	entries map[string]result
	group   singleflight.Group
}

type result struct {
	val any
	err error
}

// NewRequestCache creates an empty cache for one request.
func NewRequestCache() *RequestCache {
	return &RequestCache{entries: make(map[string]result)}
}

// WithCache stores the cache in the context. Middleware calls this once
// per request.
func WithCache(ctx context.Context, c *RequestCache) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext retrieves the request's cache, or nil outside a request
// scope (seeding, tests). Callers must treat nil as "no memoization".
func FromContext(ctx context.Context) *RequestCache {
	c, _ := ctx.Value(contextKey{}).(*RequestCache)
	return c
}

// do returns the cached result for key, or runs fn once and caches it.
// Errors are cached too: within a single render pass, a failed read stays
// failed rather than hammering the database again.
func (c *RequestCache) do(key string, fn func() (any, error)) (any, error) {
	c.mu.Lock()
	if r, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return r.val, r.err
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, fn)

	c.mu.Lock()
	c.entries[key] = result{val: v, err: err}
	c.mu.Unlock()
	return v, err
}

// Invalidate drops every entry whose operation name starts with prefix.
// Write operations call this so subsequent reads in the same request see
// their effect.
func (c *RequestCache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			c.group.Forget(k)
		}
	}
}

// Len reports the number of resolved entries. Testing helper.
func (c *RequestCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Memo wraps one data-layer read. When the context carries a RequestCache,
// identical (op, args) calls within the request share one execution and
// one result; otherwise fn runs directly.
func Memo[T any](ctx context.Context, op string, args any, fn func() (T, error)) (T, error) {
	c := FromContext(ctx)
	if c == nil {
		return fn()
	}

	v, err := c.do(Key(op, args), func() (any, error) {
		return fn()
	})
	t, _ := v.(T)
	return t, err
}

// Invalidate drops memoized reads for op prefix in the request's cache,
// if one is present. Safe to call outside a request scope.
func Invalidate(ctx context.Context, prefix string) {
	if c := FromContext(ctx); c != nil {
		c.Invalidate(prefix)
	}
}

// Key serializes an operation call signature. Arguments are JSON-encoded;
// values that cannot be serialized fall back to their Go string form so a
// key always exists (a collision-prone key only costs a duplicate query).
func Key(op string, args any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return op + ":" + fmt.Sprintf("%+v", args)
	}
	return op + ":" + string(b)
}
