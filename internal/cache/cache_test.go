package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheContext() context.Context {
	return WithCache(context.Background(), NewRequestCache())
}

func TestMemo_ComputesOncePerKey(t *testing.T) {
	ctx := cacheContext()
	calls := 0

	for i := 0; i < 3; i++ {
		got, err := Memo(ctx, "invoices.list", "query=a", func() (int, error) {
			calls++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	}

	assert.Equal(t, 1, calls)
}

func TestMemo_DistinctArgsComputeSeparately(t *testing.T) {
	ctx := cacheContext()
	calls := 0
	fn := func() (int, error) { calls++; return calls, nil }

	a, _ := Memo(ctx, "invoices.list", "page=1", fn)
	b, _ := Memo(ctx, "invoices.list", "page=2", fn)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 2, calls)
}

func TestMemo_ErrorsAreCachedToo(t *testing.T) {
	ctx := cacheContext()
	calls := 0
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_, err := Memo(ctx, "invoices.list", nil, func() ([]string, error) {
			calls++
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, 1, calls)
}

func TestMemo_NoCacheInContextRunsDirectly(t *testing.T) {
	calls := 0
	for i := 0; i < 2; i++ {
		got, err := Memo(context.Background(), "invoices.list", nil, func() (string, error) {
			calls++
			return "x", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "x", got)
	}
	assert.Equal(t, 2, calls, "without a request cache every call computes")
}

func TestMemo_IsolatedBetweenRequests(t *testing.T) {
	calls := 0
	fn := func() (int, error) { calls++; return calls, nil }

	a, _ := Memo(cacheContext(), "invoices.list", nil, fn)
	b, _ := Memo(cacheContext(), "invoices.list", nil, fn)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b, "a fresh request context never sees another request's entries")
}

func TestInvalidate_DropsMatchingPrefixOnly(t *testing.T) {
	ctx := cacheContext()
	listCalls, revCalls := 0, 0

	list := func() (int, error) { listCalls++; return listCalls, nil }
	rev := func() (int, error) { revCalls++; return revCalls, nil }

	_, _ = Memo(ctx, "invoices.list", nil, list)
	_, _ = Memo(ctx, "revenue.all", nil, rev)

	Invalidate(ctx, "invoices.")

	_, _ = Memo(ctx, "invoices.list", nil, list)
	_, _ = Memo(ctx, "revenue.all", nil, rev)

	assert.Equal(t, 2, listCalls, "invalidated read recomputes")
	assert.Equal(t, 1, revCalls, "unrelated read stays memoized")
}

func TestInvalidate_OutsideRequestScopeIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Invalidate(context.Background(), "invoices.")
	})
}

func TestMemo_ConcurrentDuplicatesShareOneExecution(t *testing.T) {
	ctx := cacheContext()

	var mu sync.Mutex
	calls := 0
	gate := make(chan struct{})

	fn := func() (int, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-gate
		return 7, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Memo(ctx, "invoices.card", nil, fn)
		}(i)
	}

	close(gate)
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	for _, r := range results {
		assert.Equal(t, 7, r)
	}
}

func TestKey_StableAndDistinct(t *testing.T) {
	assert.Equal(t, Key("op", []any{"a", 1}), Key("op", []any{"a", 1}))
	assert.NotEqual(t, Key("op", []any{"a", 1}), Key("op", []any{"a", 2}))
	assert.NotEqual(t, Key("op1", nil), Key("op2", nil))
}

func TestFromContext_NilOutsideRequest(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}
