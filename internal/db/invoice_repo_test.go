package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedash/internal/cache"
	"invoicedash/internal/types"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func listQuery(sort string, dir types.SortDirection) types.InvoiceQuery {
	return types.InvoiceQuery{
		Search:        "",
		Page:          1,
		ItemsPerPage:  6,
		SortColumn:    sort,
		SortDirection: dir,
	}
}

func TestInvoiceList_ReturnsRowsWithFormattedAmounts(t *testing.T) {
	ex := &fakeExecutor{rows: []*fakeRows{newFakeRows(
		[]any{"id-1", int64(20000), "2023-01-02", "paid", "Amy Burns", "amy@burns.com", "/customers/amy-burns.png"},
		[]any{"id-2", int64(10000), "2023-01-01", "pending", "Lee Robinson", "lee@robinson.com", "/customers/lee-robinson.png"},
		[]any{"id-3", int64(5000), "2022-12-30", "paid", "Evil Rabbit", "evil@rabbit.com", "/customers/evil-rabbit.png"},
	)}}
	p := &fakeProvider{executor: ex}
	repo := NewInvoiceRepository(p, nil, discardLogger())

	items, err := repo.List(context.Background(), listQuery("amount", types.SortDesc))
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Database order is preserved: 200 > 100 > 50 dollars.
	assert.Equal(t, []int64{20000, 10000, 5000},
		[]int64{items[0].Amount, items[1].Amount, items[2].Amount})
	assert.Equal(t, "$200.00", items[0].AmountFormatted)
	assert.Equal(t, types.InvoiceStatusPaid, items[0].Status)
	assert.Equal(t, 1, p.released, "handle released after success")
}

func TestInvoiceList_SortWhitelist(t *testing.T) {
	tests := []struct {
		name string
		sort string
		dir  types.SortDirection
		want string
	}{
		{"amount desc", "amount", types.SortDesc, `ORDER BY "invoices"."amount" DESC`},
		{"email asc", "email", types.SortAsc, `ORDER BY "customers"."email" ASC`},
		{"unknown falls back to customer", "nope; DROP TABLE invoices", types.SortAsc, `ORDER BY "customers"."name" ASC`},
		{"empty falls back to customer", "", types.SortAsc, `ORDER BY "customers"."name" ASC`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExecutor{}
			repo := NewInvoiceRepository(&fakeProvider{executor: ex}, nil, discardLogger())

			_, err := repo.List(context.Background(), listQuery(tt.sort, tt.dir))
			require.NoError(t, err)

			sql, _, err := ex.lastSQL()
			require.NoError(t, err)
			assert.Contains(t, sql, tt.want)
		})
	}
}

func TestInvoiceList_SearchTermIsBoundNotSpliced(t *testing.T) {
	ex := &fakeExecutor{}
	repo := NewInvoiceRepository(&fakeProvider{executor: ex}, nil, discardLogger())

	q := listQuery("date", types.SortAsc)
	q.Search = "'; DROP TABLE invoices; --"

	_, err := repo.List(context.Background(), q)
	require.NoError(t, err)

	sql, args, err := ex.lastSQL()
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP TABLE")
	assert.Contains(t, args, "%"+q.Search+"%")
}

func TestInvoiceList_ReleasesHandleOnQueryFailure(t *testing.T) {
	ex := &fakeExecutor{queryErr: errors.New("connection reset")}
	p := &fakeProvider{executor: ex}
	repo := NewInvoiceRepository(p, nil, discardLogger())

	_, err := repo.List(context.Background(), listQuery("date", types.SortAsc))
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
	assert.Equal(t, "failed to fetch invoices", appErr.Message)
	assert.Equal(t, 1, p.released, "handle released on the error path too")
}

func TestCountPages_CeilOfMatchesOverPageSize(t *testing.T) {
	tests := []struct {
		rows  int64
		want  int
		perPg int
	}{
		{13, 3, 6},
		{12, 2, 6},
		{1, 1, 6},
		{0, 0, 6},
		{6, 1, 6},
	}
	for _, tt := range tests {
		ex := &fakeExecutor{rows: []*fakeRows{newFakeRows([]any{tt.rows})}}
		repo := NewInvoiceRepository(&fakeProvider{executor: ex}, nil, discardLogger())

		pages, err := repo.CountPages(context.Background(), "", tt.perPg)
		require.NoError(t, err)
		assert.Equal(t, tt.want, pages, "rows=%d", tt.rows)
	}
}

func TestGetByID_AbsentIsNilNotError(t *testing.T) {
	ex := &fakeExecutor{rows: []*fakeRows{newFakeRows()}}
	repo := NewInvoiceRepository(&fakeProvider{executor: ex}, nil, discardLogger())

	form, err := repo.GetByID(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, form)
}

func TestGetByID_ConvertsCentsToMajorUnits(t *testing.T) {
	ex := &fakeExecutor{rows: []*fakeRows{newFakeRows(
		[]any{"inv-1", "cust-1", int64(1234), "pending"},
	)}}
	repo := NewInvoiceRepository(&fakeProvider{executor: ex}, nil, discardLogger())

	form, err := repo.GetByID(context.Background(), "inv-1")
	require.NoError(t, err)
	require.NotNil(t, form)
	assert.Equal(t, 12.34, form.Amount)
	assert.Equal(t, types.InvoiceStatusPending, form.Status)
}

func TestCreate_BindsCentsAndClockDate(t *testing.T) {
	ex := &fakeExecutor{}
	clock := fixedClock{t: time.Date(2023, 6, 27, 23, 59, 0, 0, time.UTC)}
	repo := NewInvoiceRepository(&fakeProvider{executor: ex}, clock, discardLogger())

	err := repo.Create(context.Background(), "cust-1", 1234, types.InvoiceStatusPending)
	require.NoError(t, err)

	sql, args, err := ex.lastSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "INSERT INTO invoices")
	require.Len(t, args, 5)

	id, ok := args[0].(string)
	require.True(t, ok)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "generated id is a uuid")

	assert.Equal(t, "cust-1", args[1])
	assert.Equal(t, int64(1234), args[2])
	assert.Equal(t, "pending", args[3])
	assert.Equal(t, "2023-06-27", args[4], "calendar date from the injected clock")
}

func TestWrites_InvalidateMemoizedInvoiceReads(t *testing.T) {
	count := []any{int64(13)}
	ex := &fakeExecutor{rows: []*fakeRows{
		newFakeRows(count),
		newFakeRows(count),
	}}
	repo := NewInvoiceRepository(&fakeProvider{executor: ex}, nil, discardLogger())
	ctx := cache.WithCache(context.Background(), cache.NewRequestCache())

	_, err := repo.CountPages(ctx, "", 6)
	require.NoError(t, err)
	_, err = repo.CountPages(ctx, "", 6)
	require.NoError(t, err)
	assert.Len(t, ex.queries, 1, "second read served from the request cache")

	require.NoError(t, repo.Delete(ctx, "inv-1"))

	_, err = repo.CountPages(ctx, "", 6)
	require.NoError(t, err)
	assert.Len(t, ex.queries, 3, "read recomputes after a write")
}

func TestDelete_MissingRowIsNotAnError(t *testing.T) {
	ex := &fakeExecutor{execAffected: 0}
	repo := NewInvoiceRepository(&fakeProvider{executor: ex}, nil, discardLogger())

	assert.NoError(t, repo.Delete(context.Background(), "never-existed"))
	assert.NoError(t, repo.Delete(context.Background(), "never-existed"))
}

func TestDelete_DatabaseFaultSurfacesAsAppError(t *testing.T) {
	ex := &fakeExecutor{execErr: errors.New("read-only transaction")}
	repo := NewInvoiceRepository(&fakeProvider{executor: ex}, nil, discardLogger())

	err := repo.Delete(context.Background(), "inv-1")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestLatest_LimitsToFiveMostRecent(t *testing.T) {
	ex := &fakeExecutor{rows: []*fakeRows{newFakeRows(
		[]any{int64(1000), "Amy Burns", "/customers/amy-burns.png", "amy@burns.com", "id-1"},
	)}}
	repo := NewInvoiceRepository(&fakeProvider{executor: ex}, nil, discardLogger())

	latest, err := repo.Latest(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "$10.00", latest[0].AmountFormatted)

	sql, _, err := ex.lastSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY invoices.date DESC")
	assert.Contains(t, sql, "LIMIT 5")
}

func TestCardData_FormatsCoalescedSums(t *testing.T) {
	ex := &fakeExecutor{rows: []*fakeRows{newFakeRows(
		[]any{int64(13), int64(6), int64(118246), int64(125995)},
	)}}
	repo := NewInvoiceRepository(&fakeProvider{executor: ex}, nil, discardLogger())

	cards, err := repo.CardData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(13), cards.NumberOfInvoices)
	assert.Equal(t, int64(6), cards.NumberOfCustomers)
	assert.Equal(t, "$1,182.46", cards.TotalPaidInvoices)
	assert.Equal(t, "$1,259.95", cards.TotalPendingInvoices)
}

func TestAllIDs_ReturnsEveryID(t *testing.T) {
	ex := &fakeExecutor{rows: []*fakeRows{newFakeRows(
		[]any{"id-1"},
		[]any{"id-2"},
		[]any{"id-3"},
	)}}
	p := &fakeProvider{executor: ex}
	repo := NewInvoiceRepository(p, nil, discardLogger())

	ids, err := repo.AllIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1", "id-2", "id-3"}, ids)
	assert.Equal(t, p.acquired, p.released)

	sql, args, err := ex.lastSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM invoices", sql)
	assert.Empty(t, args)
}
