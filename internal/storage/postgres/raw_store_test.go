package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"equity-analytics-lab/internal/domain"
)

func insertBar(t *testing.T, ctx context.Context, pool *Pool, ticker string, date time.Time, px float64) {
	t.Helper()
	_, err := pool.Exec(ctx, `
		INSERT INTO daily_stock_data (ticker, date, open, high, low, close, adj_close, volume)
		VALUES ($1, $2, $3, $3, $3, $3, $3, 100)
	`, ticker, date, px)
	require.NoError(t, err)
}

func TestRawStore_MinBarDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRawStore(pool)

	_, ok, err := store.MinBarDate(ctx)
	require.NoError(t, err)
	require.False(t, ok, "empty table should report no min date")

	d1 := domain.Day(2024, time.March, 1)
	insertBar(t, ctx, pool, "AAA", d1.AddDate(0, 0, 5), 10)
	insertBar(t, ctx, pool, "BBB", d1, 20)

	min, ok, err := store.MinBarDate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, min.Equal(d1), "min = %v, want %v", min, d1)
}

func TestRawStore_BarsForWindow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRawStore(pool)
	d := func(i int) time.Time { return domain.Day(2024, time.March, 1).AddDate(0, 0, i) }

	insertBar(t, ctx, pool, "^GSPC", d(0), 100)
	insertBar(t, ctx, pool, "^GSPC", d(5), 101)
	insertBar(t, ctx, pool, "OLD", d(0), 10)
	insertBar(t, ctx, pool, "OLD", d(5), 11)
	insertBar(t, ctx, pool, "DIRTY", d(0), 20)
	insertBar(t, ctx, pool, "DIRTY", d(5), 21)

	bars, err := store.BarsForWindow(ctx, "^GSPC", []string{"DIRTY"}, d(3))
	require.NoError(t, err)
	require.Len(t, bars, 3, "DIRTY full history plus OLD's windowed bar")
	for _, b := range bars {
		require.NotEqual(t, "^GSPC", b.Ticker, "benchmark excluded from the windowed load")
		if b.Ticker == "OLD" {
			require.False(t, b.Date.Before(d(3)))
		}
	}

	bench, err := store.BenchmarkBars(ctx, "^GSPC")
	require.NoError(t, err)
	require.Len(t, bench, 2)
	require.True(t, bench[0].Date.Before(bench[1].Date), "benchmark bars ordered by date")
}

func TestRawStore_MetaDefaultsUnknown(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRawStore(pool)

	_, err := pool.Exec(ctx, `INSERT INTO stocks (ticker, sector, industry, market_cap) VALUES ('AAA', 'Tech', 'Software', 1000)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO stocks (ticker) VALUES ('BBB')`)
	require.NoError(t, err)

	meta, err := store.Meta(ctx)
	require.NoError(t, err)
	require.Len(t, meta, 2)
	require.Equal(t, "Tech", meta[0].Sector)
	require.Equal(t, domain.GroupUnknown, meta[1].Sector, "NULL sector must read as Unknown")
	require.Equal(t, domain.GroupUnknown, meta[1].Industry)
	require.Zero(t, meta[1].MarketCap)
}

func TestRawStore_MacroSince(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRawStore(pool)
	d := func(i int) time.Time { return domain.Day(2024, time.March, 1).AddDate(0, 0, i) }

	for i, v := range []float64{4.1, 4.2, 4.3} {
		_, err := pool.Exec(ctx, `INSERT INTO macro_data (date, series_id, value) VALUES ($1, 'DGS10', $2)`, d(i), v)
		require.NoError(t, err)
	}

	points, err := store.MacroSince(ctx, d(1))
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Equal(t, 4.2, points[0].Value)
	require.Equal(t, 4.3, points[1].Value)
}
