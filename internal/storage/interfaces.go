package storage

import (
	"context"
	"time"

	"equity-analytics-lab/internal/domain"
)

// RawStore provides read-only access to the raw market data the ingestion
// side maintains: daily price bars, static stock metadata, and macro series.
type RawStore interface {
	// MinBarDate returns the earliest price-bar date. ok is false when the
	// raw store holds no bars at all.
	MinBarDate(ctx context.Context) (min time.Time, ok bool, err error)

	// BenchmarkBars retrieves the benchmark ticker's full bar history,
	// ordered by date ASC.
	BenchmarkBars(ctx context.Context, ticker string) ([]*domain.PriceBar, error)

	// BarsForWindow retrieves bars for every non-benchmark ticker with
	// date >= since, plus the complete history of the fullReload tickers,
	// ordered by (ticker, date) ASC.
	BarsForWindow(ctx context.Context, benchmark string, fullReload []string, since time.Time) ([]*domain.PriceBar, error)

	// Meta retrieves static metadata for all known tickers.
	Meta(ctx context.Context) ([]*domain.StockMeta, error)

	// MacroSince retrieves macro observations with date >= since, ordered
	// by (series_id, date) ASC.
	MacroSince(ctx context.Context, since time.Time) ([]*domain.MacroPoint, error)
}

// DirtyTickerLog is the persisted set of tickers whose full analytics
// history must be discarded and recomputed. The ingestion side appends;
// the commit protocol clears it.
type DirtyTickerLog interface {
	// List returns the logged tickers, sorted, without duplicates.
	List(ctx context.Context) ([]string, error)

	// Add appends tickers to the log. Re-adding a ticker is a no-op.
	Add(ctx context.Context, tickers ...string) error
}

// CommitSet is everything one analytics run writes, applied atomically by
// DerivedStore.Commit under delete-then-append semantics.
type CommitSet struct {
	DirtyTickers  []string
	RecomputeFrom time.Time

	StockRows      []*domain.StockAnalyticsRow
	GroupRows      []*domain.GroupAnalyticsRow
	MarketRows     []*domain.MarketIndicatorRow
	BreakoutStocks []*domain.BreakoutStock
}

// DerivedStore owns the four derived analytics tables. All writes go
// through Commit; everything else is read-only.
type DerivedStore interface {
	// MaxAnalyticsDate returns the latest persisted stock-analytics date.
	// ok is false when no analytics exist yet.
	MaxAnalyticsDate(ctx context.Context) (max time.Time, ok bool, err error)

	// AnalyticsBefore retrieves stock-analytics rows with date < cutoff
	// whose ticker is not in excludeTickers, ordered by (ticker, date) ASC.
	// These are the rows that survive the run's deletions.
	AnalyticsBefore(ctx context.Context, cutoff time.Time, excludeTickers []string) ([]*domain.StockAnalyticsRow, error)

	// LastADLineBefore returns the most recent persisted ad_line value with
	// date < cutoff. ok is false when none exists.
	LastADLineBefore(ctx context.Context, cutoff time.Time) (adLine int64, ok bool, err error)

	// Commit applies the run's output in a single transaction:
	//  1. delete stock-analytics and breakout-stock rows for dirty tickers
	//  2. delete stock-analytics, market-indicator, breakout-stock rows
	//     with date >= RecomputeFrom
	//  3. delete all group-analytics rows
	//  4. clear the dirty-ticker log
	//  5. append every row in the set
	// A failure anywhere rolls the whole transaction back.
	Commit(ctx context.Context, set *CommitSet) error

	// Read side, used by consumers and tests.
	AllAnalytics(ctx context.Context) ([]*domain.StockAnalyticsRow, error)
	AllGroupAnalytics(ctx context.Context) ([]*domain.GroupAnalyticsRow, error)
	AllMarketIndicators(ctx context.Context) ([]*domain.MarketIndicatorRow, error)
	AllBreakoutStocks(ctx context.Context) ([]*domain.BreakoutStock, error)
}
