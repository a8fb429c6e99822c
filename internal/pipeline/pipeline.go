// Package pipeline orchestrates one analytics recomputation run: resolve
// the load window, pull the raw slice, derive per-ticker, group, and
// market-wide analytics, and commit everything through the transactional
// delete-then-append protocol.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"equity-analytics-lab/internal/analytics"
	"equity-analytics-lab/internal/domain"
	"equity-analytics-lab/internal/observability"
	"equity-analytics-lab/internal/storage"
)

// DefaultBenchmark is the ticker every relative-strength ratio is computed
// against when none is configured.
const DefaultBenchmark = "^GSPC"

// Runner executes analytics runs against a raw store and a derived store.
type Runner struct {
	raw       storage.RawStore
	derived   storage.DerivedStore
	dirtyLog  storage.DirtyTickerLog
	benchmark string
	logger    *log.Logger
}

// New creates a Runner. An empty benchmark defaults to DefaultBenchmark; a
// nil logger discards output.
func New(raw storage.RawStore, derived storage.DerivedStore, dirtyLog storage.DirtyTickerLog, benchmark string, logger *log.Logger) *Runner {
	if benchmark == "" {
		benchmark = DefaultBenchmark
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{
		raw:       raw,
		derived:   derived,
		dirtyLog:  dirtyLog,
		benchmark: benchmark,
		logger:    logger,
	}
}

// RunResult summarizes one completed run.
type RunResult struct {
	Window         analytics.Window
	DirtyTickers   int
	StockRows      int
	GroupRows      int
	MarketRows     int
	BreakoutStocks int
	DroppedRows    int
	Duration       time.Duration
}

// Run executes a single batch recomputation. A failed run commits nothing:
// the derived store stays at its last consistent state and the caller
// decides whether to re-invoke.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()

	result, err := r.run(ctx)
	duration := time.Since(start)
	if err != nil {
		observability.RecordPipelineRun("failure", duration.Seconds())
		return nil, err
	}
	result.Duration = duration
	observability.RecordPipelineRun("success", duration.Seconds())
	r.logger.Printf("run completed in %s: %d stock rows, %d group rows, %d market rows, %d breakouts (%d rows dropped)",
		duration.Round(time.Millisecond), result.StockRows, result.GroupRows, result.MarketRows, result.BreakoutStocks, result.DroppedRows)
	return result, nil
}

func (r *Runner) run(ctx context.Context) (*RunResult, error) {
	dirty, err := r.dirtyLog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dirty tickers: %w", err)
	}
	if len(dirty) > 0 {
		r.logger.Printf("%d tickers flagged for full recomputation", len(dirty))
	}
	observability.RecordDirtyTickers(len(dirty))

	win, err := r.resolveWindow(ctx)
	if err != nil {
		return nil, err
	}
	if win.ColdStart {
		r.logger.Printf("no prior analytics, cold build from %s", win.RecomputeFrom.Format("2006-01-02"))
	} else {
		r.logger.Printf("loading raw data from %s, recomputing from %s",
			win.DataLoadDate.Format("2006-01-02"), win.RecomputeFrom.Format("2006-01-02"))
	}

	panel, meta, macro, err := r.load(ctx, dirty, win)
	if err != nil {
		return nil, err
	}

	indicators := analytics.ComputeIndicators(panel, r.benchmark, win.RecomputeFrom, dirty)
	if indicators.DroppedRows > 0 {
		r.logger.Printf("warning: dropped %d rows with missing or non-finite benchmark ratio", indicators.DroppedRows)
	}
	observability.RecordRowsDropped(indicators.DroppedRows)

	// Group analytics rebuild from the merged panel: rows that survive this
	// run's deletions plus everything just computed.
	var survivors []*domain.StockAnalyticsRow
	if !win.ColdStart {
		survivors, err = r.derived.AnalyticsBefore(ctx, win.RecomputeFrom, dirty)
		if err != nil {
			return nil, fmt.Errorf("load surviving analytics: %w", err)
		}
	}
	groupRows := analytics.AggregateGroups(append(survivors, indicators.Rows...), meta)
	if len(groupRows) == 0 {
		r.logger.Printf("warning: no qualifying rows for group aggregation, skipping")
	}

	// Market-wide series need history behind the window: breadth compares
	// each date against the prior trading date, so the panel is extended to
	// the last date before RecomputeFrom or the window's first date would
	// persist zero counts; breakout rolling state warms up over the full
	// loaded panel. Only rows dated inside the window are persisted.
	breadthFrom := win.RecomputeFrom
	if prior, ok := lastDateBefore(panel, win.RecomputeFrom); ok {
		breadthFrom = prior
	}
	breadthPanel := panel[:0:0]
	for _, b := range panel {
		if !b.Date.Before(breadthFrom) {
			breadthPanel = append(breadthPanel, b)
		}
	}
	breadth := analytics.ComputeBreadth(breadthPanel, r.benchmark)
	for len(breadth) > 0 && breadth[0].Date.Before(win.RecomputeFrom) {
		breadth = breadth[1:]
	}

	stats, breakoutStocks := analytics.ComputeBreakouts(panel)
	keptStats := stats[:0]
	for _, s := range stats {
		if !s.Date.Before(win.RecomputeFrom) {
			keptStats = append(keptStats, s)
		}
	}
	stats = keptStats
	keptStocks := breakoutStocks[:0]
	for _, bs := range breakoutStocks {
		if !bs.Date.Before(win.RecomputeFrom) {
			keptStocks = append(keptStocks, bs)
		}
	}
	breakoutStocks = keptStocks

	var anchor int64
	if !win.ColdStart {
		anchor, _, err = r.derived.LastADLineBefore(ctx, win.RecomputeFrom)
		if err != nil {
			return nil, fmt.Errorf("load ad_line anchor: %w", err)
		}
	}
	marketRows := BuildMarketIndicators(breadth, stats, macro, anchor)

	set := &storage.CommitSet{
		DirtyTickers:   dirty,
		RecomputeFrom:  win.RecomputeFrom,
		StockRows:      indicators.Rows,
		GroupRows:      groupRows,
		MarketRows:     marketRows,
		BreakoutStocks: breakoutStocks,
	}
	if err := r.derived.Commit(ctx, set); err != nil {
		return nil, fmt.Errorf("commit analytics run: %w", err)
	}
	observability.RecordRowsWritten("daily_stock_analytics", len(set.StockRows))
	observability.RecordRowsWritten("daily_group_analytics", len(set.GroupRows))
	observability.RecordRowsWritten("daily_market_indicators", len(set.MarketRows))
	observability.RecordRowsWritten("daily_breakout_stocks", len(set.BreakoutStocks))

	return &RunResult{
		Window:         win,
		DirtyTickers:   len(dirty),
		StockRows:      len(set.StockRows),
		GroupRows:      len(set.GroupRows),
		MarketRows:     len(set.MarketRows),
		BreakoutStocks: len(set.BreakoutStocks),
		DroppedRows:    indicators.DroppedRows,
	}, nil
}

// lastDateBefore finds the latest bar date strictly before cutoff.
func lastDateBefore(bars []*domain.PriceBar, cutoff time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, b := range bars {
		if b.Date.Before(cutoff) && (!found || b.Date.After(best)) {
			best = b.Date
			found = true
		}
	}
	return best, found
}

// resolveWindow reads both stores' boundary dates and delegates to the
// window resolver.
func (r *Runner) resolveWindow(ctx context.Context) (analytics.Window, error) {
	var derivedMax, rawMin *time.Time

	max, ok, err := r.derived.MaxAnalyticsDate(ctx)
	if err != nil {
		return analytics.Window{}, fmt.Errorf("query max analytics date: %w", err)
	}
	if ok {
		derivedMax = &max
	}

	min, ok, err := r.raw.MinBarDate(ctx)
	if err != nil {
		return analytics.Window{}, fmt.Errorf("query min raw date: %w", err)
	}
	if ok {
		rawMin = &min
	}

	return analytics.ResolveWindow(derivedMax, rawMin)
}

// load pulls the raw slice for a run: the benchmark's full history, the
// windowed (or, for dirty tickers, complete) bar history for everything
// else, static metadata, and the macro observations for the window.
func (r *Runner) load(ctx context.Context, dirty []string, win analytics.Window) ([]*domain.PriceBar, []*domain.StockMeta, []*domain.MacroPoint, error) {
	benchBars, err := r.raw.BenchmarkBars(ctx, r.benchmark)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load benchmark bars: %w", err)
	}
	otherBars, err := r.raw.BarsForWindow(ctx, r.benchmark, dirty, win.DataLoadDate)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load windowed bars: %w", err)
	}
	r.logger.Printf("loaded %d benchmark bars and %d windowed bars", len(benchBars), len(otherBars))

	meta, err := r.raw.Meta(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load stock metadata: %w", err)
	}
	macro, err := r.raw.MacroSince(ctx, win.RecomputeFrom)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load macro series: %w", err)
	}

	panel := make([]*domain.PriceBar, 0, len(benchBars)+len(otherBars))
	panel = append(panel, benchBars...)
	panel = append(panel, otherBars...)
	return panel, meta, macro, nil
}
