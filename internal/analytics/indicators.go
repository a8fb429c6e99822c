package analytics

import (
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"equity-analytics-lab/internal/domain"
)

// Performance lookbacks in trading periods.
const (
	perf1WPeriods = 5
	perf1MPeriods = 21
	perf3MPeriods = 63
	perf6MPeriods = 126
)

// IndicatorResult is the output of one indicator computation pass.
type IndicatorResult struct {
	// Rows hold every (ticker, date) with a full 200-period warm-up and a
	// valid benchmark ratio, truncated to date >= recomputeFrom except for
	// full-history tickers, sorted by (ticker, date).
	Rows []*domain.StockAnalyticsRow

	// DroppedRows counts (ticker, date) pairs discarded because the
	// benchmark had no bar that date or the ratio was non-finite.
	DroppedRows int
}

// ComputeIndicators derives per-ticker analytics from a raw price panel.
// The panel must include the benchmark ticker's bars: every relative
// strength value is a ratio against the benchmark's hlcc4 on the same
// date. Deterministic for a given input; tickers are processed in
// parallel since no state is shared between them.
//
// Rows before recomputeFrom are computed only to warm up rolling state and
// are never returned, except for tickers in fullHistory: those had their
// persisted history wiped, so every warm row is emitted regardless of date.
func ComputeIndicators(bars []*domain.PriceBar, benchmark string, recomputeFrom time.Time, fullHistory []string) *IndicatorResult {
	keepAll := make(map[string]bool, len(fullHistory))
	for _, t := range fullHistory {
		keepAll[t] = true
	}
	byTicker := make(map[string][]*domain.PriceBar)
	for _, b := range bars {
		byTicker[b.Ticker] = append(byTicker[b.Ticker], b)
	}
	for _, tb := range byTicker {
		sortBarsByDate(tb)
	}

	benchHLCC := make(map[time.Time]float64, len(byTicker[benchmark]))
	for _, b := range byTicker[benchmark] {
		benchHLCC[b.Date] = hlcc4(b)
	}

	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	perRows := make([][]*domain.StockAnalyticsRow, len(tickers))
	perDropped := make([]int, len(tickers))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(tickers) {
		workers = len(tickers)
	}
	if workers > 1 {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					perRows[i], perDropped[i] = computeTicker(byTicker[tickers[i]], benchHLCC, recomputeFrom, keepAll[tickers[i]])
				}
			}()
		}
		for i := range tickers {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	} else {
		for i := range tickers {
			perRows[i], perDropped[i] = computeTicker(byTicker[tickers[i]], benchHLCC, recomputeFrom, keepAll[tickers[i]])
		}
	}

	result := &IndicatorResult{}
	for i := range tickers {
		result.Rows = append(result.Rows, perRows[i]...)
		result.DroppedRows += perDropped[i]
	}
	return result
}

// computeTicker runs the full indicator pipeline for one ticker's bars,
// already sorted by date. keepAll disables the recompute-date truncation
// for tickers whose whole history is being regenerated.
func computeTicker(tb []*domain.PriceBar, benchHLCC map[time.Time]float64, recomputeFrom time.Time, keepAll bool) ([]*domain.StockAnalyticsRow, int) {
	hlcc := make([]float64, len(tb))
	for i, b := range tb {
		hlcc[i] = hlcc4(b)
	}

	// Moving averages run over the full bar sequence, including dates that
	// a missing benchmark ratio later drops.
	ma20 := rollingMean(hlcc, 20)
	ma50 := rollingMean(hlcc, 50)
	ma200 := rollingMean(hlcc, 200)

	// A date with no valid benchmark ratio carries no valid analytics at
	// all, so it is removed before the lookback sequence is built.
	dropped := 0
	keptIdx := make([]int, 0, len(tb))
	keptRS := make([]float64, 0, len(tb))
	for i, b := range tb {
		bench, ok := benchHLCC[b.Date]
		if !ok {
			dropped++
			continue
		}
		rs := hlcc[i] / bench
		if math.IsNaN(rs) || math.IsInf(rs, 0) {
			dropped++
			continue
		}
		keptIdx = append(keptIdx, i)
		keptRS = append(keptRS, rs)
	}

	adjCloses := make([]float64, len(keptIdx))
	for j, i := range keptIdx {
		adjCloses[j] = tb[i].AdjClose
	}

	var rows []*domain.StockAnalyticsRow
	ytdFirst := make(map[int]float64)
	for j, i := range keptIdx {
		b := tb[i]
		year := b.Date.Year()
		if _, ok := ytdFirst[year]; !ok {
			ytdFirst[year] = b.AdjClose
		}

		// Warm-up invariant: no row without a full 200-period window.
		if math.IsNaN(ma200[i]) {
			continue
		}
		if !keepAll && b.Date.Before(recomputeFrom) {
			continue
		}

		row := &domain.StockAnalyticsRow{
			Ticker: b.Ticker,
			Date:   b.Date,
			HLCC4:  round4(hlcc[i]),
			MA20:   round4(ma20[i]),
			MA50:   round4(ma50[i]),
			MA200:  round4(ma200[i]),
			RS:     round4(keptRS[j]),
			Trend:  classifyTrend(b.AdjClose, ma50[i], ma200[i]),

			Perf1W: round4p(pctChange(adjCloses, j, perf1WPeriods)),
			Perf1M: round4p(pctChange(adjCloses, j, perf1MPeriods)),
			Perf3M: round4p(pctChange(adjCloses, j, perf3MPeriods)),
			Perf6M: round4p(pctChange(adjCloses, j, perf6MPeriods)),
		}
		if first := ytdFirst[year]; first != 0 {
			ytd := (b.AdjClose/first - 1) * 100
			row.PerfYTD = round4p(&ytd)
		}
		rows = append(rows, row)
	}
	return rows, dropped
}

// hlcc4 is the smoothed daily price proxy: the mean of adjusted high,
// adjusted low, and twice the adjusted close. High and low are scaled by
// the adjustment factor so every OHLC-derived value stays split/dividend
// consistent. A zero close means no factor can be derived; 1.0 is used.
func hlcc4(b *domain.PriceBar) float64 {
	factor := 1.0
	if b.Close != 0 {
		factor = b.AdjClose / b.Close
	}
	adjHigh := b.High * factor
	adjLow := b.Low * factor
	return (adjHigh + adjLow + 2*b.AdjClose) / 4
}

// classifyTrend maps the adjusted close's position against the 50 and 200
// period means onto the three trend states. The states partition all rows:
// anything not strictly ordered either way is Sideways.
func classifyTrend(adjClose, ma50, ma200 float64) domain.Trend {
	switch {
	case adjClose > ma50 && ma50 > ma200:
		return domain.TrendUp
	case adjClose < ma50 && ma50 < ma200:
		return domain.TrendDown
	default:
		return domain.TrendSideways
	}
}

// pctChange is the percentage change over a k-period lookback in the given
// sequence, nil when not enough history exists or the base value is zero.
func pctChange(vals []float64, j, k int) *float64 {
	if j < k {
		return nil
	}
	base := vals[j-k]
	if base == 0 {
		return nil
	}
	v := (vals[j]/base - 1) * 100
	return &v
}

func sortBarsByDate(bars []*domain.PriceBar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}
