package analytics

import (
	"math"
	"sort"
	"time"

	"equity-analytics-lab/internal/domain"
)

// Breakout thresholds.
const (
	breakoutVolumePeriod   = 50  // rolling mean of volume
	breakoutHighPeriod     = 20  // rolling max of close, excluding the current bar
	breakoutVolumeMultiple = 1.5 // volume must exceed this multiple of its mean
)

// ComputeBreadth counts per-date advancers and decliners across the panel
// and accumulates the advance/decline line over the given window. The
// benchmark ticker is excluded from the counts but its dates still appear
// in the output. A ticker missing a bar on either of two consecutive
// trading dates is counted on neither side.
//
// ADLine starts at zero for the first date of the window; the caller is
// responsible for anchoring it to previously persisted history.
func ComputeBreadth(bars []*domain.PriceBar, benchmark string) []*domain.MarketBreadthRow {
	if len(bars) == 0 {
		return nil
	}

	byDate := make(map[time.Time]map[string]float64)
	for _, b := range bars {
		m := byDate[b.Date]
		if m == nil {
			m = make(map[string]float64)
			byDate[b.Date] = m
		}
		m[b.Ticker] = b.AdjClose
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rows := make([]*domain.MarketBreadthRow, 0, len(dates))
	var adLine int64
	for i, d := range dates {
		row := &domain.MarketBreadthRow{Date: d}
		if i > 0 {
			prev := byDate[dates[i-1]]
			for ticker, close := range byDate[d] {
				if ticker == benchmark {
					continue
				}
				prevClose, ok := prev[ticker]
				if !ok {
					continue
				}
				switch {
				case close > prevClose:
					row.Advancers++
				case close < prevClose:
					row.Decliners++
				}
			}
		}
		adLine += int64(row.Advancers - row.Decliners)
		row.ADLine = adLine
		rows = append(rows, row)
	}
	return rows
}

// ComputeBreakouts scans the panel for high-volume breakouts: a bar whose
// close meets or exceeds the prior 20-period rolling max of close while
// volume runs more than 1.5x its own 50-period rolling mean. It returns
// per-date aggregate stats and the individual (date, ticker) breakouts.
// Raw close and volume are used here, not adjusted values.
func ComputeBreakouts(bars []*domain.PriceBar) ([]*domain.BreakoutStat, []*domain.BreakoutStock) {
	if len(bars) == 0 {
		return nil, nil
	}

	byTicker := make(map[string][]*domain.PriceBar)
	for _, b := range bars {
		byTicker[b.Ticker] = append(byTicker[b.Ticker], b)
	}

	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	type dayAgg struct {
		total     int
		breakouts int
		aboveAvg  int
	}
	aggs := make(map[time.Time]*dayAgg)
	var stocks []*domain.BreakoutStock

	for _, t := range tickers {
		tb := byTicker[t]
		sortBarsByDate(tb)

		closes := make([]float64, len(tb))
		volumes := make([]float64, len(tb))
		for i, b := range tb {
			closes[i] = b.Close
			volumes[i] = b.Volume
		}
		volMA := rollingMean(volumes, breakoutVolumePeriod)
		closeMax := rollingMax(closes, breakoutHighPeriod)

		for i, b := range tb {
			agg := aggs[b.Date]
			if agg == nil {
				agg = &dayAgg{}
				aggs[b.Date] = agg
			}
			agg.total++

			if math.IsNaN(volMA[i]) {
				continue // window not warm, no volume signal yet
			}
			if b.Volume > volMA[i] {
				agg.aboveAvg++
			}
			if i > 0 && !math.IsNaN(closeMax[i-1]) &&
				b.Close >= closeMax[i-1] && b.Volume > breakoutVolumeMultiple*volMA[i] {
				agg.breakouts++
				stocks = append(stocks, &domain.BreakoutStock{Date: b.Date, Ticker: t})
			}
		}
	}

	dates := make([]time.Time, 0, len(aggs))
	for d := range aggs {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	stats := make([]*domain.BreakoutStat, 0, len(dates))
	for _, d := range dates {
		agg := aggs[d]
		stats = append(stats, &domain.BreakoutStat{
			Date:              d,
			BreakoutCount:     agg.breakouts,
			PctAboveAvgVolume: round2(float64(agg.aboveAvg) / float64(agg.total) * 100),
		})
	}

	sort.Slice(stocks, func(i, j int) bool {
		if !stocks[i].Date.Equal(stocks[j].Date) {
			return stocks[i].Date.Before(stocks[j].Date)
		}
		return stocks[i].Ticker < stocks[j].Ticker
	})
	return stats, stocks
}
