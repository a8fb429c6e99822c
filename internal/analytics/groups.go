package analytics

import (
	"math"
	"sort"
	"time"

	"equity-analytics-lab/internal/domain"
)

// rocPeriod is the lookback of the group rate-of-change statistic.
const rocPeriod = 20

// AggregateGroups rebuilds the cross-sectional group analytics from the
// complete per-ticker panel. It is always a full rebuild: a cap-weighted
// mean and its rolling statistics cannot be patched for a suffix window
// once the per-ticker history underneath them has changed.
//
// For each group type and date, the group value is the market-cap-weighted
// mean of constituent rs values. Tickers with an Unknown group, no
// metadata, or a non-positive market cap are excluded. Rows without a full
// 200-period rolling mean are dropped, the same warm-up policy as the
// per-ticker engine. A group type with no qualifying rows simply yields
// nothing.
func AggregateGroups(rows []*domain.StockAnalyticsRow, meta []*domain.StockMeta) []*domain.GroupAnalyticsRow {
	metaByTicker := make(map[string]*domain.StockMeta, len(meta))
	for _, m := range meta {
		metaByTicker[m.Ticker] = m
	}

	var out []*domain.GroupAnalyticsRow
	for _, gt := range []domain.GroupType{domain.GroupTypeSector, domain.GroupTypeIndustry} {
		out = append(out, aggregateGroupType(rows, metaByTicker, gt)...)
	}
	return out
}

type weightedSum struct {
	num float64 // sum of rs * market_cap
	den float64 // sum of market_cap
}

func aggregateGroupType(rows []*domain.StockAnalyticsRow, metaByTicker map[string]*domain.StockMeta, gt domain.GroupType) []*domain.GroupAnalyticsRow {
	type key struct {
		name string
		date time.Time
	}
	sums := make(map[key]*weightedSum)
	for _, r := range rows {
		m, ok := metaByTicker[r.Ticker]
		if !ok {
			continue
		}
		name := m.Sector
		if gt == domain.GroupTypeIndustry {
			name = m.Industry
		}
		if name == domain.GroupUnknown || name == "" {
			continue
		}
		if m.MarketCap <= 0 || math.IsNaN(m.MarketCap) {
			continue
		}
		k := key{name: name, date: r.Date}
		ws := sums[k]
		if ws == nil {
			ws = &weightedSum{}
			sums[k] = ws
		}
		ws.num += r.RS * m.MarketCap
		ws.den += m.MarketCap
	}
	if len(sums) == 0 {
		return nil
	}

	// Re-shape into one dated series per group.
	byGroup := make(map[string][]time.Time)
	values := make(map[key]float64, len(sums))
	for k, ws := range sums {
		byGroup[k.name] = append(byGroup[k.name], k.date)
		values[k] = ws.num / ws.den
	}

	names := make([]string, 0, len(byGroup))
	for name := range byGroup {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*domain.GroupAnalyticsRow
	for _, name := range names {
		dates := byGroup[name]
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		series := make([]float64, len(dates))
		for i, d := range dates {
			series[i] = values[key{name: name, date: d}]
		}

		sma20 := rollingMean(series, 20)
		sma50 := rollingMean(series, 50)
		sma200 := rollingMean(series, 200)

		for i, d := range dates {
			if math.IsNaN(sma200[i]) {
				continue
			}
			// sma_200 defined implies the roc lookback is satisfied too.
			var roc float64
			if prev := series[i-rocPeriod]; prev != 0 {
				roc = (series[i] - prev) / prev * 100
			}

			out = append(out, &domain.GroupAnalyticsRow{
				AnalysisDate:  d,
				GroupName:     name,
				GroupType:     gt,
				GroupRSValue:  round4(series[i]),
				GroupRSSMA20:  round4(sma20[i]),
				GroupRSSMA50:  round4(sma50[i]),
				GroupRSSMA200: round4(sma200[i]),
				GroupRSROC20:  round4(roc),
				AboveRS20SMA:  series[i] > sma20[i],
				AboveRS50SMA:  series[i] > sma50[i],
				AboveRS200SMA: series[i] > sma200[i],
			})
		}
	}
	return out
}
