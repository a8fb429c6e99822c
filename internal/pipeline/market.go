package pipeline

import (
	"sort"
	"strings"
	"time"

	"equity-analytics-lab/internal/domain"
)

// BuildMarketIndicators assembles the persisted market indicator rows from
// the breadth window, the per-date breakout stats, and the raw macro
// observations. anchor is the last persisted ad_line value before the
// window; adding it keeps the cumulative line seamless across
// independently recomputed windows instead of restarting it at zero.
//
// Macro values are forward-filled: each row carries, per series, the last
// observation dated at or before the row's date. Series IDs are lowercased
// to keep keys stable regardless of provider casing.
func BuildMarketIndicators(
	breadth []*domain.MarketBreadthRow,
	stats []*domain.BreakoutStat,
	macro []*domain.MacroPoint,
	anchor int64,
) []*domain.MarketIndicatorRow {
	statsByDate := make(map[time.Time]*domain.BreakoutStat, len(stats))
	for _, s := range stats {
		statsByDate[s.Date] = s
	}

	bySeries := make(map[string][]*domain.MacroPoint)
	for _, p := range macro {
		id := strings.ToLower(p.SeriesID)
		bySeries[id] = append(bySeries[id], p)
	}
	for _, obs := range bySeries {
		sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	}

	rows := make([]*domain.MarketIndicatorRow, 0, len(breadth))
	for _, b := range breadth {
		row := &domain.MarketIndicatorRow{
			Date:      b.Date,
			Advancers: b.Advancers,
			Decliners: b.Decliners,
			ADLine:    b.ADLine + anchor,
		}
		if s, ok := statsByDate[b.Date]; ok {
			count := s.BreakoutCount
			pct := s.PctAboveAvgVolume
			row.BreakoutCount = &count
			row.PctAboveAvgVolume = &pct
		}
		for id, obs := range bySeries {
			if v, ok := lastAtOrBefore(obs, b.Date); ok {
				if row.Macro == nil {
					row.Macro = make(map[string]float64)
				}
				row.Macro[id] = v
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// lastAtOrBefore returns the value of the latest observation dated at or
// before d in a date-ascending series.
func lastAtOrBefore(obs []*domain.MacroPoint, d time.Time) (float64, bool) {
	i := sort.Search(len(obs), func(i int) bool { return obs[i].Date.After(d) })
	if i == 0 {
		return 0, false
	}
	return obs[i-1].Value, true
}
