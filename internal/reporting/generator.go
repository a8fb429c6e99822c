package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"equity-analytics-lab/internal/domain"
	"equity-analytics-lab/internal/storage"
)

// Generator produces reports from the derived analytics store.
type Generator struct {
	derived   storage.DerivedStore
	benchmark string
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(derived storage.DerivedStore, benchmark string) *Generator {
	return &Generator{
		derived:   derived,
		benchmark: benchmark,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a snapshot report. marketDays limits the market
// indicator table to the trailing N dates; <= 0 includes everything.
func (g *Generator) Generate(ctx context.Context, marketDays int) (*Report, error) {
	report := &Report{
		GeneratedAt: g.now(),
		Benchmark:   g.benchmark,
	}

	rows, err := g.derived.AllAnalytics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stock analytics: %w", err)
	}
	report.StockRowCount = len(rows)
	tickers := make(map[string]bool)
	for _, r := range rows {
		tickers[r.Ticker] = true
		if report.DateRangeStart.IsZero() || r.Date.Before(report.DateRangeStart) {
			report.DateRangeStart = r.Date
		}
		if r.Date.After(report.DateRangeEnd) {
			report.DateRangeEnd = r.Date
		}
	}
	report.TickerCount = len(tickers)

	market, err := g.derived.AllMarketIndicators(ctx)
	if err != nil {
		return nil, fmt.Errorf("load market indicators: %w", err)
	}
	if marketDays > 0 && len(market) > marketDays {
		market = market[len(market)-marketDays:]
	}
	for _, m := range market {
		report.Market = append(report.Market, MarketRow{
			Date:              m.Date,
			Advancers:         m.Advancers,
			Decliners:         m.Decliners,
			ADLine:            m.ADLine,
			BreakoutCount:     m.BreakoutCount,
			PctAboveAvgVolume: m.PctAboveAvgVolume,
		})
	}

	groups, err := g.derived.AllGroupAnalytics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load group analytics: %w", err)
	}
	var latest time.Time
	for _, gr := range groups {
		if gr.GroupType == domain.GroupTypeSector && gr.AnalysisDate.After(latest) {
			latest = gr.AnalysisDate
		}
	}
	for _, gr := range groups {
		if gr.GroupType != domain.GroupTypeSector || !gr.AnalysisDate.Equal(latest) {
			continue
		}
		report.Sectors = append(report.Sectors, GroupRow{
			GroupName:    gr.GroupName,
			GroupRSValue: gr.GroupRSValue,
			ROC20:        gr.GroupRSROC20,
			AboveSMA20:   gr.AboveRS20SMA,
			AboveSMA50:   gr.AboveRS50SMA,
			AboveSMA200:  gr.AboveRS200SMA,
		})
	}
	sort.Slice(report.Sectors, func(i, j int) bool {
		if report.Sectors[i].ROC20 != report.Sectors[j].ROC20 {
			return report.Sectors[i].ROC20 > report.Sectors[j].ROC20
		}
		return report.Sectors[i].GroupName < report.Sectors[j].GroupName
	})

	breakouts, err := g.derived.AllBreakoutStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load breakout stocks: %w", err)
	}
	var lastBreakout time.Time
	for _, b := range breakouts {
		if b.Date.After(lastBreakout) {
			lastBreakout = b.Date
		}
	}
	for _, b := range breakouts {
		if b.Date.Equal(lastBreakout) {
			report.LatestBreakouts = append(report.LatestBreakouts, b.Ticker)
		}
	}
	sort.Strings(report.LatestBreakouts)

	return report, nil
}
