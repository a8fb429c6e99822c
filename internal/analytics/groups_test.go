package analytics

import (
	"testing"
	"time"

	"equity-analytics-lab/internal/domain"
)

// makeAnalyticsRows builds n daily rows with a constant rs value.
func makeAnalyticsRows(ticker string, start time.Time, n int, rs float64) []*domain.StockAnalyticsRow {
	rows := make([]*domain.StockAnalyticsRow, n)
	for i := range rows {
		rows[i] = &domain.StockAnalyticsRow{
			Ticker: ticker,
			Date:   start.AddDate(0, 0, i),
			RS:     rs,
		}
	}
	return rows
}

func TestAggregateGroups_CapWeightedMean(t *testing.T) {
	start := domain.Day(2023, time.January, 1)
	rows := makeAnalyticsRows("SMALL", start, 200, 1.0)
	rows = append(rows, makeAnalyticsRows("BIG", start, 200, 2.0)...)
	meta := []*domain.StockMeta{
		{Ticker: "SMALL", Sector: "Tech", Industry: "Software", MarketCap: 100},
		{Ticker: "BIG", Sector: "Tech", Industry: "Hardware", MarketCap: 300},
	}

	out := AggregateGroups(rows, meta)

	var sector []*domain.GroupAnalyticsRow
	for _, r := range out {
		if r.GroupType == domain.GroupTypeSector {
			sector = append(sector, r)
		}
	}
	// 200 dates of constant values: only the last one has a warm sma_200.
	if len(sector) != 1 {
		t.Fatalf("got %d sector rows, want 1", len(sector))
	}
	r := sector[0]
	if r.GroupName != "Tech" {
		t.Errorf("GroupName = %q, want Tech", r.GroupName)
	}
	// (1.0*100 + 2.0*300) / 400
	if r.GroupRSValue != 1.75 {
		t.Errorf("GroupRSValue = %v, want 1.75", r.GroupRSValue)
	}
	if r.GroupRSSMA200 != 1.75 || r.GroupRSSMA20 != 1.75 || r.GroupRSSMA50 != 1.75 {
		t.Errorf("flat series should have flat SMAs, got %+v", r)
	}
	if r.GroupRSROC20 != 0 {
		t.Errorf("GroupRSROC20 = %v, want 0 for a flat series", r.GroupRSROC20)
	}
	if r.AboveRS20SMA || r.AboveRS50SMA || r.AboveRS200SMA {
		t.Error("flat series is never strictly above its own SMA")
	}

	// Industry split: each ticker forms its own single-constituent group.
	industries := make(map[string]float64)
	for _, gr := range out {
		if gr.GroupType == domain.GroupTypeIndustry {
			industries[gr.GroupName] = gr.GroupRSValue
		}
	}
	if industries["Software"] != 1.0 || industries["Hardware"] != 2.0 {
		t.Errorf("industry values = %v, want Software=1 Hardware=2", industries)
	}
}

func TestAggregateGroups_Exclusions(t *testing.T) {
	start := domain.Day(2023, time.January, 1)
	rows := makeAnalyticsRows("A", start, 200, 1.0)
	rows = append(rows, makeAnalyticsRows("B", start, 200, 1.0)...)
	rows = append(rows, makeAnalyticsRows("C", start, 200, 1.0)...)
	rows = append(rows, makeAnalyticsRows("D", start, 200, 1.0)...)
	meta := []*domain.StockMeta{
		{Ticker: "A", Sector: domain.GroupUnknown, Industry: domain.GroupUnknown, MarketCap: 100},
		{Ticker: "B", Sector: "Tech", Industry: "Software", MarketCap: 0},
		{Ticker: "C", Sector: "Tech", Industry: "Software", MarketCap: -5},
		// D has no metadata at all.
	}

	if out := AggregateGroups(rows, meta); len(out) != 0 {
		t.Fatalf("got %d rows, want 0: unknown groups, non-positive caps, and missing metadata are excluded", len(out))
	}
}

func TestAggregateGroups_WarmupSuppressesShortSeries(t *testing.T) {
	start := domain.Day(2023, time.January, 1)
	rows := makeAnalyticsRows("A", start, 199, 1.0)
	meta := []*domain.StockMeta{{Ticker: "A", Sector: "Tech", Industry: "Software", MarketCap: 100}}

	if out := AggregateGroups(rows, meta); len(out) != 0 {
		t.Fatalf("got %d rows for a 199-date series, want 0", len(out))
	}
}

func TestAggregateGroups_RocAndFlags(t *testing.T) {
	start := domain.Day(2023, time.January, 1)

	// Rising series: constant 1.0 for 199 dates, 2.0 on the last.
	rows := makeAnalyticsRows("A", start, 199, 1.0)
	rows = append(rows, &domain.StockAnalyticsRow{
		Ticker: "A",
		Date:   start.AddDate(0, 0, 199),
		RS:     2.0,
	})
	meta := []*domain.StockMeta{{Ticker: "A", Sector: "Tech", Industry: "Software", MarketCap: 100}}

	out := AggregateGroups(rows, meta)
	var sector []*domain.GroupAnalyticsRow
	for _, r := range out {
		if r.GroupType == domain.GroupTypeSector {
			sector = append(sector, r)
		}
	}
	if len(sector) != 1 {
		t.Fatalf("got %d sector rows, want 1", len(sector))
	}
	r := sector[0]
	// (2.0 - 1.0) / 1.0 * 100
	if r.GroupRSROC20 != 100 {
		t.Errorf("GroupRSROC20 = %v, want 100", r.GroupRSROC20)
	}
	if !r.AboveRS20SMA || !r.AboveRS50SMA || !r.AboveRS200SMA {
		t.Errorf("a spike should sit above every SMA, got %+v", r)
	}
}
