package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"equity-analytics-lab/internal/domain"
	"equity-analytics-lab/internal/storage"
	"equity-analytics-lab/internal/storage/memory"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func setupTestData(t *testing.T) *memory.DerivedStore {
	ctx := context.Background()

	store := memory.NewDerivedStore(memory.NewDirtyTickerLog())

	d1 := domain.Day(2024, 3, 4)
	d2 := domain.Day(2024, 3, 5)

	set := &storage.CommitSet{
		RecomputeFrom: d1,
		StockRows: []*domain.StockAnalyticsRow{
			{Ticker: "AAA", Date: d1, HLCC4: 100, MA20: 99, MA50: 98, MA200: 95, RS: 1.02, Trend: domain.TrendUp},
			{Ticker: "AAA", Date: d2, HLCC4: 101, MA20: 99, MA50: 98, MA200: 95, RS: 1.03, Trend: domain.TrendUp},
			{Ticker: "BBB", Date: d2, HLCC4: 50, MA20: 51, MA50: 52, MA200: 55, RS: 0.97, Trend: domain.TrendDown},
		},
		GroupRows: []*domain.GroupAnalyticsRow{
			{AnalysisDate: d1, GroupName: "Technology", GroupType: domain.GroupTypeSector, GroupRSValue: 1.01, GroupRSROC20: 0.5},
			{AnalysisDate: d2, GroupName: "Technology", GroupType: domain.GroupTypeSector, GroupRSValue: 1.02, GroupRSROC20: 1.5, AboveRS20SMA: true, AboveRS50SMA: true},
			{AnalysisDate: d2, GroupName: "Energy", GroupType: domain.GroupTypeSector, GroupRSValue: 0.95, GroupRSROC20: 3.0, AboveRS20SMA: true},
			{AnalysisDate: d2, GroupName: "Software", GroupType: domain.GroupTypeIndustry, GroupRSValue: 1.10, GroupRSROC20: 9.0},
		},
		MarketRows: []*domain.MarketIndicatorRow{
			{Date: d1, Advancers: 3, Decliners: 1, ADLine: 2},
			{Date: d2, Advancers: 1, Decliners: 3, ADLine: 0, BreakoutCount: intPtr(2), PctAboveAvgVolume: floatPtr(41.5)},
		},
		BreakoutStocks: []*domain.BreakoutStock{
			{Date: d1, Ticker: "CCC"},
			{Date: d2, Ticker: "BBB"},
			{Date: d2, Ticker: "AAA"},
		},
	}
	if err := store.Commit(ctx, set); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	return store
}

func TestGenerate(t *testing.T) {
	store := setupTestData(t)
	fixed := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

	gen := NewGenerator(store, "^GSPC").WithClock(func() time.Time { return fixed })
	report, err := gen.Generate(context.Background(), 0)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixed)
	}
	if report.Benchmark != "^GSPC" {
		t.Errorf("Benchmark = %q, want ^GSPC", report.Benchmark)
	}
	if report.StockRowCount != 3 {
		t.Errorf("StockRowCount = %d, want 3", report.StockRowCount)
	}
	if report.TickerCount != 2 {
		t.Errorf("TickerCount = %d, want 2", report.TickerCount)
	}
	if !report.DateRangeStart.Equal(domain.Day(2024, 3, 4)) || !report.DateRangeEnd.Equal(domain.Day(2024, 3, 5)) {
		t.Errorf("date range = %v..%v", report.DateRangeStart, report.DateRangeEnd)
	}

	if len(report.Market) != 2 {
		t.Fatalf("Market len = %d, want 2", len(report.Market))
	}
	if report.Market[0].BreakoutCount != nil {
		t.Errorf("first market row should have nil BreakoutCount")
	}
	if got := report.Market[1]; got.BreakoutCount == nil || *got.BreakoutCount != 2 {
		t.Errorf("second market row BreakoutCount = %v, want 2", got.BreakoutCount)
	}

	// Only sector rows for the latest date, strongest ROC first.
	if len(report.Sectors) != 2 {
		t.Fatalf("Sectors len = %d, want 2", len(report.Sectors))
	}
	if report.Sectors[0].GroupName != "Energy" || report.Sectors[1].GroupName != "Technology" {
		t.Errorf("sector order = %s, %s", report.Sectors[0].GroupName, report.Sectors[1].GroupName)
	}

	// Breakouts from the latest date only, sorted.
	if len(report.LatestBreakouts) != 2 || report.LatestBreakouts[0] != "AAA" || report.LatestBreakouts[1] != "BBB" {
		t.Errorf("LatestBreakouts = %v", report.LatestBreakouts)
	}
}

func TestGenerateMarketDaysLimit(t *testing.T) {
	store := setupTestData(t)

	gen := NewGenerator(store, "^GSPC")
	report, err := gen.Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(report.Market) != 1 {
		t.Fatalf("Market len = %d, want 1", len(report.Market))
	}
	if !report.Market[0].Date.Equal(domain.Day(2024, 3, 5)) {
		t.Errorf("kept date = %v, want latest", report.Market[0].Date)
	}
}

func TestGenerateEmptyStore(t *testing.T) {
	store := memory.NewDerivedStore(memory.NewDirtyTickerLog())

	gen := NewGenerator(store, "^GSPC")
	report, err := gen.Generate(context.Background(), 0)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.StockRowCount != 0 || len(report.Market) != 0 || len(report.Sectors) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestRenderMarkdown(t *testing.T) {
	store := setupTestData(t)
	fixed := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

	gen := NewGenerator(store, "^GSPC").WithClock(func() time.Time { return fixed })
	report, err := gen.Generate(context.Background(), 0)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Market Analytics Report",
		"Benchmark: ^GSPC",
		"| 2024-03-05 | 1 | 3 | 0 | 2 | 41.50 |",
		"| Energy | 0.9500 | 3.00 | YES | no | no |",
		"- AAA",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	store := setupTestData(t)

	gen := NewGenerator(store, "^GSPC")
	report, err := gen.Generate(context.Background(), 0)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	csv := RenderCSV(report.Market)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want 3", len(lines))
	}
	if lines[0] != "date,advancers,decliners,ad_line,high_volume_breakout_count,pct_above_avg_volume" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "2024-03-04,3,1,2,," {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != "2024-03-05,1,3,0,2,41.500000" {
		t.Errorf("row 2 = %q", lines[2])
	}
}
