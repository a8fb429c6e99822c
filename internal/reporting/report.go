package reporting

import "time"

// Report is a point-in-time snapshot of the derived analytics store,
// rendered for human review after a recomputation run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Benchmark   string

	// Coverage
	StockRowCount  int
	TickerCount    int
	DateRangeStart time.Time
	DateRangeEnd   time.Time

	// Market indicators for the trailing window (date ascending).
	Market []MarketRow

	// Sector standings on the latest analysis date, strongest first.
	Sectors []GroupRow

	// Tickers that broke out on the latest date.
	LatestBreakouts []string
}

// MarketRow is one date of market-wide indicators.
type MarketRow struct {
	Date              time.Time
	Advancers         int
	Decliners         int
	ADLine            int64
	BreakoutCount     *int
	PctAboveAvgVolume *float64
}

// GroupRow is one group's standing on the report date.
type GroupRow struct {
	GroupName    string
	GroupRSValue float64
	ROC20        float64
	AboveSMA20   bool
	AboveSMA50   bool
	AboveSMA200  bool
}
