package domain

import "time"

// Trend classifies a ticker's price position relative to its moving averages.
type Trend string

const (
	TrendUp       Trend = "Uptrend"   // adj_close > ma_50 > ma_200
	TrendDown     Trend = "Downtrend" // adj_close < ma_50 < ma_200
	TrendSideways Trend = "Sideways"  // everything else
)

// StockAnalyticsRow is one (ticker, date) of derived per-ticker analytics.
// Corresponds to the daily_stock_analytics table. Rows are only ever
// produced with all three moving averages populated: a date with fewer
// than 200 periods of history behind it is never persisted.
type StockAnalyticsRow struct {
	Ticker string
	Date   time.Time
	HLCC4  float64
	MA20   float64
	MA50   float64
	MA200  float64
	RS     float64 // hlcc4 relative to the benchmark's hlcc4 on the same date
	Trend  Trend

	// Performance lookbacks, nil until enough history exists.
	Perf1W  *float64
	Perf1M  *float64
	Perf3M  *float64
	Perf6M  *float64
	PerfYTD *float64
}

// GroupType distinguishes the two cross-sectional groupings.
type GroupType string

const (
	GroupTypeSector   GroupType = "sector"
	GroupTypeIndustry GroupType = "industry"
)

// GroupAnalyticsRow is one (date, group) of cap-weighted group analytics.
// Corresponds to the daily_group_analytics table, which is fully rebuilt
// on every run.
type GroupAnalyticsRow struct {
	AnalysisDate  time.Time
	GroupName     string
	GroupType     GroupType
	GroupRSValue  float64
	GroupRSSMA20  float64
	GroupRSSMA50  float64
	GroupRSSMA200 float64
	GroupRSROC20  float64
	AboveRS20SMA  bool
	AboveRS50SMA  bool
	AboveRS200SMA bool
}

// MarketBreadthRow is the per-date advance/decline summary over the
// processed window. ADLine is cumulative over the window the detector was
// given; the pipeline anchors it to the last persisted value.
type MarketBreadthRow struct {
	Date      time.Time
	Advancers int
	Decliners int
	ADLine    int64
}

// BreakoutStat is the per-date aggregate of volume breakout activity.
type BreakoutStat struct {
	Date              time.Time
	BreakoutCount     int
	PctAboveAvgVolume float64
}

// BreakoutStock records one ticker flagged as a high-volume breakout on a
// date. Corresponds to the daily_breakout_stocks table.
type BreakoutStock struct {
	Date   time.Time
	Ticker string
}

// MarketIndicatorRow is one trading date of market-wide indicators:
// breadth, breakout stats, and forward-filled macro series values.
// Corresponds to the daily_market_indicators table. Breakout fields are
// nil when no breakout stats exist for the date.
type MarketIndicatorRow struct {
	Date              time.Time
	Advancers         int
	Decliners         int
	ADLine            int64
	BreakoutCount     *int
	PctAboveAvgVolume *float64
	Macro             map[string]float64 // series_id -> last observation at or before Date
}
