package domain

import "time"

// PriceBar is one daily OHLCV bar for a ticker.
// Corresponds to the daily_stock_data table. Bars are immutable once
// ingested; corrections arrive as a full-history replace for the ticker.
type PriceBar struct {
	Ticker   string
	Date     time.Time // trading date, midnight UTC
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64 // split/dividend adjusted close
	Volume   float64
}

// StockMeta is static per-ticker metadata supplied by the ingestion side.
// Corresponds to the stocks table.
type StockMeta struct {
	Ticker            string
	Sector            string
	Industry          string
	MarketCap         float64
	MarketCapCategory string
}

// GroupUnknown marks a ticker with no sector/industry classification.
// Such tickers still get per-ticker analytics but are excluded from
// group aggregation.
const GroupUnknown = "Unknown"

// MacroPoint is one observation of a macroeconomic series.
// Corresponds to the macro_data table.
type MacroPoint struct {
	Date     time.Time
	SeriesID string
	Value    float64
}

// Day builds a trading date normalized to midnight UTC.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
