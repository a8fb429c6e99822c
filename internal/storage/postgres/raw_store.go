package postgres

import (
	"context"
	"fmt"
	"time"

	"equity-analytics-lab/internal/domain"
	"equity-analytics-lab/internal/storage"
)

// RawStore implements storage.RawStore against the ingestion-owned tables
// daily_stock_data, stocks, and macro_data. It never writes.
type RawStore struct {
	pool *Pool
}

// NewRawStore creates a new RawStore.
func NewRawStore(pool *Pool) *RawStore {
	return &RawStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RawStore = (*RawStore)(nil)

// MinBarDate returns the earliest price-bar date. ok is false when the
// table is empty.
func (s *RawStore) MinBarDate(ctx context.Context) (_ time.Time, _ bool, err error) {
	start := time.Now()
	defer func() { observe("min_bar_date", start, err) }()

	var min *time.Time
	err = s.pool.QueryRow(ctx, `SELECT MIN(date) FROM daily_stock_data`).Scan(&min)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query min bar date: %w", err)
	}
	if min == nil {
		return time.Time{}, false, nil
	}
	return min.UTC(), true, nil
}

// BenchmarkBars retrieves the benchmark ticker's full history, date ASC.
func (s *RawStore) BenchmarkBars(ctx context.Context, ticker string) (_ []*domain.PriceBar, err error) {
	start := time.Now()
	defer func() { observe("benchmark_bars", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT ticker, date, open, high, low, close, adj_close, volume
		FROM daily_stock_data
		WHERE ticker = $1
		ORDER BY date ASC
	`, ticker)
	if err != nil {
		return nil, fmt.Errorf("query benchmark bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// BarsForWindow retrieves bars for every non-benchmark ticker with
// date >= since, plus the complete history of the fullReload tickers.
func (s *RawStore) BarsForWindow(ctx context.Context, benchmark string, fullReload []string, since time.Time) (_ []*domain.PriceBar, err error) {
	start := time.Now()
	defer func() { observe("bars_for_window", start, err) }()

	if fullReload == nil {
		fullReload = []string{}
	}
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, date, open, high, low, close, adj_close, volume
		FROM daily_stock_data
		WHERE ticker <> $1 AND (ticker = ANY($2) OR date >= $3)
		ORDER BY ticker ASC, date ASC
	`, benchmark, fullReload, since)
	if err != nil {
		return nil, fmt.Errorf("query windowed bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// Meta retrieves static metadata for all known tickers.
func (s *RawStore) Meta(ctx context.Context) (_ []*domain.StockMeta, err error) {
	start := time.Now()
	defer func() { observe("stock_meta", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT ticker,
		       COALESCE(sector, 'Unknown'),
		       COALESCE(industry, 'Unknown'),
		       COALESCE(market_cap, 0),
		       COALESCE(market_cap_category, '')
		FROM stocks
		ORDER BY ticker ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query stock metadata: %w", err)
	}
	defer rows.Close()

	var meta []*domain.StockMeta
	for rows.Next() {
		var m domain.StockMeta
		if err := rows.Scan(&m.Ticker, &m.Sector, &m.Industry, &m.MarketCap, &m.MarketCapCategory); err != nil {
			return nil, fmt.Errorf("scan stock metadata row: %w", err)
		}
		meta = append(meta, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock metadata rows: %w", err)
	}
	return meta, nil
}

// MacroSince retrieves macro observations with date >= since.
func (s *RawStore) MacroSince(ctx context.Context, since time.Time) (_ []*domain.MacroPoint, err error) {
	start := time.Now()
	defer func() { observe("macro_since", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT date, series_id, value
		FROM macro_data
		WHERE date >= $1
		ORDER BY series_id ASC, date ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query macro series: %w", err)
	}
	defer rows.Close()

	var points []*domain.MacroPoint
	for rows.Next() {
		var p domain.MacroPoint
		if err := rows.Scan(&p.Date, &p.SeriesID, &p.Value); err != nil {
			return nil, fmt.Errorf("scan macro row: %w", err)
		}
		p.Date = p.Date.UTC()
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate macro rows: %w", err)
	}
	return points, nil
}

// scanBars scans price-bar rows in the canonical column order.
func scanBars(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*domain.PriceBar, error) {
	var bars []*domain.PriceBar
	for rows.Next() {
		var b domain.PriceBar
		if err := rows.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price bar row: %w", err)
		}
		b.Date = b.Date.UTC()
		bars = append(bars, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bar rows: %w", err)
	}
	return bars, nil
}
