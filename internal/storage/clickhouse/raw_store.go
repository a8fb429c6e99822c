package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"equity-analytics-lab/internal/domain"
	"equity-analytics-lab/internal/storage"
)

// RawStore implements storage.RawStore using ClickHouse.
type RawStore struct {
	conn *Conn
}

// NewRawStore creates a new RawStore.
func NewRawStore(conn *Conn) *RawStore {
	return &RawStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RawStore = (*RawStore)(nil)

// MinBarDate returns the earliest price-bar date. ok is false when the
// table is empty. min(Date) over an empty MergeTree yields the epoch, so
// the row count decides emptiness.
func (s *RawStore) MinBarDate(ctx context.Context) (_ time.Time, _ bool, err error) {
	start := time.Now()
	defer func() { observe("min_bar_date", start, err) }()

	var count uint64
	var min time.Time
	err = s.conn.QueryRow(ctx, `SELECT count(), min(date) FROM daily_stock_data`).Scan(&count, &min)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query min bar date: %w", err)
	}
	if count == 0 {
		return time.Time{}, false, nil
	}
	return min.UTC(), true, nil
}

// BenchmarkBars retrieves the benchmark ticker's full history, date ASC.
func (s *RawStore) BenchmarkBars(ctx context.Context, ticker string) (_ []*domain.PriceBar, err error) {
	start := time.Now()
	defer func() { observe("benchmark_bars", start, err) }()

	query := `
		SELECT ticker, date, open, high, low, close, adj_close, volume
		FROM daily_stock_data
		WHERE ticker = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker)
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
	query := `
		SELECT ticker, date, open, high, low, close, adj_close, volume
		FROM daily_stock_data
		WHERE ticker != ? AND (has(?, ticker) OR date >= ?)
		ORDER BY ticker ASC, date ASC
	`

	rows, err := s.conn.Query(ctx, query, benchmark, fullReload, since)
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

	query := `
		SELECT ticker, sector, industry, market_cap, market_cap_category
		FROM stocks
		ORDER BY ticker ASC
	`

	rows, err := s.conn.Query(ctx, query)
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
		if m.Sector == "" {
			m.Sector = domain.GroupUnknown
		}
		if m.Industry == "" {
			m.Industry = domain.GroupUnknown
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

	query := `
		SELECT date, series_id, value
		FROM macro_data
		WHERE date >= ?
		ORDER BY series_id ASC, date ASC
	`

	rows, err := s.conn.Query(ctx, query, since)
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
func scanBars(rows driver.Rows) ([]*domain.PriceBar, error) {
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
