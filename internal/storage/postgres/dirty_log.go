package postgres

import (
	"context"
	"fmt"
	"time"

	"equity-analytics-lab/internal/storage"
)

// DirtyTickerLog implements storage.DirtyTickerLog against the
// refreshed_tickers_log table. The ingestion side appends to it when it
// detects a corporate action; the commit protocol clears it.
type DirtyTickerLog struct {
	pool *Pool
}

// NewDirtyTickerLog creates a new DirtyTickerLog.
func NewDirtyTickerLog(pool *Pool) *DirtyTickerLog {
	return &DirtyTickerLog{pool: pool}
}

// Compile-time interface check.
var _ storage.DirtyTickerLog = (*DirtyTickerLog)(nil)

// List returns the logged tickers, sorted, without duplicates.
func (l *DirtyTickerLog) List(ctx context.Context) (_ []string, err error) {
	start := time.Now()
	defer func() { observe("list_dirty_tickers", start, err) }()

	rows, err := l.pool.Query(ctx, `SELECT DISTINCT ticker FROM refreshed_tickers_log ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("query dirty tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan dirty ticker row: %w", err)
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dirty ticker rows: %w", err)
	}
	return tickers, nil
}

// Add appends tickers to the log. Re-adding a ticker is a no-op.
func (l *DirtyTickerLog) Add(ctx context.Context, tickers ...string) (err error) {
	start := time.Now()
	defer func() { observe("add_dirty_tickers", start, err) }()

	for _, t := range tickers {
		_, err := l.pool.Exec(ctx, `
			INSERT INTO refreshed_tickers_log (ticker) VALUES ($1)
			ON CONFLICT (ticker) DO NOTHING
		`, t)
		if err != nil {
			return fmt.Errorf("insert dirty ticker %s: %w", t, err)
		}
	}
	return nil
}
