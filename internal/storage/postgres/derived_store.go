package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"equity-analytics-lab/internal/domain"
	"equity-analytics-lab/internal/storage"
)

// DerivedStore implements storage.DerivedStore against the four derived
// tables. Commit is the only write path and runs the whole
// delete-then-append protocol in one transaction: a crash mid-run leaves
// either the prior state or, at worst, a gap the next run's window
// resolver recomputes — never duplicate rows.
type DerivedStore struct {
	pool *Pool
}

// NewDerivedStore creates a new DerivedStore.
func NewDerivedStore(pool *Pool) *DerivedStore {
	return &DerivedStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DerivedStore = (*DerivedStore)(nil)

// MaxAnalyticsDate returns the latest persisted stock-analytics date.
func (s *DerivedStore) MaxAnalyticsDate(ctx context.Context) (_ time.Time, _ bool, err error) {
	start := time.Now()
	defer func() { observe("max_analytics_date", start, err) }()

	var max *time.Time
	err = s.pool.QueryRow(ctx, `SELECT MAX(date) FROM daily_stock_analytics`).Scan(&max)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query max analytics date: %w", err)
	}
	if max == nil {
		return time.Time{}, false, nil
	}
	return max.UTC(), true, nil
}

// AnalyticsBefore retrieves rows with date < cutoff whose ticker is not in
// excludeTickers, ordered by (ticker, date).
func (s *DerivedStore) AnalyticsBefore(ctx context.Context, cutoff time.Time, excludeTickers []string) (_ []*domain.StockAnalyticsRow, err error) {
	start := time.Now()
	defer func() { observe("analytics_before", start, err) }()

	if excludeTickers == nil {
		excludeTickers = []string{}
	}
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, date, hlcc4, ma_20, ma_50, ma_200, rs, trend,
		       perf_1w, perf_1m, perf_3m, perf_6m, perf_ytd
		FROM daily_stock_analytics
		WHERE date < $1 AND NOT (ticker = ANY($2))
		ORDER BY ticker ASC, date ASC
	`, cutoff, excludeTickers)
	if err != nil {
		return nil, fmt.Errorf("query surviving analytics: %w", err)
	}
	defer rows.Close()

	return scanStockRows(rows)
}

// LastADLineBefore returns the most recent persisted ad_line with
// date < cutoff.
func (s *DerivedStore) LastADLineBefore(ctx context.Context, cutoff time.Time) (_ int64, _ bool, err error) {
	start := time.Now()
	defer func() { observe("last_ad_line_before", start, err) }()

	var adLine int64
	err = s.pool.QueryRow(ctx, `
		SELECT ad_line FROM daily_market_indicators
		WHERE date < $1
		ORDER BY date DESC
		LIMIT 1
	`, cutoff).Scan(&adLine)
	if isNotFoundError(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query ad_line anchor: %w", err)
	}
	return adLine, true, nil
}

// Commit applies one run's output in a single transaction.
func (s *DerivedStore) Commit(ctx context.Context, set *storage.CommitSet) (err error) {
	if set == nil {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() { observe("commit", start, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Full wipe for dirty tickers.
	if len(set.DirtyTickers) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM daily_stock_analytics WHERE ticker = ANY($1)`, set.DirtyTickers); err != nil {
			return fmt.Errorf("delete dirty ticker analytics: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM daily_breakout_stocks WHERE ticker = ANY($1)`, set.DirtyTickers); err != nil {
			return fmt.Errorf("delete dirty ticker breakouts: %w", err)
		}
	}

	// 2. Window wipe for everyone else.
	for _, table := range []string{"daily_stock_analytics", "daily_market_indicators", "daily_breakout_stocks"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE date >= $1`, table), set.RecomputeFrom); err != nil {
			return fmt.Errorf("delete %s window: %w", table, err)
		}
	}

	// 3. Group analytics are always rebuilt in full.
	if _, err := tx.Exec(ctx, `TRUNCATE TABLE daily_group_analytics`); err != nil {
		return fmt.Errorf("truncate group analytics: %w", err)
	}

	// 4. The dirty set is consumed by this run.
	if _, err := tx.Exec(ctx, `TRUNCATE TABLE refreshed_tickers_log`); err != nil {
		return fmt.Errorf("clear dirty ticker log: %w", err)
	}

	// 5. Append.
	if err := copyStockRows(ctx, tx, set.StockRows); err != nil {
		return err
	}
	if err := copyGroupRows(ctx, tx, set.GroupRows); err != nil {
		return err
	}
	if err := copyMarketRows(ctx, tx, set.MarketRows); err != nil {
		return err
	}
	if err := copyBreakoutStocks(ctx, tx, set.BreakoutStocks); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func copyStockRows(ctx context.Context, tx pgx.Tx, rows []*domain.StockAnalyticsRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"daily_stock_analytics"},
		[]string{"ticker", "date", "hlcc4", "ma_20", "ma_50", "ma_200", "rs", "trend",
			"perf_1w", "perf_1m", "perf_3m", "perf_6m", "perf_ytd"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.Ticker, r.Date, r.HLCC4, r.MA20, r.MA50, r.MA200, r.RS, string(r.Trend),
				r.Perf1W, r.Perf1M, r.Perf3M, r.Perf6M, r.PerfYTD}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy stock analytics: %w", err)
	}
	return nil
}

func copyGroupRows(ctx context.Context, tx pgx.Tx, rows []*domain.GroupAnalyticsRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"daily_group_analytics"},
		[]string{"analysis_date", "group_name", "group_type", "group_rs_value",
			"group_rs_sma_20", "group_rs_sma_50", "group_rs_sma_200", "group_rs_roc_20",
			"above_rs_20sma", "above_rs_50sma", "above_rs_200sma"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.AnalysisDate, r.GroupName, string(r.GroupType), r.GroupRSValue,
				r.GroupRSSMA20, r.GroupRSSMA50, r.GroupRSSMA200, r.GroupRSROC20,
				r.AboveRS20SMA, r.AboveRS50SMA, r.AboveRS200SMA}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy group analytics: %w", err)
	}
	return nil
}

func copyMarketRows(ctx context.Context, tx pgx.Tx, rows []*domain.MarketIndicatorRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"daily_market_indicators"},
		[]string{"date", "advancers", "decliners", "ad_line",
			"high_volume_breakout_count", "pct_above_avg_volume", "macro"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			var macro any
			if len(r.Macro) > 0 {
				data, err := json.Marshal(r.Macro)
				if err != nil {
					return nil, fmt.Errorf("marshal macro values: %w", err)
				}
				macro = string(data)
			}
			return []any{r.Date, r.Advancers, r.Decliners, r.ADLine,
				r.BreakoutCount, r.PctAboveAvgVolume, macro}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy market indicators: %w", err)
	}
	return nil
}

func copyBreakoutStocks(ctx context.Context, tx pgx.Tx, rows []*domain.BreakoutStock) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"daily_breakout_stocks"},
		[]string{"date", "ticker"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return []any{rows[i].Date, rows[i].Ticker}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy breakout stocks: %w", err)
	}
	return nil
}

// AllAnalytics returns every stock-analytics row, ordered by (ticker, date).
func (s *DerivedStore) AllAnalytics(ctx context.Context) (_ []*domain.StockAnalyticsRow, err error) {
	start := time.Now()
	defer func() { observe("all_analytics", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT ticker, date, hlcc4, ma_20, ma_50, ma_200, rs, trend,
		       perf_1w, perf_1m, perf_3m, perf_6m, perf_ytd
		FROM daily_stock_analytics
		ORDER BY ticker ASC, date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all analytics: %w", err)
	}
	defer rows.Close()

	return scanStockRows(rows)
}

// AllGroupAnalytics returns every group-analytics row, ordered by
// (group_type, group_name, date).
func (s *DerivedStore) AllGroupAnalytics(ctx context.Context) (_ []*domain.GroupAnalyticsRow, err error) {
	start := time.Now()
	defer func() { observe("all_group_analytics", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT analysis_date, group_name, group_type, group_rs_value,
		       group_rs_sma_20, group_rs_sma_50, group_rs_sma_200, group_rs_roc_20,
		       above_rs_20sma, above_rs_50sma, above_rs_200sma
		FROM daily_group_analytics
		ORDER BY group_type ASC, group_name ASC, analysis_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query group analytics: %w", err)
	}
	defer rows.Close()

	var out []*domain.GroupAnalyticsRow
	for rows.Next() {
		var r domain.GroupAnalyticsRow
		var groupType string
		if err := rows.Scan(&r.AnalysisDate, &r.GroupName, &groupType, &r.GroupRSValue,
			&r.GroupRSSMA20, &r.GroupRSSMA50, &r.GroupRSSMA200, &r.GroupRSROC20,
			&r.AboveRS20SMA, &r.AboveRS50SMA, &r.AboveRS200SMA); err != nil {
			return nil, fmt.Errorf("scan group analytics row: %w", err)
		}
		r.GroupType = domain.GroupType(groupType)
		r.AnalysisDate = r.AnalysisDate.UTC()
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group analytics rows: %w", err)
	}
	return out, nil
}

// AllMarketIndicators returns every market indicator row, ordered by date.
func (s *DerivedStore) AllMarketIndicators(ctx context.Context) (_ []*domain.MarketIndicatorRow, err error) {
	start := time.Now()
	defer func() { observe("all_market_indicators", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT date, advancers, decliners, ad_line,
		       high_volume_breakout_count, pct_above_avg_volume, macro
		FROM daily_market_indicators
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query market indicators: %w", err)
	}
	defer rows.Close()

	var out []*domain.MarketIndicatorRow
	for rows.Next() {
		var r domain.MarketIndicatorRow
		var macro []byte
		if err := rows.Scan(&r.Date, &r.Advancers, &r.Decliners, &r.ADLine,
			&r.BreakoutCount, &r.PctAboveAvgVolume, &macro); err != nil {
			return nil, fmt.Errorf("scan market indicator row: %w", err)
		}
		if len(macro) > 0 {
			if err := json.Unmarshal(macro, &r.Macro); err != nil {
				return nil, fmt.Errorf("unmarshal macro values: %w", err)
			}
		}
		r.Date = r.Date.UTC()
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market indicator rows: %w", err)
	}
	return out, nil
}

// AllBreakoutStocks returns every breakout record, ordered by (date, ticker).
func (s *DerivedStore) AllBreakoutStocks(ctx context.Context) (_ []*domain.BreakoutStock, err error) {
	start := time.Now()
	defer func() { observe("all_breakout_stocks", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT date, ticker FROM daily_breakout_stocks
		ORDER BY date ASC, ticker ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query breakout stocks: %w", err)
	}
	defer rows.Close()

	var out []*domain.BreakoutStock
	for rows.Next() {
		var r domain.BreakoutStock
		if err := rows.Scan(&r.Date, &r.Ticker); err != nil {
			return nil, fmt.Errorf("scan breakout stock row: %w", err)
		}
		r.Date = r.Date.UTC()
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breakout stock rows: %w", err)
	}
	return out, nil
}

// scanStockRows scans stock-analytics rows in the canonical column order.
func scanStockRows(rows pgx.Rows) ([]*domain.StockAnalyticsRow, error) {
	var out []*domain.StockAnalyticsRow
	for rows.Next() {
		var r domain.StockAnalyticsRow
		var trend string
		if err := rows.Scan(&r.Ticker, &r.Date, &r.HLCC4, &r.MA20, &r.MA50, &r.MA200, &r.RS, &trend,
			&r.Perf1W, &r.Perf1M, &r.Perf3M, &r.Perf6M, &r.PerfYTD); err != nil {
			return nil, fmt.Errorf("scan stock analytics row: %w", err)
		}
		r.Trend = domain.Trend(trend)
		r.Date = r.Date.UTC()
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock analytics rows: %w", err)
	}
	return out, nil
}
