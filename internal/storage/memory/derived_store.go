package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"equity-analytics-lab/internal/domain"
	"equity-analytics-lab/internal/storage"
)

// DerivedStore is an in-memory implementation of storage.DerivedStore.
// Commit applies the delete-then-append protocol under a single lock, so
// a reader never observes a half-applied run.
type DerivedStore struct {
	mu        sync.RWMutex
	stock     map[stockKey]*domain.StockAnalyticsRow
	group     []*domain.GroupAnalyticsRow
	market    map[time.Time]*domain.MarketIndicatorRow
	breakouts map[stockKey]*domain.BreakoutStock
	dirtyLog  *DirtyTickerLog
}

type stockKey struct {
	ticker string
	date   time.Time
}

// NewDerivedStore creates an empty in-memory derived store. dirtyLog, when
// non-nil, is cleared as part of every commit, mirroring the transactional
// clear of the persisted log.
func NewDerivedStore(dirtyLog *DirtyTickerLog) *DerivedStore {
	return &DerivedStore{
		stock:     make(map[stockKey]*domain.StockAnalyticsRow),
		market:    make(map[time.Time]*domain.MarketIndicatorRow),
		breakouts: make(map[stockKey]*domain.BreakoutStock),
		dirtyLog:  dirtyLog,
	}
}

// Compile-time interface check.
var _ storage.DerivedStore = (*DerivedStore)(nil)

// MaxAnalyticsDate returns the latest persisted stock-analytics date.
func (s *DerivedStore) MaxAnalyticsDate(_ context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max time.Time
	found := false
	for k := range s.stock {
		if !found || k.date.After(max) {
			max = k.date
			found = true
		}
	}
	return max, found, nil
}

// AnalyticsBefore retrieves rows with date < cutoff whose ticker is not
// excluded, ordered by (ticker, date).
func (s *DerivedStore) AnalyticsBefore(_ context.Context, cutoff time.Time, excludeTickers []string) ([]*domain.StockAnalyticsRow, error) {
	excluded := make(map[string]bool, len(excludeTickers))
	for _, t := range excludeTickers {
		excluded[t] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.StockAnalyticsRow
	for k, r := range s.stock {
		if k.date.Before(cutoff) && !excluded[k.ticker] {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortStockRows(out)
	return out, nil
}

// LastADLineBefore returns the most recent ad_line value with date < cutoff.
func (s *DerivedStore) LastADLineBefore(_ context.Context, cutoff time.Time) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *domain.MarketIndicatorRow
	for d, r := range s.market {
		if !d.Before(cutoff) {
			continue
		}
		if best == nil || d.After(best.Date) {
			best = r
		}
	}
	if best == nil {
		return 0, false, nil
	}
	return best.ADLine, true, nil
}

// Commit applies one run's output atomically.
func (s *DerivedStore) Commit(_ context.Context, set *storage.CommitSet) error {
	if set == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dirty := make(map[string]bool, len(set.DirtyTickers))
	for _, t := range set.DirtyTickers {
		dirty[t] = true
	}

	// 1. Full wipe for dirty tickers, 2. window wipe for everyone.
	for k := range s.stock {
		if dirty[k.ticker] || !k.date.Before(set.RecomputeFrom) {
			delete(s.stock, k)
		}
	}
	for k := range s.breakouts {
		if dirty[k.ticker] || !k.date.Before(set.RecomputeFrom) {
			delete(s.breakouts, k)
		}
	}
	for d := range s.market {
		if !d.Before(set.RecomputeFrom) {
			delete(s.market, d)
		}
	}

	// 3. Group analytics are always rebuilt in full.
	s.group = nil

	// 4. The dirty set is consumed by this run.
	if s.dirtyLog != nil {
		s.dirtyLog.clear()
	}

	// 5. Append.
	for _, r := range set.StockRows {
		cp := *r
		s.stock[stockKey{r.Ticker, r.Date}] = &cp
	}
	for _, r := range set.GroupRows {
		cp := *r
		s.group = append(s.group, &cp)
	}
	for _, r := range set.MarketRows {
		cp := *r
		if r.Macro != nil {
			cp.Macro = make(map[string]float64, len(r.Macro))
			for k, v := range r.Macro {
				cp.Macro[k] = v
			}
		}
		s.market[r.Date] = &cp
	}
	for _, r := range set.BreakoutStocks {
		cp := *r
		s.breakouts[stockKey{r.Ticker, r.Date}] = &cp
	}
	return nil
}

// AllAnalytics returns every stock-analytics row, ordered by (ticker, date).
func (s *DerivedStore) AllAnalytics(_ context.Context) ([]*domain.StockAnalyticsRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.StockAnalyticsRow, 0, len(s.stock))
	for _, r := range s.stock {
		cp := *r
		out = append(out, &cp)
	}
	sortStockRows(out)
	return out, nil
}

// AllGroupAnalytics returns every group-analytics row, ordered by
// (group_type, group_name, date).
func (s *DerivedStore) AllGroupAnalytics(_ context.Context) ([]*domain.GroupAnalyticsRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.GroupAnalyticsRow, 0, len(s.group))
	for _, r := range s.group {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupType != out[j].GroupType {
			return out[i].GroupType < out[j].GroupType
		}
		if out[i].GroupName != out[j].GroupName {
			return out[i].GroupName < out[j].GroupName
		}
		return out[i].AnalysisDate.Before(out[j].AnalysisDate)
	})
	return out, nil
}

// AllMarketIndicators returns every market indicator row, ordered by date.
func (s *DerivedStore) AllMarketIndicators(_ context.Context) ([]*domain.MarketIndicatorRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.MarketIndicatorRow, 0, len(s.market))
	for _, r := range s.market {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// AllBreakoutStocks returns every breakout record, ordered by (date, ticker).
func (s *DerivedStore) AllBreakoutStocks(_ context.Context) ([]*domain.BreakoutStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.BreakoutStock, 0, len(s.breakouts))
	for _, r := range s.breakouts {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out, nil
}

func sortStockRows(rows []*domain.StockAnalyticsRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Ticker != rows[j].Ticker {
			return rows[i].Ticker < rows[j].Ticker
		}
		return rows[i].Date.Before(rows[j].Date)
	})
}
