// Package memory provides in-memory store implementations used by tests
// and by runs that do not need a database behind them.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"equity-analytics-lab/internal/domain"
	"equity-analytics-lab/internal/storage"
)

// RawStore is an in-memory implementation of storage.RawStore with
// seeding methods for tests.
type RawStore struct {
	mu    sync.RWMutex
	bars  []*domain.PriceBar
	meta  map[string]*domain.StockMeta
	macro []*domain.MacroPoint
}

// NewRawStore creates an empty in-memory raw store.
func NewRawStore() *RawStore {
	return &RawStore{meta: make(map[string]*domain.StockMeta)}
}

// Compile-time interface check.
var _ storage.RawStore = (*RawStore)(nil)

// AddBars seeds price bars.
func (s *RawStore) AddBars(bars ...*domain.PriceBar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bars {
		cp := *b
		s.bars = append(s.bars, &cp)
	}
}

// ReplaceTicker drops a ticker's bars and installs a corrected history,
// the shape a corporate-action correction arrives in.
func (s *RawStore) ReplaceTicker(ticker string, bars ...*domain.PriceBar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.bars[:0]
	for _, b := range s.bars {
		if b.Ticker != ticker {
			kept = append(kept, b)
		}
	}
	s.bars = kept
	for _, b := range bars {
		cp := *b
		s.bars = append(s.bars, &cp)
	}
}

// SetMeta seeds stock metadata.
func (s *RawStore) SetMeta(meta ...*domain.StockMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range meta {
		cp := *m
		s.meta[m.Ticker] = &cp
	}
}

// AddMacro seeds macro observations.
func (s *RawStore) AddMacro(points ...*domain.MacroPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		cp := *p
		s.macro = append(s.macro, &cp)
	}
}

// MinBarDate returns the earliest price-bar date. ok is false when empty.
func (s *RawStore) MinBarDate(_ context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.bars) == 0 {
		return time.Time{}, false, nil
	}
	min := s.bars[0].Date
	for _, b := range s.bars[1:] {
		if b.Date.Before(min) {
			min = b.Date
		}
	}
	return min, true, nil
}

// BenchmarkBars retrieves the benchmark's full history, date ASC.
func (s *RawStore) BenchmarkBars(_ context.Context, ticker string) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.PriceBar
	for _, b := range s.bars {
		if b.Ticker == ticker {
			cp := *b
			out = append(out, &cp)
		}
	}
	sortBars(out)
	return out, nil
}

// BarsForWindow retrieves windowed bars for non-benchmark tickers plus the
// full history of the fullReload tickers, ordered by (ticker, date).
func (s *RawStore) BarsForWindow(_ context.Context, benchmark string, fullReload []string, since time.Time) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reload := make(map[string]bool, len(fullReload))
	for _, t := range fullReload {
		reload[t] = true
	}
	var out []*domain.PriceBar
	for _, b := range s.bars {
		if b.Ticker == benchmark {
			continue
		}
		if reload[b.Ticker] || !b.Date.Before(since) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sortBars(out)
	return out, nil
}

// Meta retrieves all stock metadata, ordered by ticker.
func (s *RawStore) Meta(_ context.Context) ([]*domain.StockMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.StockMeta, 0, len(s.meta))
	for _, m := range s.meta {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

// MacroSince retrieves macro observations with date >= since.
func (s *RawStore) MacroSince(_ context.Context, since time.Time) ([]*domain.MacroPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.MacroPoint
	for _, p := range s.macro {
		if !p.Date.Before(since) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeriesID != out[j].SeriesID {
			return out[i].SeriesID < out[j].SeriesID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func sortBars(bars []*domain.PriceBar) {
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Ticker != bars[j].Ticker {
			return bars[i].Ticker < bars[j].Ticker
		}
		return bars[i].Date.Before(bars[j].Date)
	})
}
