package memory

import (
	"context"
	"sort"
	"sync"

	"equity-analytics-lab/internal/storage"
)

// DirtyTickerLog is an in-memory implementation of storage.DirtyTickerLog.
type DirtyTickerLog struct {
	mu      sync.Mutex
	tickers map[string]struct{}
}

// NewDirtyTickerLog creates an empty in-memory dirty-ticker log.
func NewDirtyTickerLog() *DirtyTickerLog {
	return &DirtyTickerLog{tickers: make(map[string]struct{})}
}

// Compile-time interface check.
var _ storage.DirtyTickerLog = (*DirtyTickerLog)(nil)

// List returns the logged tickers, sorted, without duplicates.
func (l *DirtyTickerLog) List(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.tickers))
	for t := range l.tickers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// Add appends tickers to the log. Re-adding is a no-op.
func (l *DirtyTickerLog) Add(_ context.Context, tickers ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range tickers {
		l.tickers[t] = struct{}{}
	}
	return nil
}

// clear empties the log; called by the derived store's commit.
func (l *DirtyTickerLog) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tickers = make(map[string]struct{})
}
