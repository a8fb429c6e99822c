// Package analytics implements the incremental recomputation core: window
// resolution, per-ticker indicators, cap-weighted group aggregation, and
// market-wide breadth/breakout detection. Everything here is a pure
// function of its inputs; persistence happens elsewhere.
package analytics

import (
	"time"

	"equity-analytics-lab/internal/storage"
)

const (
	// recomputeLookbackDays is how far behind the last persisted analytics
	// date a run re-derives, in case late corrections changed recent history.
	recomputeLookbackDays = 252

	// warmupBufferDays is the extra raw history loaded before the recompute
	// date so a 200-period rolling window is warm at the first persisted row.
	warmupBufferDays = 300
)

// Window describes how much raw data a run loads and from which date
// derived rows must be regenerated. Tickers in the dirty set bypass it and
// get their entire history reloaded.
type Window struct {
	DataLoadDate  time.Time // load raw bars from here
	RecomputeFrom time.Time // persist derived rows from here
	ColdStart     bool      // no prior analytics existed
}

// ResolveWindow computes the minimal safe load window from the state of the
// derived and raw stores. derivedMax is the latest persisted analytics date
// (nil when none exist); rawMin is the earliest raw bar date (nil when the
// raw store is empty). With no analytics and no raw data there is nothing
// to do and storage.ErrNoRawData is returned.
func ResolveWindow(derivedMax, rawMin *time.Time) (Window, error) {
	if derivedMax != nil {
		recompute := derivedMax.AddDate(0, 0, -recomputeLookbackDays)
		return Window{
			DataLoadDate:  recompute.AddDate(0, 0, -warmupBufferDays),
			RecomputeFrom: recompute,
		}, nil
	}
	if rawMin != nil {
		return Window{DataLoadDate: *rawMin, RecomputeFrom: *rawMin, ColdStart: true}, nil
	}
	return Window{}, storage.ErrNoRawData
}
