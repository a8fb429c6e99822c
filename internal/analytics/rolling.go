package analytics

import "math"

// rollingMean returns the trailing mean over a full window of size period.
// Positions without a full window behind them are NaN.
func rollingMean(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// rollingMax returns the trailing maximum over a full window of size period.
// Positions without a full window behind them are NaN.
func rollingMax(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}

	// Monotonic deque of indices, front holds the window max.
	deque := make([]int, 0, period)
	for i, v := range values {
		for len(deque) > 0 && values[deque[len(deque)-1]] <= v {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)
		if deque[0] <= i-period {
			deque = deque[1:]
		}
		if i >= period-1 {
			out[i] = values[deque[0]]
		}
	}
	return out
}

// round4 rounds to 4 decimal places, matching the precision of persisted
// analytics rows.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// round4p rounds a nullable value in place.
func round4p(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round4(*v)
	return &r
}

// round2 rounds to 2 decimal places, used for breakout percentages.
func round2(v float64) float64 {
	return math.Round(v*1e2) / 1e2
}
