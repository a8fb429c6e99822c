package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNoRawData is returned when the raw store holds no price bars and
	// no analytics exist to derive a window from. Nothing can be computed.
	ErrNoRawData = errors.New("no raw price data available")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
