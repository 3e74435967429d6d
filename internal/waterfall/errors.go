package waterfall

import "errors"

var (
	// ErrInvalidInput is returned when a scenario or cap table fails validation.
	// Raised before any computation starts.
	ErrInvalidInput = errors.New("waterfall: invalid input")

	// ErrDataInconsistency is returned when a computation-time assertion fails,
	// e.g. a participation cap below the liquidation preference.
	ErrDataInconsistency = errors.New("waterfall: data inconsistency")
)
