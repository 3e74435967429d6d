package liquidation

import "errors"

var (
	// ErrScenarioFinalized is returned when a run is requested for a final scenario.
	ErrScenarioFinalized = errors.New("liquidation: scenario is final")

	// ErrRecordInvariant is returned when a computed payout set fails the
	// recorder's pre-write checks. Nothing is persisted in that case.
	ErrRecordInvariant = errors.New("liquidation: payout invariant violated")
)
