package domain

import "time"

// ScenarioStatus is the lifecycle state of a liquidation scenario.
type ScenarioStatus string

// Scenario statuses
const (
	ScenarioStatusDraft ScenarioStatus = "draft"
	ScenarioStatusFinal ScenarioStatus = "final"
)

// LiquidationScenario is a distribution request: a company plus a hypothetical exit amount.
// One scenario produces one complete payout set.
type LiquidationScenario struct {
	ID              int64
	CompanyID       int64
	Name            string
	Description     string
	ExitAmountCents int64
	ExitDate        time.Time // valuation date for interest accrual
	Status          ScenarioStatus
	CreatedAt       time.Time
}

// IsFinal reports whether the scenario is locked against recomputation.
func (s *LiquidationScenario) IsFinal() bool {
	return s.Status == ScenarioStatusFinal
}
