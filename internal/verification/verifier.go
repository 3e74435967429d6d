// Package verification checks stored payout sets by recomputing them from the
// current cap table and comparing field by field.
package verification

import (
	"context"

	"flexile-liquidation/internal/domain"
)

// FieldDivergence represents a mismatch between stored and recomputed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // recomputed value
}

// PayoutResult contains the result of verifying a single payout row.
type PayoutResult struct {
	PayoutID    string
	Match       bool
	Divergences []FieldDivergence
}

// VerificationReport contains the result of verifying one scenario.
type VerificationReport struct {
	ScenarioID        int64
	Match             bool     // stored set equals the recomputed set
	StoredCount       int      // rows in storage
	RecomputedCount   int      // rows produced by recomputation
	MissingPayouts    []string // recomputed ids absent from storage
	UnexpectedPayouts []string // stored ids the recomputation does not produce
	Results           []PayoutResult
}

// Verifier recomputes scenarios and compares them with stored payouts.
type Verifier interface {
	// VerifyScenario recomputes the scenario's distribution and compares every
	// payout row with the stored set. Nothing is written.
	VerifyScenario(ctx context.Context, scenarioID int64) (*VerificationReport, error)
}

// ComparePayouts compares two payout rows and returns divergences.
// Amounts are integer cents and must match exactly.
func ComparePayouts(stored, recomputed *domain.LiquidationPayout) []FieldDivergence {
	var divergences []FieldDivergence
	check := func(field string, expected, actual interface{}) {
		if expected != actual {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
		}
	}

	check("ID", stored.ID, recomputed.ID)
	check("LiquidationScenarioID", stored.LiquidationScenarioID, recomputed.LiquidationScenarioID)
	check("CompanyInvestorID", stored.CompanyInvestorID, recomputed.CompanyInvestorID)
	check("SecurityType", stored.SecurityType, recomputed.SecurityType)
	check("SecurityID", stored.SecurityID, recomputed.SecurityID)
	check("ShareClassName", stored.ShareClassName, recomputed.ShareClassName)
	check("NumberOfShares", stored.NumberOfShares, recomputed.NumberOfShares)

	// Amounts
	check("PayoutAmountCents", stored.PayoutAmountCents, recomputed.PayoutAmountCents)
	check("LiquidationPreferenceAmount", stored.LiquidationPreferenceAmount, recomputed.LiquidationPreferenceAmount)
	check("ParticipationAmount", stored.ParticipationAmount, recomputed.ParticipationAmount)
	check("CommonProceedsAmount", stored.CommonProceedsAmount, recomputed.CommonProceedsAmount)

	return divergences
}
