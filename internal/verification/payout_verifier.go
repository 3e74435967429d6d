package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/liquidation"
	"flexile-liquidation/internal/storage"
	"flexile-liquidation/internal/waterfall"
)

// ErrScenarioNotFound is returned when the scenario id doesn't exist.
var ErrScenarioNotFound = errors.New("scenario not found")

// PayoutVerifierOptions contains configuration for creating a PayoutVerifier.
type PayoutVerifierOptions struct {
	Scenarios storage.ScenarioStore
	CapTables storage.CapTableReader
	Payouts   storage.PayoutStore
	Clock     func() time.Time // valuation date for scenarios without an exit date
}

// PayoutVerifier implements Verifier.
type PayoutVerifier struct {
	scenarios storage.ScenarioStore
	capTables storage.CapTableReader
	payouts   storage.PayoutStore
	clock     func() time.Time
}

var _ Verifier = (*PayoutVerifier)(nil)

// NewPayoutVerifier creates a new PayoutVerifier.
func NewPayoutVerifier(opts PayoutVerifierOptions) *PayoutVerifier {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &PayoutVerifier{
		scenarios: opts.Scenarios,
		capTables: opts.CapTables,
		payouts:   opts.Payouts,
		clock:     clock,
	}
}

// VerifyScenario recomputes a scenario and compares it with its stored payouts.
func (v *PayoutVerifier) VerifyScenario(ctx context.Context, scenarioID int64) (*VerificationReport, error) {
	// 1. Load scenario and stored payouts
	scenario, err := v.scenarios.GetByID(ctx, scenarioID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrScenarioNotFound
		}
		return nil, err
	}

	stored, err := v.payouts.GetByScenarioID(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("load stored payouts: %w", err)
	}

	// 2. Recompute
	ct, err := v.capTables.LoadCapTable(ctx, scenario.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load cap table %d: %w", scenario.CompanyID, err)
	}
	valuationDate := scenario.ExitDate
	if valuationDate.IsZero() {
		valuationDate = v.clock()
	}
	d, err := waterfall.Compute(waterfall.Input{
		CapTable:        ct,
		ExitAmountCents: scenario.ExitAmountCents,
		ValuationDate:   valuationDate.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("recompute scenario %d: %w", scenarioID, err)
	}
	recomputed := liquidation.BuildPayouts(scenarioID, d)

	// 3. Compare
	return compareSets(scenarioID, stored, recomputed), nil
}

func compareSets(scenarioID int64, stored, recomputed []*domain.LiquidationPayout) *VerificationReport {
	report := &VerificationReport{
		ScenarioID:      scenarioID,
		StoredCount:     len(stored),
		RecomputedCount: len(recomputed),
	}

	byID := make(map[string]*domain.LiquidationPayout, len(stored))
	for _, p := range stored {
		byID[p.ID] = p
	}

	for _, r := range recomputed {
		s, ok := byID[r.ID]
		if !ok {
			report.MissingPayouts = append(report.MissingPayouts, r.ID)
			continue
		}
		delete(byID, r.ID)

		divergences := ComparePayouts(s, r)
		report.Results = append(report.Results, PayoutResult{
			PayoutID:    r.ID,
			Match:       len(divergences) == 0,
			Divergences: divergences,
		})
	}

	// Leftovers in stored order
	for _, p := range stored {
		if _, ok := byID[p.ID]; ok {
			report.UnexpectedPayouts = append(report.UnexpectedPayouts, p.ID)
		}
	}

	report.Match = len(report.MissingPayouts) == 0 && len(report.UnexpectedPayouts) == 0
	for _, r := range report.Results {
		if !r.Match {
			report.Match = false
			break
		}
	}
	return report
}
