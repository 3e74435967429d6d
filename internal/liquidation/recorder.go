package liquidation

import (
	"context"
	"fmt"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/idhash"
	"flexile-liquidation/internal/storage"
	"flexile-liquidation/internal/waterfall"
)

// Recorder persists the payout set of a computed distribution.
type Recorder struct {
	payouts storage.PayoutStore
}

// NewRecorder creates a Recorder writing to the given store.
func NewRecorder(payouts storage.PayoutStore) *Recorder {
	return &Recorder{payouts: payouts}
}

// Record builds the payout rows of d, checks them and replaces the scenario's
// stored payout set in one step. A failed check leaves the stored set untouched.
func (r *Recorder) Record(ctx context.Context, scenario *domain.LiquidationScenario, d *waterfall.Distribution) ([]*domain.LiquidationPayout, error) {
	payouts := BuildPayouts(scenario.ID, d)
	if err := CheckPayouts(payouts, d); err != nil {
		return nil, err
	}
	if err := r.payouts.ReplaceForScenario(ctx, scenario.ID, payouts); err != nil {
		return nil, fmt.Errorf("replace payouts for scenario %d: %w", scenario.ID, err)
	}
	return payouts, nil
}

// BuildPayouts converts claim payouts into payout rows, one per (investor, security).
// Row order follows the distribution's payout order.
func BuildPayouts(scenarioID int64, d *waterfall.Distribution) []*domain.LiquidationPayout {
	out := make([]*domain.LiquidationPayout, 0, len(d.Payouts))
	for _, p := range d.Payouts {
		c := p.Claim
		row := &domain.LiquidationPayout{
			ID:                          idhash.ComputePayoutID(scenarioID, c.InvestorID, c.SecurityType, c.SecurityID),
			LiquidationScenarioID:       scenarioID,
			CompanyInvestorID:           c.InvestorID,
			SecurityType:                c.SecurityType,
			SecurityID:                  c.SecurityID,
			NumberOfShares:              c.Shares,
			PayoutAmountCents:           p.TotalCents(),
			LiquidationPreferenceAmount: p.PreferenceCents,
			ParticipationAmount:         p.ParticipationCents,
			CommonProceedsAmount:        p.CommonProceedsCents,
		}
		if c.ShareClass != nil {
			row.ShareClassName = c.ShareClass.Name
		}
		out = append(out, row)
	}
	return out
}

// CheckPayouts verifies the payout set against the distribution it came from:
// no negative amounts, each total equals its breakdown, the totals add up to the
// distributed amount and the distributed amount does not exceed the exit.
func CheckPayouts(payouts []*domain.LiquidationPayout, d *waterfall.Distribution) error {
	var sum int64
	seen := make(map[string]struct{}, len(payouts))
	for _, p := range payouts {
		if p.LiquidationPreferenceAmount < 0 || p.ParticipationAmount < 0 || p.CommonProceedsAmount < 0 {
			return fmt.Errorf("%w: negative amount for investor %d security %d", ErrRecordInvariant, p.CompanyInvestorID, p.SecurityID)
		}
		if p.PayoutAmountCents != p.LiquidationPreferenceAmount+p.ParticipationAmount+p.CommonProceedsAmount {
			return fmt.Errorf("%w: payout %s total does not match breakdown", ErrRecordInvariant, p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate payout %s", ErrRecordInvariant, p.ID)
		}
		seen[p.ID] = struct{}{}
		sum += p.PayoutAmountCents
	}

	if sum != d.DistributedCents {
		return fmt.Errorf("%w: payouts sum to %d, distributed %d", ErrRecordInvariant, sum, d.DistributedCents)
	}
	if d.DistributedCents+d.UndistributedCents != d.ExitAmountCents {
		return fmt.Errorf("%w: distributed %d + undistributed %d != exit %d",
			ErrRecordInvariant, d.DistributedCents, d.UndistributedCents, d.ExitAmountCents)
	}
	return nil
}
