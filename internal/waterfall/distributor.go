package waterfall

import (
	"fmt"
	"math/big"
)

// ClaimPayout is the amount allocated to one claim, split by round.
type ClaimPayout struct {
	Claim               *Claim
	PreferenceCents     int64
	ParticipationCents  int64 // preferred participation
	CommonProceedsCents int64 // common and as-converted distribution
}

// TotalCents returns the claim's total payout.
func (p *ClaimPayout) TotalCents() int64 {
	return p.PreferenceCents + p.ParticipationCents + p.CommonProceedsCents
}

func (p *ClaimPayout) addResidual(cents int64) {
	if p.Claim.receivesCommonProceeds() {
		p.CommonProceedsCents += cents
	} else {
		p.ParticipationCents += cents
	}
}

// distribution is the raw waterfall output. Payouts are index-aligned with the input claims.
type distribution struct {
	Stack              *Stack
	Payouts            []*ClaimPayout
	DistributedCents   int64
	UndistributedCents int64
	ShortfallTier      int // index of the first tier not paid in full, -1 if none
}

// distribute runs the preference round tier by tier, then the capped participation round.
func distribute(claims []*Claim, exitCents int64) (*distribution, error) {
	payouts := make([]*ClaimPayout, len(claims))
	byClaim := make(map[*Claim]*ClaimPayout, len(claims))
	for i, c := range claims {
		payouts[i] = &ClaimPayout{Claim: c}
		byClaim[c] = payouts[i]
	}

	stack := BuildStack(claims)
	d := &distribution{Stack: stack, Payouts: payouts, ShortfallTier: -1}
	remaining := exitCents

	for ti, tier := range stack.Tiers {
		demand := tier.PreferenceCents()
		if demand <= remaining {
			for _, c := range tier.Claims {
				byClaim[c].PreferenceCents = c.PreferenceCents
			}
			remaining -= demand
			continue
		}

		// Shortfall: the tier splits what is left by preference amount, juniors get nothing.
		weights := make([]int64, len(tier.Claims))
		for i, c := range tier.Claims {
			weights[i] = c.PreferenceCents
		}
		for i, amount := range allocateProRata(remaining, weights) {
			byClaim[tier.Claims[i]].PreferenceCents = amount
		}
		remaining = 0
		d.ShortfallTier = ti
		break
	}

	if remaining > 0 {
		remaining = fillParticipation(remaining, stack.Participants, byClaim)
	}

	d.UndistributedCents = remaining
	d.DistributedCents = exitCents - remaining

	if err := checkConservation(d, exitCents); err != nil {
		return nil, err
	}
	return d, nil
}

type participant struct {
	payout   *ClaimPayout
	weight   int64
	headroom int64
	capped   bool
}

// fillParticipation distributes pool pro rata by share count, clamping capped claims
// at their headroom and redistributing the excess (water-filling). Each clamping pass
// removes at least one capped claim, so the loop runs at most capped+1 times.
// Returns the amount left when every participant is capped out.
func fillParticipation(pool int64, claims []*Claim, byClaim map[*Claim]*ClaimPayout) int64 {
	active := make([]*participant, 0, len(claims))
	cappedCount := 0
	for _, c := range claims {
		p := &participant{payout: byClaim[c], weight: c.Shares, capped: c.Capped}
		if c.Capped {
			p.headroom = c.CapCents - p.payout.PreferenceCents
			if p.headroom < 0 {
				p.headroom = 0
			}
			cappedCount++
		}
		active = append(active, p)
	}

	remaining := pool
	for pass := 0; pass <= cappedCount; pass++ {
		if remaining == 0 || len(active) == 0 {
			break
		}

		totalWeight := new(big.Int)
		for _, p := range active {
			totalWeight.Add(totalWeight, big.NewInt(p.weight))
		}
		if totalWeight.Sign() == 0 {
			break
		}

		next := active[:0:0]
		clamped := false
		for _, p := range active {
			if p.capped && exceedsShare(remaining, p.weight, totalWeight, p.headroom) {
				p.payout.addResidual(p.headroom)
				remaining -= p.headroom
				clamped = true
				continue
			}
			next = append(next, p)
		}
		active = next

		if clamped {
			continue
		}

		weights := make([]int64, len(active))
		for i, p := range active {
			weights[i] = p.weight
		}
		for i, amount := range allocateProRata(remaining, weights) {
			active[i].payout.addResidual(amount)
		}
		remaining = 0
	}

	return remaining
}

// checkConservation asserts that payouts sum to the distributed amount and never
// exceed the exit proceeds or a claim's cap.
func checkConservation(d *distribution, exitCents int64) error {
	var total int64
	for _, p := range d.Payouts {
		if p.PreferenceCents < 0 || p.ParticipationCents < 0 || p.CommonProceedsCents < 0 {
			return fmt.Errorf("%w: negative payout for %s", ErrDataInconsistency, p.Claim)
		}
		if p.Claim.Capped && p.TotalCents() > p.Claim.CapCents {
			return fmt.Errorf("%w: %s paid %d above cap %d", ErrDataInconsistency, p.Claim, p.TotalCents(), p.Claim.CapCents)
		}
		total += p.TotalCents()
	}
	if total != d.DistributedCents || total > exitCents {
		return fmt.Errorf("%w: payouts sum to %d, distributed %d of %d",
			ErrDataInconsistency, total, d.DistributedCents, exitCents)
	}
	return nil
}
