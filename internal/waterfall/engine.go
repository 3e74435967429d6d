// Package waterfall implements the liquidation waterfall: convertible conversion
// resolution, seniority stacking, tiered preference payment and capped participation.
//
// The engine is pure in-memory arithmetic over a cap table snapshot. Money is int64
// cents, prices and rates are fixed-point decimals.
package waterfall

import (
	"fmt"
	"sort"
	"time"

	"flexile-liquidation/internal/domain"
)

// Input is one distribution request.
type Input struct {
	CapTable        *domain.CapTable
	ExitAmountCents int64
	ValuationDate   time.Time // interest accrual end date
}

// Distribution is the complete result of one waterfall run.
type Distribution struct {
	ExitAmountCents    int64
	DistributedCents   int64
	UndistributedCents int64 // left when every claim is satisfied or capped out
	FullyDilutedShares int64

	Tiers               []*Tier
	Payouts             []*ClaimPayout // ordered by investor, security type, security id
	Conversions         []ConversionDecision
	ConversionPasses    int
	ConversionConverged bool
}

// Compute runs the full waterfall for a cap table and exit amount.
//
// Flow: validate → equity claims → convertible terms → conversion decisions →
// seniority stack → preference and participation rounds.
func Compute(in Input) (*Distribution, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ct := in.CapTable
	if err := checkConsistency(ct); err != nil {
		return nil, err
	}

	equity, err := buildEquityClaims(ct)
	if err != nil {
		return nil, err
	}

	fd := ct.FullyDilutedShares()
	securities := make([]*domain.ConvertibleSecurity, len(ct.ConvertibleSecurities))
	copy(securities, ct.ConvertibleSecurities)
	sort.Slice(securities, func(i, j int) bool { return securities[i].ID < securities[j].ID })

	terms := make([]*ConvertibleTerms, len(securities))
	for i, sec := range securities {
		terms[i] = ResolveTerms(sec, fd, in.ValuationDate)
	}

	decisions, passes, converged, err := resolveConversions(equity, terms, in.ExitAmountCents)
	if err != nil {
		return nil, fmt.Errorf("resolve conversions: %w", err)
	}

	claims := assembleClaims(equity, decisions, -1, false)
	d, err := distribute(claims, in.ExitAmountCents)
	if err != nil {
		return nil, err
	}

	for i := range decisions {
		payout := d.Payouts[len(equity)+i].TotalCents()
		if decisions[i].Converted {
			decisions[i].AsConvertedCents = payout
		} else {
			decisions[i].RedemptionCents = payout
		}
	}

	payouts := make([]*ClaimPayout, len(d.Payouts))
	copy(payouts, d.Payouts)
	sort.SliceStable(payouts, func(i, j int) bool {
		a, b := payouts[i].Claim, payouts[j].Claim
		if a.InvestorID != b.InvestorID {
			return a.InvestorID < b.InvestorID
		}
		if a.SecurityType != b.SecurityType {
			return a.SecurityType < b.SecurityType
		}
		return a.SecurityID < b.SecurityID
	})

	return &Distribution{
		ExitAmountCents:     in.ExitAmountCents,
		DistributedCents:    d.DistributedCents,
		UndistributedCents:  d.UndistributedCents,
		FullyDilutedShares:  fd,
		Tiers:               d.Stack.Tiers,
		Payouts:             payouts,
		Conversions:         decisions,
		ConversionPasses:    passes,
		ConversionConverged: converged,
	}, nil
}

// PayoutFor returns the payout of a given security held by an investor, or nil.
func (d *Distribution) PayoutFor(investorID int64, securityType domain.SecurityType, securityID int64) *ClaimPayout {
	for _, p := range d.Payouts {
		c := p.Claim
		if c.InvestorID == investorID && c.SecurityType == securityType && c.SecurityID == securityID {
			return p
		}
	}
	return nil
}

// TotalForInvestor sums payouts across all securities of an investor.
func (d *Distribution) TotalForInvestor(investorID int64) int64 {
	var total int64
	for _, p := range d.Payouts {
		if p.Claim.InvestorID == investorID {
			total += p.TotalCents()
		}
	}
	return total
}
