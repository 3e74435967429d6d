package waterfall

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"flexile-liquidation/internal/domain"
)

// ClaimKind classifies how a claim takes part in the waterfall.
type ClaimKind string

// Claim kinds
const (
	ClaimKindCommon    ClaimKind = "common"
	ClaimKindPreferred ClaimKind = "preferred"
	ClaimKindConverted ClaimKind = "convertible_converted"
	ClaimKindRedeemed  ClaimKind = "convertible_redeemed"
)

// Claim is one (investor, security) position competing for exit proceeds.
type Claim struct {
	Kind         ClaimKind
	InvestorID   int64
	SecurityType domain.SecurityType
	SecurityID   int64              // share class id or convertible security id
	ShareClass   *domain.ShareClass // nil for convertibles

	Shares          int64 // held or as-converted shares, the participation weight
	PreferenceCents int64 // paid in the preference round
	CapCents        int64 // ceiling on preference + participation, only when Capped
	Capped          bool
}

// Participates reports whether the claim shares in residual proceeds.
func (c *Claim) Participates() bool {
	if c.Shares <= 0 {
		return false
	}
	switch c.Kind {
	case ClaimKindCommon, ClaimKindConverted:
		return true
	case ClaimKindPreferred:
		return c.ShareClass.Participating
	default:
		return false
	}
}

// receivesCommonProceeds reports whether residual proceeds are recorded as
// common proceeds rather than preferred participation.
func (c *Claim) receivesCommonProceeds() bool {
	return c.Kind == ClaimKindCommon || c.Kind == ClaimKindConverted
}

func (c *Claim) String() string {
	return fmt.Sprintf("%s(investor=%d security=%d)", c.Kind, c.InvestorID, c.SecurityID)
}

// buildEquityClaims aggregates share holdings into one claim per (investor, share class).
// Claims are returned ordered by investor id, then share class id.
func buildEquityClaims(ct *domain.CapTable) ([]*Claim, error) {
	type holdingKey struct {
		investorID   int64
		shareClassID int64
	}

	totals := make(map[holdingKey]int64)
	var keys []holdingKey
	for _, h := range ct.ShareHoldings {
		k := holdingKey{investorID: h.CompanyInvestorID, shareClassID: h.ShareClassID}
		if _, seen := totals[k]; !seen {
			keys = append(keys, k)
		}
		totals[k] += h.NumberOfShares
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].investorID != keys[j].investorID {
			return keys[i].investorID < keys[j].investorID
		}
		return keys[i].shareClassID < keys[j].shareClassID
	})

	claims := make([]*Claim, 0, len(keys))
	for _, k := range keys {
		sc := ct.ShareClassByID(k.shareClassID)
		if sc == nil {
			return nil, fmt.Errorf("%w: holding of investor %d references unknown share class %d",
				ErrDataInconsistency, k.investorID, k.shareClassID)
		}

		shares := totals[k]
		claim := &Claim{
			Kind:         ClaimKindCommon,
			InvestorID:   k.investorID,
			SecurityType: domain.SecurityTypeEquity,
			SecurityID:   sc.ID,
			ShareClass:   sc,
			Shares:       shares,
		}

		if sc.Preferred {
			claim.Kind = ClaimKindPreferred
		}
		if sc.HasLiquidationPreference() {
			base := sc.OriginalIssuePrice.Mul(decimal.NewFromInt(shares))
			claim.PreferenceCents = domain.DollarsToCents(base.Mul(sc.PreferenceMultiple()))

			if sc.IsCapped() {
				claim.Capped = true
				claim.CapCents = domain.DollarsToCents(base.Mul(*sc.ParticipationCapMultiple))
				if claim.CapCents < claim.PreferenceCents {
					return nil, fmt.Errorf("%w: share class %q participation cap %d below preference %d",
						ErrDataInconsistency, sc.Name, claim.CapCents, claim.PreferenceCents)
				}
			}
		}

		claims = append(claims, claim)
	}

	return claims, nil
}

// convertibleClaim builds the claim for a convertible under a conversion decision.
func convertibleClaim(t *ConvertibleTerms, convert bool) *Claim {
	c := &Claim{
		InvestorID:   t.Security.CompanyInvestorID,
		SecurityType: domain.SecurityTypeConvertible,
		SecurityID:   t.Security.ID,
	}
	if convert {
		c.Kind = ClaimKindConverted
		c.Shares = t.ConvertedShares
	} else {
		c.Kind = ClaimKindRedeemed
		c.PreferenceCents = t.CashValueCents
	}
	return c
}
