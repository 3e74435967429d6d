package waterfall

import (
	"time"

	"github.com/shopspring/decimal"

	"flexile-liquidation/internal/domain"
)

const daysPerYear = 365

var (
	hundred         = decimal.NewFromInt(100)
	interestDivisor = decimal.NewFromInt(100 * daysPerYear)
)

// PriceSource names the term that set a convertible's conversion price.
type PriceSource string

// Price sources
const (
	PriceSourceNone     PriceSource = ""
	PriceSourceRound    PriceSource = "round_price"
	PriceSourceCap      PriceSource = "valuation_cap"
	PriceSourceDiscount PriceSource = "discount"
)

// ConvertibleTerms holds the per-security figures the resolver compares.
type ConvertibleTerms struct {
	Security             *domain.ConvertibleSecurity
	AccruedInterestCents int64
	CashValueCents       int64           // principal + accrued interest
	ConversionPrice      decimal.Decimal // USD per share, zero when not convertible
	PriceSource          PriceSource
	ConvertedShares      int64 // whole shares, rounded down
}

// Convertible reports whether the security can convert into at least one share.
func (t *ConvertibleTerms) Convertible() bool {
	return t.ConvertedShares > 0
}

// AccruedInterestCents computes simple ACT/365 interest from issue date to the
// earlier of maturity and the valuation date. Zero without an interest rate.
func AccruedInterestCents(sec *domain.ConvertibleSecurity, valuationDate time.Time) int64 {
	if sec.InterestRatePercent == nil || !sec.InterestRatePercent.IsPositive() || sec.PrincipalValueCents <= 0 {
		return 0
	}

	end := valuationDate
	if sec.MaturityDate != nil && sec.MaturityDate.Before(end) {
		end = *sec.MaturityDate
	}

	days := wholeDaysBetween(sec.IssuedAt, end)
	if days <= 0 {
		return 0
	}

	interest := decimal.NewFromInt(sec.PrincipalValueCents).
		Mul(*sec.InterestRatePercent).
		Mul(decimal.NewFromInt(days)).
		Div(interestDivisor)
	return interest.Round(0).IntPart()
}

// wholeDaysBetween counts calendar days between two instants on their UTC dates.
func wholeDaysBetween(from, to time.Time) int64 {
	f := time.Date(from.UTC().Year(), from.UTC().Month(), from.UTC().Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.UTC().Year(), to.UTC().Month(), to.UTC().Day(), 0, 0, 0, 0, time.UTC)
	return int64(t.Sub(f) / (24 * time.Hour))
}

// ResolveTerms computes a convertible's cash value and as-converted share count.
//
// The conversion price is the lowest of the round price (principal / implied shares),
// the cap price (valuation cap / fully-diluted shares) and the discounted round price.
// Prices are compared through the share counts they produce, which avoids rounding
// the price itself.
func ResolveTerms(sec *domain.ConvertibleSecurity, fullyDilutedShares int64, valuationDate time.Time) *ConvertibleTerms {
	interest := AccruedInterestCents(sec, valuationDate)
	t := &ConvertibleTerms{
		Security:             sec,
		AccruedInterestCents: interest,
		CashValueCents:       sec.PrincipalValueCents + interest,
	}
	if t.CashValueCents <= 0 {
		return t
	}

	value := decimal.NewFromInt(t.CashValueCents)
	best := decimal.Zero
	consider := func(shares decimal.Decimal, source PriceSource) {
		if shares.GreaterThan(best) {
			best = shares
			t.PriceSource = source
		}
	}

	if sec.ImpliedShares > 0 && sec.PrincipalValueCents > 0 {
		implied := decimal.NewFromInt(sec.ImpliedShares)
		principal := decimal.NewFromInt(sec.PrincipalValueCents)
		consider(value.Mul(implied).Div(principal), PriceSourceRound)

		if sec.DiscountRatePercent != nil && sec.DiscountRatePercent.IsPositive() {
			remaining := hundred.Sub(*sec.DiscountRatePercent)
			if remaining.IsPositive() {
				consider(value.Mul(implied).Mul(hundred).Div(principal.Mul(remaining)), PriceSourceDiscount)
			}
		}
	}

	if sec.ValuationCapCents != nil && *sec.ValuationCapCents > 0 && fullyDilutedShares > 0 {
		consider(value.Mul(decimal.NewFromInt(fullyDilutedShares)).Div(decimal.NewFromInt(*sec.ValuationCapCents)), PriceSourceCap)
	}

	t.ConvertedShares = best.Floor().IntPart()
	if t.ConvertedShares > 0 {
		t.ConversionPrice = value.Div(hundred).Div(best)
	} else {
		t.PriceSource = PriceSourceNone
	}
	return t
}

// ConversionDecision records the resolver's choice for one convertible.
type ConversionDecision struct {
	Terms            *ConvertibleTerms
	Converted        bool
	AsConvertedCents int64 // holder payout if converted
	RedemptionCents  int64 // holder payout if redeemed
}

// resolveConversions decides conversion vs redemption for every convertible.
//
// Decisions interact (each conversion dilutes the others), so they are resolved by
// fixed-point iteration: every pass re-evaluates each convertible against the current
// decisions of the rest and converts when the as-converted payout is at least the cash
// payout. Iteration stops after a pass without changes or after 2n+1 passes; the
// returned flag is false in the latter case.
func resolveConversions(equity []*Claim, terms []*ConvertibleTerms, exitCents int64) ([]ConversionDecision, int, bool, error) {
	decisions := make([]ConversionDecision, len(terms))
	for i, t := range terms {
		decisions[i] = ConversionDecision{Terms: t, Converted: t.Convertible()}
	}
	if len(terms) == 0 {
		return decisions, 0, true, nil
	}

	maxPasses := 2*len(terms) + 1
	for pass := 1; pass <= maxPasses; pass++ {
		changed := false
		for i := range decisions {
			if !decisions[i].Terms.Convertible() {
				continue
			}

			asConverted, err := evaluateDecision(equity, decisions, i, true, exitCents)
			if err != nil {
				return nil, pass, false, err
			}
			cash, err := evaluateDecision(equity, decisions, i, false, exitCents)
			if err != nil {
				return nil, pass, false, err
			}

			decisions[i].AsConvertedCents = asConverted
			decisions[i].RedemptionCents = cash
			convert := asConverted >= cash
			if convert != decisions[i].Converted {
				decisions[i].Converted = convert
				changed = true
			}
		}
		if !changed {
			return decisions, pass, true, nil
		}
	}

	return decisions, maxPasses, false, nil
}

// evaluateDecision runs the waterfall with convertible i forced to the given choice
// and returns its payout.
func evaluateDecision(equity []*Claim, decisions []ConversionDecision, i int, convert bool, exitCents int64) (int64, error) {
	claims := assembleClaims(equity, decisions, i, convert)
	dist, err := distribute(claims, exitCents)
	if err != nil {
		return 0, err
	}
	return dist.Payouts[len(equity)+i].TotalCents(), nil
}

// assembleClaims appends one claim per convertible to the equity claims.
// override >= 0 replaces that convertible's decision with convert.
func assembleClaims(equity []*Claim, decisions []ConversionDecision, override int, convert bool) []*Claim {
	claims := make([]*Claim, 0, len(equity)+len(decisions))
	claims = append(claims, equity...)
	for j := range decisions {
		choice := decisions[j].Converted
		if j == override {
			choice = convert
		}
		claims = append(claims, convertibleClaim(decisions[j].Terms, choice))
	}
	return claims
}
