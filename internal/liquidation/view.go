package liquidation

import (
	"github.com/shopspring/decimal"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/waterfall"
)

// DistributionView is the JSON rendering of a distribution.
type DistributionView struct {
	ExitAmountCents     int64            `json:"exit_amount_cents"`
	ExitAmount          decimal.Decimal  `json:"exit_amount"`
	DistributedCents    int64            `json:"distributed_cents"`
	UndistributedCents  int64            `json:"undistributed_cents"`
	FullyDilutedShares  int64            `json:"fully_diluted_shares"`
	ConversionConverged bool             `json:"conversion_converged"`
	Tiers               []TierView       `json:"tiers"`
	Payouts             []PayoutView     `json:"payouts"`
	Conversions         []ConversionView `json:"conversions"`
}

// TierView is one seniority tier of the preference round.
type TierView struct {
	Label           string `json:"label"`
	Claims          int    `json:"claims"`
	PreferenceCents int64  `json:"preference_cents"`
}

// PayoutView is one (investor, security) payout.
type PayoutView struct {
	CompanyInvestorID   int64               `json:"company_investor_id"`
	SecurityType        domain.SecurityType `json:"security_type"`
	SecurityID          int64               `json:"security_id"`
	ShareClassName      string              `json:"share_class_name,omitempty"`
	NumberOfShares      int64               `json:"number_of_shares"`
	PayoutAmountCents   int64               `json:"payout_amount_cents"`
	PayoutAmount        decimal.Decimal     `json:"payout_amount"`
	PreferenceCents     int64               `json:"liquidation_preference_cents"`
	ParticipationCents  int64               `json:"participation_cents"`
	CommonProceedsCents int64               `json:"common_proceeds_cents"`
}

// ConversionView is the decision taken for one convertible.
type ConversionView struct {
	SecurityID           int64                 `json:"security_id"`
	CompanyInvestorID    int64                 `json:"company_investor_id"`
	Converted            bool                  `json:"converted"`
	ConversionPrice      decimal.Decimal       `json:"conversion_price"`
	PriceSource          waterfall.PriceSource `json:"price_source,omitempty"`
	ConvertedShares      int64                 `json:"converted_shares"`
	AccruedInterestCents int64                 `json:"accrued_interest_cents"`
	PayoutCents          int64                 `json:"payout_cents"`
}

// NewDistributionView renders d. Slices are never nil.
func NewDistributionView(d *waterfall.Distribution) *DistributionView {
	v := &DistributionView{
		ExitAmountCents:     d.ExitAmountCents,
		ExitAmount:          domain.CentsToDollars(d.ExitAmountCents),
		DistributedCents:    d.DistributedCents,
		UndistributedCents:  d.UndistributedCents,
		FullyDilutedShares:  d.FullyDilutedShares,
		ConversionConverged: d.ConversionConverged,
		Tiers:               make([]TierView, 0, len(d.Tiers)),
		Payouts:             make([]PayoutView, 0, len(d.Payouts)),
		Conversions:         make([]ConversionView, 0, len(d.Conversions)),
	}

	for _, t := range d.Tiers {
		v.Tiers = append(v.Tiers, TierView{Label: t.Label, Claims: len(t.Claims), PreferenceCents: t.PreferenceCents()})
	}

	for _, p := range d.Payouts {
		c := p.Claim
		pv := PayoutView{
			CompanyInvestorID:   c.InvestorID,
			SecurityType:        c.SecurityType,
			SecurityID:          c.SecurityID,
			NumberOfShares:      c.Shares,
			PayoutAmountCents:   p.TotalCents(),
			PayoutAmount:        domain.CentsToDollars(p.TotalCents()),
			PreferenceCents:     p.PreferenceCents,
			ParticipationCents:  p.ParticipationCents,
			CommonProceedsCents: p.CommonProceedsCents,
		}
		if c.ShareClass != nil {
			pv.ShareClassName = c.ShareClass.Name
		}
		v.Payouts = append(v.Payouts, pv)
	}

	for _, c := range d.Conversions {
		cv := ConversionView{
			SecurityID:           c.Terms.Security.ID,
			CompanyInvestorID:    c.Terms.Security.CompanyInvestorID,
			Converted:            c.Converted,
			ConversionPrice:      c.Terms.ConversionPrice,
			PriceSource:          c.Terms.PriceSource,
			ConvertedShares:      c.Terms.ConvertedShares,
			AccruedInterestCents: c.Terms.AccruedInterestCents,
			PayoutCents:          c.RedemptionCents,
		}
		if c.Converted {
			cv.PayoutCents = c.AsConvertedCents
		}
		v.Conversions = append(v.Conversions, cv)
	}
	return v
}
