package waterfall

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"

	"flexile-liquidation/internal/domain"
)

// Validate checks the input before any computation. Failures wrap ErrInvalidInput.
func (in *Input) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.CapTable, validation.NotNil),
		validation.Field(&in.ExitAmountCents, validation.Min(int64(0))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	ct := in.CapTable
	for _, sc := range ct.ShareClasses {
		if err := validateShareClass(sc); err != nil {
			return fmt.Errorf("%w: share class %d: %v", ErrInvalidInput, sc.ID, err)
		}
	}
	for _, h := range ct.ShareHoldings {
		if err := validateHolding(h); err != nil {
			return fmt.Errorf("%w: share holding %d: %v", ErrInvalidInput, h.ID, err)
		}
	}
	for _, cs := range ct.ConvertibleSecurities {
		if err := validateConvertible(cs); err != nil {
			return fmt.Errorf("%w: convertible security %d: %v", ErrInvalidInput, cs.ID, err)
		}
	}
	for _, p := range ct.OptionPools {
		if err := validateOptionPool(p); err != nil {
			return fmt.Errorf("%w: option pool %d: %v", ErrInvalidInput, p.ID, err)
		}
	}
	return nil
}

func validateShareClass(sc *domain.ShareClass) error {
	return validation.ValidateStruct(sc,
		validation.Field(&sc.Name, validation.Required),
		validation.Field(&sc.OriginalIssuePrice, validation.By(func(v interface{}) error {
			price := v.(decimal.Decimal)
			if sc.Preferred && !price.IsPositive() {
				return errors.New("is required for preferred stock")
			}
			if price.IsNegative() {
				return errors.New("must not be negative")
			}
			return nil
		})),
		validation.Field(&sc.LiquidationPreferenceMultiple, validation.By(nonNegativeDecimal)),
		validation.Field(&sc.ParticipationCapMultiple, validation.By(func(v interface{}) error {
			capMultiple, _ := v.(*decimal.Decimal)
			if capMultiple == nil {
				return nil
			}
			if !sc.Preferred || !sc.Participating {
				return errors.New("only applies to participating preferred stock")
			}
			if !capMultiple.IsPositive() {
				return errors.New("must be positive")
			}
			return nil
		})),
	)
}

func validateHolding(h *domain.ShareHolding) error {
	return validation.ValidateStruct(h,
		validation.Field(&h.CompanyInvestorID, validation.Required),
		validation.Field(&h.ShareClassID, validation.Required),
		validation.Field(&h.NumberOfShares, validation.Required, validation.Min(int64(1))),
	)
}

func validateConvertible(cs *domain.ConvertibleSecurity) error {
	return validation.ValidateStruct(cs,
		validation.Field(&cs.CompanyInvestorID, validation.Required),
		validation.Field(&cs.PrincipalValueCents, validation.Min(int64(0))),
		validation.Field(&cs.ImpliedShares, validation.Min(int64(0))),
		validation.Field(&cs.ValuationCapCents, validation.By(func(v interface{}) error {
			capCents, _ := v.(*int64)
			if capCents != nil && *capCents <= 0 {
				return errors.New("must be positive")
			}
			return nil
		})),
		validation.Field(&cs.DiscountRatePercent, validation.By(func(v interface{}) error {
			rate, _ := v.(*decimal.Decimal)
			if rate != nil && (rate.IsNegative() || rate.GreaterThanOrEqual(hundred)) {
				return errors.New("must be at least 0 and below 100")
			}
			return nil
		})),
		validation.Field(&cs.InterestRatePercent, validation.By(func(v interface{}) error {
			rate, _ := v.(*decimal.Decimal)
			if rate != nil && rate.IsNegative() {
				return errors.New("must not be negative")
			}
			return nil
		})),
		validation.Field(&cs.IssuedAt, validation.By(func(v interface{}) error {
			if cs.InterestRatePercent != nil && cs.IssuedAt.IsZero() {
				return errors.New("is required when interest accrues")
			}
			return nil
		})),
	)
}

func validateOptionPool(p *domain.OptionPool) error {
	return validation.ValidateStruct(p,
		validation.Field(&p.IssuedShares, validation.Min(int64(0))),
		validation.Field(&p.AvailableShares, validation.Min(int64(0))),
		validation.Field(&p.AuthorizedShares, validation.By(func(v interface{}) error {
			if p.IssuedShares+p.AvailableShares > p.AuthorizedShares {
				return errors.New("must cover issued and available shares")
			}
			return nil
		})),
	)
}

func nonNegativeDecimal(v interface{}) error {
	d, _ := v.(decimal.Decimal)
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

// checkConsistency verifies cross-record invariants of the cap table.
func checkConsistency(ct *domain.CapTable) error {
	if ct.Company.FullyDilutedShares != nil {
		recorded, computed := *ct.Company.FullyDilutedShares, ct.FullyDilutedShares()
		if recorded < computed {
			return fmt.Errorf("%w: recorded fully-diluted shares %d below cap table total %d",
				ErrDataInconsistency, recorded, computed)
		}
	}
	return nil
}
