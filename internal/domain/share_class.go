package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShareClass represents a class of stock.
// Corresponds to share_classes table.
type ShareClass struct {
	ID                            int64
	CompanyID                     int64
	Name                          string
	Preferred                     bool
	OriginalIssuePrice            decimal.Decimal  // USD per share, preferred only
	LiquidationPreferenceMultiple decimal.Decimal  // zero means 1x
	Participating                 bool             // preferred participates after preference
	ParticipationCapMultiple      *decimal.Decimal // nil means uncapped
	SeniorityRank                 *int             // lower = more senior, nil = default stacking
	CreatedAt                     time.Time
}

// PreferenceMultiple returns the effective liquidation preference multiple.
func (c *ShareClass) PreferenceMultiple() decimal.Decimal {
	if c.LiquidationPreferenceMultiple.IsZero() {
		return decimal.NewFromInt(1)
	}
	return c.LiquidationPreferenceMultiple
}

// HasLiquidationPreference reports whether holders of the class are paid
// in the preference round. Common stock never is.
func (c *ShareClass) HasLiquidationPreference() bool {
	return c.Preferred && c.OriginalIssuePrice.IsPositive()
}

// IsCapped reports whether participation is limited by a cap multiple.
func (c *ShareClass) IsCapped() bool {
	return c.Preferred && c.Participating && c.ParticipationCapMultiple != nil
}

// ShareHolding is a quantity of shares of a ShareClass owned by an investor.
// Read-only input for the liquidation engine.
type ShareHolding struct {
	ID                int64
	CompanyInvestorID int64
	ShareClassID      int64
	NumberOfShares    int64
}
