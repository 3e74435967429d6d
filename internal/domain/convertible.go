package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConvertibleInvestment groups convertible securities issued in one financing
// (e.g. a SAFE round or a note round).
type ConvertibleInvestment struct {
	ID              int64
	CompanyID       int64
	EntityName      string
	ConvertibleType string // e.g. "Post-money SAFE", "Convertible note"
	IssuedAt        time.Time
}

// ConvertibleSecurity is an instrument convertible into equity.
// Corresponds to convertible_securities table.
type ConvertibleSecurity struct {
	ID                      int64
	ConvertibleInvestmentID int64
	CompanyInvestorID       int64
	PrincipalValueCents     int64
	ImpliedShares           int64            // shares if converted at face value
	ValuationCapCents       *int64           // nullable
	DiscountRatePercent     *decimal.Decimal // nullable, 0-100
	InterestRatePercent     *decimal.Decimal // nullable, annualized simple interest
	IssuedAt                time.Time
	MaturityDate            *time.Time // nullable
}
