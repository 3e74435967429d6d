package waterfall

import (
	"time"

	"github.com/shopspring/decimal"

	"flexile-liquidation/internal/domain"
)

var baseTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}

func commonClass(id int64) *domain.ShareClass {
	return &domain.ShareClass{
		ID:        id,
		CompanyID: 1,
		Name:      "Common",
		CreatedAt: baseTime,
	}
}

func preferredClass(id int64, name, price string, createdDays int) *domain.ShareClass {
	return &domain.ShareClass{
		ID:                 id,
		CompanyID:          1,
		Name:               name,
		Preferred:          true,
		OriginalIssuePrice: dec(price),
		CreatedAt:          baseTime.AddDate(0, 0, createdDays),
	}
}

func participating(sc *domain.ShareClass, capMultiple string) *domain.ShareClass {
	sc.Participating = true
	if capMultiple != "" {
		sc.ParticipationCapMultiple = decPtr(capMultiple)
	}
	return sc
}

func ranked(sc *domain.ShareClass, rank int) *domain.ShareClass {
	sc.SeniorityRank = intPtr(rank)
	return sc
}

var nextHoldingID int64

func holding(investorID, classID, shares int64) *domain.ShareHolding {
	nextHoldingID++
	return &domain.ShareHolding{
		ID:                nextHoldingID,
		CompanyInvestorID: investorID,
		ShareClassID:      classID,
		NumberOfShares:    shares,
	}
}

func convertible(id, investorID, principalCents, impliedShares int64) *domain.ConvertibleSecurity {
	return &domain.ConvertibleSecurity{
		ID:                      id,
		ConvertibleInvestmentID: 1,
		CompanyInvestorID:       investorID,
		PrincipalValueCents:     principalCents,
		ImpliedShares:           impliedShares,
		IssuedAt:                baseTime,
	}
}

func capTable(classes []*domain.ShareClass, holdings []*domain.ShareHolding, convertibles ...*domain.ConvertibleSecurity) *domain.CapTable {
	return &domain.CapTable{
		Company:               domain.Company{ID: 1, Name: "Acme"},
		ShareClasses:          classes,
		ShareHoldings:         holdings,
		ConvertibleSecurities: convertibles,
	}
}

func compute(ct *domain.CapTable, exitCents int64) (*Distribution, error) {
	return Compute(Input{CapTable: ct, ExitAmountCents: exitCents, ValuationDate: baseTime.AddDate(1, 0, 0)})
}

func equityPayout(d *Distribution, investorID, classID int64) *ClaimPayout {
	return d.PayoutFor(investorID, domain.SecurityTypeEquity, classID)
}

func convertiblePayout(d *Distribution, investorID, securityID int64) *ClaimPayout {
	return d.PayoutFor(investorID, domain.SecurityTypeConvertible, securityID)
}

func sumPayouts(d *Distribution) int64 {
	var total int64
	for _, p := range d.Payouts {
		total += p.TotalCents()
	}
	return total
}
