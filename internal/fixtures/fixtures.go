// Package fixtures provides a demo cap table and scenarios for running the
// waterfall without a database.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage"
)

// DemoCompanyID is the company all demo records belong to.
const DemoCompanyID int64 = 1

// Demo scenario ids.
const (
	ScenarioAcquihire     int64 = 101
	ScenarioStrategicSale int64 = 102
	ScenarioDownside      int64 = 103
	ScenarioSignedLOI     int64 = 104 // final
)

var (
	seedDate    = time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC)
	seriesADate = time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	safeDate    = time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	exitDate    = time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
)

// DemoCapTable returns a fresh copy of the demo company's capital structure:
// founders on common, a non-participating seed round, a participating Series A
// capped at 3x, a post-money SAFE and an option pool.
func DemoCapTable() *domain.CapTable {
	fd := int64(11_500_000)
	seriesACap := decimal.NewFromInt(3)
	valuationCap := int64(15_000_000_00)
	discount := decimal.NewFromInt(20)

	return &domain.CapTable{
		Company: domain.Company{ID: DemoCompanyID, Name: "Acme Robotics", FullyDilutedShares: &fd},
		Investors: []*domain.CompanyInvestor{
			{ID: 1, CompanyID: DemoCompanyID, Name: "Ada Founder"},
			{ID: 2, CompanyID: DemoCompanyID, Name: "Grace Founder"},
			{ID: 3, CompanyID: DemoCompanyID, Name: "Seedling Capital"},
			{ID: 4, CompanyID: DemoCompanyID, Name: "Growth Ventures"},
			{ID: 5, CompanyID: DemoCompanyID, Name: "Angel Syndicate"},
		},
		ShareClasses: []*domain.ShareClass{
			{ID: 1, CompanyID: DemoCompanyID, Name: "Common", CreatedAt: seedDate.AddDate(-1, 0, 0)},
			{
				ID:                 2,
				CompanyID:          DemoCompanyID,
				Name:               "Series Seed",
				Preferred:          true,
				OriginalIssuePrice: decimal.RequireFromString("0.50"),
				CreatedAt:          seedDate,
			},
			{
				ID:                       3,
				CompanyID:                DemoCompanyID,
				Name:                     "Series A",
				Preferred:                true,
				OriginalIssuePrice:       decimal.RequireFromString("2.00"),
				Participating:            true,
				ParticipationCapMultiple: &seriesACap,
				CreatedAt:                seriesADate,
			},
		},
		ShareHoldings: []*domain.ShareHolding{
			{ID: 1, CompanyInvestorID: 1, ShareClassID: 1, NumberOfShares: 6_000_000},
			{ID: 2, CompanyInvestorID: 2, ShareClassID: 1, NumberOfShares: 2_000_000},
			{ID: 3, CompanyInvestorID: 3, ShareClassID: 2, NumberOfShares: 1_000_000},
			{ID: 4, CompanyInvestorID: 4, ShareClassID: 3, NumberOfShares: 1_500_000},
		},
		ConvertibleInvestments: []*domain.ConvertibleInvestment{
			{ID: 1, CompanyID: DemoCompanyID, EntityName: "2023 SAFE round", ConvertibleType: "Post-money SAFE", IssuedAt: safeDate},
		},
		ConvertibleSecurities: []*domain.ConvertibleSecurity{
			{
				ID:                      1,
				ConvertibleInvestmentID: 1,
				CompanyInvestorID:       5,
				PrincipalValueCents:     500_000_00,
				ImpliedShares:           250_000,
				ValuationCapCents:       &valuationCap,
				DiscountRatePercent:     &discount,
				IssuedAt:                safeDate,
			},
		},
		OptionPools: []*domain.OptionPool{
			{ID: 1, CompanyID: DemoCompanyID, Name: "2021 Equity Incentive Plan", AuthorizedShares: 1_000_000, IssuedShares: 500_000, AvailableShares: 500_000},
		},
	}
}

// DemoScenarios returns the demo scenarios, ordered by id.
func DemoScenarios() []*domain.LiquidationScenario {
	created := exitDate.AddDate(0, -1, 0)
	return []*domain.LiquidationScenario{
		{ID: ScenarioAcquihire, CompanyID: DemoCompanyID, Name: "Acquihire", ExitAmountCents: 5_000_000_00, ExitDate: exitDate, Status: domain.ScenarioStatusDraft, CreatedAt: created},
		{ID: ScenarioStrategicSale, CompanyID: DemoCompanyID, Name: "Strategic sale", ExitAmountCents: 40_000_000_00, ExitDate: exitDate, Status: domain.ScenarioStatusDraft, CreatedAt: created},
		{ID: ScenarioDownside, CompanyID: DemoCompanyID, Name: "Downside", Description: "Exit below total preference", ExitAmountCents: 1_500_000_00, ExitDate: exitDate, Status: domain.ScenarioStatusDraft, CreatedAt: created},
		{ID: ScenarioSignedLOI, CompanyID: DemoCompanyID, Name: "Signed LOI", ExitAmountCents: 60_000_000_00, ExitDate: exitDate, Status: domain.ScenarioStatusFinal, CreatedAt: created},
	}
}

// Load populates stores with the demo cap table and scenarios.
func Load(ctx context.Context, capTables storage.CapTableStore, scenarios storage.ScenarioStore) error {
	if err := capTables.SaveCapTable(ctx, DemoCapTable()); err != nil {
		return fmt.Errorf("save demo cap table: %w", err)
	}
	for _, s := range DemoScenarios() {
		if err := scenarios.Insert(ctx, s); err != nil {
			return fmt.Errorf("insert scenario %d: %w", s.ID, err)
		}
	}
	return nil
}
