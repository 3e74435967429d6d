package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"flexile-liquidation/internal/domain"
)

// setupTestDB creates a PostgreSQL container for testing and applies migrations.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	runMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runMigrations applies the SQL files from internal/storage/migrations/postgres.
// The migrations package imports this one, so the files are read from disk.
func runMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	migrationsDir := filepath.Join("..", "migrations", "postgres")

	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err, "failed to read migrations directory")

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(filepath.Join(migrationsDir, file))
		require.NoError(t, err, "failed to read migration file: %s", file)

		_, err = pool.Exec(ctx, string(sql), pgx.QueryExecModeSimpleProtocol)
		require.NoError(t, err, "failed to execute migration: %s", file)

		t.Logf("Applied migration: %s", file)
	}
}

var testTime = time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)

// testCapTable builds a small company with common, a capped participating
// preferred class and one SAFE.
func testCapTable(companyID int64) *domain.CapTable {
	base := companyID * 100
	fd := int64(1_500)
	capMultiple := decimal.RequireFromString("2")
	discount := decimal.RequireFromString("20")
	valuationCap := int64(5_000_000_00)
	rank := 1
	maturity := testTime.AddDate(2, 0, 0)

	return &domain.CapTable{
		Company: domain.Company{ID: companyID, Name: "Acme", FullyDilutedShares: &fd},
		Investors: []*domain.CompanyInvestor{
			{ID: base + 1, CompanyID: companyID, Name: "Founder"},
			{ID: base + 2, CompanyID: companyID, Name: "Seed Fund"},
		},
		ShareClasses: []*domain.ShareClass{
			{ID: base + 1, CompanyID: companyID, Name: "Common", CreatedAt: testTime},
			{
				ID:                            base + 2,
				CompanyID:                     companyID,
				Name:                          "Series Seed",
				Preferred:                     true,
				OriginalIssuePrice:            decimal.RequireFromString("1.2345"),
				LiquidationPreferenceMultiple: decimal.RequireFromString("1.5"),
				Participating:                 true,
				ParticipationCapMultiple:      &capMultiple,
				SeniorityRank:                 &rank,
				CreatedAt:                     testTime.AddDate(0, 6, 0),
			},
		},
		ShareHoldings: []*domain.ShareHolding{
			{ID: base + 1, CompanyInvestorID: base + 1, ShareClassID: base + 1, NumberOfShares: 1_000},
			{ID: base + 2, CompanyInvestorID: base + 2, ShareClassID: base + 2, NumberOfShares: 400},
		},
		ConvertibleInvestments: []*domain.ConvertibleInvestment{
			{ID: base + 1, CompanyID: companyID, EntityName: "SAFE 2021", ConvertibleType: "Crowd SAFE", IssuedAt: testTime},
		},
		ConvertibleSecurities: []*domain.ConvertibleSecurity{
			{
				ID:                      base + 1,
				ConvertibleInvestmentID: base + 1,
				CompanyInvestorID:       base + 2,
				PrincipalValueCents:     250_000_00,
				ImpliedShares:           50,
				ValuationCapCents:       &valuationCap,
				DiscountRatePercent:     &discount,
				IssuedAt:                testTime,
				MaturityDate:            &maturity,
			},
		},
		OptionPools: []*domain.OptionPool{
			{ID: base + 1, CompanyID: companyID, Name: "2021 Plan", AuthorizedShares: 200, IssuedShares: 60, AvailableShares: 40},
		},
	}
}

// insertTestScenario seeds a company and a draft scenario.
func insertTestScenario(t *testing.T, ctx context.Context, pool *Pool, companyID, scenarioID int64) {
	t.Helper()

	require.NoError(t, NewCapTableStore(pool).SaveCapTable(ctx, testCapTable(companyID)))
	require.NoError(t, NewScenarioStore(pool).Insert(ctx, &domain.LiquidationScenario{
		ID:              scenarioID,
		CompanyID:       companyID,
		Name:            "Test exit",
		ExitAmountCents: 1_000_000_00,
		ExitDate:        testTime.AddDate(1, 0, 0),
	}))
}
