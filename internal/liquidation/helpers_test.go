package liquidation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/observability"
	"flexile-liquidation/internal/storage"
	"flexile-liquidation/internal/storage/memory"
)

const testCompanyID int64 = 7

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

// testCapTable: 100 Series A preferred at $1.00 (investor 1), 100 common (investor 2).
func testCapTable() *domain.CapTable {
	return &domain.CapTable{
		Company: domain.Company{ID: testCompanyID, Name: "Test Co"},
		Investors: []*domain.CompanyInvestor{
			{ID: 1, CompanyID: testCompanyID, Name: "Fund"},
			{ID: 2, CompanyID: testCompanyID, Name: "Founder"},
		},
		ShareClasses: []*domain.ShareClass{
			{ID: 1, CompanyID: testCompanyID, Name: "Common", CreatedAt: testNow.AddDate(-3, 0, 0)},
			{
				ID:                 2,
				CompanyID:          testCompanyID,
				Name:               "Series A",
				Preferred:          true,
				OriginalIssuePrice: decimal.NewFromInt(1),
				CreatedAt:          testNow.AddDate(-2, 0, 0),
			},
		},
		ShareHoldings: []*domain.ShareHolding{
			{ID: 1, CompanyInvestorID: 1, ShareClassID: 2, NumberOfShares: 100},
			{ID: 2, CompanyInvestorID: 2, ShareClassID: 1, NumberOfShares: 100},
		},
	}
}

type testEnv struct {
	capTables *memory.CapTableStore
	scenarios *memory.ScenarioStore
	payouts   *memory.PayoutStore
	summaries *memory.RunSummaryStore
	metrics   *observability.Metrics
	hook      *logtest.Hook
	opts      Options
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	env := &testEnv{
		capTables: memory.NewCapTableStore(),
		scenarios: memory.NewScenarioStore(),
		payouts:   memory.NewPayoutStore(),
		summaries: memory.NewRunSummaryStore(),
		metrics:   observability.NewMetrics("test", prometheus.NewRegistry()),
		hook:      hook,
	}
	env.opts = Options{
		CapTables:    env.capTables,
		Scenarios:    env.scenarios,
		Payouts:      env.payouts,
		RunSummaries: env.summaries,
		Metrics:      env.metrics,
		Logger:       logger,
		Clock:        func() time.Time { return testNow },
	}

	require.NoError(t, env.capTables.SaveCapTable(context.Background(), testCapTable()))
	return env
}

func (e *testEnv) service() *Service {
	return NewService(e.opts)
}

func (e *testEnv) addScenario(t *testing.T, id, exitCents int64, status domain.ScenarioStatus) {
	t.Helper()
	require.NoError(t, e.scenarios.Insert(context.Background(), &domain.LiquidationScenario{
		ID:              id,
		CompanyID:       testCompanyID,
		Name:            "scenario",
		ExitAmountCents: exitCents,
		ExitDate:        testNow,
		Status:          status,
		CreatedAt:       testNow,
	}))
}

var errStoreDown = errors.New("store down")

// failingSummaries rejects every insert.
type failingSummaries struct {
	storage.RunSummaryStore
}

func (failingSummaries) Insert(context.Context, *domain.RunSummary) error {
	return errStoreDown
}

// failingPayouts fails ReplaceForScenario for one scenario id.
type failingPayouts struct {
	storage.PayoutStore
	failFor int64
}

func (f failingPayouts) ReplaceForScenario(ctx context.Context, scenarioID int64, payouts []*domain.LiquidationPayout) error {
	if scenarioID == f.failFor {
		return errStoreDown
	}
	return f.PayoutStore.ReplaceForScenario(ctx, scenarioID, payouts)
}
