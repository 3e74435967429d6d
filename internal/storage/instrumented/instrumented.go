// Package instrumented wraps store implementations with query metrics.
package instrumented

import (
	"context"
	"time"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/observability"
	"flexile-liquidation/internal/storage"
)

type recorder struct {
	database string
	metrics  *observability.Metrics
}

// track starts timing an operation. The returned func records it with the
// error *errp holds at that point:
//
//	defer s.rec.track("op")(&err)
func (r recorder) track(operation string) func(errp *error) {
	start := time.Now()
	return func(errp *error) {
		r.metrics.RecordDBQuery(r.database, operation, time.Since(start), *errp)
	}
}

func newRecorder(database string, m *observability.Metrics) recorder {
	if m == nil {
		m = observability.DefaultMetrics
	}
	return recorder{database: database, metrics: m}
}

// CapTableStore records metrics for a storage.CapTableStore.
type CapTableStore struct {
	next storage.CapTableStore
	rec  recorder
}

var _ storage.CapTableStore = (*CapTableStore)(nil)

// WrapCapTableStore instruments next under the given database label.
func WrapCapTableStore(next storage.CapTableStore, database string, m *observability.Metrics) *CapTableStore {
	return &CapTableStore{next: next, rec: newRecorder(database, m)}
}

func (s *CapTableStore) LoadCapTable(ctx context.Context, companyID int64) (ct *domain.CapTable, err error) {
	defer s.rec.track("load_cap_table")(&err)
	return s.next.LoadCapTable(ctx, companyID)
}

func (s *CapTableStore) SaveCapTable(ctx context.Context, ct *domain.CapTable) (err error) {
	defer s.rec.track("save_cap_table")(&err)
	return s.next.SaveCapTable(ctx, ct)
}

// ScenarioStore records metrics for a storage.ScenarioStore.
type ScenarioStore struct {
	next storage.ScenarioStore
	rec  recorder
}

var _ storage.ScenarioStore = (*ScenarioStore)(nil)

// WrapScenarioStore instruments next under the given database label.
func WrapScenarioStore(next storage.ScenarioStore, database string, m *observability.Metrics) *ScenarioStore {
	return &ScenarioStore{next: next, rec: newRecorder(database, m)}
}

func (s *ScenarioStore) Insert(ctx context.Context, sc *domain.LiquidationScenario) (err error) {
	defer s.rec.track("insert_scenario")(&err)
	return s.next.Insert(ctx, sc)
}

func (s *ScenarioStore) GetByID(ctx context.Context, scenarioID int64) (sc *domain.LiquidationScenario, err error) {
	defer s.rec.track("get_scenario")(&err)
	return s.next.GetByID(ctx, scenarioID)
}

func (s *ScenarioStore) GetByCompanyID(ctx context.Context, companyID int64) (list []*domain.LiquidationScenario, err error) {
	defer s.rec.track("list_scenarios")(&err)
	return s.next.GetByCompanyID(ctx, companyID)
}

func (s *ScenarioStore) UpdateStatus(ctx context.Context, scenarioID int64, status domain.ScenarioStatus) (err error) {
	defer s.rec.track("update_scenario_status")(&err)
	return s.next.UpdateStatus(ctx, scenarioID, status)
}

// PayoutStore records metrics for a storage.PayoutStore.
type PayoutStore struct {
	next storage.PayoutStore
	rec  recorder
}

var _ storage.PayoutStore = (*PayoutStore)(nil)

// WrapPayoutStore instruments next under the given database label.
func WrapPayoutStore(next storage.PayoutStore, database string, m *observability.Metrics) *PayoutStore {
	return &PayoutStore{next: next, rec: newRecorder(database, m)}
}

func (s *PayoutStore) ReplaceForScenario(ctx context.Context, scenarioID int64, payouts []*domain.LiquidationPayout) (err error) {
	defer s.rec.track("replace_payouts")(&err)
	return s.next.ReplaceForScenario(ctx, scenarioID, payouts)
}

func (s *PayoutStore) GetByScenarioID(ctx context.Context, scenarioID int64) (list []*domain.LiquidationPayout, err error) {
	defer s.rec.track("get_payouts")(&err)
	return s.next.GetByScenarioID(ctx, scenarioID)
}

// RunSummaryStore records metrics for a storage.RunSummaryStore.
type RunSummaryStore struct {
	next storage.RunSummaryStore
	rec  recorder
}

var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)

// WrapRunSummaryStore instruments next under the given database label.
func WrapRunSummaryStore(next storage.RunSummaryStore, database string, m *observability.Metrics) *RunSummaryStore {
	return &RunSummaryStore{next: next, rec: newRecorder(database, m)}
}

func (s *RunSummaryStore) Insert(ctx context.Context, r *domain.RunSummary) (err error) {
	defer s.rec.track("insert_run_summary")(&err)
	return s.next.Insert(ctx, r)
}

func (s *RunSummaryStore) GetByScenarioID(ctx context.Context, scenarioID int64) (list []*domain.RunSummary, err error) {
	defer s.rec.track("get_run_summaries")(&err)
	return s.next.GetByScenarioID(ctx, scenarioID)
}

func (s *RunSummaryStore) GetByCompanyID(ctx context.Context, companyID int64) (list []*domain.RunSummary, err error) {
	defer s.rec.track("list_run_summaries")(&err)
	return s.next.GetByCompanyID(ctx, companyID)
}
