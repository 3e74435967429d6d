// Package liquidation runs liquidation scenarios end to end: it loads the scenario
// and cap table, computes the waterfall and records the resulting payout set.
package liquidation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/observability"
	"flexile-liquidation/internal/storage"
	"flexile-liquidation/internal/waterfall"
)

// DefaultConcurrency bounds RunBatch when the caller passes zero.
const DefaultConcurrency = 4

// Options configures a Service.
type Options struct {
	CapTables    storage.CapTableReader
	Scenarios    storage.ScenarioStore
	Payouts      storage.PayoutStore
	RunSummaries storage.RunSummaryStore // optional

	Metrics *observability.Metrics // defaults to observability.DefaultMetrics
	Logger  logrus.FieldLogger     // defaults to the standard logrus logger
	Clock   func() time.Time       // defaults to time.Now
}

// Service coordinates scenario runs.
type Service struct {
	capTables    storage.CapTableReader
	scenarios    storage.ScenarioStore
	recorder     *Recorder
	runSummaries storage.RunSummaryStore
	metrics      *observability.Metrics
	log          logrus.FieldLogger
	clock        func() time.Time
}

// NewService creates a Service from opts.
func NewService(opts Options) *Service {
	s := &Service{
		capTables:    opts.CapTables,
		scenarios:    opts.Scenarios,
		recorder:     NewRecorder(opts.Payouts),
		runSummaries: opts.RunSummaries,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		clock:        opts.Clock,
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultMetrics
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// RunResult is the outcome of one persisted scenario run.
type RunResult struct {
	RunID        string
	Scenario     *domain.LiquidationScenario
	Distribution *waterfall.Distribution
	Payouts      []*domain.LiquidationPayout
	Summary      *domain.RunSummary
}

// Run computes the scenario's distribution and replaces its stored payout set.
// Final scenarios are refused with ErrScenarioFinalized. Running a scenario twice
// against an unchanged cap table stores an identical payout set.
func (s *Service) Run(ctx context.Context, scenarioID int64) (*RunResult, error) {
	start := time.Now()
	res, err := s.run(ctx, scenarioID)
	s.metrics.RecordRun(StatusLabel(err), time.Since(start))
	return res, err
}

func (s *Service) run(ctx context.Context, scenarioID int64) (*RunResult, error) {
	runID := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{"run_id": runID, "scenario_id": scenarioID})

	scenario, err := s.scenarios.GetByID(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("load scenario %d: %w", scenarioID, err)
	}
	if scenario.IsFinal() {
		return nil, fmt.Errorf("scenario %d: %w", scenarioID, ErrScenarioFinalized)
	}

	started := time.Now()
	d, err := s.compute(ctx, scenario.CompanyID, scenario.ExitAmountCents, scenario.ExitDate)
	if err != nil {
		return nil, fmt.Errorf("scenario %d: %w", scenarioID, err)
	}
	duration := time.Since(started)

	log = log.WithFields(logrus.Fields{
		"company_id":        scenario.CompanyID,
		"exit_amount_cents": scenario.ExitAmountCents,
	})
	if !d.ConversionConverged {
		log.WithField("passes", d.ConversionPasses).Warn("conversion decisions did not converge")
	}

	payouts, err := s.recorder.Record(ctx, scenario, d)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPayoutsWritten(len(payouts))

	summary := NewRunSummary(runID, scenario.ID, scenario.CompanyID, d, duration, s.clock())
	s.appendSummary(ctx, log, summary)

	log.WithFields(logrus.Fields{
		"payouts":           len(payouts),
		"distributed_cents": d.DistributedCents,
		"duration":          duration,
	}).Info("scenario run recorded")

	return &RunResult{
		RunID:        runID,
		Scenario:     scenario,
		Distribution: d,
		Payouts:      payouts,
		Summary:      summary,
	}, nil
}

// Preview computes a distribution for an arbitrary exit amount without persisting
// anything. A zero exitDate values interest as of the service clock.
func (s *Service) Preview(ctx context.Context, companyID, exitAmountCents int64, exitDate time.Time) (*waterfall.Distribution, error) {
	start := time.Now()
	d, err := s.compute(ctx, companyID, exitAmountCents, exitDate)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPreview(time.Since(start))
	return d, nil
}

func (s *Service) compute(ctx context.Context, companyID, exitAmountCents int64, exitDate time.Time) (*waterfall.Distribution, error) {
	ct, err := s.capTables.LoadCapTable(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load cap table %d: %w", companyID, err)
	}

	valuationDate := exitDate
	if valuationDate.IsZero() {
		valuationDate = s.clock()
	}

	d, err := waterfall.Compute(waterfall.Input{
		CapTable:        ct,
		ExitAmountCents: exitAmountCents,
		ValuationDate:   valuationDate.UTC(),
	})
	if err != nil {
		return nil, err
	}

	converted, redeemed := conversionCounts(d)
	s.metrics.RecordDistribution(converted, redeemed, d.ConversionConverged, d.UndistributedCents)
	return d, nil
}

// appendSummary stores the run summary. Failures are logged, never returned:
// the payout set is already committed.
func (s *Service) appendSummary(ctx context.Context, log logrus.FieldLogger, summary *domain.RunSummary) {
	if s.runSummaries == nil {
		return
	}
	if err := s.runSummaries.Insert(ctx, summary); err != nil {
		log.WithError(err).Warn("failed to append run summary")
	}
}

// ScenarioFailure records a scenario that failed inside a batch.
type ScenarioFailure struct {
	ScenarioID int64
	Err        error
}

// BatchResult is the outcome of RunBatch.
type BatchResult struct {
	Runs     []*RunResult // ordered by scenario id
	Skipped  []int64      // final scenarios, not recomputed
	Failures []ScenarioFailure
}

// RunBatch runs every draft scenario of a company with at most concurrency runs in
// flight. Scenarios are independent: one failure does not stop the others. The
// returned error is non-nil only when the scenario list cannot be loaded or ctx
// is cancelled.
func (s *Service) RunBatch(ctx context.Context, companyID int64, concurrency int) (*BatchResult, error) {
	scenarios, err := s.scenarios.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list scenarios of company %d: %w", companyID, err)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	result := &BatchResult{}
	runs := make([]*RunResult, len(scenarios))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, sc := range scenarios {
		if sc.IsFinal() {
			result.Skipped = append(result.Skipped, sc.ID)
			continue
		}
		i, id := i, sc.ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Run(gctx, id)
			if err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, ScenarioFailure{ScenarioID: id, Err: err})
				mu.Unlock()
				return nil
			}
			runs[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range runs {
		if r != nil {
			result.Runs = append(result.Runs, r)
		}
	}
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].ScenarioID < result.Failures[j].ScenarioID
	})

	s.log.WithFields(logrus.Fields{
		"company_id": companyID,
		"runs":       len(result.Runs),
		"skipped":    len(result.Skipped),
		"failures":   len(result.Failures),
	}).Info("batch complete")
	return result, nil
}

// StatusLabel maps a run error to its metric label.
func StatusLabel(err error) string {
	switch {
	case err == nil:
		return observability.StatusOK
	case errors.Is(err, waterfall.ErrInvalidInput), errors.Is(err, storage.ErrInvalidInput):
		return observability.StatusInvalidInput
	case errors.Is(err, waterfall.ErrDataInconsistency), errors.Is(err, ErrRecordInvariant):
		return observability.StatusDataInconsistency
	case errors.Is(err, storage.ErrNotFound):
		return observability.StatusNotFound
	case errors.Is(err, ErrScenarioFinalized):
		return observability.StatusFinalized
	default:
		return observability.StatusError
	}
}
