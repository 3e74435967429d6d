package clickhouse

import (
	"context"
	"fmt"
	"time"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage"
)

// RunSummaryStore implements storage.RunSummaryStore using ClickHouse.
type RunSummaryStore struct {
	conn *Conn
}

// NewRunSummaryStore creates a new RunSummaryStore.
func NewRunSummaryStore(conn *Conn) *RunSummaryStore {
	return &RunSummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)

const runSummaryColumns = `
	run_id, scenario_id, company_id, exit_amount_cents,
	distributed_cents, undistributed_cents, payout_count, tier_count,
	converted_count, redeemed_count, conversion_passes, conversion_converged,
	duration_ms, computed_at
`

// Insert appends a run summary. Returns ErrDuplicateKey if run_id exists.
// MergeTree does not enforce keys, so the check is explicit.
func (s *RunSummaryStore) Insert(ctx context.Context, r *domain.RunSummary) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, r.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO liquidation_runs (`+runSummaryColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	var converged uint8
	if r.ConversionConverged {
		converged = 1
	}

	err = batch.Append(
		r.RunID, r.ScenarioID, r.CompanyID, r.ExitAmountCents,
		r.DistributedCents, r.UndistributedCents, uint32(r.PayoutCount), uint32(r.TierCount),
		uint32(r.ConvertedCount), uint32(r.RedeemedCount), uint32(r.ConversionPasses), converged,
		r.DurationMs, r.ComputedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

// GetByScenarioID retrieves run summaries of a scenario, ordered by computed_at ASC.
func (s *RunSummaryStore) GetByScenarioID(ctx context.Context, scenarioID int64) ([]*domain.RunSummary, error) {
	query := `SELECT ` + runSummaryColumns + `
		FROM liquidation_runs
		WHERE scenario_id = ?
		ORDER BY computed_at ASC, run_id ASC
	`

	rows, err := s.conn.Query(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("query by scenario: %w", err)
	}
	defer rows.Close()

	return scanRunSummaries(rows)
}

// GetByCompanyID retrieves run summaries of a company, ordered by computed_at ASC.
func (s *RunSummaryStore) GetByCompanyID(ctx context.Context, companyID int64) ([]*domain.RunSummary, error) {
	query := `SELECT ` + runSummaryColumns + `
		FROM liquidation_runs
		WHERE company_id = ?
		ORDER BY computed_at ASC, run_id ASC
	`

	rows, err := s.conn.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("query by company: %w", err)
	}
	defer rows.Close()

	return scanRunSummaries(rows)
}

func (s *RunSummaryStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM liquidation_runs WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanRunSummaries(rows chRows) ([]*domain.RunSummary, error) {
	var result []*domain.RunSummary

	for rows.Next() {
		var r domain.RunSummary
		var payouts, tiers, converted, redeemed, passes uint32
		var convergedFlag uint8
		var computedAt time.Time

		err := rows.Scan(
			&r.RunID, &r.ScenarioID, &r.CompanyID, &r.ExitAmountCents,
			&r.DistributedCents, &r.UndistributedCents, &payouts, &tiers,
			&converted, &redeemed, &passes, &convergedFlag,
			&r.DurationMs, &computedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run summary row: %w", err)
		}

		r.PayoutCount = int(payouts)
		r.TierCount = int(tiers)
		r.ConvertedCount = int(converted)
		r.RedeemedCount = int(redeemed)
		r.ConversionPasses = int(passes)
		r.ConversionConverged = convergedFlag == 1
		r.ComputedAt = computedAt.UTC()
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run summary rows: %w", err)
	}

	return result, nil
}
