package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage"
)

// ScenarioStore implements storage.ScenarioStore using PostgreSQL.
type ScenarioStore struct {
	pool *Pool
}

// NewScenarioStore creates a new ScenarioStore.
func NewScenarioStore(pool *Pool) *ScenarioStore {
	return &ScenarioStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScenarioStore = (*ScenarioStore)(nil)

// Insert adds a new scenario. Returns ErrDuplicateKey if the id exists.
func (s *ScenarioStore) Insert(ctx context.Context, sc *domain.LiquidationScenario) error {
	if sc == nil || sc.ID == 0 || sc.CompanyID == 0 {
		return storage.ErrInvalidInput
	}

	status := sc.Status
	if status == "" {
		status = domain.ScenarioStatusDraft
	}
	var exitDate *time.Time
	if !sc.ExitDate.IsZero() {
		exitDate = &sc.ExitDate
	}

	query := `
		INSERT INTO liquidation_scenarios (
			id, company_id, name, description, exit_amount_cents, exit_date, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		sc.ID,
		sc.CompanyID,
		sc.Name,
		sc.Description,
		sc.ExitAmountCents,
		exitDate,
		string(status),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isConstraintError(err) {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		return fmt.Errorf("insert scenario: %w", err)
	}
	return nil
}

// GetByID retrieves a scenario by its ID. Returns ErrNotFound if not exists.
func (s *ScenarioStore) GetByID(ctx context.Context, scenarioID int64) (*domain.LiquidationScenario, error) {
	query := `
		SELECT id, company_id, name, description, exit_amount_cents, exit_date, status, created_at
		FROM liquidation_scenarios
		WHERE id = $1
	`

	sc, err := scanScenario(s.pool.QueryRow(ctx, query, scenarioID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scenario by id: %w", err)
	}
	return sc, nil
}

// GetByCompanyID retrieves all scenarios of a company, ordered by id ASC.
func (s *ScenarioStore) GetByCompanyID(ctx context.Context, companyID int64) ([]*domain.LiquidationScenario, error) {
	query := `
		SELECT id, company_id, name, description, exit_amount_cents, exit_date, status, created_at
		FROM liquidation_scenarios
		WHERE company_id = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("get scenarios by company: %w", err)
	}
	defer rows.Close()

	var scenarios []*domain.LiquidationScenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scenario row: %w", err)
		}
		scenarios = append(scenarios, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario rows: %w", err)
	}

	return scenarios, nil
}

// UpdateStatus changes the scenario status. Returns ErrNotFound if not exists.
func (s *ScenarioStore) UpdateStatus(ctx context.Context, scenarioID int64, status domain.ScenarioStatus) error {
	if status != domain.ScenarioStatusDraft && status != domain.ScenarioStatusFinal {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE liquidation_scenarios SET status = $2 WHERE id = $1`,
		scenarioID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update scenario status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanScenario scans a single row into a LiquidationScenario.
func scanScenario(row pgx.Row) (*domain.LiquidationScenario, error) {
	var sc domain.LiquidationScenario
	var exitDate *time.Time
	var status string

	err := row.Scan(
		&sc.ID,
		&sc.CompanyID,
		&sc.Name,
		&sc.Description,
		&sc.ExitAmountCents,
		&exitDate,
		&status,
		&sc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if exitDate != nil {
		sc.ExitDate = exitDate.UTC()
	}
	sc.Status = domain.ScenarioStatus(status)
	return &sc, nil
}
