package storage

import (
	"context"

	"flexile-liquidation/internal/domain"
)

// CapTableReader loads the read-only security model of a company.
type CapTableReader interface {
	// LoadCapTable returns a snapshot of the company's share classes, holdings,
	// convertibles and option pools. Returns ErrNotFound if the company does not exist.
	LoadCapTable(ctx context.Context, companyID int64) (*domain.CapTable, error)
}

// CapTableStore provides read and write access to cap table records.
type CapTableStore interface {
	CapTableReader

	// SaveCapTable inserts every record of the snapshot atomically.
	// Returns ErrDuplicateKey if the company or any record id exists.
	SaveCapTable(ctx context.Context, ct *domain.CapTable) error
}

// ScenarioStore provides access to liquidation_scenarios storage.
type ScenarioStore interface {
	// Insert adds a new scenario. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, s *domain.LiquidationScenario) error

	// GetByID retrieves a scenario by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, scenarioID int64) (*domain.LiquidationScenario, error)

	// GetByCompanyID retrieves all scenarios of a company, ordered by id ASC.
	GetByCompanyID(ctx context.Context, companyID int64) ([]*domain.LiquidationScenario, error)

	// UpdateStatus changes the scenario status. Returns ErrNotFound if not exists.
	UpdateStatus(ctx context.Context, scenarioID int64, status domain.ScenarioStatus) error
}

// PayoutStore provides access to liquidation_payouts storage.
type PayoutStore interface {
	// ReplaceForScenario deletes every payout of the scenario and inserts the given set
	// atomically. Either the full new set is visible or the old one remains.
	ReplaceForScenario(ctx context.Context, scenarioID int64, payouts []*domain.LiquidationPayout) error

	// GetByScenarioID retrieves payouts of a scenario, ordered by
	// investor id, security type, security id ASC.
	GetByScenarioID(ctx context.Context, scenarioID int64) ([]*domain.LiquidationPayout, error)
}

// RunSummaryStore provides access to liquidation_runs analytics storage.
type RunSummaryStore interface {
	// Insert appends a run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.RunSummary) error

	// GetByScenarioID retrieves run summaries of a scenario, ordered by computed_at ASC.
	GetByScenarioID(ctx context.Context, scenarioID int64) ([]*domain.RunSummary, error)

	// GetByCompanyID retrieves run summaries of a company, ordered by computed_at ASC.
	GetByCompanyID(ctx context.Context, companyID int64) ([]*domain.RunSummary, error)
}
