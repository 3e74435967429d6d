package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage"
)

// PayoutStore implements storage.PayoutStore using PostgreSQL.
type PayoutStore struct {
	pool *Pool
}

// NewPayoutStore creates a new PayoutStore.
func NewPayoutStore(pool *Pool) *PayoutStore {
	return &PayoutStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PayoutStore = (*PayoutStore)(nil)

var payoutColumns = []string{
	"id", "liquidation_scenario_id", "company_investor_id", "security_type", "security_id",
	"share_class_name", "number_of_shares", "payout_amount_cents",
	"liquidation_preference_amount", "participation_amount", "common_proceeds_amount",
}

// ReplaceForScenario deletes the scenario's payouts and inserts the new set in one
// transaction. The scenario row is locked first so concurrent recomputations of the
// same scenario serialize instead of interleaving their delete and insert.
func (s *PayoutStore) ReplaceForScenario(ctx context.Context, scenarioID int64, payouts []*domain.LiquidationPayout) error {
	for _, p := range payouts {
		if p == nil || p.ID == "" || p.LiquidationScenarioID != scenarioID {
			return storage.ErrInvalidInput
		}
	}

	return s.pool.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM liquidation_scenarios WHERE id = $1 FOR UPDATE`, scenarioID,
		).Scan(&locked)
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("lock scenario: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM liquidation_payouts WHERE liquidation_scenario_id = $1`, scenarioID); err != nil {
			return fmt.Errorf("clear payouts: %w", err)
		}
		if len(payouts) == 0 {
			return nil
		}

		rows := make([][]any, len(payouts))
		for i, p := range payouts {
			rows[i] = []any{
				p.ID, p.LiquidationScenarioID, p.CompanyInvestorID, string(p.SecurityType), p.SecurityID,
				p.ShareClassName, p.NumberOfShares, p.PayoutAmountCents,
				p.LiquidationPreferenceAmount, p.ParticipationAmount, p.CommonProceedsAmount,
			}
		}

		_, err = tx.CopyFrom(ctx, pgx.Identifier{"liquidation_payouts"}, payoutColumns, pgx.CopyFromRows(rows))
		if err != nil {
			switch {
			case isDuplicateKeyError(err):
				return storage.ErrDuplicateKey
			case isConstraintError(err):
				return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
			}
			return fmt.Errorf("insert payouts: %w", err)
		}
		return nil
	})
}

// GetByScenarioID retrieves payouts of a scenario, ordered by investor id, security type, security id ASC.
func (s *PayoutStore) GetByScenarioID(ctx context.Context, scenarioID int64) ([]*domain.LiquidationPayout, error) {
	query := `
		SELECT id, liquidation_scenario_id, company_investor_id, security_type, security_id,
		       share_class_name, number_of_shares, payout_amount_cents,
		       liquidation_preference_amount, participation_amount, common_proceeds_amount
		FROM liquidation_payouts
		WHERE liquidation_scenario_id = $1
		ORDER BY company_investor_id ASC, security_type ASC, security_id ASC
	`

	rows, err := s.pool.Query(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("get payouts by scenario: %w", err)
	}
	defer rows.Close()

	payouts := []*domain.LiquidationPayout{}
	for rows.Next() {
		var p domain.LiquidationPayout
		var securityType string

		err := rows.Scan(
			&p.ID,
			&p.LiquidationScenarioID,
			&p.CompanyInvestorID,
			&securityType,
			&p.SecurityID,
			&p.ShareClassName,
			&p.NumberOfShares,
			&p.PayoutAmountCents,
			&p.LiquidationPreferenceAmount,
			&p.ParticipationAmount,
			&p.CommonProceedsAmount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payout row: %w", err)
		}

		p.SecurityType = domain.SecurityType(securityType)
		payouts = append(payouts, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payout rows: %w", err)
	}

	return payouts, nil
}
