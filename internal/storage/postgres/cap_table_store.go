package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage"
)

// CapTableStore implements storage.CapTableStore using PostgreSQL.
type CapTableStore struct {
	pool *Pool
}

// NewCapTableStore creates a new CapTableStore.
func NewCapTableStore(pool *Pool) *CapTableStore {
	return &CapTableStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CapTableStore = (*CapTableStore)(nil)

// snapshotTx reads every table of the cap table from one consistent snapshot.
var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// LoadCapTable returns a snapshot of the company's security model.
// Returns ErrNotFound if the company does not exist.
func (s *CapTableStore) LoadCapTable(ctx context.Context, companyID int64) (*domain.CapTable, error) {
	ct := &domain.CapTable{}

	err := s.pool.inTx(ctx, snapshotTx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT id, name, fully_diluted_shares FROM companies WHERE id = $1`, companyID,
		).Scan(&ct.Company.ID, &ct.Company.Name, &ct.Company.FullyDilutedShares)
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("get company: %w", err)
		}

		loaders := []func(context.Context, pgx.Tx, int64, *domain.CapTable) error{
			loadInvestors,
			loadShareClasses,
			loadShareHoldings,
			loadConvertibleInvestments,
			loadConvertibleSecurities,
			loadOptionPools,
		}
		for _, load := range loaders {
			if err := load(ctx, tx, companyID, ct); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ct, nil
}

func loadInvestors(ctx context.Context, tx pgx.Tx, companyID int64, ct *domain.CapTable) error {
	rows, err := tx.Query(ctx, `
		SELECT id, company_id, name
		FROM company_investors
		WHERE company_id = $1
		ORDER BY id ASC
	`, companyID)
	if err != nil {
		return fmt.Errorf("get investors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var inv domain.CompanyInvestor
		if err := rows.Scan(&inv.ID, &inv.CompanyID, &inv.Name); err != nil {
			return fmt.Errorf("scan investor row: %w", err)
		}
		ct.Investors = append(ct.Investors, &inv)
	}
	return rows.Err()
}

func loadShareClasses(ctx context.Context, tx pgx.Tx, companyID int64, ct *domain.CapTable) error {
	rows, err := tx.Query(ctx, `
		SELECT id, company_id, name, preferred, original_issue_price, liquidation_preference_multiple,
		       participating, participation_cap_multiple, seniority_rank, created_at
		FROM share_classes
		WHERE company_id = $1
		ORDER BY id ASC
	`, companyID)
	if err != nil {
		return fmt.Errorf("get share classes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc domain.ShareClass
		var capMultiple decimal.NullDecimal
		err := rows.Scan(
			&sc.ID, &sc.CompanyID, &sc.Name, &sc.Preferred, &sc.OriginalIssuePrice, &sc.LiquidationPreferenceMultiple,
			&sc.Participating, &capMultiple, &sc.SeniorityRank, &sc.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("scan share class row: %w", err)
		}
		sc.ParticipationCapMultiple = decimalPtr(capMultiple)
		ct.ShareClasses = append(ct.ShareClasses, &sc)
	}
	return rows.Err()
}

func loadShareHoldings(ctx context.Context, tx pgx.Tx, companyID int64, ct *domain.CapTable) error {
	rows, err := tx.Query(ctx, `
		SELECT h.id, h.company_investor_id, h.share_class_id, h.number_of_shares
		FROM share_holdings h
		JOIN share_classes c ON c.id = h.share_class_id
		WHERE c.company_id = $1
		ORDER BY h.id ASC
	`, companyID)
	if err != nil {
		return fmt.Errorf("get share holdings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h domain.ShareHolding
		if err := rows.Scan(&h.ID, &h.CompanyInvestorID, &h.ShareClassID, &h.NumberOfShares); err != nil {
			return fmt.Errorf("scan share holding row: %w", err)
		}
		ct.ShareHoldings = append(ct.ShareHoldings, &h)
	}
	return rows.Err()
}

func loadConvertibleInvestments(ctx context.Context, tx pgx.Tx, companyID int64, ct *domain.CapTable) error {
	rows, err := tx.Query(ctx, `
		SELECT id, company_id, entity_name, convertible_type, issued_at
		FROM convertible_investments
		WHERE company_id = $1
		ORDER BY id ASC
	`, companyID)
	if err != nil {
		return fmt.Errorf("get convertible investments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ci domain.ConvertibleInvestment
		if err := rows.Scan(&ci.ID, &ci.CompanyID, &ci.EntityName, &ci.ConvertibleType, &ci.IssuedAt); err != nil {
			return fmt.Errorf("scan convertible investment row: %w", err)
		}
		ct.ConvertibleInvestments = append(ct.ConvertibleInvestments, &ci)
	}
	return rows.Err()
}

func loadConvertibleSecurities(ctx context.Context, tx pgx.Tx, companyID int64, ct *domain.CapTable) error {
	rows, err := tx.Query(ctx, `
		SELECT s.id, s.convertible_investment_id, s.company_investor_id, s.principal_value_cents,
		       s.implied_shares, s.valuation_cap_cents, s.discount_rate_percent, s.interest_rate_percent,
		       s.issued_at, s.maturity_date
		FROM convertible_securities s
		JOIN convertible_investments i ON i.id = s.convertible_investment_id
		WHERE i.company_id = $1
		ORDER BY s.id ASC
	`, companyID)
	if err != nil {
		return fmt.Errorf("get convertible securities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cs domain.ConvertibleSecurity
		var discount, interest decimal.NullDecimal
		err := rows.Scan(
			&cs.ID, &cs.ConvertibleInvestmentID, &cs.CompanyInvestorID, &cs.PrincipalValueCents,
			&cs.ImpliedShares, &cs.ValuationCapCents, &discount, &interest,
			&cs.IssuedAt, &cs.MaturityDate,
		)
		if err != nil {
			return fmt.Errorf("scan convertible security row: %w", err)
		}
		cs.DiscountRatePercent = decimalPtr(discount)
		cs.InterestRatePercent = decimalPtr(interest)
		ct.ConvertibleSecurities = append(ct.ConvertibleSecurities, &cs)
	}
	return rows.Err()
}

func loadOptionPools(ctx context.Context, tx pgx.Tx, companyID int64, ct *domain.CapTable) error {
	rows, err := tx.Query(ctx, `
		SELECT id, company_id, name, authorized_shares, issued_shares, available_shares
		FROM option_pools
		WHERE company_id = $1
		ORDER BY id ASC
	`, companyID)
	if err != nil {
		return fmt.Errorf("get option pools: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.OptionPool
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.AuthorizedShares, &p.IssuedShares, &p.AvailableShares); err != nil {
			return fmt.Errorf("scan option pool row: %w", err)
		}
		ct.OptionPools = append(ct.OptionPools, &p)
	}
	return rows.Err()
}

// SaveCapTable inserts every record of the snapshot in one transaction.
// Returns ErrDuplicateKey if any id exists; nothing is written in that case.
func (s *CapTableStore) SaveCapTable(ctx context.Context, ct *domain.CapTable) error {
	if ct == nil || ct.Company.ID == 0 {
		return storage.ErrInvalidInput
	}

	err := s.pool.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}

		batch.Queue(`INSERT INTO companies (id, name, fully_diluted_shares) VALUES ($1, $2, $3)`,
			ct.Company.ID, ct.Company.Name, ct.Company.FullyDilutedShares)

		for _, inv := range ct.Investors {
			batch.Queue(`INSERT INTO company_investors (id, company_id, name) VALUES ($1, $2, $3)`,
				inv.ID, inv.CompanyID, inv.Name)
		}
		for _, sc := range ct.ShareClasses {
			multiple := sc.PreferenceMultiple()
			batch.Queue(`
				INSERT INTO share_classes (
					id, company_id, name, preferred, original_issue_price, liquidation_preference_multiple,
					participating, participation_cap_multiple, seniority_rank, created_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				sc.ID, sc.CompanyID, sc.Name, sc.Preferred, sc.OriginalIssuePrice, multiple,
				sc.Participating, nullDecimal(sc.ParticipationCapMultiple), sc.SeniorityRank, sc.CreatedAt)
		}
		for _, h := range ct.ShareHoldings {
			batch.Queue(`
				INSERT INTO share_holdings (id, company_investor_id, share_class_id, number_of_shares)
				VALUES ($1, $2, $3, $4)`,
				h.ID, h.CompanyInvestorID, h.ShareClassID, h.NumberOfShares)
		}
		for _, ci := range ct.ConvertibleInvestments {
			batch.Queue(`
				INSERT INTO convertible_investments (id, company_id, entity_name, convertible_type, issued_at)
				VALUES ($1, $2, $3, $4, $5)`,
				ci.ID, ci.CompanyID, ci.EntityName, ci.ConvertibleType, ci.IssuedAt)
		}
		for _, cs := range ct.ConvertibleSecurities {
			batch.Queue(`
				INSERT INTO convertible_securities (
					id, convertible_investment_id, company_investor_id, principal_value_cents,
					implied_shares, valuation_cap_cents, discount_rate_percent, interest_rate_percent,
					issued_at, maturity_date
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				cs.ID, cs.ConvertibleInvestmentID, cs.CompanyInvestorID, cs.PrincipalValueCents,
				cs.ImpliedShares, cs.ValuationCapCents, nullDecimal(cs.DiscountRatePercent), nullDecimal(cs.InterestRatePercent),
				cs.IssuedAt, cs.MaturityDate)
		}
		for _, p := range ct.OptionPools {
			batch.Queue(`
				INSERT INTO option_pools (id, company_id, name, authorized_shares, issued_shares, available_shares)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				p.ID, p.CompanyID, p.Name, p.AuthorizedShares, p.IssuedShares, p.AvailableShares)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			switch {
			case isDuplicateKeyError(err):
				return storage.ErrDuplicateKey
			case isConstraintError(err):
				return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
			}
			return fmt.Errorf("insert cap table: %w", err)
		}
		return nil
	})
	return err
}
