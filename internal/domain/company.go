package domain

// Company is the issuer whose capital structure is being distributed.
// Corresponds to companies table in PostgreSQL.
type Company struct {
	ID                 int64
	Name               string
	FullyDilutedShares *int64 // recorded fully-diluted total (nullable)
}

// CompanyInvestor is a holder of securities in a company.
// Corresponds to company_investors table.
type CompanyInvestor struct {
	ID        int64
	CompanyID int64
	Name      string
}

// OptionPool is an equity incentive reservation.
// Only counted for fully-diluted share totals; options do not receive payouts.
type OptionPool struct {
	ID               int64
	CompanyID        int64
	Name             string
	AuthorizedShares int64 // total reserved by the board
	IssuedShares     int64 // granted and outstanding
	AvailableShares  int64 // not yet granted
}

// FullyDilutedShares returns the pool's contribution to the fully-diluted share count.
func (p *OptionPool) FullyDilutedShares() int64 {
	return p.IssuedShares + p.AvailableShares
}
