package domain

// SecurityType identifies the kind of security a payout belongs to.
type SecurityType string

// Security types
const (
	SecurityTypeEquity      SecurityType = "equity"
	SecurityTypeConvertible SecurityType = "convertible"
)

// LiquidationPayout is the output record, one per (investor, security) pair.
// Corresponds to liquidation_payouts table.
//
// PayoutAmountCents == LiquidationPreferenceAmount + ParticipationAmount + CommonProceedsAmount.
type LiquidationPayout struct {
	ID                    string // deterministic, see idhash.ComputePayoutID
	LiquidationScenarioID int64
	CompanyInvestorID     int64
	SecurityType          SecurityType
	SecurityID            int64  // share class id (equity) or convertible security id
	ShareClassName        string // empty for convertibles
	NumberOfShares        int64  // shares held, or as-converted shares

	PayoutAmountCents           int64
	LiquidationPreferenceAmount int64 // cents
	ParticipationAmount         int64 // cents, preferred participation
	CommonProceedsAmount        int64 // cents, common / as-converted distribution
}
