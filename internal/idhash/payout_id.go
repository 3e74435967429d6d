package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"flexile-liquidation/internal/domain"
)

// ComputePayoutID computes a deterministic payout id using SHA256.
// Formula: SHA256(scenario_id|investor_id|security_type|security_id)
// Returns the base58-encoded hash.
//
// Recomputing a scenario yields the same ids, so stored payouts can be
// replaced and compared row by row.
func ComputePayoutID(
	scenarioID int64,
	investorID int64,
	securityType domain.SecurityType,
	securityID int64,
) string {
	data := fmt.Sprintf("%d|%d|%s|%d",
		scenarioID,
		investorID,
		string(securityType),
		securityID,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
