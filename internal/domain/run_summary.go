package domain

import "time"

// RunSummary is the analytics record of one waterfall run.
// Corresponds to liquidation_runs table in ClickHouse (append-only).
type RunSummary struct {
	RunID           string // uuid
	ScenarioID      int64  // zero for previews
	CompanyID       int64
	ExitAmountCents int64

	DistributedCents   int64
	UndistributedCents int64
	PayoutCount        int
	TierCount          int

	ConvertedCount      int
	RedeemedCount       int
	ConversionPasses    int
	ConversionConverged bool

	DurationMs int64
	ComputedAt time.Time
}
