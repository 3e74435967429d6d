package liquidation

import (
	"sort"
	"time"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/waterfall"
)

// NewRunSummary builds the analytics record of one computed distribution.
// scenarioID is zero for previews.
func NewRunSummary(runID string, scenarioID, companyID int64, d *waterfall.Distribution, duration time.Duration, computedAt time.Time) *domain.RunSummary {
	converted, redeemed := conversionCounts(d)
	return &domain.RunSummary{
		RunID:               runID,
		ScenarioID:          scenarioID,
		CompanyID:           companyID,
		ExitAmountCents:     d.ExitAmountCents,
		DistributedCents:    d.DistributedCents,
		UndistributedCents:  d.UndistributedCents,
		PayoutCount:         len(d.Payouts),
		TierCount:           len(d.Tiers),
		ConvertedCount:      converted,
		RedeemedCount:       redeemed,
		ConversionPasses:    d.ConversionPasses,
		ConversionConverged: d.ConversionConverged,
		DurationMs:          duration.Milliseconds(),
		ComputedAt:          computedAt.UTC(),
	}
}

func conversionCounts(d *waterfall.Distribution) (converted, redeemed int) {
	for _, c := range d.Conversions {
		if c.Converted {
			converted++
		} else {
			redeemed++
		}
	}
	return converted, redeemed
}

// RunStats aggregates the run summaries of one company.
type RunStats struct {
	CompanyID          int64
	Runs               int
	Scenarios          int
	NonConverged       int
	TotalDistributed   int64
	TotalUndistributed int64
	MeanDurationMs     float64
	MaxDurationMs      int64
	LatestByScenario   []*domain.RunSummary // ordered by scenario id
}

// AggregateRuns summarizes run history. Previews (scenario id zero) count as
// runs but are left out of LatestByScenario.
func AggregateRuns(companyID int64, summaries []*domain.RunSummary) *RunStats {
	stats := &RunStats{CompanyID: companyID}
	if len(summaries) == 0 {
		return stats
	}

	latest := make(map[int64]*domain.RunSummary)
	var totalDuration int64
	for _, s := range summaries {
		stats.Runs++
		stats.TotalDistributed += s.DistributedCents
		stats.TotalUndistributed += s.UndistributedCents
		totalDuration += s.DurationMs
		if s.DurationMs > stats.MaxDurationMs {
			stats.MaxDurationMs = s.DurationMs
		}
		if !s.ConversionConverged {
			stats.NonConverged++
		}
		if s.ScenarioID == 0 {
			continue
		}
		if prev, ok := latest[s.ScenarioID]; !ok || !s.ComputedAt.Before(prev.ComputedAt) {
			latest[s.ScenarioID] = s
		}
	}
	stats.MeanDurationMs = float64(totalDuration) / float64(stats.Runs)
	stats.Scenarios = len(latest)

	stats.LatestByScenario = make([]*domain.RunSummary, 0, len(latest))
	for _, s := range latest {
		stats.LatestByScenario = append(stats.LatestByScenario, s)
	}
	sort.Slice(stats.LatestByScenario, func(i, j int) bool {
		return stats.LatestByScenario[i].ScenarioID < stats.LatestByScenario[j].ScenarioID
	})
	return stats
}
