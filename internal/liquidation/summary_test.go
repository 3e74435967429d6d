package liquidation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexile-liquidation/internal/domain"
)

func TestNewRunSummary(t *testing.T) {
	d := computeTest(t, 150_00)
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))

	s := NewRunSummary("run-1", 10, testCompanyID, d, 1500*time.Microsecond, at)

	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, int64(150_00), s.ExitAmountCents)
	assert.Equal(t, int64(150_00), s.DistributedCents)
	assert.Equal(t, 2, s.PayoutCount)
	assert.Equal(t, 1, s.TierCount)
	assert.Zero(t, s.ConvertedCount)
	assert.True(t, s.ConversionConverged)
	assert.Equal(t, int64(1), s.DurationMs)
	assert.Equal(t, time.UTC, s.ComputedAt.Location())
}

func TestAggregateRuns(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	summaries := []*domain.RunSummary{
		{RunID: "a", ScenarioID: 2, DistributedCents: 100, DurationMs: 4, ConversionConverged: true, ComputedAt: base},
		{RunID: "b", ScenarioID: 1, DistributedCents: 200, DurationMs: 2, ConversionConverged: true, ComputedAt: base.Add(time.Minute)},
		{RunID: "c", ScenarioID: 2, DistributedCents: 300, UndistributedCents: 5, DurationMs: 6, ComputedAt: base.Add(2 * time.Minute)},
		{RunID: "preview", DistributedCents: 50, DurationMs: 0, ConversionConverged: true, ComputedAt: base.Add(3 * time.Minute)},
	}

	stats := AggregateRuns(testCompanyID, summaries)

	assert.Equal(t, 4, stats.Runs)
	assert.Equal(t, 2, stats.Scenarios)
	assert.Equal(t, 1, stats.NonConverged)
	assert.Equal(t, int64(650), stats.TotalDistributed)
	assert.Equal(t, int64(5), stats.TotalUndistributed)
	assert.Equal(t, 3.0, stats.MeanDurationMs)
	assert.Equal(t, int64(6), stats.MaxDurationMs)

	require.Len(t, stats.LatestByScenario, 2)
	assert.Equal(t, "b", stats.LatestByScenario[0].RunID)
	assert.Equal(t, "c", stats.LatestByScenario[1].RunID)
}

func TestAggregateRuns_Empty(t *testing.T) {
	stats := AggregateRuns(testCompanyID, nil)
	assert.Zero(t, stats.Runs)
	assert.Empty(t, stats.LatestByScenario)
}
