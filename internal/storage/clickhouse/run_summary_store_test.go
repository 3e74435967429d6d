package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage"
)

func TestRunSummaryStore_InsertAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunSummaryStore(conn)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &domain.RunSummary{
		RunID:               "run-1",
		ScenarioID:          7,
		CompanyID:           1,
		ExitAmountCents:     40_000_00,
		DistributedCents:    40_000_00,
		PayoutCount:         2,
		TierCount:           0,
		ConvertedCount:      1,
		ConversionPasses:    1,
		ConversionConverged: true,
		DurationMs:          3,
		ComputedAt:          base,
	}
	second := &domain.RunSummary{
		RunID:            "run-2",
		ScenarioID:       7,
		CompanyID:        1,
		ExitAmountCents:  12_000_00,
		DistributedCents: 12_000_00,
		PayoutCount:      2,
		TierCount:        1,
		RedeemedCount:    1,
		ConversionPasses: 2,
		ComputedAt:       base.Add(time.Second),
	}

	require.NoError(t, store.Insert(ctx, second))
	require.NoError(t, store.Insert(ctx, first))

	got, err := store.GetByScenarioID(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "run-1", got[0].RunID)
	assert.True(t, got[0].ConversionConverged)
	assert.Equal(t, 1, got[0].ConvertedCount)
	assert.True(t, base.Equal(got[0].ComputedAt))

	assert.Equal(t, "run-2", got[1].RunID)
	assert.False(t, got[1].ConversionConverged)
	assert.Equal(t, 1, got[1].TierCount)

	byCompany, err := store.GetByCompanyID(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, byCompany, 2)
}

func TestRunSummaryStore_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunSummaryStore(conn)
	r := &domain.RunSummary{RunID: "run-dup", ScenarioID: 1, CompanyID: 1, ComputedAt: time.Now()}

	require.NoError(t, store.Insert(ctx, r))
	assert.ErrorIs(t, store.Insert(ctx, r), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, &domain.RunSummary{}), storage.ErrInvalidInput)
}
