package liquidation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage/memory"
	"flexile-liquidation/internal/waterfall"
)

func computeTest(t *testing.T, exitCents int64) *waterfall.Distribution {
	t.Helper()
	d, err := waterfall.Compute(waterfall.Input{
		CapTable:        testCapTable(),
		ExitAmountCents: exitCents,
		ValuationDate:   testNow,
	})
	require.NoError(t, err)
	return d
}

func TestBuildPayouts(t *testing.T) {
	d := computeTest(t, 150_00)

	payouts := BuildPayouts(10, d)
	require.Len(t, payouts, 2)
	for _, p := range payouts {
		assert.Equal(t, int64(10), p.LiquidationScenarioID)
		assert.Equal(t, domain.SecurityTypeEquity, p.SecurityType)
		assert.NotEmpty(t, p.ID)
	}
	assert.Equal(t, "Common", payouts[1].ShareClassName)
	assert.NoError(t, CheckPayouts(payouts, d))
}

func TestBuildPayouts_ZeroPayoutRowsKept(t *testing.T) {
	d := computeTest(t, 50_00)

	payouts := BuildPayouts(10, d)
	require.Len(t, payouts, 2)
	assert.Equal(t, int64(50_00), payouts[0].PayoutAmountCents)
	assert.Zero(t, payouts[1].PayoutAmountCents)
}

func TestCheckPayouts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]*domain.LiquidationPayout)
	}{
		{"negative amount", func(p []*domain.LiquidationPayout) {
			p[1].CommonProceedsAmount = -1
			p[1].PayoutAmountCents = p[1].LiquidationPreferenceAmount + p[1].ParticipationAmount - 1
		}},
		{"total differs from breakdown", func(p []*domain.LiquidationPayout) {
			p[0].PayoutAmountCents++
		}},
		{"duplicate id", func(p []*domain.LiquidationPayout) {
			p[1].ID = p[0].ID
		}},
		{"sum differs from distributed", func(p []*domain.LiquidationPayout) {
			p[0].PayoutAmountCents++
			p[0].LiquidationPreferenceAmount++
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := computeTest(t, 150_00)
			payouts := BuildPayouts(10, d)
			tt.mutate(payouts)
			assert.ErrorIs(t, CheckPayouts(payouts, d), ErrRecordInvariant)
		})
	}
}

func TestCheckPayouts_UnbalancedDistribution(t *testing.T) {
	d := computeTest(t, 150_00)
	payouts := BuildPayouts(10, d)
	d.ExitAmountCents++

	assert.ErrorIs(t, CheckPayouts(payouts, d), ErrRecordInvariant)
}

func TestRecorder_Record(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPayoutStore()
	rec := NewRecorder(store)
	scenario := &domain.LiquidationScenario{ID: 10, CompanyID: testCompanyID}

	_, err := rec.Record(ctx, scenario, computeTest(t, 150_00))
	require.NoError(t, err)

	written, err := rec.Record(ctx, scenario, computeTest(t, 60_00))
	require.NoError(t, err)

	stored, err := store.GetByScenarioID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, written, stored)
	assert.Equal(t, int64(60_00), stored[0].PayoutAmountCents)
}

func TestRecorder_RecordRejectsBrokenDistribution(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPayoutStore()
	rec := NewRecorder(store)
	scenario := &domain.LiquidationScenario{ID: 10, CompanyID: testCompanyID}

	d := computeTest(t, 150_00)
	d.DistributedCents--

	_, err := rec.Record(ctx, scenario, d)
	require.ErrorIs(t, err, ErrRecordInvariant)

	stored, err := store.GetByScenarioID(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
