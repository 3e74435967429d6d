package waterfall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccruedInterestCents(t *testing.T) {
	sec := convertible(1, 1, 10_000_00, 100)
	sec.InterestRatePercent = decPtr("10")

	t.Run("one year", func(t *testing.T) {
		assert.Equal(t, int64(1_000_00), AccruedInterestCents(sec, baseTime.AddDate(0, 0, 365)))
	})

	t.Run("stops at maturity", func(t *testing.T) {
		s := *sec
		maturity := baseTime.AddDate(0, 0, 73)
		s.MaturityDate = &maturity
		assert.Equal(t, int64(200_00), AccruedInterestCents(&s, baseTime.AddDate(2, 0, 0)))
	})

	t.Run("valuation before issue", func(t *testing.T) {
		assert.Zero(t, AccruedInterestCents(sec, baseTime.AddDate(0, 0, -10)))
	})

	t.Run("no rate", func(t *testing.T) {
		assert.Zero(t, AccruedInterestCents(convertible(2, 1, 10_000_00, 100), baseTime.AddDate(1, 0, 0)))
	})

	t.Run("counts calendar days", func(t *testing.T) {
		s := *sec
		s.IssuedAt = time.Date(2020, 1, 1, 23, 0, 0, 0, time.UTC)
		assert.Equal(t, int64(2_74), AccruedInterestCents(&s, time.Date(2020, 1, 2, 1, 0, 0, 0, time.UTC)))
	})
}

func TestResolveTerms(t *testing.T) {
	t.Run("round price", func(t *testing.T) {
		terms := ResolveTerms(convertible(1, 1, 10_000_00, 100), 1_000, baseTime)
		assert.Equal(t, PriceSourceRound, terms.PriceSource)
		assert.Equal(t, int64(100), terms.ConvertedShares)
		assert.True(t, terms.ConversionPrice.Equal(dec("100")))
	})

	t.Run("discount", func(t *testing.T) {
		sec := convertible(1, 1, 10_000_00, 100)
		sec.DiscountRatePercent = decPtr("20")
		terms := ResolveTerms(sec, 1_000, baseTime)
		assert.Equal(t, PriceSourceDiscount, terms.PriceSource)
		assert.Equal(t, int64(125), terms.ConvertedShares)
		assert.True(t, terms.ConversionPrice.Equal(dec("80")))
	})

	t.Run("cap beats discount", func(t *testing.T) {
		sec := convertible(1, 1, 10_000_00, 100)
		sec.DiscountRatePercent = decPtr("20")
		sec.ValuationCapCents = int64Ptr(5_000_00)
		terms := ResolveTerms(sec, 100, baseTime)
		assert.Equal(t, PriceSourceCap, terms.PriceSource)
		assert.Equal(t, int64(200), terms.ConvertedShares)
	})

	t.Run("interest converts too", func(t *testing.T) {
		sec := convertible(1, 1, 10_000_00, 100)
		sec.InterestRatePercent = decPtr("10")
		terms := ResolveTerms(sec, 1_000, baseTime.AddDate(0, 0, 365))
		assert.Equal(t, int64(11_000_00), terms.CashValueCents)
		assert.Equal(t, int64(110), terms.ConvertedShares)
	})

	t.Run("fractional shares floored", func(t *testing.T) {
		terms := ResolveTerms(convertible(1, 1, 3_00, 2), 1_000, baseTime)
		assert.Equal(t, int64(2), terms.ConvertedShares)

		sec := convertible(2, 1, 10_00, 1)
		sec.DiscountRatePercent = decPtr("30")
		terms = ResolveTerms(sec, 1_000, baseTime)
		assert.Equal(t, int64(1), terms.ConvertedShares)
	})

	t.Run("no conversion terms", func(t *testing.T) {
		terms := ResolveTerms(convertible(1, 1, 10_000_00, 0), 1_000, baseTime)
		assert.False(t, terms.Convertible())
		assert.Equal(t, PriceSourceNone, terms.PriceSource)
		assert.True(t, terms.ConversionPrice.IsZero())
	})
}

func TestResolveConversions_MutualDilution(t *testing.T) {
	equity, err := buildEquityClaims(capTable(nil, nil))
	require.NoError(t, err)
	// Converting gives each 1/2 of the exit against 10k cash.
	terms := []*ConvertibleTerms{
		ResolveTerms(convertible(1, 1, 10_000_00, 100), 200, baseTime),
		ResolveTerms(convertible(2, 2, 10_000_00, 100), 200, baseTime),
	}

	decisions, passes, converged, err := resolveConversions(equity, terms, 30_000_00)
	require.NoError(t, err)

	assert.True(t, converged)
	assert.LessOrEqual(t, passes, 5)
	for _, d := range decisions {
		assert.True(t, d.Converted)
		assert.Equal(t, int64(15_000_00), d.AsConvertedCents)
		assert.Equal(t, int64(10_000_00), d.RedemptionCents)
	}
}

func TestResolveConversions_NoConvertibles(t *testing.T) {
	decisions, passes, converged, err := resolveConversions(nil, nil, 100)
	require.NoError(t, err)
	assert.Empty(t, decisions)
	assert.Zero(t, passes)
	assert.True(t, converged)
}
