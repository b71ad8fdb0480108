package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wallet-credit-score/internal/features"
	"github.com/yourorg/wallet-credit-score/internal/model"
)

func history(liq int, repay, redeem, freq, netGain float64) model.FeatureVector {
	return model.FeatureVector{
		Source:           model.SourceHistory,
		RepayRatio:       repay,
		RedeemRatio:      redeem,
		TxFrequency:      freq,
		NetGain:          netGain,
		LiquidationCount: liq,
	}
}

func snapshot(bts, repayment, util float64, liq int) model.FeatureVector {
	return model.FeatureVector{
		Source:              model.SourceSnapshot,
		BorrowToSupplyRatio: bts,
		RepaymentRatio:      repayment,
		AverageUtilization:  util,
		LiquidationCount:    liq,
	}
}

func TestHistory_Score(t *testing.T) {
	tests := []struct {
		name string
		f    model.FeatureVector
		want int
	}{
		// 1000 - 200 - 100 + 20 + 0.5 = 720.5
		{name: "deposit 1000 borrow 500", f: history(0, 0, 0, 2, 500), want: 721},
		{name: "perfect history is capped", f: history(0, 1, 1, 1, 0), want: 1000},
		{name: "one liquidation", f: history(1, 1, 1, 0, 0), want: 900},
		{name: "half repaid", f: history(0, 0.5, 1, 0, 0), want: 900},
		{name: "rounds to nearest", f: history(0, 1, 0.994, 0, 0), want: 999},
		{name: "many liquidations floor at zero", f: history(50, 1, 1, 0, 0), want: 0},
		{name: "huge negative net gain", f: history(0, 1, 1, 0, -1e12), want: 0},
		{name: "huge positive net gain", f: history(0, 0, 0, 0, 1e18), want: 1000},
		{name: "nan collapses to minimum", f: history(0, math.NaN(), 1, 0, 0), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, History{}.Score(tt.f))
		})
	}
}

func TestSnapshot_Score(t *testing.T) {
	tests := []struct {
		name string
		f    model.FeatureVector
		want int
	}{
		{name: "empty position", f: features.FromPositions(nil), want: 1000},
		{name: "over leveraged", f: snapshot(1.5, 1, 0.5, 0), want: 800},
		{name: "leverage exactly one is fine", f: snapshot(1, 1, 0.5, 0), want: 1000},
		{name: "poor repayment", f: snapshot(0.5, 0.79, 0.3, 0), want: 850},
		{name: "high utilization", f: snapshot(0.5, 1, 0.95, 0), want: 900},
		{name: "all penalties", f: snapshot(2, 0, 0.99, 2), want: 350},
		{name: "liquidations floor at zero", f: snapshot(0, 1, 0, 20), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Snapshot{}.Score(tt.f))
		})
	}
}

func TestScore_SelectsStrategy(t *testing.T) {
	got, err := Score(history(0, 0, 0, 2, 500))
	require.NoError(t, err)
	assert.Equal(t, 721, got)

	got, err = Score(snapshot(0, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1000, got)

	_, err = Score(model.FeatureVector{Source: "oracle"})
	assert.Error(t, err)

	s, err := ForSource(model.SourceHistory)
	require.NoError(t, err)
	assert.Equal(t, "history", s.Name())
	s, err = ForSource(model.SourceSnapshot)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", s.Name())
}

func TestScore_Bounds(t *testing.T) {
	ratios := []float64{-5, 0, 0.5, 0.8, 1, 3}
	extremes := []float64{-1e15, -1000, 0, 1000, 1e15}
	counts := []int{0, 1, 7, 1000}

	for _, liq := range counts {
		for _, r := range ratios {
			for _, e := range extremes {
				h := History{}.Score(history(liq, r, r, math.Abs(e), e))
				assert.GreaterOrEqual(t, h, MinScore)
				assert.LessOrEqual(t, h, MaxScore)

				s := Snapshot{}.Score(snapshot(r, r, r, liq))
				assert.GreaterOrEqual(t, s, MinScore)
				assert.LessOrEqual(t, s, MaxScore)
			}
		}
	}
}

func TestScore_Monotonicity(t *testing.T) {
	t.Run("history liquidations never increase score", func(t *testing.T) {
		prev := math.MaxInt
		for liq := 0; liq <= 12; liq++ {
			got := History{}.Score(history(liq, 0.7, 0.4, 1, 100))
			assert.LessOrEqual(t, got, prev)
			prev = got
		}
	})

	t.Run("history repay ratio never decreases score", func(t *testing.T) {
		prev := math.MinInt
		for r := 0.0; r <= 1.0; r += 0.05 {
			got := History{}.Score(history(1, r, 0.4, 0, 0))
			assert.GreaterOrEqual(t, got, prev)
			prev = got
		}
	})

	t.Run("history redeem ratio never decreases score", func(t *testing.T) {
		prev := math.MinInt
		for r := 0.0; r <= 1.0; r += 0.05 {
			got := History{}.Score(history(1, 0.3, r, 0, 0))
			assert.GreaterOrEqual(t, got, prev)
			prev = got
		}
	})

	t.Run("snapshot liquidations never increase score", func(t *testing.T) {
		prev := math.MaxInt
		for liq := 0; liq <= 12; liq++ {
			got := Snapshot{}.Score(snapshot(0.5, 0.9, 0.5, liq))
			assert.LessOrEqual(t, got, prev)
			prev = got
		}
	})

	t.Run("snapshot leverage and utilization never increase score", func(t *testing.T) {
		prev := math.MaxInt
		for x := 0.0; x <= 2.0; x += 0.1 {
			got := Snapshot{}.Score(snapshot(x, 1, x/2, 0))
			assert.LessOrEqual(t, got, prev)
			prev = got
		}
	})

	t.Run("snapshot repayment never decreases score", func(t *testing.T) {
		prev := math.MinInt
		for r := 0.0; r <= 1.0; r += 0.05 {
			got := Snapshot{}.Score(snapshot(0.5, r, 0.5, 0))
			assert.GreaterOrEqual(t, got, prev)
			prev = got
		}
	})
}

func TestScore_Idempotent(t *testing.T) {
	f := history(2, 0.31, 0.77, 3.4, -12345.6)
	first := History{}.Score(f)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, History{}.Score(f))
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-10))
	assert.Equal(t, 1000, Clamp(1001))
	assert.Equal(t, 512, Clamp(512))
}
