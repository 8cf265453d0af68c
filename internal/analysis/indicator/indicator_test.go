package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/market"
)

// synthCandles builds candles from a close series; highs and lows hug the close.
func synthCandles(closes []float64, volume float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			OpenTime: int64(i) * 60_000,
			Open:     c,
			High:     c * 1.01,
			Low:      c * 0.99,
			Close:    c,
			Volume:   volume,
		}
	}
	return out
}

func rampCloses(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestRSISignals(t *testing.T) {
	// Monotonically rising closes drive RSI toward 100.
	rising := synthCandles(rampCloses(100, 1, 60), 10)
	rep, err := RSI("BTC/USD", "1Hour", rising, 14)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USD", rep.Symbol)
	assert.Equal(t, 14, rep.Period)
	assert.Equal(t, "overbought", rep.Signal)
	assert.GreaterOrEqual(t, rep.Latest, 70.0)
	assert.LessOrEqual(t, rep.Latest, 100.0)

	falling := synthCandles(rampCloses(200, -1, 60), 10)
	rep, err = RSI("BTC/USD", "1Hour", falling, 14)
	require.NoError(t, err)
	assert.Equal(t, "oversold", rep.Signal)
	assert.LessOrEqual(t, rep.Latest, 30.0)
}

func TestRSIRejectsShortSeries(t *testing.T) {
	_, err := RSI("BTC/USD", "1Hour", synthCandles(rampCloses(100, 1, 10), 10), 14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RSI")
}

func TestMACDTrend(t *testing.T) {
	rising := synthCandles(rampCloses(100, 2, 80), 10)
	rep, err := MACD("ETH/USD", "1Hour", rising)
	require.NoError(t, err)
	assert.Equal(t, "bullish", rep.Trend)
	assert.Greater(t, rep.MACD, 0.0)

	falling := synthCandles(rampCloses(500, -2, 80), 10)
	rep, err = MACD("ETH/USD", "1Hour", falling)
	require.NoError(t, err)
	assert.Equal(t, "bearish", rep.Trend)

	_, err = MACD("ETH/USD", "1Hour", synthCandles(rampCloses(100, 1, 20), 10))
	require.Error(t, err)
}

func TestMovingAverages(t *testing.T) {
	candles := synthCandles(rampCloses(100, 1, 250), 10)
	rep, err := MovingAverages("BTC/USD", "1Day", candles, []int{20, 50, 200})
	require.NoError(t, err)
	require.Len(t, rep.Averages, 3)
	assert.Equal(t, 349.0, rep.Price)
	for _, entry := range rep.Averages {
		// On a rising ramp the last close sits above every trailing average.
		assert.True(t, entry.PriceAbove, "period %d", entry.Period)
		assert.Greater(t, entry.SMA, 0.0)
		assert.Greater(t, entry.EMA, 0.0)
	}
	// SMA(20) of the last 20 closes (330..349) is 339.5.
	assert.InDelta(t, 339.5, rep.Averages[0].SMA, 0.01)
}

func TestMovingAveragesSkipsOversizedPeriods(t *testing.T) {
	candles := synthCandles(rampCloses(100, 1, 30), 10)
	rep, err := MovingAverages("BTC/USD", "1Day", candles, []int{20, 200})
	require.NoError(t, err)
	require.Len(t, rep.Averages, 1)
	assert.Equal(t, 20, rep.Averages[0].Period)

	_, err = MovingAverages("BTC/USD", "1Day", candles, []int{200})
	require.Error(t, err)
}

func TestBollingerPosition(t *testing.T) {
	// Flat series then a spike: price ends far above the upper band.
	closes := rampCloses(100, 0, 40)
	closes[len(closes)-1] = 120
	rep, err := Bollinger("BTC/USD", "1Hour", synthCandles(closes, 10), 20, 2)
	require.NoError(t, err)
	assert.Equal(t, "above_upper", rep.Position)
	assert.Greater(t, rep.Upper, rep.Middle)
	assert.Greater(t, rep.Middle, rep.Lower)
	assert.Greater(t, rep.Bandwidth, 0.0)

	closes[len(closes)-1] = 80
	rep, err = Bollinger("BTC/USD", "1Hour", synthCandles(closes, 10), 20, 2)
	require.NoError(t, err)
	assert.Equal(t, "below_lower", rep.Position)

	_, err = Bollinger("BTC/USD", "1Hour", synthCandles(rampCloses(100, 0, 5), 10), 20, 2)
	require.Error(t, err)
}

func TestMomentumDirectionAndVolume(t *testing.T) {
	up := synthCandles(rampCloses(100, 1, 30), 10)
	// Volume doubles in the recent half of the window.
	for i := len(up) - 10; i < len(up); i++ {
		up[i].Volume = 30
	}
	rep, err := Momentum("SOL/USD", "1Hour", up, 20)
	require.NoError(t, err)
	assert.Equal(t, "up", rep.Direction)
	assert.Greater(t, rep.ChangePct, 0.5)
	assert.Equal(t, "rising", rep.VolumeTrend)

	down := synthCandles(rampCloses(200, -1, 30), 10)
	rep, err = Momentum("SOL/USD", "1Hour", down, 20)
	require.NoError(t, err)
	assert.Equal(t, "down", rep.Direction)
	assert.Equal(t, "steady", rep.VolumeTrend)

	flat := synthCandles(rampCloses(100, 0, 30), 10)
	rep, err = Momentum("SOL/USD", "1Hour", flat, 20)
	require.NoError(t, err)
	assert.Equal(t, "flat", rep.Direction)
	assert.Equal(t, 0.0, rep.ChangePct)

	_, err = Momentum("SOL/USD", "1Hour", flat[:5], 20)
	require.Error(t, err)
}

func TestSupportResistanceLevels(t *testing.T) {
	// Price oscillates around 100; the last close sits mid-range.
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/3)
	}
	closes[len(closes)-1] = 100
	rep, err := SupportResistance("BTC/USD", "1Day", synthCandles(closes, 10), 50)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rep.Price)
	require.NotEmpty(t, rep.Resistance)
	require.NotEmpty(t, rep.Support)
	assert.LessOrEqual(t, len(rep.Resistance), 3)
	assert.LessOrEqual(t, len(rep.Support), 3)
	for _, r := range rep.Resistance {
		assert.Greater(t, r, rep.Price)
	}
	for _, s := range rep.Support {
		assert.Less(t, s, rep.Price)
	}
	// Kept levels are at least 0.5% apart.
	for i := 1; i < len(rep.Resistance); i++ {
		gap := math.Abs(rep.Resistance[i]-rep.Resistance[i-1]) / rep.Resistance[i-1]
		assert.GreaterOrEqual(t, gap, 0.005)
	}
}

func TestSupportResistanceEmptyInput(t *testing.T) {
	_, err := SupportResistance("BTC/USD", "1Day", nil, 50)
	require.Error(t, err)
}
