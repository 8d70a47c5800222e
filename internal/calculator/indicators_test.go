package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/market-analysis/internal/model"
)

func candlesFromCloses(closes ...float64) []model.Candle {
	candles := make([]model.Candle, len(closes))
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = model.Candle{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   c * 0.999,
			High:   c * 1.004,
			Low:    c * 0.996,
			Close:  c,
			Volume: 1000,
		}
	}
	return candles
}

func TestRSIBullishSeries(t *testing.T) {
	prices := []float64{44, 44.5, 43, 44.25, 44.5, 43.75, 44.65, 45.12, 45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.0}
	rsi := RSI(prices, 14)
	assert.Greater(t, rsi, 60.0)
	assert.Less(t, rsi, 75.0)
}

func TestRSIBounds(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"insufficient data returns neutral", []float64{1, 2, 3}, 50},
		{"empty series returns neutral", nil, 50},
		{
			"all gains returns 100",
			[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
			100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RSI(tt.prices, 14))
		})
	}
}

func TestRSIAlwaysInRange(t *testing.T) {
	series := [][]float64{
		{5, 4, 3, 2, 1, 2, 3, 2, 1, 2, 3, 4, 3, 2, 1},
		{100, 101, 99, 98, 102, 103, 101, 100, 99, 104, 105, 103, 102, 106, 104},
		{1.08, 1.081, 1.079, 1.082, 1.080, 1.083, 1.085, 1.084, 1.086, 1.085, 1.087, 1.088, 1.086, 1.089, 1.090},
	}
	for _, prices := range series {
		rsi := RSI(prices, 14)
		assert.GreaterOrEqual(t, rsi, 0.0)
		assert.LessOrEqual(t, rsi, 100.0)
	}
}

func TestEMA(t *testing.T) {
	assert.Equal(t, 0.0, EMA(nil, 12))
	assert.Equal(t, 5.0, EMA([]float64{5}, 12))

	// Constant series stays at the constant.
	assert.InDelta(t, 3.0, EMA([]float64{3, 3, 3, 3, 3}, 4), 1e-12)

	// Rising series: EMA lags the last price but exceeds the first.
	ema := EMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.Greater(t, ema, 1.0)
	assert.Less(t, ema, 5.0)
}

func TestMACDHistogramIdentity(t *testing.T) {
	prices := []float64{10, 10.5, 11, 10.8, 11.2, 11.5, 11.3, 11.8, 12, 12.4}
	res := MACD(prices)
	assert.InDelta(t, res.MACD-res.Signal, res.Histogram, 1e-12)
	assert.InDelta(t, res.MACD*0.9, res.Signal, 1e-12)

	conv := MACDWithSignalEMA(prices)
	assert.InDelta(t, conv.MACD-conv.Signal, conv.Histogram, 1e-12)
	assert.InDelta(t, res.MACD, conv.MACD, 1e-12)
}

func TestVWAP(t *testing.T) {
	assert.Equal(t, 0.0, VWAP(nil))

	// Zero total volume yields 0.
	zeroVol := []model.Candle{{High: 10, Low: 8, Close: 9, Volume: 0}}
	assert.Equal(t, 0.0, VWAP(zeroVol))

	// A single bar's VWAP equals its typical price regardless of volume.
	for _, vol := range []float64{1, 250, 1e9} {
		single := []model.Candle{{High: 12, Low: 9, Close: 10.5, Volume: vol}}
		assert.InDelta(t, (12.0+9.0+10.5)/3.0, VWAP(single), 1e-12)
	}
}

func TestBollingerOrdering(t *testing.T) {
	prices := []float64{20, 21, 19, 22, 20.5, 21.5, 19.5, 20, 22.5, 21, 20, 19, 21, 22, 20, 21, 19.8, 20.2, 21.7, 20.9}
	bands := Bollinger(prices, DefaultBollingerPeriod)
	assert.Greater(t, bands.Upper, bands.Middle)
	assert.Greater(t, bands.Middle, bands.Lower)

	// Degenerate constant series collapses all bands onto the mean.
	flat := Bollinger([]float64{7, 7, 7, 7}, DefaultBollingerPeriod)
	assert.Equal(t, 7.0, flat.Upper)
	assert.Equal(t, 7.0, flat.Middle)
	assert.Equal(t, 7.0, flat.Lower)
}

func TestFibonacci(t *testing.T) {
	candles := candlesFromCloses(100, 110, 105, 120, 115)
	levels := Fibonacci(candles)

	// Range is 100..120.
	assert.InDelta(t, 120-20*0.618, levels.Level618, 1e-12)
	assert.InDelta(t, 110.0, levels.Level50, 1e-12)
	assert.InDelta(t, 120-20*0.382, levels.Level382, 1e-12)
	assert.Less(t, levels.Level618, levels.Level50)
	assert.Less(t, levels.Level50, levels.Level382)
}

func TestSnapshot(t *testing.T) {
	candles := candlesFromCloses(100, 101, 99, 102, 103, 101, 104, 105, 103, 106,
		107, 105, 108, 109, 107, 110, 111, 109, 112, 113)

	snap := Snapshot("XAUUSD", "1h", candles, false)
	require.NotNil(t, snap)
	assert.Equal(t, "XAUUSD", snap.Symbol)
	assert.Equal(t, "1h", snap.Interval)
	assert.GreaterOrEqual(t, snap.RSI, 0.0)
	assert.LessOrEqual(t, snap.RSI, 100.0)
	assert.InDelta(t, snap.MACD.MACD-snap.MACD.Signal, snap.MACD.Histogram, 1e-12)
	assert.Greater(t, snap.VWAP, 0.0)
	assert.GreaterOrEqual(t, snap.Bollinger.Upper, snap.Bollinger.Middle)
	assert.GreaterOrEqual(t, snap.Bollinger.Middle, snap.Bollinger.Lower)

	emaSnap := Snapshot("XAUUSD", "1h", candles, true)
	assert.InDelta(t, emaSnap.MACD.MACD-emaSnap.MACD.Signal, emaSnap.MACD.Histogram, 1e-12)
}
