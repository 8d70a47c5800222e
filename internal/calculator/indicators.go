package calculator

import (
	"math"

	"github.com/yourorg/market-analysis/internal/model"
)

const (
	// DefaultRSIPeriod is the trailing delta window for RSI.
	DefaultRSIPeriod = 14
	// DefaultBollingerPeriod is the SMA window for Bollinger bands.
	DefaultBollingerPeriod = 20

	neutralRSI = 50.0
)

// RSI computes the relative strength index over the trailing `period`
// price deltas using simple gain/loss averages. Returns the neutral value 50
// when fewer than period+1 prices are available, and 100 when the window
// contains no losses.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return neutralRSI
	}

	var avgGain, avgLoss float64
	start := len(prices) - period
	for i := start; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// EMA computes the exponential moving average of the full series, seeded
// with the first price and smoothed with k = 2/(period+1).
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	k := 2.0 / float64(period+1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = p*k + ema*(1-k)
	}
	return ema
}

// MACD computes the MACD line as EMA12-EMA26. The signal line is the
// fixed-ratio approximation 0.9*macd kept for compatibility with existing
// consumers; it is not a smoothed signal line. See MACDWithSignalEMA for
// the conventional variant.
func MACD(prices []float64) model.MACDResult {
	macd := EMA(prices, 12) - EMA(prices, 26)
	signal := macd * 0.9
	return model.MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}

// MACDWithSignalEMA computes MACD with a true 9-period EMA signal line over
// the rolling MACD series.
func MACDWithSignalEMA(prices []float64) model.MACDResult {
	if len(prices) == 0 {
		return model.MACDResult{}
	}
	macdSeries := make([]float64, 0, len(prices))
	for i := 1; i <= len(prices); i++ {
		window := prices[:i]
		macdSeries = append(macdSeries, EMA(window, 12)-EMA(window, 26))
	}
	macd := macdSeries[len(macdSeries)-1]
	signal := EMA(macdSeries, 9)
	return model.MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}

// VWAP computes the volume-weighted average of each candle's typical price
// (high+low+close)/3. Returns 0 when total volume is zero.
func VWAP(candles []model.Candle) float64 {
	var weighted, volume float64
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3.0
		weighted += typical * c.Volume
		volume += c.Volume
	}
	if volume == 0 {
		return 0
	}
	return weighted / volume
}

// Bollinger computes SMA(period) +/- 2 population standard deviations over
// the trailing window. With fewer prices than the period, the whole series
// is used.
func Bollinger(prices []float64, period int) model.BollingerBands {
	if len(prices) == 0 {
		return model.BollingerBands{}
	}
	window := prices
	if period > 0 && len(prices) > period {
		window = prices[len(prices)-period:]
	}

	var sum float64
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(len(window))

	var variance float64
	for _, p := range window {
		d := p - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(window)))

	return model.BollingerBands{
		Upper:  mean + 2*stddev,
		Middle: mean,
		Lower:  mean - 2*stddev,
	}
}

// Fibonacci computes the 61.8/50/38.2 retracement levels between the
// highest and lowest close of the series.
func Fibonacci(candles []model.Candle) model.FibonacciLevels {
	if len(candles) == 0 {
		return model.FibonacciLevels{}
	}
	high, low := candles[0].Close, candles[0].Close
	for _, c := range candles[1:] {
		if c.Close > high {
			high = c.Close
		}
		if c.Close < low {
			low = c.Close
		}
	}
	span := high - low
	return model.FibonacciLevels{
		Level618: high - span*0.618,
		Level50:  high - span*0.5,
		Level382: high - span*0.382,
	}
}

// Snapshot derives the full indicator set from a single candle series.
// When emaSignal is true the MACD signal line is the conventional 9-period
// EMA instead of the compatibility ratio.
func Snapshot(symbol, interval string, candles []model.Candle, emaSignal bool) *model.IndicatorSnapshot {
	closes := model.Closes(candles)

	macd := MACD(closes)
	if emaSignal {
		macd = MACDWithSignalEMA(closes)
	}

	return &model.IndicatorSnapshot{
		Symbol:    symbol,
		Interval:  interval,
		RSI:       RSI(closes, DefaultRSIPeriod),
		MACD:      macd,
		VWAP:      VWAP(candles),
		Bollinger: Bollinger(closes, DefaultBollingerPeriod),
		Fibonacci: Fibonacci(candles),
	}
}
