package model

import "time"

// Quote represents the latest traded price and instantaneous stats for an
// instrument. A quote is produced by exactly one provider attempt and is
// never partially filled.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        float64   `json:"volume"`
	High24h       float64   `json:"high_24h"`
	Low24h        float64   `json:"low_24h"`
	Source        string    `json:"source"`
	CapturedAt    time.Time `json:"captured_at"`
}

// Candle represents one OHLCV bar for a fixed time interval.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Closes extracts the close series from a candle slice.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerBands holds the three Bollinger band levels.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// FibonacciLevels holds the standard retracement levels between the series
// extremes.
type FibonacciLevels struct {
	Level618 float64 `json:"level_618"`
	Level50  float64 `json:"level_50"`
	Level382 float64 `json:"level_382"`
}

// IndicatorSnapshot is the full set of technical indicators derived from a
// single candle series. It is a pure function of its input series.
type IndicatorSnapshot struct {
	Symbol    string          `json:"symbol"`
	Interval  string          `json:"interval"`
	RSI       float64         `json:"rsi"`
	MACD      MACDResult      `json:"macd"`
	VWAP      float64         `json:"vwap"`
	Bollinger BollingerBands  `json:"bollinger"`
	Fibonacci FibonacciLevels `json:"fibonacci"`
}
