package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/yourorg/market-analysis/internal/model"
)

// syntheticGenerator produces plausible quotes and candle series when every
// upstream provider has failed. It walks a last-known baseline price with
// small steps scaled by the instrument's volatility constant, so it never
// fails and drifts with real data whenever a provider recovers.
type syntheticGenerator struct {
	mu        sync.Mutex
	baselines map[string]float64
	rng       *rand.Rand
}

func newSyntheticGenerator() *syntheticGenerator {
	return &syntheticGenerator{
		baselines: make(map[string]float64),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// observe records a real price as the new baseline for the symbol.
func (g *syntheticGenerator) observe(symbol string, price float64) {
	g.mu.Lock()
	g.baselines[symbol] = price
	g.mu.Unlock()
}

// baseline returns the last observed price for the symbol, or the
// instrument's configured baseline when no real quote has been seen yet.
func (g *syntheticGenerator) baseline(ins model.Instrument) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.baselines[ins.Symbol]; ok {
		return p
	}
	return ins.Baseline
}

// quote generates a complete synthetic quote for the instrument.
func (g *syntheticGenerator) quote(ins model.Instrument) *model.Quote {
	base := g.baseline(ins)

	g.mu.Lock()
	step := (g.rng.Float64()*2 - 1) * ins.Volatility
	volume := 500000 + g.rng.Float64()*1500000
	g.mu.Unlock()

	price := base * (1 + step)
	change := price - base
	changePct := 0.0
	if base != 0 {
		changePct = change / base * 100
	}

	return &model.Quote{
		Symbol:        ins.Symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Volume:        volume,
		High24h:       price * (1 + 2*ins.Volatility),
		Low24h:        price * (1 - 2*ins.Volatility),
		Source:        "synthetic",
		CapturedAt:    time.Now().UTC(),
	}
}

// candles generates an interval-spaced OHLCV series ending at the current
// synthetic price. Every bar satisfies high >= max(open, close) and
// low <= min(open, close), and timestamps increase strictly by step.
func (g *syntheticGenerator) candles(ins model.Instrument, step time.Duration, limit int) []model.Candle {
	price := g.baseline(ins)
	end := time.Now().UTC().Truncate(step)

	candles := make([]model.Candle, limit)
	for i := limit - 1; i >= 0; i-- {
		g.mu.Lock()
		walk := (g.rng.Float64()*2 - 1) * ins.Volatility
		wickUp := g.rng.Float64() * ins.Volatility
		wickDown := g.rng.Float64() * ins.Volatility
		volume := 100000 + g.rng.Float64()*900000
		g.mu.Unlock()

		open := price / (1 + walk)
		close := price
		high := close
		if open > high {
			high = open
		}
		high *= 1 + wickUp
		low := close
		if open < low {
			low = open
		}
		low *= 1 - wickDown

		candles[i] = model.Candle{
			Time:   end.Add(-time.Duration(limit-1-i) * step),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		}
		price = open
	}
	return candles
}
