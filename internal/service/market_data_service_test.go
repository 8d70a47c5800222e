package service

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/model"
)

type mockProvider struct {
	name  string
	quote *model.Quote
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (p *mockProvider) Name() string { return p.name }

func (p *mockProvider) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	q := *p.quote
	q.Symbol = symbol
	return &q, nil
}

type mockBulkProvider struct {
	mockProvider
	bulk      map[string]*model.Quote
	bulkErr   error
	bulkCalls atomic.Int64
}

func (p *mockBulkProvider) FetchQuotes(_ context.Context, _ []string) (map[string]*model.Quote, error) {
	p.bulkCalls.Add(1)
	if p.bulkErr != nil {
		return nil, p.bulkErr
	}
	return p.bulk, nil
}

func goodQuote(price float64, source string) *model.Quote {
	return &model.Quote{
		Price:         price,
		Change:        1.5,
		ChangePercent: 0.06,
		Volume:        100000,
		High24h:       price * 1.01,
		Low24h:        price * 0.99,
		Source:        source,
		CapturedAt:    time.Now().UTC(),
	}
}

func newTestService(providers ...QuoteProvider) *MarketDataService {
	return NewMarketDataService(providers, MarketDataConfig{
		AttemptTimeout:  time.Second,
		DefaultQuoteTTL: 5 * time.Second,
	}, zap.NewNop())
}

func TestGetQuoteFallbackGuarantee(t *testing.T) {
	failing := &mockProvider{name: "down", err: errors.New("connection refused")}
	svc := newTestService(failing)

	for _, symbol := range model.AllSymbols() {
		quote, err := svc.GetQuote(context.Background(), symbol)
		require.NoError(t, err, symbol)
		require.NotNil(t, quote)

		assert.Greater(t, quote.Price, 0.0)
		assert.False(t, math.IsNaN(quote.Change) || math.IsInf(quote.Change, 0))
		assert.False(t, math.IsNaN(quote.ChangePercent) || math.IsInf(quote.ChangePercent, 0))
		assert.Equal(t, "synthetic", quote.Source)
	}
}

func TestGetQuoteUnknownSymbol(t *testing.T) {
	provider := &mockProvider{name: "up", quote: goodQuote(100, "up")}
	svc := newTestService(provider)

	_, err := svc.GetQuote(context.Background(), "DOGEUSD")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Equal(t, int64(0), provider.calls.Load(), "no provider call for unknown symbol")
}

func TestGetQuoteServedFromCache(t *testing.T) {
	provider := &mockProvider{name: "up", quote: goodQuote(2350, "up")}
	svc := newTestService(provider)

	first, err := svc.GetQuote(context.Background(), "XAUUSD")
	require.NoError(t, err)
	require.Equal(t, int64(1), provider.calls.Load())

	// A repeat request inside the TTL is a cache hit, no new provider call.
	second, err := svc.GetQuote(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, int64(1), provider.calls.Load())
	assert.Equal(t, first, second)
}

func TestGetQuoteFallsThroughInvalidResults(t *testing.T) {
	tests := []struct {
		name  string
		price float64
	}{
		{"non-positive price", -1},
		{"zero price", 0},
		{"NaN price", math.NaN()},
		{"infinite price", math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := &mockProvider{name: "bad", quote: goodQuote(tt.price, "bad")}
			good := &mockProvider{name: "good", quote: goodQuote(1.085, "good")}
			svc := newTestService(bad, good)

			quote, err := svc.GetQuote(context.Background(), "EURUSD")
			require.NoError(t, err)
			assert.Equal(t, "good", quote.Source)
			assert.Equal(t, int64(1), bad.calls.Load(), "invalid result is not retried")
		})
	}
}

func TestGetQuoteAttemptTimeoutBoundsSlowProvider(t *testing.T) {
	slow := &mockProvider{name: "slow", quote: goodQuote(1.08, "slow"), delay: time.Minute}
	good := &mockProvider{name: "good", quote: goodQuote(1.085, "good")}
	svc := NewMarketDataService([]QuoteProvider{slow, good}, MarketDataConfig{
		AttemptTimeout:  50 * time.Millisecond,
		DefaultQuoteTTL: 5 * time.Second,
	}, zap.NewNop())

	start := time.Now()
	quote, err := svc.GetQuote(context.Background(), "EURUSD")
	require.NoError(t, err)

	// The stalled provider is cut off at the attempt timeout and the chain
	// moves on instead of hanging for its full delay.
	assert.Equal(t, "good", quote.Source)
	assert.Equal(t, int64(1), slow.calls.Load())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGetQuoteChainPriorityOrder(t *testing.T) {
	primary := &mockProvider{name: "primary", quote: goodQuote(155.2, "primary")}
	secondary := &mockProvider{name: "secondary", quote: goodQuote(155.3, "secondary")}
	svc := newTestService(primary, secondary)

	quote, err := svc.GetQuote(context.Background(), "USDJPY")
	require.NoError(t, err)
	assert.Equal(t, "primary", quote.Source)
	assert.Equal(t, int64(0), secondary.calls.Load(), "chain stops at the first valid result")
}

func TestGetAllQuotesBulkSufficientCoverage(t *testing.T) {
	symbols := model.AllSymbols()

	// Bulk answers 8 of 10 symbols, above the 70% threshold.
	bulk := map[string]*model.Quote{}
	for _, s := range symbols[:8] {
		q := goodQuote(100, "bulk")
		q.Symbol = s
		bulk[s] = q
	}
	bulkProvider := &mockBulkProvider{
		mockProvider: mockProvider{name: "bulk", err: errors.New("no per-symbol endpoint")},
		bulk:         bulk,
	}
	fallback := &mockProvider{name: "fallback", quote: goodQuote(42, "fallback")}
	svc := newTestService(bulkProvider, fallback)

	quotes, err := svc.GetAllQuotes(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, len(symbols), "gaps are topped up through the chain")
	assert.Equal(t, int64(1), bulkProvider.bulkCalls.Load())
	assert.Equal(t, "bulk", quotes[symbols[0]].Source)

	// Only the two missing symbols went through the per-symbol chain.
	assert.Equal(t, int64(2), bulkProvider.calls.Load())
	for _, s := range symbols[8:] {
		assert.Equal(t, "fallback", quotes[s].Source, s)
	}
}

func TestGetAllQuotesTopUpRunsConcurrently(t *testing.T) {
	symbols := model.AllSymbols()

	bulk := map[string]*model.Quote{}
	for _, s := range symbols[:8] {
		q := goodQuote(100, "bulk")
		q.Symbol = s
		bulk[s] = q
	}
	bulkProvider := &mockBulkProvider{
		mockProvider: mockProvider{name: "bulk", err: errors.New("no per-symbol endpoint")},
		bulk:         bulk,
	}
	slowFill := &mockProvider{name: "slowfill", quote: goodQuote(42, "slowfill"), delay: 200 * time.Millisecond}
	svc := newTestService(bulkProvider, slowFill)

	start := time.Now()
	quotes, err := svc.GetAllQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, len(symbols))

	// Two gap symbols each take 200ms from the slow provider; filled
	// concurrently the whole call stays well under the 400ms serial cost.
	assert.Less(t, time.Since(start), 350*time.Millisecond)
	for _, s := range symbols[8:] {
		assert.Equal(t, "slowfill", quotes[s].Source, s)
	}
}

func TestGetAllQuotesBulkInsufficientCoverage(t *testing.T) {
	symbols := model.AllSymbols()

	// Bulk covers only 2 of 10 symbols; the service must fan out the
	// per-symbol chains and still deliver every instrument.
	bulk := map[string]*model.Quote{}
	for _, s := range symbols[:2] {
		q := goodQuote(100, "bulk")
		q.Symbol = s
		bulk[s] = q
	}
	bulkProvider := &mockBulkProvider{mockProvider: mockProvider{name: "bulk", err: errors.New("down")}, bulk: bulk}
	perSymbol := &mockProvider{name: "persymbol", quote: goodQuote(50, "persymbol")}
	svc := newTestService(bulkProvider, perSymbol)

	quotes, err := svc.GetAllQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, len(symbols))

	for _, s := range symbols[2:] {
		assert.Equal(t, "persymbol", quotes[s].Source, s)
	}
}

func TestGetAllQuotesAllProvidersDown(t *testing.T) {
	bulkProvider := &mockBulkProvider{
		mockProvider: mockProvider{name: "bulk", err: errors.New("down")},
		bulkErr:      errors.New("down"),
	}
	svc := newTestService(bulkProvider)

	quotes, err := svc.GetAllQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, len(model.AllSymbols()))
	for _, q := range quotes {
		assert.Equal(t, "synthetic", q.Source)
		assert.Greater(t, q.Price, 0.0)
	}
}

func TestGetCandlesShape(t *testing.T) {
	svc := newTestService(&mockProvider{name: "down", err: errors.New("down")})

	candles, err := svc.GetCandles(context.Background(), "XAUUSD", "1h", 60)
	require.NoError(t, err)
	require.Len(t, candles, 60)

	for i, c := range candles {
		maxOC := math.Max(c.Open, c.Close)
		minOC := math.Min(c.Open, c.Close)
		assert.GreaterOrEqual(t, c.High, maxOC, "bar %d", i)
		assert.LessOrEqual(t, c.Low, minOC, "bar %d", i)
		if i > 0 {
			assert.True(t, c.Time.After(candles[i-1].Time), "timestamps strictly increasing")
			assert.Equal(t, time.Hour, c.Time.Sub(candles[i-1].Time))
		}
	}
}

func TestGetCandlesCachedAndValidated(t *testing.T) {
	svc := newTestService(&mockProvider{name: "down", err: errors.New("down")})
	ctx := context.Background()

	first, err := svc.GetCandles(ctx, "EURUSD", "5m", 50)
	require.NoError(t, err)
	second, err := svc.GetCandles(ctx, "EURUSD", "5m", 50)
	require.NoError(t, err)
	assert.Equal(t, first, second, "series is served from cache within its TTL")

	_, err = svc.GetCandles(ctx, "NOPE", "5m", 50)
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = svc.GetCandles(ctx, "EURUSD", "7h", 50)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestGetIndicators(t *testing.T) {
	svc := newTestService(&mockProvider{name: "down", err: errors.New("down")})

	snap, err := svc.GetIndicators(context.Background(), "SPX500", "1h")
	require.NoError(t, err)

	assert.Equal(t, "SPX500", snap.Symbol)
	assert.Equal(t, "1h", snap.Interval)
	assert.GreaterOrEqual(t, snap.RSI, 0.0)
	assert.LessOrEqual(t, snap.RSI, 100.0)
	assert.InDelta(t, snap.MACD.MACD-snap.MACD.Signal, snap.MACD.Histogram, 1e-9)
	assert.GreaterOrEqual(t, snap.Bollinger.Upper, snap.Bollinger.Middle)
	assert.GreaterOrEqual(t, snap.Bollinger.Middle, snap.Bollinger.Lower)
	assert.Greater(t, snap.VWAP, 0.0)
}
