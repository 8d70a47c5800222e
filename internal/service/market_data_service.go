package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/cache"
	"github.com/yourorg/market-analysis/internal/calculator"
	"github.com/yourorg/market-analysis/internal/model"
)

// QuoteProvider is one upstream quote source in the fallback chain.
type QuoteProvider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*model.Quote, error)
}

// BulkQuoteProvider is implemented by providers that can answer several
// symbols in a single upstream call.
type BulkQuoteProvider interface {
	QuoteProvider
	FetchQuotes(ctx context.Context, symbols []string) (map[string]*model.Quote, error)
}

// bulkCoverageThreshold is the fraction of requested symbols a bulk call
// must answer before the per-symbol chains are skipped.
const bulkCoverageThreshold = 0.7

// MarketDataConfig tunes the acquisition layer. All values are injected by
// the configuration loader; the service performs no parsing of its own.
type MarketDataConfig struct {
	AttemptTimeout  time.Duration
	ProviderTTLs    map[string]time.Duration
	DefaultQuoteTTL time.Duration
	CandleTTL       time.Duration
	DefaultInterval string
	DefaultLookback int
	EMASignal       bool
}

// MarketDataService supplies quotes, candle series and indicator snapshots
// for the fixed instrument set, with provider fallback and caching on every
// acquisition path.
type MarketDataService struct {
	providers   []QuoteProvider
	cfg         MarketDataConfig
	quoteCache  *cache.TTLCache[*model.Quote]
	candleCache *cache.TTLCache[[]model.Candle]
	synthetic   *syntheticGenerator
	logger      *zap.Logger
}

// NewMarketDataService creates a new market data service over the given
// provider chain. Providers are tried in slice order.
func NewMarketDataService(providers []QuoteProvider, cfg MarketDataConfig, logger *zap.Logger) *MarketDataService {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 3 * time.Second
	}
	if cfg.DefaultQuoteTTL <= 0 {
		cfg.DefaultQuoteTTL = 5 * time.Second
	}
	if cfg.CandleTTL <= 0 {
		cfg.CandleTTL = 5 * time.Minute
	}
	if cfg.DefaultInterval == "" {
		cfg.DefaultInterval = "1h"
	}
	if cfg.DefaultLookback <= 0 {
		cfg.DefaultLookback = 100
	}
	return &MarketDataService{
		providers:   providers,
		cfg:         cfg,
		quoteCache:  cache.New[*model.Quote](),
		candleCache: cache.New[[]model.Candle](),
		synthetic:   newSyntheticGenerator(),
		logger:      logger,
	}
}

// validQuote accepts only complete quotes with a positive, finite price.
func validQuote(q *model.Quote) bool {
	return q != nil && q.Price > 0 && !math.IsNaN(q.Price) && !math.IsInf(q.Price, 0)
}

// GetQuote returns the freshest valid quote for a symbol. Provider failures
// are recovered internally; after the chain is exhausted the synthetic
// generator guarantees a result, so the only possible errors are an unknown
// symbol and caller cancellation.
func (s *MarketDataService) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	ins, ok := model.LookupInstrument(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	cacheKey := "price:" + symbol
	if quote, hit := s.quoteCache.Get(cacheKey); hit {
		return quote, nil
	}

	attempts := make([]chainAttempt[*model.Quote], len(s.providers))
	for i, p := range s.providers {
		provider := p
		attempts[i] = chainAttempt[*model.Quote]{
			name: provider.Name(),
			run: func(ctx context.Context) (*model.Quote, error) {
				return provider.FetchQuote(ctx, symbol)
			},
		}
	}

	quote, idx, err := runChain(ctx, attempts, validQuote, s.cfg.AttemptTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("All quote providers failed, serving synthetic quote",
			zap.String("symbol", symbol),
			zap.Error(err))
		return s.synthetic.quote(ins), nil
	}

	s.synthetic.observe(symbol, quote.Price)
	s.quoteCache.Set(cacheKey, quote, s.providerTTL(s.providers[idx].Name()))
	return quote, nil
}

// providerTTL maps a provider to its cache TTL: cheap fast feeds expire
// quickly, rate-limited feeds are kept longer.
func (s *MarketDataService) providerTTL(name string) time.Duration {
	if ttl, ok := s.cfg.ProviderTTLs[name]; ok && ttl > 0 {
		return ttl
	}
	return s.cfg.DefaultQuoteTTL
}

// GetAllQuotes returns a quote for every instrument in the fixed set. It
// first attempts one bulk call against the fastest provider, then fans out
// the per-symbol chains concurrently for whatever the bulk call did not
// cover; coverage below 70% is flagged. Individual failures never block the
// other symbols.
func (s *MarketDataService) GetAllQuotes(ctx context.Context) (map[string]*model.Quote, error) {
	symbols := model.AllSymbols()
	quotes := make(map[string]*model.Quote, len(symbols))

	if bulk := s.bulkProvider(); bulk != nil {
		bulkCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		fetched, err := bulk.FetchQuotes(bulkCtx, symbols)
		cancel()

		if err != nil {
			s.logger.Warn("Bulk quote fetch failed, falling back to per-symbol chains",
				zap.String("provider", bulk.Name()),
				zap.Error(err))
		} else {
			for symbol, quote := range fetched {
				if !validQuote(quote) {
					continue
				}
				s.synthetic.observe(symbol, quote.Price)
				s.quoteCache.Set("price:"+symbol, quote, s.providerTTL(bulk.Name()))
				quotes[symbol] = quote
			}
		}
	}

	missing := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if _, ok := quotes[symbol]; !ok {
			missing = append(missing, symbol)
		}
	}
	if len(missing) == 0 {
		return quotes, nil
	}
	if float64(len(quotes)) < bulkCoverageThreshold*float64(len(symbols)) {
		s.logger.Warn("Bulk quote coverage below threshold",
			zap.Int("covered", len(quotes)),
			zap.Int("requested", len(symbols)))
	}

	// Fan out the full chain for every uncovered symbol and merge whatever
	// succeeds (synthetic guarantee included). One slow chain never
	// serializes the others.
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, symbol := range missing {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			quote, err := s.GetQuote(ctx, symbol)
			if err != nil {
				s.logger.Warn("Per-symbol quote fetch failed",
					zap.String("symbol", symbol),
					zap.Error(err))
				return
			}
			mu.Lock()
			quotes[symbol] = quote
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return quotes, nil
}

func (s *MarketDataService) bulkProvider() BulkQuoteProvider {
	for _, p := range s.providers {
		if bulk, ok := p.(BulkQuoteProvider); ok {
			return bulk
		}
	}
	return nil
}

// intervalSteps maps supported candle intervals to their bar spacing.
var intervalSteps = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// GetCandles supplies an OHLCV series for (symbol, interval, limit). The
// series is cached for several minutes; on a miss it is synthesized from the
// current fallback price. A real time-series backend can replace the
// synthesis behind this same method without touching any consumer.
func (s *MarketDataService) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	ins, ok := model.LookupInstrument(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if interval == "" {
		interval = s.cfg.DefaultInterval
	}
	step, ok := intervalSteps[interval]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLookback
	}

	cacheKey := fmt.Sprintf("candles:%s:%s:%d", symbol, interval, limit)
	if candles, hit := s.candleCache.Get(cacheKey); hit {
		return candles, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candles := s.synthetic.candles(ins, step, limit)
	s.candleCache.Set(cacheKey, candles, s.cfg.CandleTTL)
	return candles, nil
}

// GetIndicators derives the indicator snapshot for a symbol from its recent
// candle series.
func (s *MarketDataService) GetIndicators(ctx context.Context, symbol, interval string) (*model.IndicatorSnapshot, error) {
	if interval == "" {
		interval = s.cfg.DefaultInterval
	}
	candles, err := s.GetCandles(ctx, symbol, interval, s.cfg.DefaultLookback)
	if err != nil {
		return nil, err
	}
	return calculator.Snapshot(symbol, interval, candles, s.cfg.EMASignal), nil
}
