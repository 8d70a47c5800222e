package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/kafka"
	"github.com/yourorg/market-analysis/internal/model"
	"github.com/yourorg/market-analysis/internal/service"
)

// QuotePoller is the push-style driver around the pull-only acquisition
// core: on a fixed cadence it fetches all quotes, diffs them against the
// previous snapshot and publishes the changed ones. Subscription bookkeeping
// is the consumers' concern, not the poller's.
type QuotePoller struct {
	market    *service.MarketDataService
	publisher *kafka.QuotePublisher
	interval  time.Duration
	logger    *zap.Logger

	cron *cron.Cron

	mu       sync.Mutex
	previous map[string]float64
	running  bool
}

// NewQuotePoller creates the poller; Start must be called to begin polling.
func NewQuotePoller(market *service.MarketDataService, publisher *kafka.QuotePublisher, interval time.Duration, logger *zap.Logger) *QuotePoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &QuotePoller{
		market:    market,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
		previous:  make(map[string]float64),
	}
}

// Start schedules the polling loop.
func (p *QuotePoller) Start() error {
	c := cron.New(cron.WithSeconds())
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := c.AddFunc(spec, p.tick); err != nil {
		return fmt.Errorf("failed to schedule quote poller: %w", err)
	}
	c.Start()
	p.cron = c
	p.logger.Info("Quote poller started", zap.Duration("interval", p.interval))
	return nil
}

// Stop halts the polling loop and waits for an in-flight tick to finish.
func (p *QuotePoller) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
	p.logger.Info("Quote poller stopped")
}

func (p *QuotePoller) tick() {
	p.mu.Lock()
	if p.running {
		// The previous tick is still fetching; skip rather than pile up.
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.interval*2)
	defer cancel()

	quotes, err := p.market.GetAllQuotes(ctx)
	if err != nil {
		p.logger.Warn("Quote poll failed", zap.Error(err))
		return
	}

	for symbol, quote := range quotes {
		if !p.changed(symbol, quote) {
			continue
		}
		if err := p.publisher.PublishQuote(ctx, quote); err != nil {
			// Already logged by the publisher; keep pushing the rest.
			continue
		}
	}
}

// changed records the new price and reports whether it differs from the
// previous snapshot.
func (p *QuotePoller) changed(symbol string, quote *model.Quote) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev, seen := p.previous[symbol]
	p.previous[symbol] = quote.Price
	return !seen || prev != quote.Price
}
