package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/model"
)

// QuotePublisher pushes quote updates onto a Kafka topic, keyed by symbol
// so per-symbol ordering is preserved.
type QuotePublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewQuotePublisher creates a publisher for the given brokers and topic.
func NewQuotePublisher(brokers, topic, clientID string, logger *zap.Logger) *QuotePublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Transport: &kafka.Transport{
			ClientID: clientID,
		},
	}
	return &QuotePublisher{writer: writer, logger: logger}
}

// PublishQuote sends one quote update, retrying transient broker failures
// with bounded exponential backoff.
func (p *QuotePublisher) PublishQuote(ctx context.Context, quote *model.Quote) error {
	value, err := json.Marshal(quote)
	if err != nil {
		p.logger.Error("Failed to marshal quote update",
			zap.String("symbol", quote.Symbol),
			zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(quote.Symbol),
		Value: value,
		Time:  time.Now(),
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	err = backoff.Retry(func() error {
		return p.writer.WriteMessages(ctx, msg)
	}, policy)
	if err != nil {
		p.logger.Error("Failed to publish quote update",
			zap.String("symbol", quote.Symbol),
			zap.Error(err))
		return err
	}

	p.logger.Debug("Quote update published",
		zap.String("symbol", quote.Symbol),
		zap.Float64("price", quote.Price))
	return nil
}

// Close closes the underlying Kafka writer.
func (p *QuotePublisher) Close() error {
	return p.writer.Close()
}
