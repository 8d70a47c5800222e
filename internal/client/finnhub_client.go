package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/model"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient fetches quotes from the Finnhub API, one symbol per call.
type FinnhubClient struct {
	apiKey string
	http   *resty.Client
	logger *zap.Logger
}

// NewFinnhubClient creates a new Finnhub API client.
func NewFinnhubClient(baseURL, apiKey string, logger *zap.Logger) *FinnhubClient {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	return &FinnhubClient{
		apiKey: apiKey,
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		logger: logger,
	}
}

// Name identifies the provider in chain ordering and quote attribution.
func (c *FinnhubClient) Name() string { return "finnhub" }

type finnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	PrevClose     float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// FetchQuote retrieves the current quote for one symbol.
func (c *FinnhubClient) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": finnhubSymbol(symbol),
			"token":  c.apiKey,
		}).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("finnhub request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("finnhub returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var raw finnhubQuote
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode finnhub quote: %w", err)
	}

	// Finnhub answers unknown symbols with an all-zero body.
	if raw.Current == 0 && raw.Timestamp == 0 {
		return nil, fmt.Errorf("finnhub returned empty quote for %s", symbol)
	}

	captured := time.Now().UTC()
	if raw.Timestamp > 0 {
		captured = time.Unix(raw.Timestamp, 0).UTC()
	}

	return &model.Quote{
		Symbol:        symbol,
		Price:         raw.Current,
		Change:        raw.Change,
		ChangePercent: raw.ChangePercent,
		High24h:       raw.High,
		Low24h:        raw.Low,
		Source:        c.Name(),
		CapturedAt:    captured,
	}, nil
}

// finnhubSymbol maps internal symbols to Finnhub's OANDA feed notation,
// e.g. XAUUSD -> OANDA:XAU_USD. Index symbols pass through unchanged.
func finnhubSymbol(symbol string) string {
	if len(symbol) == 6 {
		return "OANDA:" + symbol[:3] + "_" + symbol[3:]
	}
	return symbol
}
