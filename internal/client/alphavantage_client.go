package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantageClient fetches exchange rates from the Alpha Vantage API.
// The free tier is heavily rate limited, so it sits last in the provider
// chain and its results are cached with a long TTL.
type AlphaVantageClient struct {
	apiKey string
	http   *resty.Client
	logger *zap.Logger
}

// NewAlphaVantageClient creates a new Alpha Vantage API client.
func NewAlphaVantageClient(baseURL, apiKey string, logger *zap.Logger) *AlphaVantageClient {
	if baseURL == "" {
		baseURL = alphaVantageBaseURL
	}
	return &AlphaVantageClient{
		apiKey: apiKey,
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		logger: logger,
	}
}

// Name identifies the provider in chain ordering and quote attribution.
func (c *AlphaVantageClient) Name() string { return "alphavantage" }

type alphaVantageRateResponse struct {
	Rate struct {
		ExchangeRate string `json:"5. Exchange Rate"`
		LastRefresh  string `json:"6. Last Refreshed"`
	} `json:"Realtime Currency Exchange Rate"`
	Note         string `json:"Note"`
	ErrorMessage string `json:"Error Message"`
}

// FetchQuote retrieves the current exchange rate for one symbol. Alpha
// Vantage carries no change or volume data on this endpoint, so those
// fields stay zero; the quote is still complete per the validity rule
// (positive finite price).
func (c *AlphaVantageClient) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	if len(symbol) != 6 {
		return nil, fmt.Errorf("alphavantage does not serve symbol %s", symbol)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":      "CURRENCY_EXCHANGE_RATE",
			"from_currency": symbol[:3],
			"to_currency":   symbol[3:],
			"apikey":        c.apiKey,
		}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("alphavantage request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("alphavantage returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var raw alphaVantageRateResponse
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode alphavantage response: %w", err)
	}
	if raw.ErrorMessage != "" {
		return nil, fmt.Errorf("alphavantage error: %s", raw.ErrorMessage)
	}
	if raw.Note != "" {
		// The note body is the rate-limit notice.
		return nil, fmt.Errorf("alphavantage rate limited: %s", raw.Note)
	}

	price, err := strconv.ParseFloat(raw.Rate.ExchangeRate, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid exchange rate %q: %w", raw.Rate.ExchangeRate, err)
	}

	return &model.Quote{
		Symbol:     symbol,
		Price:      price,
		Source:     c.Name(),
		CapturedAt: time.Now().UTC(),
	}, nil
}
