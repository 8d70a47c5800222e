package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/model"
)

const twelveDataBaseURL = "https://api.twelvedata.com"

// TwelveDataClient fetches quotes from the Twelve Data API. It is the only
// provider in the chain that supports bulk quote requests.
type TwelveDataClient struct {
	apiKey string
	http   *resty.Client
	logger *zap.Logger
}

// NewTwelveDataClient creates a new Twelve Data API client.
func NewTwelveDataClient(baseURL, apiKey string, logger *zap.Logger) *TwelveDataClient {
	if baseURL == "" {
		baseURL = twelveDataBaseURL
	}
	return &TwelveDataClient{
		apiKey: apiKey,
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		logger: logger,
	}
}

// Name identifies the provider in chain ordering and quote attribution.
func (c *TwelveDataClient) Name() string { return "twelvedata" }

type twelveDataQuote struct {
	Symbol        string `json:"symbol"`
	Close         string `json:"close"`
	Change        string `json:"change"`
	PercentChange string `json:"percent_change"`
	Volume        string `json:"volume"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// FetchQuote retrieves the current quote for one symbol.
func (c *TwelveDataClient) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": twelveDataSymbol(symbol),
			"apikey": c.apiKey,
		}).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("twelvedata request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twelvedata returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var raw twelveDataQuote
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode twelvedata quote: %w", err)
	}
	if raw.Status == "error" {
		return nil, fmt.Errorf("twelvedata error: %s", raw.Message)
	}

	return c.toQuote(symbol, raw)
}

// FetchQuotes retrieves quotes for several symbols in one call. Symbols the
// upstream could not answer are simply absent from the result.
func (c *TwelveDataClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]*model.Quote, error) {
	mapped := make([]string, len(symbols))
	upstream := make(map[string]string, len(symbols))
	for i, s := range symbols {
		mapped[i] = twelveDataSymbol(s)
		upstream[mapped[i]] = s
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": strings.Join(mapped, ","),
			"apikey": c.apiKey,
		}).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("twelvedata bulk request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twelvedata returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var raw map[string]twelveDataQuote
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode twelvedata bulk response: %w", err)
	}

	quotes := make(map[string]*model.Quote, len(raw))
	for key, rq := range raw {
		symbol, ok := upstream[key]
		if !ok {
			symbol = key
		}
		if rq.Status == "error" {
			c.logger.Debug("Twelve Data skipped symbol in bulk response",
				zap.String("symbol", symbol),
				zap.String("message", rq.Message))
			continue
		}
		quote, err := c.toQuote(symbol, rq)
		if err != nil {
			c.logger.Warn("Dropping malformed bulk quote",
				zap.String("symbol", symbol),
				zap.Error(err))
			continue
		}
		quotes[symbol] = quote
	}
	return quotes, nil
}

func (c *TwelveDataClient) toQuote(symbol string, raw twelveDataQuote) (*model.Quote, error) {
	price, err := strconv.ParseFloat(raw.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid close %q: %w", raw.Close, err)
	}
	change, _ := strconv.ParseFloat(raw.Change, 64)
	changePct, _ := strconv.ParseFloat(raw.PercentChange, 64)
	volume, _ := strconv.ParseFloat(raw.Volume, 64)
	high, _ := strconv.ParseFloat(raw.High, 64)
	low, _ := strconv.ParseFloat(raw.Low, 64)

	return &model.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Volume:        volume,
		High24h:       high,
		Low24h:        low,
		Source:        c.Name(),
		CapturedAt:    time.Now().UTC(),
	}, nil
}

// twelveDataSymbol maps internal symbols to Twelve Data's slash notation,
// e.g. XAUUSD -> XAU/USD. Index symbols pass through unchanged.
func twelveDataSymbol(symbol string) string {
	if len(symbol) == 6 {
		return symbol[:3] + "/" + symbol[3:]
	}
	return symbol
}
