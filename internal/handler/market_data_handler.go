package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/model"
	"github.com/yourorg/market-analysis/internal/service"
)

// MarketDataHandler exposes the quote, candle and indicator operations.
type MarketDataHandler struct {
	marketDataService *service.MarketDataService
	logger            *zap.Logger
}

// NewMarketDataHandler creates a new market data handler.
func NewMarketDataHandler(marketDataService *service.MarketDataService, logger *zap.Logger) *MarketDataHandler {
	return &MarketDataHandler{
		marketDataService: marketDataService,
		logger:            logger,
	}
}

// GetQuote handles GET /api/v1/quotes/:symbol
func (h *MarketDataHandler) GetQuote(c *gin.Context) {
	symbol := c.Param("symbol")

	quote, err := h.marketDataService.GetQuote(c.Request.Context(), symbol)
	if err != nil {
		h.writeMarketError(c, err)
		return
	}

	c.JSON(http.StatusOK, roundQuote(quote))
}

// GetAllQuotes handles GET /api/v1/quotes
func (h *MarketDataHandler) GetAllQuotes(c *gin.Context) {
	quotes, err := h.marketDataService.GetAllQuotes(c.Request.Context())
	if err != nil {
		h.writeMarketError(c, err)
		return
	}

	rounded := make(map[string]*model.Quote, len(quotes))
	for symbol, quote := range quotes {
		rounded[symbol] = roundQuote(quote)
	}
	c.JSON(http.StatusOK, gin.H{"quotes": rounded, "count": len(rounded)})
}

// GetCandles handles GET /api/v1/candles/:symbol
func (h *MarketDataHandler) GetCandles(c *gin.Context) {
	symbol := c.Param("symbol")
	interval := c.Query("interval")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	candles, err := h.marketDataService.GetCandles(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		h.writeMarketError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"candles": candles,
		"count":   len(candles),
	})
}

// GetIndicators handles GET /api/v1/indicators/:symbol
func (h *MarketDataHandler) GetIndicators(c *gin.Context) {
	symbol := c.Param("symbol")
	interval := c.Query("interval")

	snapshot, err := h.marketDataService.GetIndicators(c.Request.Context(), symbol, interval)
	if err != nil {
		h.writeMarketError(c, err)
		return
	}

	c.JSON(http.StatusOK, roundSnapshot(snapshot))
}

func (h *MarketDataHandler) writeMarketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownSymbol):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInterval):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Market data request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// roundTo rounds a value to the given number of decimal places for
// presentation. All internal computation stays in full precision.
func roundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// roundQuote returns a presentation copy of the quote with prices rounded
// to the instrument's display precision.
func roundQuote(q *model.Quote) *model.Quote {
	places := int32(4)
	if ins, ok := model.LookupInstrument(q.Symbol); ok {
		places = ins.Precision
	}
	out := *q
	out.Price = roundTo(q.Price, places)
	out.Change = roundTo(q.Change, places)
	out.ChangePercent = roundTo(q.ChangePercent, 2)
	out.High24h = roundTo(q.High24h, places)
	out.Low24h = roundTo(q.Low24h, places)
	return &out
}

// roundSnapshot returns a presentation copy of the snapshot with price-like
// levels rounded to the instrument's precision and oscillators to 2 places.
func roundSnapshot(s *model.IndicatorSnapshot) *model.IndicatorSnapshot {
	places := int32(4)
	if ins, ok := model.LookupInstrument(s.Symbol); ok {
		places = ins.Precision
	}
	out := *s
	out.RSI = roundTo(s.RSI, 2)
	out.MACD.MACD = roundTo(s.MACD.MACD, places)
	out.MACD.Signal = roundTo(s.MACD.Signal, places)
	out.MACD.Histogram = roundTo(s.MACD.Histogram, places)
	out.VWAP = roundTo(s.VWAP, places)
	out.Bollinger.Upper = roundTo(s.Bollinger.Upper, places)
	out.Bollinger.Middle = roundTo(s.Bollinger.Middle, places)
	out.Bollinger.Lower = roundTo(s.Bollinger.Lower, places)
	out.Fibonacci.Level618 = roundTo(s.Fibonacci.Level618, places)
	out.Fibonacci.Level50 = roundTo(s.Fibonacci.Level50, places)
	out.Fibonacci.Level382 = roundTo(s.Fibonacci.Level382, places)
	return &out
}
