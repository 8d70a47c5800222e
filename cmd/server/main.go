package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/client"
	"github.com/yourorg/market-analysis/internal/config"
	"github.com/yourorg/market-analysis/internal/handler"
	"github.com/yourorg/market-analysis/internal/kafka"
	"github.com/yourorg/market-analysis/internal/middleware"
	"github.com/yourorg/market-analysis/internal/poller"
	"github.com/yourorg/market-analysis/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize quote providers in chain priority order: the bulk-capable
	// fast feed first, the rate-limited feed last.
	providers := []service.QuoteProvider{
		client.NewTwelveDataClient(cfg.Providers.TwelveData.BaseURL, cfg.Providers.TwelveData.APIKey, logger),
		client.NewFinnhubClient(cfg.Providers.Finnhub.BaseURL, cfg.Providers.Finnhub.APIKey, logger),
		client.NewAlphaVantageClient(cfg.Providers.AlphaVantage.BaseURL, cfg.Providers.AlphaVantage.APIKey, logger),
	}

	marketDataService := service.NewMarketDataService(providers, service.MarketDataConfig{
		AttemptTimeout: cfg.Providers.AttemptTimeout,
		ProviderTTLs: map[string]time.Duration{
			"twelvedata":   cfg.Providers.TwelveData.TTL,
			"finnhub":      cfg.Providers.Finnhub.TTL,
			"alphavantage": cfg.Providers.AlphaVantage.TTL,
		},
		DefaultQuoteTTL: cfg.MarketData.QuoteTTL,
		CandleTTL:       cfg.MarketData.CandleTTL,
		DefaultInterval: cfg.MarketData.DefaultInterval,
		DefaultLookback: cfg.MarketData.DefaultLookback,
		EMASignal:       cfg.MarketData.EMASignal,
	}, logger)

	// Initialize analysis backends: two remotes in priority order plus the
	// guaranteed local fallback.
	remotes := []service.AnalysisBackend{
		client.NewOpenAIBackend(cfg.Backends.OpenAI.APIKey, cfg.Backends.OpenAI.BaseURL, cfg.Backends.OpenAI.Model, logger),
		client.NewDeepSeekBackend(cfg.Backends.DeepSeek.APIKey, cfg.Backends.DeepSeek.BaseURL, cfg.Backends.DeepSeek.Model, logger),
	}
	analysisService := service.NewAnalysisService(
		remotes,
		service.NewLocalAnalyst(),
		marketDataService,
		service.AnalysisConfig{BackendTimeout: cfg.Backends.Timeout},
		logger,
	)

	// Initialize handlers
	if err := handler.RegisterValidators(); err != nil {
		logger.Fatal("Failed to register validators", zap.Error(err))
	}
	marketDataHandler := handler.NewMarketDataHandler(marketDataService, logger)
	analysisHandler := handler.NewAnalysisHandler(analysisService, logger)

	router := setupRouter(marketDataHandler, analysisHandler, logger)

	// Optionally start the push driver publishing quote deltas to Kafka.
	var quotePoller *poller.QuotePoller
	if cfg.Poller.Enabled {
		publisher := kafka.NewQuotePublisher(
			cfg.Kafka.Brokers,
			cfg.Kafka.Topics.QuoteUpdates,
			"market-analysis",
			logger,
		)
		defer publisher.Close()

		quotePoller = poller.NewQuotePoller(marketDataService, publisher, cfg.Poller.Interval, logger)
		if err := quotePoller.Start(); err != nil {
			logger.Fatal("Failed to start quote poller", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if quotePoller != nil {
		quotePoller.Stop()
	}

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func setupRouter(
	marketDataHandler *handler.MarketDataHandler,
	analysisHandler *handler.AnalysisHandler,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		quotes := v1.Group("/quotes")
		{
			quotes.GET("", marketDataHandler.GetAllQuotes)
			quotes.GET("/:symbol", marketDataHandler.GetQuote)
		}

		v1.GET("/candles/:symbol", marketDataHandler.GetCandles)
		v1.GET("/indicators/:symbol", marketDataHandler.GetIndicators)

		v1.POST("/analysis", analysisHandler.Analyze)
	}
	return router
}
