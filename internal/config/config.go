package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Server     ServerConfig
	Providers  ProvidersConfig
	Backends   BackendsConfig
	MarketData MarketDataConfig
	Kafka      KafkaConfig
	Poller     PollerConfig
	Logging    LoggingConfig
}

// ServerConfig holds server specific configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ProviderConfig holds credentials and the cache TTL for one quote provider.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	TTL     time.Duration
}

// ProvidersConfig holds configuration for the quote provider chain.
type ProvidersConfig struct {
	TwelveData     ProviderConfig
	Finnhub        ProviderConfig
	AlphaVantage   ProviderConfig
	AttemptTimeout time.Duration
}

// BackendConfig holds credentials for one remote analysis backend.
type BackendConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// BackendsConfig holds configuration for the analysis backend chain.
type BackendsConfig struct {
	OpenAI   BackendConfig
	DeepSeek BackendConfig
	Timeout  time.Duration
}

// MarketDataConfig holds candle and indicator configuration.
type MarketDataConfig struct {
	DefaultInterval string
	DefaultLookback int
	CandleTTL       time.Duration
	QuoteTTL        time.Duration
	EMASignal       bool
}

// KafkaTopics names the topics the service publishes to. Typed fields
// rather than a map: viper lowercases map keys on load, struct fields are
// matched case-insensitively.
type KafkaTopics struct {
	QuoteUpdates string
}

// KafkaConfig holds Kafka specific configuration.
type KafkaConfig struct {
	Brokers string
	Topics  KafkaTopics
}

// PollerConfig holds configuration for the quote push driver.
type PollerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// LoggingConfig holds logging specific configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variables override
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.idleTimeout", "120s")

	// Quote provider defaults: fast feeds expire quickly, the rate-limited
	// feed is cached longer.
	v.SetDefault("providers.twelvedata.ttl", "2s")
	v.SetDefault("providers.finnhub.ttl", "5s")
	v.SetDefault("providers.alphavantage.ttl", "30s")
	v.SetDefault("providers.attemptTimeout", "3s")

	// Analysis backend defaults
	v.SetDefault("backends.openai.model", "gpt-4o-mini")
	v.SetDefault("backends.deepseek.model", "deepseek-chat")
	v.SetDefault("backends.timeout", "30s")

	// Market data defaults
	v.SetDefault("marketData.defaultInterval", "1h")
	v.SetDefault("marketData.defaultLookback", 100)
	v.SetDefault("marketData.candleTTL", "5m")
	v.SetDefault("marketData.quoteTTL", "5s")
	v.SetDefault("marketData.emaSignal", false)

	// Kafka topic defaults
	v.SetDefault("kafka.topics.quoteUpdates", "quote-updates")

	// Poller defaults
	v.SetDefault("poller.enabled", false)
	v.SetDefault("poller.interval", "2s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
