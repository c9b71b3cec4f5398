// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/fd1az/price-getter/internal/mvx"
)

// Cache drivers.
const (
	CacheDriverNone  = "none"
	CacheDriverLocal = "local"
	CacheDriverRedis = "redis"
)

// Block clock sources.
const (
	BlockClockRound    = "round"
	BlockClockGateway  = "gateway"
	BlockClockNotifier = "notifier"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	XExchange XExchangeConfig `mapstructure:"xexchange"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Block     BlockConfig     `mapstructure:"block"`
	Tokens    TokensConfig    `mapstructure:"tokens"`
	Health    HealthConfig    `mapstructure:"health"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// GatewayConfig holds the MultiversX proxy gateway settings.
type GatewayConfig struct {
	URL               string        `mapstructure:"url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Retries           uint          `mapstructure:"retries"`
	// MockFixture answers every VM query from a JSON fixture instead of the network.
	MockFixture string `mapstructure:"mock_fixture"`
}

// RequestsPerSecond converts the configured budget for the rate limiter.
func (c *GatewayConfig) RequestsPerSecond() float64 {
	return float64(c.RequestsPerMinute) / 60.0
}

// Burst allows 10% of the per-minute budget at once.
func (c *GatewayConfig) Burst() int {
	burst := c.RequestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return burst
}

// XExchangeConfig holds router and pricing tokens.
type XExchangeConfig struct {
	RouterAddress  string        `mapstructure:"router_address"`
	AnchorToken    string        `mapstructure:"anchor_token"`
	AnchorDecimals uint8         `mapstructure:"anchor_decimals"`
	BridgeToken    string        `mapstructure:"bridge_token"`
	BridgeDecimals uint8         `mapstructure:"bridge_decimals"`
	PairCacheTTL   time.Duration `mapstructure:"pair_cache_ttl"`
}

// Router returns the parsed router address. Validate guarantees it parses.
func (c *XExchangeConfig) Router() mvx.Address {
	a, _ := mvx.ParseAddress(c.RouterAddress)
	return a
}

// CacheConfig selects and tunes the caching strategy.
type CacheConfig struct {
	Driver          string        `mapstructure:"driver"`
	Capacity        int           `mapstructure:"capacity"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	BlockTTL        time.Duration `mapstructure:"block_ttl"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
}

// BlockConfig selects how the current block is observed.
type BlockConfig struct {
	Clock         string        `mapstructure:"clock"`
	Shard         uint32        `mapstructure:"shard"`
	RoundDuration time.Duration `mapstructure:"round_duration"`
	GenesisTime   int64         `mapstructure:"genesis_time"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	NotifierURL   string        `mapstructure:"notifier_url"`
}

// Genesis returns the chain start time.
func (c *BlockConfig) Genesis() time.Time {
	return time.Unix(c.GenesisTime, 0)
}

// TokensConfig lists the tokens priced when none are given on the command line.
type TokensConfig struct {
	Default []string `mapstructure:"default"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Exporter       string `mapstructure:"exporter"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PRICE")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "PRICE_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "PRICE_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "PRICE_LOG_LEVEL", "LOG_LEVEL")

	// Gateway
	v.BindEnv("gateway.url", "PRICE_GATEWAY_URL", "MVX_GATEWAY_URL")
	v.BindEnv("gateway.timeout", "PRICE_GATEWAY_TIMEOUT")
	v.BindEnv("gateway.requests_per_minute", "PRICE_GATEWAY_RPM")
	v.BindEnv("gateway.mock_fixture", "PRICE_GATEWAY_MOCK_FIXTURE")

	// xExchange
	v.BindEnv("xexchange.router_address", "PRICE_ROUTER_ADDRESS", "XEXCHANGE_ROUTER")
	v.BindEnv("xexchange.anchor_token", "PRICE_ANCHOR_TOKEN")
	v.BindEnv("xexchange.bridge_token", "PRICE_BRIDGE_TOKEN")

	// Cache
	v.BindEnv("cache.driver", "PRICE_CACHE_DRIVER")
	v.BindEnv("cache.redis_addr", "PRICE_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("cache.redis_password", "PRICE_REDIS_PASSWORD", "REDIS_PASSWORD")
	v.BindEnv("cache.redis_db", "PRICE_REDIS_DB")

	// Block
	v.BindEnv("block.clock", "PRICE_BLOCK_CLOCK")
	v.BindEnv("block.notifier_url", "PRICE_NOTIFIER_URL")

	// Tokens
	v.BindEnv("tokens.default", "PRICE_TOKENS")

	// Telemetry
	v.BindEnv("telemetry.enabled", "PRICE_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "PRICE_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.exporter", "PRICE_OTEL_EXPORTER")
	v.BindEnv("telemetry.otlp_endpoint", "PRICE_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "PRICE_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "price-getter")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Gateway defaults
	v.SetDefault("gateway.url", "https://gateway.multiversx.com")
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("gateway.requests_per_minute", 600)
	v.SetDefault("gateway.retries", 3)

	// xExchange mainnet defaults
	v.SetDefault("xexchange.router_address", "erd1qqqqqqqqqqqqqpgqq66xk9gfr4esuhem3jru86wg5hvp33a62jps2fy57p")
	v.SetDefault("xexchange.anchor_token", "USDC-c76f1f")
	v.SetDefault("xexchange.anchor_decimals", 6)
	v.SetDefault("xexchange.bridge_token", "WEGLD-bd4d79")
	v.SetDefault("xexchange.bridge_decimals", 18)
	v.SetDefault("xexchange.pair_cache_ttl", "8760h")

	// Cache defaults
	v.SetDefault("cache.driver", CacheDriverLocal)
	v.SetDefault("cache.capacity", 10_000)
	v.SetDefault("cache.cleanup_interval", "1m")
	v.SetDefault("cache.block_ttl", "1m")
	v.SetDefault("cache.token_ttl", "24h")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.key_prefix", "price-getter:")

	// Block defaults: mainnet genesis, 6s rounds
	v.SetDefault("block.clock", BlockClockRound)
	v.SetDefault("block.shard", 1)
	v.SetDefault("block.round_duration", "6s")
	v.SetDefault("block.genesis_time", 1596117600)
	v.SetDefault("block.poll_interval", "3s")

	// Tokens
	v.SetDefault("tokens.default", []string{"WEGLD-bd4d79", "MEX-455c57", "HTM-f51d55"})

	// Health
	v.SetDefault("health.port", 8080)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "price-getter")
	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Gateway.URL == "" && c.Gateway.MockFixture == "" {
		return fmt.Errorf("gateway.url is required")
	}
	if _, err := mvx.ParseAddress(c.XExchange.RouterAddress); err != nil {
		return fmt.Errorf("invalid xexchange.router_address %q: %w", c.XExchange.RouterAddress, err)
	}
	if c.XExchange.AnchorToken == "" || c.XExchange.BridgeToken == "" {
		return fmt.Errorf("xexchange.anchor_token and xexchange.bridge_token are required")
	}
	if c.XExchange.AnchorToken == c.XExchange.BridgeToken {
		return fmt.Errorf("xexchange.anchor_token and xexchange.bridge_token must differ")
	}

	switch c.Cache.Driver {
	case CacheDriverNone, CacheDriverLocal:
	case CacheDriverRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}

	switch c.Block.Clock {
	case BlockClockRound:
		if c.Block.RoundDuration <= 0 {
			return fmt.Errorf("block.round_duration must be positive")
		}
	case BlockClockGateway, BlockClockNotifier:
		if c.Gateway.URL == "" {
			return fmt.Errorf("gateway.url is required for the %s clock", c.Block.Clock)
		}
		if c.Block.Clock == BlockClockNotifier && c.Block.NotifierURL == "" {
			return fmt.Errorf("block.notifier_url is required for the notifier clock")
		}
	default:
		return fmt.Errorf("unknown block.clock %q", c.Block.Clock)
	}

	return nil
}
