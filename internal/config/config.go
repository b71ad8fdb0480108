// Package config provides configuration loading and management for the scorer.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-credit-score/internal/normalize"
)

// Run modes
const (
	ModeHistory  = "history"
	ModeSnapshot = "snapshot"
)

// Config holds all application configuration
type Config struct {
	// history or snapshot
	Mode string

	// Comma separated protocol list for the snapshot path
	Protocol string

	// Subgraph endpoint override; empty uses the protocol default
	SubgraphURL    string
	SubgraphAPIKey string

	// Timeouts, retries and pacing of subgraph requests
	RequestTimeout time.Duration
	RetryMax       int
	RateLimitRPS   float64
	RateLimitBurst int

	// Input and output files
	TransactionsFile string
	WalletsFile      string
	OutputFile       string
	PositionsFile    string
	ReportFile       string
	MetricsFile      string

	// Amount scaling
	DefaultDecimals int
	AssetDecimals   map[string]int

	// Optional JSON config file overlaid before env overrides
	ConfigFile string

	// Circuit breaker settings
	CircuitMaxFailures int
	CircuitResetDelay  time.Duration

	// Report signing
	SigningEnabled bool
	SigningKeyHex  string

	// Webhook export of score records
	WebhookURL       string
	WebhookAPIKey    string
	WebhookBatchSize int

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	LogFormat string
	LogLevel  string
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		Mode:               ModeHistory,
		Protocol:           "compound-v2",
		RequestTimeout:     10 * time.Second,
		RetryMax:           0,
		RateLimitRPS:       2,
		RateLimitBurst:     1,
		TransactionsFile:   "user-wallet-transactions.json",
		OutputFile:         "wallet_scores.csv",
		DefaultDecimals:    normalize.DefaultDecimals,
		CircuitMaxFailures: 5,
		CircuitResetDelay:  30 * time.Second,
		WebhookBatchSize:   100,
		LogFormat:          "text",
		LogLevel:           "info",
	}
}

// Load builds the configuration from defaults, an optional .env file, the
// optional CONFIG_FILE and finally environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Could not load .env file: %v", err)
	}

	cfg := DefaultConfig()
	if path := GetEnvOrDefault("CONFIG_FILE", ""); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
		cfg.ConfigFile = path
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with every variable that is set. Current values act
// as defaults.
func applyEnv(cfg *Config) {
	cfg.Mode = strings.ToLower(GetEnvOrDefault("MODE", cfg.Mode))
	cfg.Protocol = strings.ToLower(GetEnvOrDefault("PROTOCOL", cfg.Protocol))
	cfg.SubgraphURL = GetEnvOrDefault("SUBGRAPH_URL", cfg.SubgraphURL)
	cfg.SubgraphAPIKey = GetEnvOrDefault("SUBGRAPH_API_KEY", cfg.SubgraphAPIKey)
	cfg.RequestTimeout = GetEnvAsDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RetryMax = GetEnvAsInt("SUBGRAPH_RETRY_MAX", cfg.RetryMax)
	cfg.RateLimitRPS = GetEnvAsFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = GetEnvAsInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)

	cfg.TransactionsFile = GetEnvOrDefault("TRANSACTIONS_FILE", cfg.TransactionsFile)
	cfg.WalletsFile = GetEnvOrDefault("WALLETS_FILE", cfg.WalletsFile)
	cfg.OutputFile = GetEnvOrDefault("OUTPUT_FILE", cfg.OutputFile)
	cfg.PositionsFile = GetEnvOrDefault("POSITIONS_FILE", cfg.PositionsFile)
	cfg.ReportFile = GetEnvOrDefault("REPORT_FILE", cfg.ReportFile)
	cfg.MetricsFile = GetEnvOrDefault("METRICS_FILE", cfg.MetricsFile)

	cfg.DefaultDecimals = GetEnvAsInt("DEFAULT_DECIMALS", cfg.DefaultDecimals)

	cfg.CircuitMaxFailures = GetEnvAsInt("CIRCUIT_MAX_FAILURES", cfg.CircuitMaxFailures)
	cfg.CircuitResetDelay = GetEnvAsDuration("CIRCUIT_RESET_DELAY", cfg.CircuitResetDelay)

	cfg.SigningEnabled = GetEnvAsBool("SIGNING_ENABLED", cfg.SigningEnabled)
	cfg.SigningKeyHex = GetEnvOrDefault("SIGNING_KEY_HEX", cfg.SigningKeyHex)

	cfg.WebhookURL = GetEnvOrDefault("WEBHOOK_URL", cfg.WebhookURL)
	cfg.WebhookAPIKey = GetEnvOrDefault("WEBHOOK_API_KEY", cfg.WebhookAPIKey)
	cfg.WebhookBatchSize = GetEnvAsInt("WEBHOOK_BATCH_SIZE", cfg.WebhookBatchSize)

	cfg.OtelEndpoint = GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OtelEndpoint)
	cfg.LogFormat = GetEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.LogLevel = GetEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
}

// Validate checks values that would make a run meaningless
func (c Config) Validate() error {
	switch c.Mode {
	case ModeHistory, ModeSnapshot:
	default:
		return fmt.Errorf("invalid MODE %q: want %s or %s", c.Mode, ModeHistory, ModeSnapshot)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", c.RateLimitBurst)
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("SUBGRAPH_RETRY_MAX must not be negative, got %d", c.RetryMax)
	}
	if c.DefaultDecimals < 0 {
		return fmt.Errorf("DEFAULT_DECIMALS must not be negative, got %d", c.DefaultDecimals)
	}
	if c.OutputFile == "" {
		return errors.New("OUTPUT_FILE must be set")
	}
	if c.Mode == ModeHistory && c.TransactionsFile == "" {
		return errors.New("TRANSACTIONS_FILE must be set in history mode")
	}
	if c.Mode == ModeSnapshot && c.WalletsFile == "" {
		return errors.New("WALLETS_FILE must be set in snapshot mode")
	}
	return nil
}

// DecimalTable returns the amount scaling table for the normalizer
func (c Config) DecimalTable() normalize.DecimalTable {
	return normalize.NewDecimalTable(c.DefaultDecimals, c.AssetDecimals)
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
		logrus.Warnf("Ignoring invalid integer %s=%q", key, value)
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
		logrus.Warnf("Ignoring invalid number %s=%q", key, value)
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return duration
		}
		logrus.Warnf("Ignoring invalid duration %s=%q", key, value)
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a bool with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
		logrus.Warnf("Ignoring invalid bool %s=%q", key, value)
	}
	return defaultValue
}
