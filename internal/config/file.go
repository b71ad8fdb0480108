package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// FileConfig is the JSON layout of CONFIG_FILE. Absent members leave the
// current value alone.
type FileConfig struct {
	Mode     string         `json:"mode"`
	Subgraph SubgraphConfig `json:"subgraph"`

	Decimals DecimalsConfig `json:"decimals"`

	RateLimiting   RateLimitConfig      `json:"rate_limiting"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`

	Export        ExporterConfig     `json:"export"`
	DataIntegrity VerificationConfig `json:"data_integrity"`
}

// SubgraphConfig selects the snapshot data source
type SubgraphConfig struct {
	Protocol string `json:"protocol"`
	URL      string `json:"url"`
	Timeout  string `json:"timeout"`
	RetryMax *int   `json:"retry_max"`
}

// DecimalsConfig is the per-asset decimal table
type DecimalsConfig struct {
	Default *int           `json:"default"`
	Assets  map[string]int `json:"assets"`
}

// RateLimitConfig paces subgraph requests
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	BurstSize         int     `json:"burst_size"`
}

// CircuitBreakerConfig holds the breaker thresholds
type CircuitBreakerConfig struct {
	MaxFailures *int   `json:"max_failures"`
	ResetDelay  string `json:"reset_delay"`
}

// ExporterConfig defines settings for score export
type ExporterConfig struct {
	WebhookURL string `json:"webhook_url"`
	BatchSize  int    `json:"batch_size"`
}

// VerificationConfig defines settings for report signing
type VerificationConfig struct {
	SignatureEnabled *bool `json:"signature_enabled"`
}

// LoadFile reads a JSON config file and overlays it onto cfg
func LoadFile(path string, cfg *Config) error {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := json.Unmarshal(fileData, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := fc.apply(cfg); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	logrus.Infof("Loaded configuration from %s", path)
	return nil
}

func (fc FileConfig) apply(cfg *Config) error {
	if fc.Mode != "" {
		cfg.Mode = fc.Mode
	}
	if fc.Subgraph.Protocol != "" {
		cfg.Protocol = fc.Subgraph.Protocol
	}
	if fc.Subgraph.URL != "" {
		cfg.SubgraphURL = fc.Subgraph.URL
	}
	if fc.Subgraph.Timeout != "" {
		d, err := time.ParseDuration(fc.Subgraph.Timeout)
		if err != nil {
			return fmt.Errorf("subgraph.timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if fc.Subgraph.RetryMax != nil {
		cfg.RetryMax = *fc.Subgraph.RetryMax
	}

	if fc.Decimals.Default != nil {
		cfg.DefaultDecimals = *fc.Decimals.Default
	}
	if len(fc.Decimals.Assets) > 0 {
		if cfg.AssetDecimals == nil {
			cfg.AssetDecimals = make(map[string]int, len(fc.Decimals.Assets))
		}
		for symbol, d := range fc.Decimals.Assets {
			if d < 0 {
				return fmt.Errorf("decimals.assets.%s: negative decimals %d", symbol, d)
			}
			cfg.AssetDecimals[symbol] = d
		}
	}

	if fc.RateLimiting.RequestsPerSecond > 0 {
		cfg.RateLimitRPS = fc.RateLimiting.RequestsPerSecond
	}
	if fc.RateLimiting.BurstSize > 0 {
		cfg.RateLimitBurst = fc.RateLimiting.BurstSize
	}

	if fc.CircuitBreaker.MaxFailures != nil {
		cfg.CircuitMaxFailures = *fc.CircuitBreaker.MaxFailures
	}
	if fc.CircuitBreaker.ResetDelay != "" {
		d, err := time.ParseDuration(fc.CircuitBreaker.ResetDelay)
		if err != nil {
			return fmt.Errorf("circuit_breaker.reset_delay: %w", err)
		}
		cfg.CircuitResetDelay = d
	}

	if fc.Export.WebhookURL != "" {
		cfg.WebhookURL = fc.Export.WebhookURL
	}
	if fc.Export.BatchSize > 0 {
		cfg.WebhookBatchSize = fc.Export.BatchSize
	}

	if fc.DataIntegrity.SignatureEnabled != nil {
		cfg.SigningEnabled = *fc.DataIntegrity.SignatureEnabled
	}
	return nil
}
