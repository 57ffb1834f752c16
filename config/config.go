// Package config holds the immutable run configuration for the trading engine.
//
// A Config is constructed once per run (flags > optional YAML file > defaults),
// validated before any external call, and passed explicitly into every
// component. No component reads ambient global state.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full threshold snapshot for one run.
type Config struct {
	// Screening
	MaxPrice     float64 `yaml:"max_price"`      // maximum share price
	MinAvgVolume float64 `yaml:"min_avg_volume"` // minimum trailing average daily volume

	// UniverseCap bounds how many qualifying symbols proceed to per-symbol
	// history fetches. This is a deliberate scalability control: each symbol
	// costs one rate-limited provider call, so the universe is truncated to
	// the first UniverseCap qualifiers rather than scanned exhaustively.
	UniverseCap int `yaml:"universe_cap"`

	// Selection
	EquitiesTop     int     `yaml:"equities_top"`     // max long positions
	ShortsTop       int     `yaml:"shorts_top"`       // max short positions, 0 disables shorts
	ZScoreThreshold float64 `yaml:"zscore_threshold"` // z-score gate between long and short eligibility

	// Sizing
	Capital      float64 `yaml:"capital"`       // total capital to allocate
	QtyPrecision int     `yaml:"qty_precision"` // fractional share decimal places

	// Risk
	TrailPct    float64 `yaml:"trail_pct"`     // trailing stop percentage, broker-delegated
	TimeExitMin int     `yaml:"time_exit_min"` // hard holding limit in minutes

	// Data
	LookbackDays int `yaml:"lookback_days"` // daily-bar history per symbol

	// Throttling between external calls. These are quota-respecting waits,
	// not a concurrency mechanism.
	FetchDelayMs int `yaml:"fetch_delay_ms"`
	OrderDelayMs int `yaml:"order_delay_ms"`

	// Infrastructure (optional)
	RedisAddr   string `yaml:"redis_addr"`   // bar cache; empty disables
	JournalPath string `yaml:"journal_path"` // sqlite decision journal; empty disables
	MetricsAddr string `yaml:"metrics_addr"` // /metrics + /healthz listener; empty disables

	// NotifyWebhookURL receives run-completion alerts as JSON POSTs; empty
	// falls back to log-only notification.
	NotifyWebhookURL string `yaml:"notify_webhook_url"`
}

// Default returns the baseline configuration, matching the engine's
// documented defaults.
func Default() Config {
	return Config{
		MaxPrice:        25.0,
		MinAvgVolume:    250000,
		UniverseCap:     100,
		EquitiesTop:     75,
		ShortsTop:       10,
		ZScoreThreshold: 1.5,
		Capital:         2000.0,
		QtyPrecision:    2,
		TrailPct:        5.0,
		TimeExitMin:     2880,
		LookbackDays:    365,
		FetchDelayMs:    100,
		OrderDelayMs:    500,
	}
}

// LoadFile overlays cfg with values from a YAML file.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for contradictory or out-of-range values.
// A non-nil result is fatal: the run aborts before any external call.
func (c Config) Validate() error {
	var errs []string

	if c.Capital <= 0 {
		errs = append(errs, fmt.Sprintf("capital must be positive, got %g", c.Capital))
	}
	if c.MaxPrice <= 0 {
		errs = append(errs, fmt.Sprintf("max_price must be positive, got %g", c.MaxPrice))
	}
	if c.MinAvgVolume <= 0 {
		errs = append(errs, fmt.Sprintf("min_avg_volume must be positive, got %g", c.MinAvgVolume))
	}
	if c.UniverseCap <= 0 {
		errs = append(errs, fmt.Sprintf("universe_cap must be positive, got %d", c.UniverseCap))
	}
	if c.EquitiesTop <= 0 {
		errs = append(errs, fmt.Sprintf("equities_top must be positive, got %d", c.EquitiesTop))
	}
	if c.ShortsTop < 0 {
		errs = append(errs, fmt.Sprintf("shorts_top must be non-negative, got %d", c.ShortsTop))
	}
	if c.ZScoreThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("zscore_threshold must be positive, got %g", c.ZScoreThreshold))
	}
	if c.QtyPrecision < 0 || c.QtyPrecision > 8 {
		errs = append(errs, fmt.Sprintf("qty_precision must be in [0,8], got %d", c.QtyPrecision))
	}
	if c.TrailPct < 0 {
		errs = append(errs, fmt.Sprintf("trail_pct must be non-negative, got %g", c.TrailPct))
	}
	if c.TimeExitMin <= 0 {
		errs = append(errs, fmt.Sprintf("time_exit_min must be positive, got %d", c.TimeExitMin))
	}
	if c.LookbackDays < 200 {
		errs = append(errs, fmt.Sprintf("lookback_days must be at least 200, got %d", c.LookbackDays))
	}
	if c.FetchDelayMs < 0 || c.OrderDelayMs < 0 {
		errs = append(errs, "throttle delays must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// TimeExit returns the hard holding limit as a duration.
func (c Config) TimeExit() time.Duration {
	return time.Duration(c.TimeExitMin) * time.Minute
}

// FetchDelay returns the minimum wait between history fetches.
func (c Config) FetchDelay() time.Duration {
	return time.Duration(c.FetchDelayMs) * time.Millisecond
}

// OrderDelay returns the minimum wait between order placements.
func (c Config) OrderDelay() time.Duration {
	return time.Duration(c.OrderDelayMs) * time.Millisecond
}

// Credentials holds broker API credentials loaded from the environment.
type Credentials struct {
	APIKey    string
	APISecret string
}

// LoadCredentials reads ALPACA_API_KEY / ALPACA_API_SECRET from the
// environment. Missing values are a fatal credential failure.
func LoadCredentials() (Credentials, error) {
	key := os.Getenv("ALPACA_API_KEY")
	secret := os.Getenv("ALPACA_API_SECRET")
	if key == "" || secret == "" {
		return Credentials{}, fmt.Errorf("ALPACA_API_KEY and ALPACA_API_SECRET must be set")
	}
	return Credentials{APIKey: key, APISecret: secret}, nil
}
