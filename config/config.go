// Package config loads the dashboard configuration: built-in defaults,
// then an optional YAML file, then environment overrides.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Data sources for the market data client.
const (
	SourceBinance  = "binance"
	SourceBybit    = "bybit"
	SourceSimulate = "simulate"
)

// Config holds every tunable of the dashboard core.
type Config struct {
	DataSource string
	AssetID    int
	Currency   string

	InitialCash     decimal.Decimal
	InitialBTC      decimal.Decimal
	MinTradeBTC     decimal.Decimal
	BuyMaxThreshold decimal.Decimal

	UpdateInterval     time.Duration
	InitialDelay       time.Duration
	MaxBackoffInterval time.Duration
	RequestTimeout     time.Duration
	CacheValidWindow   time.Duration
	HistoryLimit       int
	EventBuffer        int

	ListenAddr  string
	TLSDomains  []string
	TLSCacheDir string
}

// configTmp mirrors Config for YAML decoding; decimals travel as strings.
type configTmp struct {
	DataSource string `yaml:"data_source,omitempty"`
	AssetID    int    `yaml:"asset_id,omitempty"`
	Currency   string `yaml:"currency,omitempty"`

	InitialCash     string `yaml:"initial_cash,omitempty"`
	InitialBTC      string `yaml:"initial_btc,omitempty"`
	MinTradeBTC     string `yaml:"min_trade_btc,omitempty"`
	BuyMaxThreshold string `yaml:"buy_max_threshold,omitempty"`

	UpdateInterval     string `yaml:"update_interval,omitempty"`
	InitialDelay       string `yaml:"initial_delay,omitempty"`
	MaxBackoffInterval string `yaml:"max_backoff_interval,omitempty"`
	RequestTimeout     string `yaml:"request_timeout,omitempty"`
	CacheValidWindow   string `yaml:"cache_valid_window,omitempty"`
	HistoryLimit       int    `yaml:"history_limit,omitempty"`
	EventBuffer        int    `yaml:"event_buffer,omitempty"`

	ListenAddr  string   `yaml:"listen_addr,omitempty"`
	TLSDomains  []string `yaml:"tls_domains,omitempty"`
	TLSCacheDir string   `yaml:"tls_cache_dir,omitempty"`
}

// envOverrides uses pointers so unset variables leave file/default
// values untouched.
type envOverrides struct {
	DataSource     *string        `env:"BITDASH_DATA_SOURCE"`
	Currency       *string        `env:"BITDASH_CURRENCY"`
	InitialCash    *string        `env:"BITDASH_INITIAL_CASH"`
	InitialBTC     *string        `env:"BITDASH_INITIAL_BTC"`
	UpdateInterval *time.Duration `env:"BITDASH_UPDATE_INTERVAL"`
	HistoryLimit   *int           `env:"BITDASH_HISTORY_LIMIT"`
	ListenAddr     *string        `env:"BITDASH_LISTEN_ADDR"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataSource:         SourceSimulate,
		AssetID:            1,
		Currency:           "USD",
		InitialCash:        decimal.NewFromInt(10000),
		InitialBTC:         decimal.Zero,
		MinTradeBTC:        decimal.New(1, -8),
		BuyMaxThreshold:    decimal.NewFromFloat(0.01),
		UpdateInterval:     60 * time.Second,
		InitialDelay:       2 * time.Second,
		MaxBackoffInterval: 30 * time.Minute,
		RequestTimeout:     30 * time.Second,
		CacheValidWindow:   90 * time.Second,
		HistoryLimit:       287,
		EventBuffer:        256,
		ListenAddr:         ":8080",
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := applyYaml(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.HistoryLimit < 1 {
		return Config{}, errors.Errorf("history_limit must be at least 1, got %d", cfg.HistoryLimit)
	}
	if cfg.InitialCash.LessThan(decimal.Zero) || cfg.InitialBTC.LessThan(decimal.Zero) {
		return Config{}, errors.New("initial balances must be non-negative")
	}

	return cfg, nil
}

func applyYaml(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}

	var tmp configTmp
	if err := yaml.Unmarshal(raw, &tmp); err != nil {
		return errors.Wrap(err, "decode yaml config")
	}

	if tmp.DataSource != "" {
		cfg.DataSource = tmp.DataSource
	}
	if tmp.AssetID != 0 {
		cfg.AssetID = tmp.AssetID
	}
	if tmp.Currency != "" {
		cfg.Currency = tmp.Currency
	}
	if err := assignDecimal(&cfg.InitialCash, tmp.InitialCash, "initial_cash"); err != nil {
		return err
	}
	if err := assignDecimal(&cfg.InitialBTC, tmp.InitialBTC, "initial_btc"); err != nil {
		return err
	}
	if err := assignDecimal(&cfg.MinTradeBTC, tmp.MinTradeBTC, "min_trade_btc"); err != nil {
		return err
	}
	if err := assignDecimal(&cfg.BuyMaxThreshold, tmp.BuyMaxThreshold, "buy_max_threshold"); err != nil {
		return err
	}
	if err := assignDuration(&cfg.UpdateInterval, tmp.UpdateInterval, "update_interval"); err != nil {
		return err
	}
	if err := assignDuration(&cfg.InitialDelay, tmp.InitialDelay, "initial_delay"); err != nil {
		return err
	}
	if err := assignDuration(&cfg.MaxBackoffInterval, tmp.MaxBackoffInterval, "max_backoff_interval"); err != nil {
		return err
	}
	if err := assignDuration(&cfg.RequestTimeout, tmp.RequestTimeout, "request_timeout"); err != nil {
		return err
	}
	if err := assignDuration(&cfg.CacheValidWindow, tmp.CacheValidWindow, "cache_valid_window"); err != nil {
		return err
	}
	if tmp.HistoryLimit != 0 {
		cfg.HistoryLimit = tmp.HistoryLimit
	}
	if tmp.EventBuffer != 0 {
		cfg.EventBuffer = tmp.EventBuffer
	}
	if tmp.ListenAddr != "" {
		cfg.ListenAddr = tmp.ListenAddr
	}
	if len(tmp.TLSDomains) > 0 {
		cfg.TLSDomains = tmp.TLSDomains
	}
	if tmp.TLSCacheDir != "" {
		cfg.TLSCacheDir = tmp.TLSCacheDir
	}

	return nil
}

func applyEnv(cfg *Config) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return errors.Wrap(err, "parse environment")
	}

	if overrides.DataSource != nil {
		cfg.DataSource = *overrides.DataSource
	}
	if overrides.Currency != nil {
		cfg.Currency = *overrides.Currency
	}
	if overrides.InitialCash != nil {
		if err := assignDecimal(&cfg.InitialCash, *overrides.InitialCash, "BITDASH_INITIAL_CASH"); err != nil {
			return err
		}
	}
	if overrides.InitialBTC != nil {
		if err := assignDecimal(&cfg.InitialBTC, *overrides.InitialBTC, "BITDASH_INITIAL_BTC"); err != nil {
			return err
		}
	}
	if overrides.UpdateInterval != nil {
		cfg.UpdateInterval = *overrides.UpdateInterval
	}
	if overrides.HistoryLimit != nil {
		cfg.HistoryLimit = *overrides.HistoryLimit
	}
	if overrides.ListenAddr != nil {
		cfg.ListenAddr = *overrides.ListenAddr
	}

	return nil
}

func assignDuration(dst *time.Duration, raw, name string) error {
	if raw == "" {
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "incorrect %q param (must be a duration like 30s or 5m)", name)
	}
	if parsed <= 0 {
		return errors.Errorf("incorrect %q param (must be positive, got %s)", name, parsed)
	}
	*dst = parsed
	return nil
}

func assignDecimal(dst *decimal.Decimal, raw, name string) error {
	if raw == "" {
		return nil
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return errors.Wrapf(err, "incorrect %q param (must be a decimal)", name)
	}
	*dst = parsed
	return nil
}
