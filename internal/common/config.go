// Package common provides shared utilities for navwatch
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for navwatch
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Sources     SourcesConfig    `toml:"sources"`
	Estimation  EstimationConfig `toml:"estimation"`
	Market      MarketConfig     `toml:"market"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Logging     LoggingConfig    `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects the persistence backend and holds SurrealDB connection settings.
type StorageConfig struct {
	Backend   string `toml:"backend"` // "surrealdb" (default) or "memory"
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// SourcesConfig holds the upstream feed endpoints and HTTP client behaviour.
type SourcesConfig struct {
	ReferenceURL string `toml:"reference_url"` // authoritative NAV (JSONP)
	HoldingsURL  string `toml:"holdings_url"`  // holdings composition + asset allocation pages
	QuoteURL     string `toml:"quote_url"`     // batched quote feed (GBK text)
	Timeout      string `toml:"timeout"`
	RateLimit    int    `toml:"rate_limit"` // requests per second, per client
	UserAgent    string `toml:"user_agent"`
}

// GetTimeout parses and returns the per-request timeout
func (c *SourcesConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 8 * time.Second
	}
	return d
}

// EstimationConfig holds the weighting defaults used by the estimator.
type EstimationConfig struct {
	MaxHoldings        int     `toml:"max_holdings"`
	DefaultStockWeight float64 `toml:"default_stock_weight"` // percent, used when the allocation page has no stock row
	DefaultBondWeight  float64 `toml:"default_bond_weight"`  // percent, used when the allocation page has no bond row
	BondIndexSymbol    string  `toml:"bond_index_symbol"`
}

// MarketConfig describes the exchange calendar.
type MarketConfig struct {
	Timezone string   `toml:"timezone"`
	Sessions []string `toml:"sessions"` // "HH:MM-HH:MM", inclusive
}

// SchedulerConfig holds the background loop settings.
type SchedulerConfig struct {
	HotInterval              string `toml:"hot_interval"`
	CalibrationCheckInterval string `toml:"calibration_check_interval"`
	CalibrationHour          int    `toml:"calibration_hour"`
	CalibrationDelay         string `toml:"calibration_delay"`
}

// GetHotInterval returns the recompute period for actively monitored funds.
func (c *SchedulerConfig) GetHotInterval() time.Duration {
	return parseDurationOr(c.HotInterval, 60*time.Second)
}

// GetCalibrationCheckInterval returns how often the calibration trigger is evaluated.
func (c *SchedulerConfig) GetCalibrationCheckInterval() time.Duration {
	return parseDurationOr(c.CalibrationCheckInterval, 30*time.Second)
}

// GetCalibrationDelay returns the spacing between reference requests during calibration.
func (c *SchedulerConfig) GetCalibrationDelay() time.Duration {
	return parseDurationOr(c.CalibrationDelay, 200*time.Millisecond)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Storage: StorageConfig{
			Backend:   "surrealdb",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "navwatch",
			Database:  "funds",
			Username:  "root",
			Password:  "root",
		},
		Sources: SourcesConfig{
			ReferenceURL: "http://fundgz.1234567.com.cn",
			HoldingsURL:  "https://fundf10.eastmoney.com",
			QuoteURL:     "http://qt.gtimg.cn",
			Timeout:      "8s",
			RateLimit:    10,
			UserAgent:    "Mozilla/5.0",
		},
		Estimation: EstimationConfig{
			MaxHoldings:        10,
			DefaultStockWeight: 88.0,
			DefaultBondWeight:  0.0,
			BondIndexSymbol:    "sh000012",
		},
		Market: MarketConfig{
			Timezone: "Asia/Shanghai",
			Sessions: []string{"09:15-11:30", "13:00-15:05"},
		},
		Scheduler: SchedulerConfig{
			HotInterval:              "60s",
			CalibrationCheckInterval: "30s",
			CalibrationHour:          21,
			CalibrationDelay:         "200ms",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Outputs:    []string{"console"},
			FilePath:   "./logs/navwatch.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	applyEstimationBounds(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NAVWATCH_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("NAVWATCH_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("NAVWATCH_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("NAVWATCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage overrides
	if v := os.Getenv("NAVWATCH_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("NAVWATCH_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("NAVWATCH_STORAGE_NAMESPACE"); v != "" {
		config.Storage.Namespace = v
	}
	if v := os.Getenv("NAVWATCH_STORAGE_DATABASE"); v != "" {
		config.Storage.Database = v
	}
	if v := os.Getenv("NAVWATCH_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("NAVWATCH_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	if tz := os.Getenv("NAVWATCH_TIMEZONE"); tz != "" {
		config.Market.Timezone = tz
	}

	if h := os.Getenv("NAVWATCH_CALIBRATION_HOUR"); h != "" {
		if v, err := strconv.Atoi(h); err == nil && v >= 0 && v < 24 {
			config.Scheduler.CalibrationHour = v
		}
	}
}

// applyEstimationBounds keeps weighting defaults inside 0..100 and the holdings cap positive.
func applyEstimationBounds(config *Config) {
	e := &config.Estimation
	if e.MaxHoldings <= 0 {
		e.MaxHoldings = 10
	}
	if e.DefaultStockWeight < 0 || e.DefaultStockWeight > 100 {
		e.DefaultStockWeight = 88.0
	}
	if e.DefaultBondWeight < 0 || e.DefaultBondWeight > 100 {
		e.DefaultBondWeight = 0
	}
	if strings.TrimSpace(e.BondIndexSymbol) == "" {
		e.BondIndexSymbol = "sh000012"
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveConfigPath picks the config file: explicit path, NAVWATCH_CONFIG,
// navwatch.toml next to the binary, then config/navwatch.toml.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("NAVWATCH_CONFIG"); env != "" {
		return env
	}
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), "navwatch.toml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "config/navwatch.toml"
}
