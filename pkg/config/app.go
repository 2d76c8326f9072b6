package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig holds runtime settings for a service embedding the engine.
// Loaded from a TOML file; the quest/tier catalog is loaded separately
// via CatalogLoader.
type AppConfig struct {
	Log     LogConfig    `toml:"log"`
	DB      DBConfig     `toml:"db"`
	Engine  EngineConfig `toml:"engine"`
	Catalog string       `toml:"catalog"` // path to catalog.json
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	SSLMode      string `toml:"ssl_mode"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"` // seconds
}

// EngineConfig bounds the coordinator's retry and read-view behavior.
type EngineConfig struct {
	CreditRetries    int `toml:"credit_retries"`     // optimistic-conflict retries per crediting
	HistoryPageSize  int `toml:"history_page_size"`  // ledger entries per summary
	SummaryCacheSize int `toml:"summary_cache_size"` // bounded entries in the summary cache
	SummaryCacheTTL  int `toml:"summary_cache_ttl"`  // seconds
}

// Defaults applied when fields are absent from the TOML file.
const (
	DefaultCreditRetries    = 3
	DefaultHistoryPageSize  = 20
	DefaultSummaryCacheSize = 10000
	DefaultSummaryCacheTTL  = 5 // seconds, matches the notification-count cache precedent
)

// LoadAppConfig reads and decodes the TOML runtime configuration,
// filling unset engine fields with defaults.
func LoadAppConfig(path string) (*AppConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	var cfg AppConfig
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Engine.CreditRetries <= 0 {
		cfg.Engine.CreditRetries = DefaultCreditRetries
	}
	if cfg.Engine.HistoryPageSize <= 0 {
		cfg.Engine.HistoryPageSize = DefaultHistoryPageSize
	}
	if cfg.Engine.SummaryCacheSize <= 0 {
		cfg.Engine.SummaryCacheSize = DefaultSummaryCacheSize
	}
	if cfg.Engine.SummaryCacheTTL <= 0 {
		cfg.Engine.SummaryCacheTTL = DefaultSummaryCacheTTL
	}

	return &cfg, nil
}
