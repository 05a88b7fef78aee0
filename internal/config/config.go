// Package config defines the top-level configuration for marketscout and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARKETSCOUT_* environment
// variables.
type Config struct {
	Polymarket PolymarketConfig   `toml:"polymarket"`
	Database   DatabaseConfig     `toml:"database"`
	Redis      RedisConfig        `toml:"redis"`
	S3         S3Config           `toml:"s3"`
	Pipeline   PipelineConfig     `toml:"pipeline"`
	Server     ServerConfig       `toml:"server"`
	Scoring    domain.ScoreConfig `toml:"scoring"`
	Mode       string             `toml:"mode"`
	LogLevel   string             `toml:"log_level"`
}

// PolymarketConfig holds the catalog API endpoint and paging parameters.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	PageSize  int    `toml:"page_size"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for raw-catalog
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PipelineConfig holds sync scheduling parameters.
type PipelineConfig struct {
	SyncInterval duration `toml:"sync_interval"`
	SnapshotTTL  duration `toml:"snapshot_ttl"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "6h", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "6h" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			PageSize:  100,
		},
		Database: DatabaseConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "marketscout",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketscout-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Pipeline: PipelineConfig{
			SyncInterval: duration{6 * time.Hour},
			SnapshotTTL:  duration{5 * time.Minute},
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Scoring:  DefaultScoreConfig(),
		Mode:     "full",
		LogLevel: "info",
	}
}

// DefaultScoreConfig returns the built-in scoring parameters. An
// externally-stored override can replace any field group at run time.
func DefaultScoreConfig() domain.ScoreConfig {
	return domain.ScoreConfig{
		Weights: domain.ScoreWeights{
			ResolutionIntegrity:     25,
			LiquidityMicrostructure: 25,
			Modelability:            20,
			ParticipationQuality:    15,
			StrategicFit:            15,
		},
		Penalties: domain.ScorePenalties{
			Restricted:   -10,
			MissingTags:  -5,
			ShortHorizon: -15,
		},
		Thresholds: domain.ScoreThresholds{
			MinLiquidity:    1_000,
			MinVolume24h:    500,
			MinOpenInterest: 1_000,
			MinHorizonDays:  3,
		},
		Sectors: map[string][]string{
			"politics": {"politics", "elections", "geopolitics"},
			"economy":  {"economy", "fed", "inflation", "macro"},
			"crypto":   {"crypto", "bitcoin", "ethereum"},
			"science":  {"science", "climate", "ai"},
		},
		ExcludedTags:  []string{"sports", "esports", "celebrity"},
		RefPercentile: 0.90,
		BatchSize:     25,
		MaxMarkets:    0,
		ScoreVersion:  "v1",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"sync":   true,
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: sync, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Polymarket
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.PageSize < 1 || c.Polymarket.PageSize > 500 {
		errs = append(errs, fmt.Sprintf("polymarket: page_size must be 1-500, got %d", c.Polymarket.PageSize))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Pipeline
	if c.Pipeline.SyncInterval.Duration < time.Minute {
		errs = append(errs, "pipeline: sync_interval must be at least 1m")
	}
	if c.Pipeline.SnapshotTTL.Duration <= 0 {
		errs = append(errs, "pipeline: snapshot_ttl must be positive")
	}

	// Server
	needsServer := c.Mode == "server" || c.Mode == "full"
	if needsServer {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Scoring
	if c.Scoring.RefPercentile <= 0 || c.Scoring.RefPercentile > 1 {
		errs = append(errs, fmt.Sprintf("scoring: ref_percentile must be in (0, 1], got %g", c.Scoring.RefPercentile))
	}
	if c.Scoring.BatchSize < 1 {
		errs = append(errs, "scoring: batch_size must be >= 1")
	}
	if c.Scoring.MaxMarkets < 0 {
		errs = append(errs, "scoring: max_markets must be >= 0 (0 = no cap)")
	}
	if c.Scoring.ScoreVersion == "" {
		errs = append(errs, "scoring: score_version must not be empty")
	}
	for name, p := range map[string]float64{
		"restricted":    c.Scoring.Penalties.Restricted,
		"missing_tags":  c.Scoring.Penalties.MissingTags,
		"short_horizon": c.Scoring.Penalties.ShortHorizon,
	} {
		if p > 0 {
			errs = append(errs, fmt.Sprintf("scoring: penalty %s must be <= 0, got %g", name, p))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SyncInterval returns the pipeline sync interval as a time.Duration.
func (c *Config) SyncInterval() time.Duration { return c.Pipeline.SyncInterval.Duration }

// SnapshotTTL returns the browse snapshot cache TTL as a time.Duration.
func (c *Config) SnapshotTTL() time.Duration { return c.Pipeline.SnapshotTTL.Duration }
