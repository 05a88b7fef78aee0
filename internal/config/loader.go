package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETSCOUT_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETSCOUT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "MARKETSCOUT_POLYMARKET_GAMMA_HOST")
	setInt(&cfg.Polymarket.PageSize, "MARKETSCOUT_POLYMARKET_PAGE_SIZE")

	// ── Database ──
	setStr(&cfg.Database.DSN, "MARKETSCOUT_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "MARKETSCOUT_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "MARKETSCOUT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "MARKETSCOUT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "MARKETSCOUT_DATABASE_NAME")
	setStr(&cfg.Database.User, "MARKETSCOUT_DATABASE_USER")
	setStr(&cfg.Database.Password, "MARKETSCOUT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "MARKETSCOUT_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "MARKETSCOUT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "MARKETSCOUT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "MARKETSCOUT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MARKETSCOUT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETSCOUT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETSCOUT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETSCOUT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETSCOUT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETSCOUT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MARKETSCOUT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MARKETSCOUT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETSCOUT_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKETSCOUT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARKETSCOUT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETSCOUT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETSCOUT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETSCOUT_S3_FORCE_PATH_STYLE")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.SyncInterval, "MARKETSCOUT_PIPELINE_SYNC_INTERVAL")
	setDuration(&cfg.Pipeline.SnapshotTTL, "MARKETSCOUT_PIPELINE_SNAPSHOT_TTL")

	// ── Server ──
	setInt(&cfg.Server.Port, "MARKETSCOUT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "MARKETSCOUT_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETSCOUT_SERVER_CORS_ORIGINS")

	// ── Scoring ──
	setFloat64(&cfg.Scoring.RefPercentile, "MARKETSCOUT_SCORING_REF_PERCENTILE")
	setInt(&cfg.Scoring.BatchSize, "MARKETSCOUT_SCORING_BATCH_SIZE")
	setInt(&cfg.Scoring.MaxMarkets, "MARKETSCOUT_SCORING_MAX_MARKETS")
	setStr(&cfg.Scoring.ScoreVersion, "MARKETSCOUT_SCORING_SCORE_VERSION")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETSCOUT_MODE")
	setStr(&cfg.LogLevel, "MARKETSCOUT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
