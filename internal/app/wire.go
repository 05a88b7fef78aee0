package app

import (
	"context"
	"fmt"

	s3blob "github.com/hollis-labs/marketscout/internal/blob/s3"
	"github.com/hollis-labs/marketscout/internal/cache/redis"
	"github.com/hollis-labs/marketscout/internal/config"
	"github.com/hollis-labs/marketscout/internal/domain"
	"github.com/hollis-labs/marketscout/internal/platform/polymarket"
	"github.com/hollis-labs/marketscout/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	Markets     domain.MarketStore
	Scores      domain.ScoreStore
	Annotations domain.AnnotationStore
	Status      domain.RunStatusStore
	ScoreConfig domain.ScoreConfigStore
	Browse      domain.BrowseReader

	// Caches
	LockManager domain.LockManager
	Snapshots   domain.SnapshotCache

	// Blob storage (nil when s3.enabled = false)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader

	// Upstream catalog
	Gamma *polymarket.GammaClient
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Markets = postgres.NewMarketStore(pool)
	deps.Scores = postgres.NewScoreStore(pool)
	deps.Annotations = postgres.NewAnnotationStore(pool)
	deps.Status = postgres.NewRunStatusStore(pool)
	deps.ScoreConfig = postgres.NewScoreConfigStore(pool)
	deps.Browse = postgres.NewBrowseStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.LockManager = redis.NewLockManager(redisClient)
	deps.Snapshots = redis.NewSnapshotCache(redisClient)

	// --- S3 blob storage (optional raw-catalog archive) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
	}

	// --- Upstream catalog client ---
	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost, cfg.Polymarket.PageSize)

	return deps, cleanup, nil
}
