package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hollis-labs/marketscout/internal/pipeline"
	"github.com/hollis-labs/marketscout/internal/server"
	"github.com/hollis-labs/marketscout/internal/server/handler"
)

// SyncMode executes a single catalog sync run and exits. Intended for cron
// or one-off invocations.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	syncer := a.newSyncer(deps)

	summary, err := syncer.RunSync(ctx)
	if err != nil {
		return fmt.Errorf("app: sync run: %w", err)
	}

	a.logger.InfoContext(ctx, "sync run finished",
		slog.Int("event_count", summary.EventCount),
		slog.Int("market_count", summary.MarketCount),
		slog.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return nil
}

// ServerMode starts the HTTP API without an embedded sync pipeline. The
// trigger endpoint reports unavailable; syncs are expected to run in a
// separate process.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	srv := a.newServer(deps, nil)
	return a.runServer(ctx, srv, nil)
}

// FullMode starts the HTTP API plus the interval sync scheduler with an
// on-demand trigger channel. This is the default mode.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	runner := pipeline.NewRunner(a.newSyncer(deps), a.cfg.SyncInterval(), a.logger)
	srv := a.newServer(deps, runner)
	return a.runServer(ctx, srv, runner)
}

// newSyncer builds the sync pipeline from wired dependencies.
func (a *App) newSyncer(deps *Dependencies) *pipeline.Syncer {
	return pipeline.NewSyncer(
		deps.Gamma,
		pipeline.Stores{
			Markets:     deps.Markets,
			Scores:      deps.Scores,
			Annotations: deps.Annotations,
			Status:      deps.Status,
			ScoreConfig: deps.ScoreConfig,
		},
		deps.LockManager,
		deps.BlobWriter,
		deps.Snapshots,
		a.cfg.Scoring,
		a.logger,
	)
}

// newServer builds the HTTP server with all handlers registered. trigger may
// be nil when no pipeline runs in this process.
func (a *App) newServer(deps *Dependencies, trigger handler.SyncTrigger) *server.Server {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.cfg.Mode),
		Sync:   handler.NewSyncHandler(deps.Status, trigger, a.logger),
		Markets: handler.NewMarketHandler(
			deps.Browse,
			deps.Markets,
			deps.Scores,
			deps.Annotations,
			deps.Snapshots,
			a.cfg.SnapshotTTL(),
			a.logger,
		),
		Annotations: handler.NewAnnotationHandler(deps.Annotations, a.logger),
		ScoreConfig: handler.NewScoreConfigHandler(deps.ScoreConfig, a.cfg.Scoring, a.logger),
	}
	if deps.BlobReader != nil {
		handlers.Archives = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}

	return server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, a.logger)
}

// runServer runs the HTTP server and, when runner is non-nil, the sync
// scheduler, until ctx is cancelled. Shutdown drains in-flight requests.
func (a *App) runServer(ctx context.Context, srv *server.Server, runner *pipeline.Runner) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := srv.Start()
		if gctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	if runner != nil {
		g.Go(func() error {
			err := runner.Run(gctx)
			if gctx.Err() != nil {
				return nil // clean shutdown
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
