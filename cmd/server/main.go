// Package main is the entry point for the probabilistic noise and
// Bayesian distance service. It wires the inference components, the
// snapshot database, the maintenance scheduler, and the HTTP API, then
// waits for a shutdown signal.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/qbayes/internal/config"
	"github.com/aristath/qbayes/internal/database"
	"github.com/aristath/qbayes/internal/modules/bayes"
	"github.com/aristath/qbayes/internal/modules/mahalanobis"
	"github.com/aristath/qbayes/internal/modules/optimizer"
	"github.com/aristath/qbayes/internal/modules/quantumbayes"
	"github.com/aristath/qbayes/internal/modules/spectral"
	"github.com/aristath/qbayes/internal/modules/state"
	"github.com/aristath/qbayes/internal/scheduler"
	"github.com/aristath/qbayes/internal/server"
	"github.com/aristath/qbayes/pkg/logger"
)

// spectralCacheMaxEntries bounds the cache before the sweep job clears it.
const spectralCacheMaxEntries = 4096

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting inference service")

	snapshotsDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("snapshots"),
		Profile: database.ProfileStandard,
		Name:    "snapshots",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open snapshots database")
	}
	defer snapshotsDB.Close()

	// Core inference components.
	bayesEngine := bayes.NewEngine(log)
	estimator := mahalanobis.NewEstimator(log)
	scorer := quantumbayes.NewScorer(bayesEngine, estimator, log)
	collapser := quantumbayes.NewCollapser(bayesEngine, scorer, estimator, cfg.DefaultInfluence, log)
	cache := spectral.NewCache(log)
	opt := optimizer.New(estimator, log)

	stateRepo, err := state.NewRepository(snapshotsDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot repository")
	}

	srv := server.New(server.Config{
		Log:         log,
		Config:      cfg,
		SnapshotsDB: snapshotsDB,
		BayesEngine: bayesEngine,
		Estimator:   estimator,
		Scorer:      scorer,
		Collapser:   collapser,
		Cache:       cache,
		Optimizer:   opt,
		StateRepo:   stateRepo,
	})

	// Maintenance jobs.
	sched := scheduler.New(log)
	pruneJob := &scheduler.SnapshotPruneJob{
		Repo:      stateRepo,
		Retention: cfg.SnapshotRetention,
		Log:       log,
	}
	sweepJob := &scheduler.SpectralSweepJob{
		Cache:      cache,
		MaxEntries: spectralCacheMaxEntries,
		Mu:         srv.Mutex(),
		Log:        log,
	}
	if err := sched.AddJob(cfg.MaintenanceSpec, pruneJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot prune job")
	}
	if err := sched.AddJob(cfg.MaintenanceSpec, sweepJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register spectral sweep job")
	}
	sched.Start()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Service stopped")
}
