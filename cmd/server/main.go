// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package main is the entry point for the Wayfarer server.
//
// Wayfarer is a hybrid recommendation service for tourist destinations.
// It combines collaborative filtering, content similarity and
// demographic clustering behind a single HTTP API, routing each
// request to a strategy based on the user's rating history and the
// free-text query.
//
// Startup order:
//
//  1. Configuration: Koanf v2 layered load (env > config file > defaults)
//  2. Logging: global zerolog logger
//  3. Store: embedded BadgerDB, optionally behind circuit breakers
//  4. Engine: hybrid decision engine with its model builder
//  5. Supervision: suture tree running the retrain loop and HTTP server
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/wayfarer/internal/api"
	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/recommend"
	"github.com/tomtom215/wayfarer/internal/recommend/algorithms"
	"github.com/tomtom215/wayfarer/internal/store"
	"github.com/tomtom215/wayfarer/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", api.Version).
		Int("port", cfg.Server.Port).
		Bool("in_memory_store", cfg.Store.InMemory).
		Msg("Wayfarer starting")

	db, err := store.Open(store.Options{
		Path:     cfg.Store.Path,
		InMemory: cfg.Store.InMemory,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Closing store failed")
		}
	}()

	ratings, locations, clusters, users := buildStores(db, cfg.Store.BreakerEnabled)

	builder := algorithms.NewBuilder(algorithms.BuilderConfig{
		ItemCF: algorithms.ItemCFConfig{
			K: cfg.Recommend.NeighborK,
		},
		Content: algorithms.ContentTFIDFConfig{
			K: cfg.Recommend.NeighborK,
		},
		KMeans: algorithms.KMeansConfig{
			K:    cfg.Recommend.ClusterCount,
			Seed: cfg.Recommend.Seed,
		},
	})

	engine := recommend.NewEngine(recommend.Config{
		DefaultN:             cfg.Recommend.DefaultN,
		MaxN:                 cfg.Recommend.MaxN,
		RichHistoryThreshold: cfg.Recommend.RichHistoryThreshold,
		NeighborK:            cfg.Recommend.NeighborK,
	}, recommend.Stores{
		Ratings:   ratings,
		Locations: locations,
		Clusters:  clusters,
		Users:     users,
	}, builder)

	router := api.NewRouter(engine, api.Stores{
		Ratings:   ratings,
		Locations: locations,
		Clusters:  clusters,
		Users:     users,
	}, middlewareConfig(cfg))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Handler(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddEngineService(supervisor.NewTrainService(
		&timeoutTrainer{engine: engine, timeout: cfg.Recommend.TrainTimeout},
		cfg.Recommend.TrainInterval,
		cfg.Recommend.TrainOnStartup,
	))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Serving")
	err = tree.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor: %w", err)
	}

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service missed shutdown deadline")
		}
	}

	logging.Info().Msg("Wayfarer stopped")
	return nil
}

// buildStores wires the badger stores, behind per-store circuit
// breakers when enabled.
func buildStores(db *store.DB, breakers bool) (store.RatingStore, store.LocationStore, store.ClusterStore, store.UserStore) {
	var (
		ratings   store.RatingStore   = store.NewRatingStore(db)
		locations store.LocationStore = store.NewLocationStore(db)
		clusters  store.ClusterStore  = store.NewClusterStore(db)
		users     store.UserStore     = store.NewUserStore(db)
	)
	if breakers {
		ratings = store.NewBreakerRatingStore(ratings)
		locations = store.NewBreakerLocationStore(locations)
		clusters = store.NewBreakerClusterStore(clusters)
		users = store.NewBreakerUserStore(users)
	}
	return ratings, locations, clusters, users
}

func middlewareConfig(cfg *config.Config) *api.MiddlewareConfig {
	mw := api.DefaultMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mw.RateLimitDisabled = cfg.Security.RateLimitDisabled
	if cfg.Security.RateLimitReqs > 0 {
		mw.RateLimitRequests = cfg.Security.RateLimitReqs
	}
	if cfg.Security.RateLimitWindow > 0 {
		mw.RateLimitWindow = cfg.Security.RateLimitWindow
	}
	if cfg.Recommend.RequestTimeout > 0 {
		mw.RequestTimeout = cfg.Recommend.RequestTimeout
	}
	return mw
}

// timeoutTrainer bounds each scheduled rebuild.
type timeoutTrainer struct {
	engine  *recommend.Engine
	timeout time.Duration
}

func (t *timeoutTrainer) Train(ctx context.Context) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.engine.Train(ctx)
}
