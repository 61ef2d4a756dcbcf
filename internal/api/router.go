// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/wayfarer/internal/recommend"
	"github.com/tomtom215/wayfarer/internal/store"
)

// Stores bundles the storage collaborators handlers read and write.
type Stores struct {
	Ratings   store.RatingStore
	Locations store.LocationStore
	Clusters  store.ClusterStore
	Users     store.UserStore
}

// Router wires handlers and middleware into a chi mux.
type Router struct {
	engine *recommend.Engine
	stores Stores
	cfg    *MiddlewareConfig
}

// NewRouter creates a router over the given engine and stores. A nil
// cfg selects DefaultMiddlewareConfig.
func NewRouter(engine *recommend.Engine, stores Stores, cfg *MiddlewareConfig) *Router {
	if cfg == nil {
		cfg = DefaultMiddlewareConfig()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Router{engine: engine, stores: stores, cfg: cfg}
}

// Handler builds the full HTTP handler tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(Instrument)
	r.Use(CORS(rt.cfg))
	r.Use(RateLimit(rt.cfg))
	r.Use(chimiddleware.Timeout(rt.cfg.RequestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/recommendations", rt.handleRecommendGuest)
		r.Get("/recommendations/{userID}", rt.handleRecommendUser)

		r.Route("/ratings", func(r chi.Router) {
			r.Get("/", rt.handleListRatings)
			r.Get("/user/{userID}", rt.handleUserRatings)
			r.Put("/", rt.handleUpsertRating)
			r.Delete("/", rt.handleDeleteRating)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", rt.handleListLocations)
			r.Get("/search", rt.handleSearchLocations)
			r.Get("/{locationID}", rt.handleGetLocation)
			r.Post("/", rt.handleCreateLocation)
		})

		r.Route("/recommend", func(r chi.Router) {
			r.Get("/status", rt.handleRecommendStatus)
			r.Post("/train", rt.handleTriggerTrain)
		})

		r.Route("/health", func(r chi.Router) {
			r.Get("/", rt.handleHealth)
			r.Get("/live", rt.handleLiveness)
			r.Get("/ready", rt.handleReadiness)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	return r
}
