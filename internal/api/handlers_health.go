// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"net/http"
	"time"
)

// Version is the build version, overridden at link time.
var Version = "dev"

var startTime = time.Now()

// healthStatus is the GET /health payload.
type healthStatus struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	StoreOK       bool    `json:"store_ok"`
	ModelReady    bool    `json:"model_ready"`
	ModelVersion  int     `json:"model_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// handleHealth handles GET /api/v1/health.
// Degraded means serving but without a usable model or store.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	storeOK := rt.storeReachable(r)
	st := rt.engine.Status()
	modelReady := st.ModelVersion > 0

	status := "healthy"
	if !storeOK || !modelReady {
		status = "degraded"
	}

	rw.Success(healthStatus{
		Status:        status,
		Version:       Version,
		StoreOK:       storeOK,
		ModelReady:    modelReady,
		ModelVersion:  st.ModelVersion,
		UptimeSeconds: time.Since(startTime).Seconds(),
	})
}

// handleLiveness handles GET /api/v1/health/live.
// Alive as long as the process answers.
func (rt *Router) handleLiveness(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// handleReadiness handles GET /api/v1/health/ready.
// Ready once a model snapshot exists and the store answers.
func (rt *Router) handleReadiness(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if rt.engine.Status().ModelVersion == 0 {
		rw.ServiceUnavailable("Model has not been trained yet")
		return
	}
	if !rt.storeReachable(r) {
		rw.ServiceUnavailable("Storage is not reachable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// storeReachable probes the catalog store with the request context.
func (rt *Router) storeReachable(r *http.Request) bool {
	_, err := rt.stores.Locations.AllLocations(r.Context())
	return err == nil
}
