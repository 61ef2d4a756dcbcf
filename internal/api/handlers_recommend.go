// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/recommend"
	"github.com/tomtom215/wayfarer/internal/store"
)

// handleRecommendGuest handles GET /api/v1/recommendations.
// Serves a guest session: no rating history, query-driven only.
func (rt *Router) handleRecommendGuest(w http.ResponseWriter, r *http.Request) {
	rt.serveRecommendations(w, r, nil)
}

// handleRecommendUser handles GET /api/v1/recommendations/{userID}.
func (rt *Router) handleRecommendUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID < 1 {
		rw.BadRequest("Invalid user ID")
		return
	}
	rt.serveRecommendations(w, r, &userID)
}

func (rt *Router) serveRecommendations(w http.ResponseWriter, r *http.Request, userID *int) {
	rw := NewResponseWriter(w, r)

	n := 0
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil || parsed < 1 {
			rw.BadRequest("Parameter n must be a positive integer")
			return
		}
		n = parsed
	}

	req := recommend.Request{
		UserID:    userID,
		Query:     r.URL.Query().Get("q"),
		N:         n,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}

	resp, err := rt.engine.Recommend(r.Context(), req)
	switch {
	case err == nil:
		rw.Success(resp)
	case errors.Is(err, recommend.ErrNotReady):
		rw.ServiceUnavailable("Recommendation model is not ready yet")
	case errors.Is(err, store.ErrUnavailable):
		rw.ServiceUnavailable("Storage is temporarily unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		rw.Error(http.StatusGatewayTimeout, ErrCodeInternalError, "Request timed out")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Recommendation failed")
		rw.InternalError("Failed to generate recommendations")
	}
}

// handleRecommendStatus handles GET /api/v1/recommend/status.
func (rt *Router) handleRecommendStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(rt.engine.Status())
}

// handleTriggerTrain handles POST /api/v1/recommend/train. The rebuild
// runs in the background; concurrent triggers get a 409.
func (rt *Router) handleTriggerTrain(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if rt.engine.Status().IsTraining {
		rw.Conflict("Training is already in progress")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if err := rt.engine.Train(ctx); err != nil {
			if errors.Is(err, recommend.ErrTrainingInProgress) {
				return
			}
			logging.Error().Err(err).Msg("Background training failed")
			return
		}
		logging.Info().Msg("Background training completed")
	}()

	rw.Accepted(map[string]string{"message": "Training started"})
}
