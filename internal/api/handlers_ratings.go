// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/store"
	"github.com/tomtom215/wayfarer/internal/validation"
)

// upsertRatingRequest is the PUT /ratings payload. A repeated PUT for
// the same (user, location) pair replaces the value.
type upsertRatingRequest struct {
	UserID     int     `json:"userId" validate:"required,min=1"`
	LocationID int     `json:"locationId" validate:"required,min=1"`
	Rating     float64 `json:"rating" validate:"required,min=1,max=5"`
}

// deleteRatingRequest is the DELETE /ratings payload.
type deleteRatingRequest struct {
	UserID     int `json:"userId" validate:"required,min=1"`
	LocationID int `json:"locationId" validate:"required,min=1"`
}

// handleListRatings handles GET /api/v1/ratings.
func (rt *Router) handleListRatings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ratings, err := rt.stores.Ratings.AllRatings(r.Context())
	if err != nil {
		rt.writeStoreError(rw, err)
		return
	}
	if ratings == nil {
		ratings = []models.Rating{}
	}
	rw.Success(map[string]interface{}{
		"ratings": ratings,
		"count":   len(ratings),
	})
}

// handleUserRatings handles GET /api/v1/ratings/user/{userID}.
// A user with no ratings is indistinguishable from an unknown user;
// both yield a 404.
func (rt *Router) handleUserRatings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID < 1 {
		rw.BadRequest("Invalid user ID")
		return
	}

	ratings, err := rt.stores.Ratings.RatingsForUser(r.Context(), userID)
	if err != nil {
		rt.writeStoreError(rw, err)
		return
	}
	if len(ratings) == 0 {
		rw.NotFound("No ratings found for user")
		return
	}
	rw.Success(map[string]interface{}{
		"ratings": ratings,
		"count":   len(ratings),
	})
}

// handleUpsertRating handles PUT /api/v1/ratings.
func (rt *Router) handleUpsertRating(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req upsertRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields)
		return
	}

	// The rated location must exist; ratings against unknown
	// locations would poison training.
	if _, err := rt.stores.Locations.LocationByID(r.Context(), req.LocationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Location not found")
			return
		}
		rt.writeStoreError(rw, err)
		return
	}

	rating := models.Rating{
		UserID:     req.UserID,
		LocationID: req.LocationID,
		Value:      req.Rating,
	}
	if err := rt.stores.Ratings.Upsert(r.Context(), rating); err != nil {
		rt.writeStoreError(rw, err)
		return
	}
	rw.Success(rating)
}

// handleDeleteRating handles DELETE /api/v1/ratings.
func (rt *Router) handleDeleteRating(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req deleteRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields)
		return
	}

	if err := rt.stores.Ratings.Delete(r.Context(), req.UserID, req.LocationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Rating not found")
			return
		}
		rt.writeStoreError(rw, err)
		return
	}
	rw.NoContent()
}

// writeStoreError maps storage failures to API errors. An open
// circuit breaker reads as temporary unavailability, anything else as
// an internal storage fault.
func (rt *Router) writeStoreError(rw *ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		rw.ServiceUnavailable("Storage is temporarily unavailable")
		return
	}
	rw.StoreError(err)
}
