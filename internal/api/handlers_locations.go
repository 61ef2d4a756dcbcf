// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/store"
	"github.com/tomtom215/wayfarer/internal/validation"
)

// createLocationRequest is the POST /locations payload. Category
// accepts either a single string or a list of strings.
type createLocationRequest struct {
	LocationID  int                 `json:"locationId" validate:"required,min=1"`
	Name        string              `json:"name" validate:"required,min=1"`
	Category    models.CategoryList `json:"category"`
	Country     string              `json:"country" validate:"required,min=1"`
	City        string              `json:"city"`
	Address     string              `json:"address"`
	Description string              `json:"description"`
	Rating      *float64            `json:"rating" validate:"omitempty,min=0,max=5"`
}

// handleListLocations handles GET /api/v1/locations.
// Returns the catalog in ingestion order.
func (rt *Router) handleListLocations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	locs, err := rt.stores.Locations.AllLocations(r.Context())
	if err != nil {
		rt.writeStoreError(rw, err)
		return
	}
	if locs == nil {
		locs = []models.Location{}
	}
	rw.Success(map[string]interface{}{
		"locations": locs,
		"count":     len(locs),
	})
}

// handleGetLocation handles GET /api/v1/locations/{locationID}.
func (rt *Router) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	locationID, err := strconv.Atoi(chi.URLParam(r, "locationID"))
	if err != nil || locationID < 1 {
		rw.BadRequest("Invalid location ID")
		return
	}

	loc, err := rt.stores.Locations.LocationByID(r.Context(), locationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Location not found")
			return
		}
		rt.writeStoreError(rw, err)
		return
	}
	rw.Success(loc)
}

// handleSearchLocations handles GET /api/v1/locations/search?name=.
// Exact name matches win over substring matches; among substring
// matches the first in catalog order is returned.
func (rt *Router) handleSearchLocations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		rw.BadRequest("Parameter name is required")
		return
	}

	loc, err := rt.stores.Locations.LocationByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("No location matches the given name")
			return
		}
		rt.writeStoreError(rw, err)
		return
	}
	rw.Success(loc)
}

// handleCreateLocation handles POST /api/v1/locations.
func (rt *Router) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req createLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields)
		return
	}

	loc := &models.Location{
		LocationID:  req.LocationID,
		Name:        req.Name,
		Category:    req.Category,
		Country:     req.Country,
		City:        req.City,
		Address:     req.Address,
		Description: req.Description,
		Rating:      req.Rating,
	}
	if err := rt.stores.Locations.Put(r.Context(), loc); err != nil {
		rt.writeStoreError(rw, err)
		return
	}
	rw.Created(loc)
}
