// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package models defines the shared data types for the catalog, ratings,
// and cluster assignment stores.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// CategoryList is a normalized list of category tags.
//
// Historical catalog exports stored category as a bare string, a list,
// or omitted it entirely. Normalization happens exactly once, at the
// JSON boundary: after unmarshaling, a CategoryList is always non-nil
// and downstream code may range over it unconditionally.
type CategoryList []string

// UnmarshalJSON accepts a string, a list of strings, or null.
func (c *CategoryList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == `""` {
		*c = CategoryList{}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*c = normalizeTags(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = normalizeTags(strings.Split(single, ","))
		return nil
	}

	return fmt.Errorf("category must be a string or list of strings, got %s", trimmed)
}

// MarshalJSON always emits a JSON array, never null.
func (c CategoryList) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(c))
}

// normalizeTags trims whitespace and drops empty entries.
func normalizeTags(tags []string) CategoryList {
	out := make(CategoryList, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Location is a tourist destination in the catalog.
// Name acts as a secondary human key and must be unique for
// exact-match lookup. Instances are immutable within a request.
type Location struct {
	// LocationID is the unique catalog identifier.
	LocationID int `json:"locationId"`

	// Name is the destination name (unique, case-insensitive lookup key).
	Name string `json:"name"`

	// Category holds zero or more tags, always a list after ingestion.
	Category CategoryList `json:"category"`

	// Country is the destination's country.
	Country string `json:"country"`

	// City is the destination's city.
	City string `json:"city,omitempty"`

	// Address is a free-form street address.
	Address string `json:"address,omitempty"`

	// Description is free text used for content similarity.
	Description string `json:"description,omitempty"`

	// Rating is the aggregate rating, nil when no ratings exist yet.
	Rating *float64 `json:"rating,omitempty"`

	// Position is the ingestion-order index within the catalog.
	// It is the tie-break key for all equal-score rankings.
	Position int `json:"position"`
}

// Rating is a single user's rating of a location.
// At most one rating exists per (user, location) pair.
type Rating struct {
	UserID     int     `json:"userId"`
	LocationID int     `json:"locationId"`
	Value      float64 `json:"rating"`

	// RatedAt is when the rating was last written.
	RatedAt time.Time `json:"ratedAt,omitempty"`
}

// ClusterAssignment maps a user to a cold-start cluster label.
type ClusterAssignment struct {
	UserID  int `json:"userId"`
	Cluster int `json:"cluster"`
}

// UserProfile holds the demographic features consumed by the
// cold-start clustering classifier.
type UserProfile struct {
	UserID      int    `json:"userId"`
	AgeGroup    string `json:"ageGroup,omitempty"`
	HomeCountry string `json:"homeCountry,omitempty"`
	Occupation  string `json:"occupation,omitempty"`
}
