// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package recommend

import (
	"context"
	"time"

	"github.com/tomtom215/wayfarer/internal/models"
)

// Verdict classifies free-text query input.
type Verdict int

const (
	// VerdictNone means the input is empty or absent. No query
	// refinement applies.
	VerdictNone Verdict = iota
	// VerdictExactName means the input equals a location name,
	// case-insensitively. Checked before VerdictCountry; a name
	// match is the stronger, more specific signal.
	VerdictExactName
	// VerdictCountry means the input is a substring of some
	// location's country field, case-insensitively.
	VerdictCountry
	// VerdictKeyword means none of the above matched.
	VerdictKeyword
)

// String returns a human-readable verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictNone:
		return "none"
	case VerdictExactName:
		return "exact_name"
	case VerdictCountry:
		return "country"
	case VerdictKeyword:
		return "keyword"
	default:
		return "unknown"
	}
}

// Strategy identifies which candidate generator served a request.
type Strategy int

const (
	// StrategyPopularity is the guest / global fallback ranking.
	StrategyPopularity Strategy = iota
	// StrategyContent is content-similarity generation.
	StrategyContent
	// StrategyCluster is cold-start peer aggregation.
	StrategyCluster
	// StrategyCollaborative is item-neighbor generation over the
	// user's rating history.
	StrategyCollaborative
)

// String returns a human-readable strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyPopularity:
		return "popularity"
	case StrategyContent:
		return "content"
	case StrategyCluster:
		return "cluster"
	case StrategyCollaborative:
		return "collaborative"
	default:
		return "unknown"
	}
}

// Candidate is a transient ranked item produced by a generator. Not
// persisted.
type Candidate struct {
	LocationID int     `json:"location_id"`
	Score      float64 `json:"score"`
}

// Request is a recommendation request.
type Request struct {
	// UserID identifies the requesting user. Nil means guest.
	UserID *int `json:"user_id,omitempty"`

	// Query is optional free-text input, interpreted by the
	// classifier.
	Query string `json:"query,omitempty"`

	// N is the number of records to return. Zero means the
	// configured default.
	N int `json:"n,omitempty"`

	// RequestID is a unique identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// Record is one assembled recommendation.
type Record struct {
	LocationID  int      `json:"locationId"`
	Name        string   `json:"name"`
	Category    []string `json:"category"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city"`
	Country     string   `json:"country"`
	Description string   `json:"description"`
	// Rating is the aggregate rating, absent when the location has
	// none yet.
	Rating *float64 `json:"rating"`
}

// Response is an ordered list of at most n records plus diagnostics.
type Response struct {
	Records  []Record         `json:"records"`
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata carries timing and diagnostic information.
type ResponseMetadata struct {
	RequestID    string    `json:"request_id"`
	Strategy     string    `json:"strategy"`
	Verdict      string    `json:"verdict"`
	LatencyMS    int64     `json:"latency_ms"`
	ModelVersion int       `json:"model_version"`
	Timestamp    time.Time `json:"timestamp"`
}

// TrainingData is the corpus a model rebuild consumes.
type TrainingData struct {
	Ratings   []models.Rating
	Locations []models.Location
	Profiles  []models.UserProfile
}

// NeighborModel lists the nearest neighbors of a catalog item. A
// missing row yields an empty slice, never an error.
type NeighborModel interface {
	Name() string
	IsTrained() bool
	// Neighbors returns up to k neighbors of the given location,
	// descending by score, ties broken by catalog order, the query
	// item excluded.
	Neighbors(locationID, k int) []Candidate
}

// PopularityModel ranks the catalog by aggregate rating.
type PopularityModel interface {
	Name() string
	// Ranking returns up to n locations by mean rating descending,
	// ties broken by catalog order, unrated locations after rated
	// ones.
	Ranking(n int) []Candidate
}

// ClusterModel partitions users by demographic features.
type ClusterModel interface {
	Name() string
	// Assignments returns the cluster label computed for every
	// profile seen at training time.
	Assignments() map[int]int
	// Assign places a previously unseen profile into the nearest
	// cluster.
	Assign(p models.UserProfile) int
}

// ModelSet is one coherent generation of trained models. A set is
// immutable once built; rebuilds produce a new set.
type ModelSet struct {
	ItemCF     NeighborModel
	Content    NeighborModel
	Popularity PopularityModel
	Clusters   ClusterModel
}

// ModelBuilder fits a full model set from training data.
type ModelBuilder interface {
	Build(ctx context.Context, data TrainingData) (*ModelSet, error)
}

// TrainingStatus reports the engine's training state.
type TrainingStatus struct {
	IsTraining    bool      `json:"is_training"`
	ModelVersion  int       `json:"model_version"`
	LastTrainedAt time.Time `json:"last_trained_at"`
	LastError     string    `json:"last_error,omitempty"`
	CatalogSize   int       `json:"catalog_size"`
	RatingCount   int       `json:"rating_count"`
}
