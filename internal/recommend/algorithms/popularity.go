// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package algorithms

import (
	"context"

	"github.com/tomtom215/wayfarer/internal/recommend"
)

// Popularity ranks the catalog by mean rating descending, ties broken
// by catalog order. Destinations with no ratings rank after all rated
// ones, in catalog order, so a short catalog can still fill a request.
type Popularity struct {
	BaseAlgorithm

	ranking []recommend.Candidate
}

// NewPopularity creates an untrained popularity baseline.
func NewPopularity() *Popularity {
	return &Popularity{
		BaseAlgorithm: NewBaseAlgorithm("popularity"),
	}
}

// Train computes the global mean-rating ranking.
func (a *Popularity) Train(ctx context.Context, data recommend.TrainingData) error {
	a.acquireTrainLock()
	defer a.releaseTrainLock()

	if contextCancelled(ctx) {
		return ctx.Err()
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range data.Ratings {
		sums[r.LocationID] += r.Value
		counts[r.LocationID]++
	}

	positions := catalogPositions(data)

	var rated, unrated []recommend.Candidate
	for _, loc := range data.Locations {
		if c := counts[loc.LocationID]; c > 0 {
			rated = append(rated, recommend.Candidate{
				LocationID: loc.LocationID,
				Score:      sums[loc.LocationID] / float64(c),
			})
		} else {
			unrated = append(unrated, recommend.Candidate{LocationID: loc.LocationID})
		}
	}

	sortCandidates(rated, positions)
	a.ranking = append(rated, unrated...)
	a.markTrained()
	return nil
}

// Ranking returns up to n locations by global popularity.
func (a *Popularity) Ranking(n int) []recommend.Candidate {
	a.acquirePredictLock()
	defer a.releasePredictLock()

	row := a.ranking
	if n > 0 && len(row) > n {
		row = row[:n]
	}
	out := make([]recommend.Candidate, len(row))
	copy(out, row)
	return out
}
