// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package algorithms

import (
	"context"

	"github.com/tomtom215/wayfarer/internal/recommend"
)

// ItemCFConfig configures the item-based collaborative filter.
type ItemCFConfig struct {
	// K is the number of neighbors kept per item.
	K int

	// MinSimilarity discards neighbor pairs below this threshold.
	MinSimilarity float64
}

// DefaultItemCFConfig returns the default configuration.
func DefaultItemCFConfig() ItemCFConfig {
	return ItemCFConfig{
		K:             40,
		MinSimilarity: 0.0,
	}
}

// ItemCF implements item-based collaborative filtering. Similarity is
// the cosine over user-rating vectors: two destinations are close when
// the same users rated them alike.
type ItemCF struct {
	BaseAlgorithm
	config ItemCFConfig

	// neighbors holds the per-item top-K neighbor list, descending
	// by similarity with catalog-order tie-break.
	neighbors map[int][]recommend.Candidate
}

// NewItemCF creates an untrained item-based CF model.
func NewItemCF(cfg ItemCFConfig) *ItemCF {
	if cfg.K <= 0 {
		cfg.K = 40
	}
	return &ItemCF{
		BaseAlgorithm: NewBaseAlgorithm("itemcf"),
		config:        cfg,
		neighbors:     make(map[int][]recommend.Candidate),
	}
}

// Train fits the item-item similarity model.
func (a *ItemCF) Train(ctx context.Context, data recommend.TrainingData) error {
	a.acquireTrainLock()
	defer a.releaseTrainLock()

	if contextCancelled(ctx) {
		return ctx.Err()
	}

	// Item vectors over the user dimension.
	vectors := make(map[int]map[int]float64)
	for _, r := range data.Ratings {
		v, ok := vectors[r.LocationID]
		if !ok {
			v = make(map[int]float64)
			vectors[r.LocationID] = v
		}
		v[r.UserID] = r.Value
	}

	positions := catalogPositions(data)

	// Rated items in catalog order so each neighbor list is built
	// deterministically.
	itemIDs := make([]int, 0, len(vectors))
	for _, loc := range data.Locations {
		if _, ok := vectors[loc.LocationID]; ok {
			itemIDs = append(itemIDs, loc.LocationID)
		}
	}
	// Items rated but missing from the catalog still get a row;
	// they are stale references that the assembler drops later.
	for id := range vectors {
		if _, ok := positions[id]; !ok {
			itemIDs = append(itemIDs, id)
		}
	}

	neighbors := make(map[int][]recommend.Candidate, len(itemIDs))
	for _, id := range itemIDs {
		if contextCancelled(ctx) {
			return ctx.Err()
		}

		var cands []recommend.Candidate
		for _, other := range itemIDs {
			if other == id {
				continue
			}
			sim := sparseCosine(vectors[id], vectors[other])
			if sim <= a.config.MinSimilarity {
				continue
			}
			cands = append(cands, recommend.Candidate{LocationID: other, Score: sim})
		}

		sortCandidates(cands, positions)
		if len(cands) > a.config.K {
			cands = cands[:a.config.K]
		}
		neighbors[id] = cands
	}

	a.neighbors = neighbors
	a.markTrained()
	return nil
}

// Neighbors returns up to k nearest neighbors of a location. A missing
// model row contributes an empty set rather than failing.
func (a *ItemCF) Neighbors(locationID, k int) []recommend.Candidate {
	a.acquirePredictLock()
	defer a.releasePredictLock()

	row := a.neighbors[locationID]
	if k > 0 && len(row) > k {
		row = row[:k]
	}
	out := make([]recommend.Candidate, len(row))
	copy(out, row)
	return out
}
