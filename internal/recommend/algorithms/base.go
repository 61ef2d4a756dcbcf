// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package algorithms implements the model fitting behind the
// recommendation engine: item-based collaborative filtering, TF-IDF
// content similarity, k-means demographic clustering and the
// popularity baseline.
//
// All models train into internal state guarded by a RW lock; reads
// take the shared lock. The engine rebuilds fresh instances per
// training cycle and publishes them in an immutable snapshot, so in
// practice reads never contend with training.
package algorithms

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/wayfarer/internal/recommend"
)

// BaseAlgorithm provides common state for all algorithms.
type BaseAlgorithm struct {
	name          string
	trained       bool
	version       int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

// NewBaseAlgorithm creates a base with the given name.
func NewBaseAlgorithm(name string) BaseAlgorithm {
	return BaseAlgorithm{name: name}
}

// Name returns the algorithm identifier.
func (b *BaseAlgorithm) Name() string {
	return b.name
}

// IsTrained returns whether the model has been trained.
func (b *BaseAlgorithm) IsTrained() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trained
}

// Version returns the model version.
func (b *BaseAlgorithm) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// LastTrainedAt returns when the model was last trained.
func (b *BaseAlgorithm) LastTrainedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTrainedAt
}

// markTrained updates the trained state. Caller must hold the train
// lock.
func (b *BaseAlgorithm) markTrained() {
	b.trained = true
	b.version++
	b.lastTrainedAt = time.Now()
}

func (b *BaseAlgorithm) acquireTrainLock()   { b.mu.Lock() }
func (b *BaseAlgorithm) releaseTrainLock()   { b.mu.Unlock() }
func (b *BaseAlgorithm) acquirePredictLock() { b.mu.RLock() }
func (b *BaseAlgorithm) releasePredictLock() { b.mu.RUnlock() }

// contextCancelled checks if the context has been canceled.
func contextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// sparseCosine computes cosine similarity between two sparse vectors
// keyed by the same dimension space.
func sparseCosine(a, b map[int]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller vector.
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64
	for k, av := range a {
		if bv, ok := b[k]; ok {
			dot += av * bv
		}
	}
	if dot == 0 {
		return 0
	}

	var normA, normB float64
	for _, v := range a {
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortCandidates orders candidates by score descending, breaking ties
// by catalog position. positions maps locationID to its ingestion
// index; unknown ids sort last among equals.
func sortCandidates(cands []recommend.Candidate, positions map[int]int) {
	pos := func(id int) int {
		if p, ok := positions[id]; ok {
			return p
		}
		return len(positions)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return pos(cands[i].LocationID) < pos(cands[j].LocationID)
	})
}

// catalogPositions maps each location id to its ingestion-order index.
func catalogPositions(data recommend.TrainingData) map[int]int {
	positions := make(map[int]int, len(data.Locations))
	for i, loc := range data.Locations {
		positions[loc.LocationID] = i
	}
	return positions
}

// Interface assertions.
var (
	_ recommend.NeighborModel   = (*ItemCF)(nil)
	_ recommend.NeighborModel   = (*ContentTFIDF)(nil)
	_ recommend.PopularityModel = (*Popularity)(nil)
	_ recommend.ClusterModel    = (*KMeansClusters)(nil)
	_ recommend.ModelBuilder    = (*Builder)(nil)
)
