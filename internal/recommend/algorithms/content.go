// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package algorithms

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/tomtom215/wayfarer/internal/recommend"
)

// ContentTFIDFConfig configures the content-similarity model.
type ContentTFIDFConfig struct {
	// K is the number of neighbors kept per item.
	K int
}

// DefaultContentTFIDFConfig returns the default configuration.
func DefaultContentTFIDFConfig() ContentTFIDFConfig {
	return ContentTFIDFConfig{K: 40}
}

// ContentTFIDF implements content-based similarity. Each destination's
// name, category tags, description and country are concatenated,
// tokenized and TF-IDF weighted; similarity is the cosine between the
// resulting vectors.
type ContentTFIDF struct {
	BaseAlgorithm
	config ContentTFIDFConfig

	neighbors map[int][]recommend.Candidate
}

// NewContentTFIDF creates an untrained content model.
func NewContentTFIDF(cfg ContentTFIDFConfig) *ContentTFIDF {
	if cfg.K <= 0 {
		cfg.K = 40
	}
	return &ContentTFIDF{
		BaseAlgorithm: NewBaseAlgorithm("content"),
		config:        cfg,
		neighbors:     make(map[int][]recommend.Candidate),
	}
}

// Train fits the TF-IDF item-item similarity model.
func (a *ContentTFIDF) Train(ctx context.Context, data recommend.TrainingData) error {
	a.acquireTrainLock()
	defer a.releaseTrainLock()

	if contextCancelled(ctx) {
		return ctx.Err()
	}

	docs := make([][]string, len(data.Locations))
	for i, loc := range data.Locations {
		var sb strings.Builder
		sb.WriteString(loc.Name)
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(loc.Category, " "))
		sb.WriteByte(' ')
		sb.WriteString(loc.Description)
		sb.WriteByte(' ')
		sb.WriteString(loc.Country)
		docs[i] = tokenize(sb.String())
	}

	// Document frequency per term, then TF-IDF vectors with terms
	// mapped to integer ids so sparseCosine applies.
	termIDs := make(map[string]int)
	docFreq := make(map[int]int)
	for _, doc := range docs {
		seen := make(map[int]struct{})
		for _, term := range doc {
			id, ok := termIDs[term]
			if !ok {
				id = len(termIDs)
				termIDs[term] = id
			}
			if _, dup := seen[id]; !dup {
				docFreq[id]++
				seen[id] = struct{}{}
			}
		}
	}

	n := float64(len(docs))
	vectors := make([]map[int]float64, len(docs))
	for i, doc := range docs {
		vec := make(map[int]float64)
		for _, term := range doc {
			vec[termIDs[term]]++
		}
		for id, tf := range vec {
			// Smoothed IDF keeps terms present in every
			// document from zeroing out entirely.
			idf := math.Log((1+n)/(1+float64(docFreq[id]))) + 1
			vec[id] = tf * idf
		}
		vectors[i] = vec
	}

	positions := catalogPositions(data)
	neighbors := make(map[int][]recommend.Candidate, len(data.Locations))
	for i, loc := range data.Locations {
		if contextCancelled(ctx) {
			return ctx.Err()
		}

		var cands []recommend.Candidate
		for j, other := range data.Locations {
			if i == j {
				continue
			}
			sim := sparseCosine(vectors[i], vectors[j])
			if sim <= 0 {
				continue
			}
			cands = append(cands, recommend.Candidate{LocationID: other.LocationID, Score: sim})
		}

		sortCandidates(cands, positions)
		if len(cands) > a.config.K {
			cands = cands[:a.config.K]
		}
		neighbors[loc.LocationID] = cands
	}

	a.neighbors = neighbors
	a.markTrained()
	return nil
}

// Neighbors returns up to k content neighbors of a location, the query
// item itself excluded. An unknown id yields an empty set.
func (a *ContentTFIDF) Neighbors(locationID, k int) []recommend.Candidate {
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

// tokenize lower-cases and splits text on any non-letter, non-digit
// rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
