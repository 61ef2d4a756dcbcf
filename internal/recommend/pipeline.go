// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package recommend

import (
	"strings"

	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
)

// applyFilters runs the filter-and-fallback pipeline over a candidate
// set. It applies only for VerdictCountry and VerdictKeyword; exactly
// one filter runs per request.
//
// The country filter is authoritative: a country query that matches
// nothing yields an empty set, never a fallback. The keyword filter
// degrades to the unfiltered top-n when it matches nothing, and any
// panic inside it is recovered to the same fallback.
func applyFilters(verdict Verdict, query string, cands []Candidate, n int, snap *Snapshot) []Candidate {
	switch verdict {
	case VerdictCountry:
		return filterByCountry(query, cands, snap)
	case VerdictKeyword:
		return filterByKeyword(query, cands, n, snap)
	default:
		return cands
	}
}

// filterByCountry keeps candidates whose country field contains the
// query substring, case-insensitively. Never skipped, even when it
// empties the set.
func filterByCountry(query string, cands []Candidate, snap *Snapshot) []Candidate {
	needle := strings.ToLower(strings.TrimSpace(query))

	filtered := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		loc, ok := snap.LocationByID(c.LocationID)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(loc.Country), needle) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// filterByKeyword keeps candidates whose name, description or any
// category tag contains the keyword, case-insensitively. An empty
// match set falls back to the unfiltered candidates truncated to n.
func filterByKeyword(query string, cands []Candidate, n int, snap *Snapshot) (result []Candidate) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Interface("panic", r).
				Str("keyword", query).
				Msg("Keyword filter panicked, degrading to unfiltered top-n")
			metrics.RecommendFallbacksTotal.WithLabelValues("keyword_unfiltered").Inc()
			result = truncate(cands, n)
		}
	}()

	needle := strings.ToLower(strings.TrimSpace(query))

	filtered := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		loc, ok := snap.LocationByID(c.LocationID)
		if !ok {
			continue
		}
		if keywordMatches(needle, loc.Name, loc.Description, loc.Category) {
			filtered = append(filtered, c)
		}
	}

	if len(filtered) == 0 && len(cands) > 0 {
		logging.Debug().
			Str("keyword", query).
			Int("candidates", len(cands)).
			Msg("No keyword matches, falling back to unfiltered top-n")
		metrics.RecommendFallbacksTotal.WithLabelValues("keyword_unfiltered").Inc()
		return truncate(cands, n)
	}
	return filtered
}

func keywordMatches(needle, name, description string, categories []string) bool {
	if strings.Contains(strings.ToLower(name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(description), needle) {
		return true
	}
	for _, cat := range categories {
		if strings.Contains(strings.ToLower(cat), needle) {
			return true
		}
	}
	return false
}

func truncate(cands []Candidate, n int) []Candidate {
	if n > 0 && len(cands) > n {
		return cands[:n]
	}
	return cands
}
