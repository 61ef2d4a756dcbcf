// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package recommend

import "strings"

// classify decides what a free-text query means against the bound
// catalog snapshot.
//
// Exact name equality beats country containment: when an input matches
// both, the name is the stronger, more specific signal. Country
// matching is case-insensitive substring containment; name matching is
// case-insensitive full-string equality. Empty input yields
// VerdictNone and short-circuits all query refinement.
func classify(input string, snap *Snapshot) Verdict {
	query := strings.TrimSpace(input)
	if query == "" {
		return VerdictNone
	}

	if _, ok := snap.LocationIDByName(query); ok {
		return VerdictExactName
	}

	lower := strings.ToLower(query)
	for i := range snap.Locations {
		country := strings.ToLower(snap.Locations[i].Country)
		if country != "" && strings.Contains(country, lower) {
			return VerdictCountry
		}
	}

	return VerdictKeyword
}
