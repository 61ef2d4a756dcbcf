// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package recommend

// assemble shapes candidates into final records: deduplicate by
// location id (first occurrence wins, preserving generator order),
// truncate to n, and normalize fields. Candidates that no longer
// resolve to a catalog entry are stale references and dropped
// silently.
func assemble(cands []Candidate, n int, snap *Snapshot) []Record {
	records := make([]Record, 0, n)
	seen := make(map[int]struct{}, len(cands))

	for _, c := range cands {
		if len(records) >= n {
			break
		}
		if _, dup := seen[c.LocationID]; dup {
			continue
		}
		seen[c.LocationID] = struct{}{}

		loc, ok := snap.LocationByID(c.LocationID)
		if !ok {
			continue
		}

		category := []string(loc.Category)
		if category == nil {
			// Consumers iterate categories unconditionally.
			category = []string{}
		}

		records = append(records, Record{
			LocationID:  loc.LocationID,
			Name:        loc.Name,
			Category:    category,
			Address:     loc.Address,
			City:        loc.City,
			Country:     loc.Country,
			Description: loc.Description,
			Rating:      loc.Rating,
		})
	}
	return records
}
