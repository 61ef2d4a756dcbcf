// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package recommend

import (
	"strings"
	"time"

	"github.com/tomtom215/wayfarer/internal/models"
)

// Snapshot is one immutable generation of the engine's read model: the
// catalog in ingestion order, lookup indexes, and the trained models.
// A snapshot is fully built before it is published and never mutated
// afterwards, so request handlers read it without locks.
type Snapshot struct {
	Version     int
	BuiltAt     time.Time
	Locations   []models.Location
	Models      *ModelSet
	RatingCount int

	byID   map[int]int
	byName map[string]int
}

// newSnapshot indexes the catalog and binds the model set.
func newSnapshot(version int, locations []models.Location, set *ModelSet, ratingCount int) *Snapshot {
	s := &Snapshot{
		Version:     version,
		BuiltAt:     time.Now(),
		Locations:   locations,
		Models:      set,
		RatingCount: ratingCount,
		byID:        make(map[int]int, len(locations)),
		byName:      make(map[string]int, len(locations)),
	}
	for i, loc := range locations {
		s.byID[loc.LocationID] = i
		key := strings.ToLower(strings.TrimSpace(loc.Name))
		// First entry wins on duplicate names; names act as a
		// secondary human key and are expected unique.
		if _, ok := s.byName[key]; !ok {
			s.byName[key] = loc.LocationID
		}
	}
	return s
}

// LocationByID resolves a catalog entry.
func (s *Snapshot) LocationByID(id int) (*models.Location, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.Locations[i], true
}

// LocationIDByName resolves a case-insensitive exact name match.
func (s *Snapshot) LocationIDByName(name string) (int, bool) {
	id, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}
