// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
)

// BadgerLocationStore implements LocationStore on BadgerDB.
type BadgerLocationStore struct {
	db *DB
}

// NewLocationStore creates a catalog store backed by the shared DB.
func NewLocationStore(db *DB) *BadgerLocationStore {
	return &BadgerLocationStore{db: db}
}

var _ LocationStore = (*BadgerLocationStore)(nil)

// AllLocations returns every catalog entry in ingestion order.
func (s *BadgerLocationStore) AllLocations(ctx context.Context) ([]models.Location, error) {
	start := time.Now()
	locs, err := s.allLocations(ctx)
	metrics.ObserveStoreOp("locations", "all", err, time.Since(start))
	return locs, err
}

func (s *BadgerLocationStore) allLocations(ctx context.Context) ([]models.Location, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	var locs []models.Location
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(locationKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var loc models.Location
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &loc)
			}); err != nil {
				return fmt.Errorf("decode location: %w", err)
			}
			locs = append(locs, loc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(locs, func(i, j int) bool {
		return locs[i].Position < locs[j].Position
	})
	return locs, nil
}

// LocationByID fetches a single catalog entry.
func (s *BadgerLocationStore) LocationByID(ctx context.Context, locationID int) (*models.Location, error) {
	start := time.Now()
	loc, err := s.locationByID(ctx, locationID)
	metrics.ObserveStoreOp("locations", "by_id", err, time.Since(start))
	return loc, err
}

func (s *BadgerLocationStore) locationByID(ctx context.Context, locationID int) (*models.Location, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	var loc models.Location
	err := s.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(locationKeyPrefix + idKey(locationID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get location %d: %w", locationID, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &loc)
		})
	})
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// LocationByName performs a case-insensitive fuzzy lookup. Exact
// (full-string) matches win over substring matches; among substring
// matches the first in catalog order wins.
func (s *BadgerLocationStore) LocationByName(ctx context.Context, name string) (*models.Location, error) {
	start := time.Now()
	loc, err := s.locationByName(ctx, name)
	metrics.ObserveStoreOp("locations", "by_name", err, time.Since(start))
	return loc, err
}

func (s *BadgerLocationStore) locationByName(ctx context.Context, name string) (*models.Location, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, ErrNotFound
	}

	// Exact match via the name index first.
	var exactID int
	err := s.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(locationNameKeyPrefix + needle))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			exactID = int(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if err == nil {
		return s.locationByID(ctx, exactID)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	locs, err := s.allLocations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range locs {
		if strings.Contains(strings.ToLower(locs[i].Name), needle) {
			return &locs[i], nil
		}
	}
	return nil, ErrNotFound
}

// Put inserts or replaces a catalog entry. New entries are appended to
// the ingestion order; replacing an entry keeps its original position.
func (s *BadgerLocationStore) Put(ctx context.Context, loc *models.Location) error {
	start := time.Now()
	err := s.put(ctx, loc)
	metrics.ObserveStoreOp("locations", "put", err, time.Since(start))
	return err
}

func (s *BadgerLocationStore) put(ctx context.Context, loc *models.Location) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	if loc.Category == nil {
		loc.Category = models.CategoryList{}
	}

	return s.db.db.Update(func(txn *badger.Txn) error {
		key := []byte(locationKeyPrefix + idKey(loc.LocationID))

		// Keep the original ingestion position on replace.
		if item, err := txn.Get(key); err == nil {
			var existing models.Location
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return fmt.Errorf("decode existing location: %w", err)
			}
			loc.Position = existing.Position
		} else if errors.Is(err, badger.ErrKeyNotFound) {
			pos, err := nextSequence(txn)
			if err != nil {
				return err
			}
			loc.Position = pos
		} else {
			return err
		}

		data, err := json.Marshal(loc)
		if err != nil {
			return fmt.Errorf("marshal location: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set location: %w", err)
		}

		idBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(idBytes, uint64(loc.LocationID))
		nameKey := []byte(locationNameKeyPrefix + strings.ToLower(strings.TrimSpace(loc.Name)))
		if err := txn.Set(nameKey, idBytes); err != nil {
			return fmt.Errorf("set name index: %w", err)
		}
		return nil
	})
}

// DeleteLocation removes a catalog entry and its name index.
func (s *BadgerLocationStore) DeleteLocation(ctx context.Context, locationID int) error {
	start := time.Now()
	err := s.deleteLocation(ctx, locationID)
	metrics.ObserveStoreOp("locations", "delete", err, time.Since(start))
	return err
}

func (s *BadgerLocationStore) deleteLocation(ctx context.Context, locationID int) error {
	loc, err := s.locationByID(ctx, locationID)
	if err != nil {
		return err
	}

	return s.db.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(locationKeyPrefix + idKey(locationID))); err != nil {
			return err
		}
		nameKey := []byte(locationNameKeyPrefix + strings.ToLower(strings.TrimSpace(loc.Name)))
		return txn.Delete(nameKey)
	})
}

// nextSequence allocates the next ingestion-order position.
func nextSequence(txn *badger.Txn) (int, error) {
	var next uint64
	item, err := txn.Get([]byte(locationSeqKey))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		next = 0
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			next = binary.BigEndian.Uint64(val) + 1
			return nil
		}); err != nil {
			return 0, err
		}
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := txn.Set([]byte(locationSeqKey), buf); err != nil {
		return 0, err
	}
	return int(next), nil
}
