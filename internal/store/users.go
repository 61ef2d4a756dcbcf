// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
)

// BadgerUserStore implements UserStore on BadgerDB.
type BadgerUserStore struct {
	db *DB
}

// NewUserStore creates a profile store backed by the shared DB.
func NewUserStore(db *DB) *BadgerUserStore {
	return &BadgerUserStore{db: db}
}

var _ UserStore = (*BadgerUserStore)(nil)

// Profile returns a user's demographic profile.
func (s *BadgerUserStore) Profile(ctx context.Context, userID int) (*models.UserProfile, error) {
	start := time.Now()
	p, err := s.profile(ctx, userID)
	metrics.ObserveStoreOp("users", "profile", err, time.Since(start))
	return p, err
}

func (s *BadgerUserStore) profile(ctx context.Context, userID int) (*models.UserProfile, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	var p models.UserProfile
	err := s.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userProfileKeyPrefix + idKey(userID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AllProfiles returns every stored profile in ascending user id order.
func (s *BadgerUserStore) AllProfiles(ctx context.Context) ([]models.UserProfile, error) {
	start := time.Now()
	profiles, err := s.allProfiles(ctx)
	metrics.ObserveStoreOp("users", "all", err, time.Since(start))
	return profiles, err
}

func (s *BadgerUserStore) allProfiles(ctx context.Context) ([]models.UserProfile, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	var profiles []models.UserProfile
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(userProfileKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var p models.UserProfile
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return fmt.Errorf("decode profile: %w", err)
			}
			profiles = append(profiles, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].UserID < profiles[j].UserID
	})
	return profiles, nil
}

// PutProfile inserts or replaces a user's demographic profile.
func (s *BadgerUserStore) PutProfile(ctx context.Context, p *models.UserProfile) error {
	start := time.Now()
	err := s.putProfile(ctx, p)
	metrics.ObserveStoreOp("users", "put", err, time.Since(start))
	return err
}

func (s *BadgerUserStore) putProfile(ctx context.Context, p *models.UserProfile) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return s.db.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(userProfileKeyPrefix+idKey(p.UserID)), data)
	})
}
