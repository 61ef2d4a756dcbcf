// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
)

// BadgerRatingStore implements RatingStore on BadgerDB.
//
// Ratings are stored twice: rating:<user>:<location> is the primary
// record, rating_loc:<location>:<user> is a secondary index holding
// the same document so per-location scans need no join.
type BadgerRatingStore struct {
	db *DB
}

// NewRatingStore creates a rating store backed by the shared DB.
func NewRatingStore(db *DB) *BadgerRatingStore {
	return &BadgerRatingStore{db: db}
}

var _ RatingStore = (*BadgerRatingStore)(nil)

func ratingKey(userID, locationID int) []byte {
	return []byte(ratingKeyPrefix + idKey(userID) + ":" + idKey(locationID))
}

func ratingLocKey(locationID, userID int) []byte {
	return []byte(ratingLocKeyPrefix + idKey(locationID) + ":" + idKey(userID))
}

// AllRatings returns every rating in the store.
func (s *BadgerRatingStore) AllRatings(ctx context.Context) ([]models.Rating, error) {
	start := time.Now()
	ratings, err := s.scan(ctx, ratingKeyPrefix)
	metrics.ObserveStoreOp("ratings", "all", err, time.Since(start))
	return ratings, err
}

// RatingsForUser returns the ratings a user has submitted.
func (s *BadgerRatingStore) RatingsForUser(ctx context.Context, userID int) ([]models.Rating, error) {
	start := time.Now()
	ratings, err := s.scan(ctx, ratingKeyPrefix+idKey(userID)+":")
	metrics.ObserveStoreOp("ratings", "for_user", err, time.Since(start))
	return ratings, err
}

// RatingsForLocation returns every rating a destination has received.
func (s *BadgerRatingStore) RatingsForLocation(ctx context.Context, locationID int) ([]models.Rating, error) {
	start := time.Now()
	ratings, err := s.scan(ctx, ratingLocKeyPrefix+idKey(locationID)+":")
	metrics.ObserveStoreOp("ratings", "for_location", err, time.Since(start))
	return ratings, err
}

func (s *BadgerRatingStore) scan(ctx context.Context, prefix string) ([]models.Rating, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	var ratings []models.Rating
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var r models.Rating
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode rating: %w", err)
			}
			ratings = append(ratings, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

// Upsert writes a rating, replacing any existing rating by the same
// user for the same destination.
func (s *BadgerRatingStore) Upsert(ctx context.Context, rating models.Rating) error {
	start := time.Now()
	err := s.upsert(ctx, rating)
	metrics.ObserveStoreOp("ratings", "upsert", err, time.Since(start))
	return err
}

func (s *BadgerRatingStore) upsert(ctx context.Context, rating models.Rating) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	if rating.RatedAt.IsZero() {
		rating.RatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rating)
	if err != nil {
		return fmt.Errorf("marshal rating: %w", err)
	}

	return s.db.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(ratingKey(rating.UserID, rating.LocationID), data); err != nil {
			return fmt.Errorf("set rating: %w", err)
		}
		if err := txn.Set(ratingLocKey(rating.LocationID, rating.UserID), data); err != nil {
			return fmt.Errorf("set rating index: %w", err)
		}
		return nil
	})
}

// Delete removes a rating. Returns ErrNotFound when the rating does
// not exist.
func (s *BadgerRatingStore) Delete(ctx context.Context, userID, locationID int) error {
	start := time.Now()
	err := s.delete(ctx, userID, locationID)
	metrics.ObserveStoreOp("ratings", "delete", err, time.Since(start))
	return err
}

func (s *BadgerRatingStore) delete(ctx context.Context, userID, locationID int) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	return s.db.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(ratingKey(userID, locationID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := txn.Delete(ratingKey(userID, locationID)); err != nil {
			return err
		}
		return txn.Delete(ratingLocKey(locationID, userID))
	})
}
