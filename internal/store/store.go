// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package store implements the catalog, ratings, cluster-assignment and
// user-profile stores on BadgerDB.
//
// The recommendation engine consumes these only through the capability
// interfaces below; swapping the store technology must not change the
// engine's contract.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/tomtom215/wayfarer/internal/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("store: not found")

// Key prefixes for BadgerDB storage.
const (
	locationKeyPrefix     = "location:"
	locationNameKeyPrefix = "location_name:"
	locationSeqKey        = "location_seq"
	ratingKeyPrefix       = "rating:"
	ratingLocKeyPrefix    = "rating_loc:"
	clusterUserKeyPrefix  = "cluster_user:"
	clusterMemberPrefix   = "cluster_members:"
	userProfileKeyPrefix  = "user_profile:"
)

// RatingStore is the capability interface over user ratings.
type RatingStore interface {
	AllRatings(ctx context.Context) ([]models.Rating, error)
	RatingsForUser(ctx context.Context, userID int) ([]models.Rating, error)
	RatingsForLocation(ctx context.Context, locationID int) ([]models.Rating, error)
	Upsert(ctx context.Context, rating models.Rating) error
	Delete(ctx context.Context, userID, locationID int) error
}

// LocationStore is the capability interface over the destination catalog.
type LocationStore interface {
	// AllLocations returns the catalog in ingestion order.
	AllLocations(ctx context.Context) ([]models.Location, error)
	LocationByID(ctx context.Context, locationID int) (*models.Location, error)
	// LocationByName performs a case-insensitive fuzzy (substring)
	// lookup and returns the first match in catalog order.
	LocationByName(ctx context.Context, name string) (*models.Location, error)
	Put(ctx context.Context, loc *models.Location) error
	DeleteLocation(ctx context.Context, locationID int) error
}

// ClusterStore is the capability interface over cold-start cluster
// assignments.
type ClusterStore interface {
	ClusterForUser(ctx context.Context, userID int) (int, error)
	PeersInCluster(ctx context.Context, cluster int) ([]int, error)
	SetCluster(ctx context.Context, userID, cluster int) error
}

// UserStore is the capability interface over demographic profiles.
type UserStore interface {
	Profile(ctx context.Context, userID int) (*models.UserProfile, error)
	AllProfiles(ctx context.Context) ([]models.UserProfile, error)
	PutProfile(ctx context.Context, p *models.UserProfile) error
}

// DB wraps a BadgerDB instance shared by all stores.
type DB struct {
	db *badger.DB
}

// Options configures Open.
type Options struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	// InMemory runs without persistence.
	InMemory bool
}

// Open opens the underlying BadgerDB.
func Open(opts Options) (*DB, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	// Badger's own logger is too chatty; the stores log via zerolog.
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying BadgerDB.
func (d *DB) Close() error {
	return d.db.Close()
}

// userKey renders a fixed-width user/location id so that prefix scans
// over composite keys stay unambiguous.
func idKey(id int) string {
	return fmt.Sprintf("%010d", id)
}

// checkCtx rejects work when the request deadline already expired.
// Badger calls are synchronous and local; the per-call budget is
// enforced by the caller's context.
func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
