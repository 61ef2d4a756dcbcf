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
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/wayfarer/internal/metrics"
)

// BadgerClusterStore implements ClusterStore on BadgerDB.
//
// cluster_user:<user> holds the user's cluster id,
// cluster_members:<cluster>:<user> marks membership so that peer
// lookup is a single prefix scan.
type BadgerClusterStore struct {
	db *DB
}

// NewClusterStore creates a cluster assignment store backed by the
// shared DB.
func NewClusterStore(db *DB) *BadgerClusterStore {
	return &BadgerClusterStore{db: db}
}

var _ ClusterStore = (*BadgerClusterStore)(nil)

// ClusterForUser returns the cluster a user belongs to, or ErrNotFound
// when the user has never been assigned.
func (s *BadgerClusterStore) ClusterForUser(ctx context.Context, userID int) (int, error) {
	start := time.Now()
	cluster, err := s.clusterForUser(ctx, userID)
	metrics.ObserveStoreOp("clusters", "for_user", err, time.Since(start))
	return cluster, err
}

func (s *BadgerClusterStore) clusterForUser(ctx context.Context, userID int) (int, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}

	var cluster int
	err := s.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(clusterUserKeyPrefix + idKey(userID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cluster = int(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return cluster, nil
}

// PeersInCluster returns the user ids assigned to a cluster, in
// ascending id order.
func (s *BadgerClusterStore) PeersInCluster(ctx context.Context, cluster int) ([]int, error) {
	start := time.Now()
	peers, err := s.peersInCluster(ctx, cluster)
	metrics.ObserveStoreOp("clusters", "peers", err, time.Since(start))
	return peers, err
}

func (s *BadgerClusterStore) peersInCluster(ctx context.Context, cluster int) ([]int, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	prefix := clusterMemberPrefix + idKey(cluster) + ":"
	var peers []int
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			id, err := strconv.Atoi(strings.TrimPrefix(key, prefix))
			if err != nil {
				return fmt.Errorf("parse member key %q: %w", key, err)
			}
			peers = append(peers, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Ints(peers)
	return peers, nil
}

// SetCluster assigns a user to a cluster, moving them out of any
// previous cluster first.
func (s *BadgerClusterStore) SetCluster(ctx context.Context, userID, cluster int) error {
	start := time.Now()
	err := s.setCluster(ctx, userID, cluster)
	metrics.ObserveStoreOp("clusters", "set", err, time.Since(start))
	return err
}

func (s *BadgerClusterStore) setCluster(ctx context.Context, userID, cluster int) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	return s.db.db.Update(func(txn *badger.Txn) error {
		userKey := []byte(clusterUserKeyPrefix + idKey(userID))

		// Drop the old membership mark when reassigning.
		if item, err := txn.Get(userKey); err == nil {
			var prev int
			if err := item.Value(func(val []byte) error {
				prev = int(binary.BigEndian.Uint64(val))
				return nil
			}); err != nil {
				return err
			}
			if prev != cluster {
				old := []byte(clusterMemberPrefix + idKey(prev) + ":" + idKey(userID))
				if err := txn.Delete(old); err != nil {
					return err
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(cluster))
		if err := txn.Set(userKey, buf); err != nil {
			return fmt.Errorf("set cluster: %w", err)
		}

		member := []byte(clusterMemberPrefix + idKey(cluster) + ":" + idKey(userID))
		return txn.Set(member, nil)
	})
}
