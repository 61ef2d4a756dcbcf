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

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
)

// ErrUnavailable is returned when a store's circuit is open. The
// recommendation pipeline treats this the same as any other store
// failure and degrades per its fallback rules.
var ErrUnavailable = errors.New("store: temporarily unavailable")

// newBreaker builds a circuit breaker shared by all decorated methods
// of one store. Opens after a 60% failure rate over at least 10
// requests; recovers through a half-open probe after 30 seconds.
func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
		},
	})
}

func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// execBreaker runs fn through the breaker, mapping open-circuit and
// shed-load errors to ErrUnavailable. Context cancellation and
// ErrNotFound are the caller's problem, not the store's health, so
// they do not count as failures.
func execBreaker(cb *gobreaker.CircuitBreaker[any], fn func() (any, error)) (any, error) {
	result, err := cb.Execute(func() (any, error) {
		res, err := fn()
		if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return breakerBenign{res: res, err: err}, nil
		}
		return res, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	if benign, ok := result.(breakerBenign); ok {
		return benign.res, benign.err
	}
	return result, nil
}

// breakerBenign smuggles a non-failure error through gobreaker's
// success path so it is not counted against the store.
type breakerBenign struct {
	res any
	err error
}

func castBreakerResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("store breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// BreakerRatingStore decorates a RatingStore with a circuit breaker.
type BreakerRatingStore struct {
	inner RatingStore
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerRatingStore wraps a rating store in its own breaker.
func NewBreakerRatingStore(inner RatingStore) *BreakerRatingStore {
	return &BreakerRatingStore{inner: inner, cb: newBreaker("ratings")}
}

var _ RatingStore = (*BreakerRatingStore)(nil)

func (s *BreakerRatingStore) AllRatings(ctx context.Context) ([]models.Rating, error) {
	return castBreakerResult[[]models.Rating](execBreaker(s.cb, func() (any, error) {
		return s.inner.AllRatings(ctx)
	}))
}

func (s *BreakerRatingStore) RatingsForUser(ctx context.Context, userID int) ([]models.Rating, error) {
	return castBreakerResult[[]models.Rating](execBreaker(s.cb, func() (any, error) {
		return s.inner.RatingsForUser(ctx, userID)
	}))
}

func (s *BreakerRatingStore) RatingsForLocation(ctx context.Context, locationID int) ([]models.Rating, error) {
	return castBreakerResult[[]models.Rating](execBreaker(s.cb, func() (any, error) {
		return s.inner.RatingsForLocation(ctx, locationID)
	}))
}

func (s *BreakerRatingStore) Upsert(ctx context.Context, rating models.Rating) error {
	_, err := execBreaker(s.cb, func() (any, error) {
		return nil, s.inner.Upsert(ctx, rating)
	})
	return err
}

func (s *BreakerRatingStore) Delete(ctx context.Context, userID, locationID int) error {
	_, err := execBreaker(s.cb, func() (any, error) {
		return nil, s.inner.Delete(ctx, userID, locationID)
	})
	return err
}

// BreakerLocationStore decorates a LocationStore with a circuit breaker.
type BreakerLocationStore struct {
	inner LocationStore
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerLocationStore wraps a location store in its own breaker.
func NewBreakerLocationStore(inner LocationStore) *BreakerLocationStore {
	return &BreakerLocationStore{inner: inner, cb: newBreaker("locations")}
}

var _ LocationStore = (*BreakerLocationStore)(nil)

func (s *BreakerLocationStore) AllLocations(ctx context.Context) ([]models.Location, error) {
	return castBreakerResult[[]models.Location](execBreaker(s.cb, func() (any, error) {
		return s.inner.AllLocations(ctx)
	}))
}

func (s *BreakerLocationStore) LocationByID(ctx context.Context, locationID int) (*models.Location, error) {
	return castBreakerResult[*models.Location](execBreaker(s.cb, func() (any, error) {
		return s.inner.LocationByID(ctx, locationID)
	}))
}

func (s *BreakerLocationStore) LocationByName(ctx context.Context, name string) (*models.Location, error) {
	return castBreakerResult[*models.Location](execBreaker(s.cb, func() (any, error) {
		return s.inner.LocationByName(ctx, name)
	}))
}

func (s *BreakerLocationStore) Put(ctx context.Context, loc *models.Location) error {
	_, err := execBreaker(s.cb, func() (any, error) {
		return nil, s.inner.Put(ctx, loc)
	})
	return err
}

func (s *BreakerLocationStore) DeleteLocation(ctx context.Context, locationID int) error {
	_, err := execBreaker(s.cb, func() (any, error) {
		return nil, s.inner.DeleteLocation(ctx, locationID)
	})
	return err
}

// BreakerClusterStore decorates a ClusterStore with a circuit breaker.
type BreakerClusterStore struct {
	inner ClusterStore
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerClusterStore wraps a cluster store in its own breaker.
func NewBreakerClusterStore(inner ClusterStore) *BreakerClusterStore {
	return &BreakerClusterStore{inner: inner, cb: newBreaker("clusters")}
}

var _ ClusterStore = (*BreakerClusterStore)(nil)

func (s *BreakerClusterStore) ClusterForUser(ctx context.Context, userID int) (int, error) {
	return castBreakerResult[int](execBreaker(s.cb, func() (any, error) {
		return s.inner.ClusterForUser(ctx, userID)
	}))
}

func (s *BreakerClusterStore) PeersInCluster(ctx context.Context, cluster int) ([]int, error) {
	return castBreakerResult[[]int](execBreaker(s.cb, func() (any, error) {
		return s.inner.PeersInCluster(ctx, cluster)
	}))
}

func (s *BreakerClusterStore) SetCluster(ctx context.Context, userID, cluster int) error {
	_, err := execBreaker(s.cb, func() (any, error) {
		return nil, s.inner.SetCluster(ctx, userID, cluster)
	})
	return err
}

// BreakerUserStore decorates a UserStore with a circuit breaker.
type BreakerUserStore struct {
	inner UserStore
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerUserStore wraps a user profile store in its own breaker.
func NewBreakerUserStore(inner UserStore) *BreakerUserStore {
	return &BreakerUserStore{inner: inner, cb: newBreaker("users")}
}

var _ UserStore = (*BreakerUserStore)(nil)

func (s *BreakerUserStore) Profile(ctx context.Context, userID int) (*models.UserProfile, error) {
	return castBreakerResult[*models.UserProfile](execBreaker(s.cb, func() (any, error) {
		return s.inner.Profile(ctx, userID)
	}))
}

func (s *BreakerUserStore) AllProfiles(ctx context.Context) ([]models.UserProfile, error) {
	return castBreakerResult[[]models.UserProfile](execBreaker(s.cb, func() (any, error) {
		return s.inner.AllProfiles(ctx)
	}))
}

func (s *BreakerUserStore) PutProfile(ctx context.Context, p *models.UserProfile) error {
	_, err := execBreaker(s.cb, func() (any, error) {
		return nil, s.inner.PutProfile(ctx, p)
	})
	return err
}
