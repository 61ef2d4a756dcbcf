// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/store"
)

// Engine sentinel errors.
var (
	// ErrNotReady means no model snapshot has been published yet.
	ErrNotReady = errors.New("recommend: model not ready")

	// ErrTrainingInProgress means a rebuild is already running.
	ErrTrainingInProgress = errors.New("recommend: training already in progress")
)

// Config holds the engine's routing parameters.
type Config struct {
	// DefaultN is the result count when the request leaves N zero.
	DefaultN int

	// MaxN caps the per-request result count. Zero means no cap.
	MaxN int

	// RichHistoryThreshold splits sparse from rich history. A user
	// with more ratings than this gets the collaborative strategy;
	// 1 up to and including the threshold gets content.
	RichHistoryThreshold int

	// NeighborK bounds per-item neighbor lookups.
	NeighborK int
}

// DefaultConfig returns the reference routing parameters.
func DefaultConfig() Config {
	return Config{
		DefaultN:             10,
		MaxN:                 100,
		RichHistoryThreshold: 15,
		NeighborK:            40,
	}
}

// Stores bundles the collaborator stores the engine reads.
type Stores struct {
	Ratings   store.RatingStore
	Locations store.LocationStore
	Clusters  store.ClusterStore
	Users     store.UserStore
}

// Engine is the hybrid recommendation decision engine. It routes each
// request to a candidate generator, refines through the filter
// pipeline and assembles the response. Model state lives in an
// immutable snapshot swapped atomically on rebuild.
type Engine struct {
	config  Config
	stores  Stores
	builder ModelBuilder

	snapshot atomic.Pointer[Snapshot]

	trainMu   sync.Mutex
	training  atomic.Bool
	version   int
	lastError string
	trainedAt time.Time
}

// NewEngine creates an engine. No snapshot exists until Train runs.
func NewEngine(cfg Config, stores Stores, builder ModelBuilder) *Engine {
	if cfg.DefaultN <= 0 {
		cfg.DefaultN = 10
	}
	if cfg.RichHistoryThreshold <= 0 {
		cfg.RichHistoryThreshold = 15
	}
	if cfg.NeighborK <= 0 {
		cfg.NeighborK = 40
	}
	return &Engine{
		config:  cfg,
		stores:  stores,
		builder: builder,
	}
}

// Snapshot returns the current model snapshot, or nil before the first
// successful training cycle.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Status reports the training lifecycle state.
func (e *Engine) Status() TrainingStatus {
	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	status := TrainingStatus{
		IsTraining:    e.training.Load(),
		ModelVersion:  e.version,
		LastTrainedAt: e.trainedAt,
		LastError:     e.lastError,
	}
	if snap := e.snapshot.Load(); snap != nil {
		status.CatalogSize = len(snap.Locations)
		status.RatingCount = snap.RatingCount
	}
	return status
}

// Train rebuilds all models and publishes a new snapshot. Concurrent
// calls beyond the first return ErrTrainingInProgress; in-flight
// requests keep reading the previous snapshot until the swap.
func (e *Engine) Train(ctx context.Context) error {
	if !e.training.CompareAndSwap(false, true) {
		return ErrTrainingInProgress
	}
	defer e.training.Store(false)

	start := time.Now()
	logging.Info().Msg("Model training started")

	err := e.train(ctx)

	e.trainMu.Lock()
	if err != nil {
		e.lastError = err.Error()
	} else {
		e.lastError = ""
		e.version++
		e.trainedAt = time.Now()
		metrics.ModelVersion.Set(float64(e.version))
	}
	e.trainMu.Unlock()

	metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		logging.Error().Err(err).Msg("Model training failed")
		return err
	}
	logging.Info().
		Dur("elapsed", time.Since(start)).
		Int("version", e.snapshot.Load().Version).
		Msg("Model training completed")
	return nil
}

func (e *Engine) train(ctx context.Context) error {
	locations, err := e.stores.Locations.AllLocations(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	ratings, err := e.stores.Ratings.AllRatings(ctx)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	profiles, err := e.stores.Users.AllProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	set, err := e.builder.Build(ctx, TrainingData{
		Ratings:   ratings,
		Locations: locations,
		Profiles:  profiles,
	})
	if err != nil {
		return fmt.Errorf("build models: %w", err)
	}

	// Persist cluster assignments so other replicas and the next
	// process see them. Best effort; the snapshot keeps serving
	// even when the write side is down.
	for userID, cluster := range set.Clusters.Assignments() {
		if err := e.stores.Clusters.SetCluster(ctx, userID, cluster); err != nil {
			logging.Warn().Err(err).Int("user_id", userID).Msg("Persisting cluster assignment failed")
			break
		}
	}

	e.trainMu.Lock()
	next := e.version + 1
	e.trainMu.Unlock()

	e.snapshot.Store(newSnapshot(next, locations, set, len(ratings)))
	return nil
}

// Recommend answers one recommendation request.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	snap := e.snapshot.Load()
	if snap == nil {
		metrics.RecommendErrorsTotal.Inc()
		return nil, ErrNotReady
	}

	n := req.N
	if n <= 0 {
		n = e.config.DefaultN
	}
	if e.config.MaxN > 0 && n > e.config.MaxN {
		n = e.config.MaxN
	}

	verdict := classify(req.Query, snap)
	strategy, cands, err := e.route(ctx, req, verdict, n, snap)
	if err != nil {
		metrics.RecommendErrorsTotal.Inc()
		return nil, err
	}

	records := assemble(cands, n, snap)
	metrics.RecommendRequestsTotal.WithLabelValues(strategy.String()).Inc()

	logging.Ctx(ctx).Debug().
		Str("strategy", strategy.String()).
		Str("verdict", verdict.String()).
		Int("n", n).
		Int("returned", len(records)).
		Msg("Recommendation served")

	return &Response{
		Records: records,
		Metadata: ResponseMetadata{
			RequestID:    req.RequestID,
			Strategy:     strategy.String(),
			Verdict:      verdict.String(),
			LatencyMS:    time.Since(start).Milliseconds(),
			ModelVersion: snap.Version,
			Timestamp:    time.Now().UTC(),
		},
	}, nil
}

// route selects a candidate generator from user identity and rating
// history size, then refines through the filter pipeline. Transitions
// are request scoped; the rating count and cluster assignment are the
// only durable state, read fresh per request.
func (e *Engine) route(ctx context.Context, req Request, verdict Verdict, n int, snap *Snapshot) (Strategy, []Candidate, error) {
	if req.UserID == nil {
		return e.guestPath(verdict, req.Query, n, snap)
	}
	userID := *req.UserID

	ratings, err := e.stores.Ratings.RatingsForUser(ctx, userID)
	if err != nil {
		// A dead ratings store removes the personalization
		// signal, not the catalog. Degrade to the guest path.
		logging.Ctx(ctx).Warn().Err(err).Int("user_id", userID).Msg("Rating history unavailable, degrading to guest path")
		metrics.RecommendFallbacksTotal.WithLabelValues("generator_popularity").Inc()
		return e.guestPath(verdict, req.Query, n, snap)
	}

	switch {
	case len(ratings) == 0:
		// Cold start: peer aggregation, global popularity when
		// the cluster has no rating history.
		cands, err := e.clusterCandidates(ctx, userID, n, snap)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Int("user_id", userID).Msg("Cluster generator unavailable, falling back to popularity")
			cands = nil
		}
		if len(cands) == 0 {
			metrics.RecommendFallbacksTotal.WithLabelValues("cluster_popularity").Inc()
			return StrategyPopularity, snap.Models.Popularity.Ranking(n), nil
		}
		return StrategyCluster, cands, nil

	case len(ratings) <= e.config.RichHistoryThreshold:
		// Sparse history: content-based, query text refines.
		cands := e.similarityCandidates(verdict, req.Query, n, snap)
		cands = applyFilters(verdict, req.Query, cands, n, snap)
		return StrategyContent, cands, nil

	default:
		// Rich history: collaborative. A named item beats the
		// history union; its neighbors are already maximally
		// specific, so no filter applies.
		if verdict == VerdictExactName {
			id, _ := snap.LocationIDByName(req.Query)
			return StrategyCollaborative, snap.Models.ItemCF.Neighbors(id, e.config.NeighborK), nil
		}
		cands := e.neighborUnion(ratings, snap)
		cands = applyFilters(verdict, req.Query, cands, n, snap)
		return StrategyCollaborative, cands, nil
	}
}

// guestPath serves requests without a user identity.
func (e *Engine) guestPath(verdict Verdict, query string, n int, snap *Snapshot) (Strategy, []Candidate, error) {
	if verdict == VerdictNone {
		return StrategyPopularity, snap.Models.Popularity.Ranking(n), nil
	}
	cands := e.similarityCandidates(verdict, query, n, snap)
	cands = applyFilters(verdict, query, cands, n, snap)
	return StrategyContent, cands, nil
}

// similarityCandidates is the content-based generator. A named
// location yields its content neighbors; any other query yields the
// full catalog in popularity order for the pipeline to narrow.
func (e *Engine) similarityCandidates(verdict Verdict, query string, n int, snap *Snapshot) []Candidate {
	if verdict == VerdictExactName {
		id, ok := snap.LocationIDByName(query)
		if !ok {
			// Unreachable while classifier and snapshot agree,
			// kept as the documented empty-set failure mode.
			logging.Warn().Str("name", strings.TrimSpace(query)).Msg("Named location not in catalog")
			return nil
		}
		return snap.Models.Content.Neighbors(id, e.config.NeighborK)
	}
	return snap.Models.Popularity.Ranking(0)
}

// clusterCandidates is the cold-start generator: mean peer rating per
// location, descending, catalog-order tie-break.
func (e *Engine) clusterCandidates(ctx context.Context, userID, n int, snap *Snapshot) ([]Candidate, error) {
	cluster, err := e.stores.Clusters.ClusterForUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		cluster, err = e.assignCluster(ctx, userID, snap)
	}
	if err != nil {
		return nil, fmt.Errorf("cluster for user %d: %w", userID, err)
	}

	peers, err := e.stores.Clusters.PeersInCluster(ctx, cluster)
	if err != nil {
		return nil, fmt.Errorf("peers in cluster %d: %w", cluster, err)
	}
	peerSet := make(map[int]struct{}, len(peers))
	for _, p := range peers {
		if p != userID {
			peerSet[p] = struct{}{}
		}
	}
	if len(peerSet) == 0 {
		return nil, nil
	}

	all, err := e.stores.Ratings.AllRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range all {
		if _, ok := peerSet[r.UserID]; !ok {
			continue
		}
		sums[r.LocationID] += r.Value
		counts[r.LocationID]++
	}
	if len(counts) == 0 {
		return nil, nil
	}

	cands := make([]Candidate, 0, len(counts))
	for id, c := range counts {
		cands = append(cands, Candidate{LocationID: id, Score: sums[id] / float64(c)})
	}
	sortByScore(cands, snap)
	if len(cands) > n {
		cands = cands[:n]
	}
	return cands, nil
}

// assignCluster computes a cold-start user's cluster lazily from their
// demographic profile and persists it.
func (e *Engine) assignCluster(ctx context.Context, userID int, snap *Snapshot) (int, error) {
	profile, err := e.stores.Users.Profile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		// No demographics recorded; the zero profile lands in
		// whatever cluster absorbs the population mean.
		profile = &models.UserProfile{UserID: userID}
	} else if err != nil {
		return 0, fmt.Errorf("profile for user %d: %w", userID, err)
	}

	cluster := snap.Models.Clusters.Assign(*profile)
	if err := e.stores.Clusters.SetCluster(ctx, userID, cluster); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("user_id", userID).Msg("Persisting lazy cluster assignment failed")
	}
	return cluster, nil
}

// neighborUnion is the collaborative generator: item neighbors of
// every location the user rated, unioned with summed similarity,
// duplicates and already-rated items removed.
func (e *Engine) neighborUnion(ratings []models.Rating, snap *Snapshot) []Candidate {
	rated := make(map[int]struct{}, len(ratings))
	for _, r := range ratings {
		rated[r.LocationID] = struct{}{}
	}

	// Iterate the user's items in catalog order so the union is
	// deterministic.
	ratedIDs := make([]int, 0, len(rated))
	for id := range rated {
		ratedIDs = append(ratedIDs, id)
	}
	sort.Slice(ratedIDs, func(i, j int) bool {
		return snap.position(ratedIDs[i]) < snap.position(ratedIDs[j])
	})

	scores := make(map[int]float64)
	for _, id := range ratedIDs {
		// A missing model row contributes an empty set rather
		// than failing the union.
		for _, nb := range snap.Models.ItemCF.Neighbors(id, e.config.NeighborK) {
			if _, own := rated[nb.LocationID]; own {
				continue
			}
			scores[nb.LocationID] += nb.Score
		}
	}

	cands := make([]Candidate, 0, len(scores))
	for id, score := range scores {
		cands = append(cands, Candidate{LocationID: id, Score: score})
	}
	sortByScore(cands, snap)
	return cands
}

// sortByScore orders candidates descending by score with catalog-order
// tie-break.
func sortByScore(cands []Candidate, snap *Snapshot) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return snap.position(cands[i].LocationID) < snap.position(cands[j].LocationID)
	})
}

// position returns a location's catalog index, or a past-the-end index
// for stale ids so they sort last among equals.
func (s *Snapshot) position(id int) int {
	if i, ok := s.byID[id]; ok {
		return i
	}
	return len(s.Locations)
}
