// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package algorithms

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/recommend"
)

// KMeansConfig configures the demographic clustering model.
type KMeansConfig struct {
	// K is the number of clusters.
	K int

	// MaxIterations bounds Lloyd's algorithm.
	MaxIterations int

	// Seed makes centroid initialization deterministic.
	Seed int64
}

// DefaultKMeansConfig returns the default configuration.
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{
		K:             5,
		MaxIterations: 100,
		Seed:          42,
	}
}

// KMeansClusters partitions users by demographic profile. Age group,
// home country and occupation are one-hot encoded, the columns
// standardized, and Lloyd's algorithm run with deterministic seeding.
// Cold-start users are assigned to the nearest centroid on demand.
type KMeansClusters struct {
	BaseAlgorithm
	config KMeansConfig

	features    *featureEncoder
	centroids   [][]float64
	assignments map[int]int
}

// NewKMeansClusters creates an untrained clustering model.
func NewKMeansClusters(cfg KMeansConfig) *KMeansClusters {
	if cfg.K <= 0 {
		cfg.K = 5
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 100
	}
	return &KMeansClusters{
		BaseAlgorithm: NewBaseAlgorithm("kmeans"),
		config:        cfg,
		assignments:   make(map[int]int),
	}
}

// Train fits cluster centroids over the known profiles and records an
// assignment for each.
func (a *KMeansClusters) Train(ctx context.Context, data recommend.TrainingData) error {
	a.acquireTrainLock()
	defer a.releaseTrainLock()

	if contextCancelled(ctx) {
		return ctx.Err()
	}

	enc := newFeatureEncoder(data.Profiles)
	points := make([][]float64, len(data.Profiles))
	for i, p := range data.Profiles {
		points[i] = enc.encode(p)
	}

	k := a.config.K
	if k > len(points) {
		k = len(points)
	}
	if k == 0 {
		// No profiles yet. Every user lands in cluster 0.
		a.features = enc
		a.centroids = nil
		a.assignments = make(map[int]int)
		a.markTrained()
		return nil
	}

	rng := rand.New(rand.NewSource(a.config.Seed))
	centroids := initCentroids(points, k, rng)

	labels := make([]int, len(points))
	for iter := 0; iter < a.config.MaxIterations; iter++ {
		if contextCancelled(ctx) {
			return ctx.Err()
		}

		changed := false
		for i, pt := range points {
			l := nearestCentroid(pt, centroids)
			if l != labels[i] {
				labels[i] = l
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recomputeCentroids(points, labels, centroids)
	}

	assignments := make(map[int]int, len(data.Profiles))
	for i, p := range data.Profiles {
		assignments[p.UserID] = labels[i]
	}

	a.features = enc
	a.centroids = centroids
	a.assignments = assignments
	a.markTrained()
	return nil
}

// Assignments returns the cluster label computed for every profile
// seen at training time.
func (a *KMeansClusters) Assignments() map[int]int {
	a.acquirePredictLock()
	defer a.releasePredictLock()

	out := make(map[int]int, len(a.assignments))
	for k, v := range a.assignments {
		out[k] = v
	}
	return out
}

// Assign places a previously unseen profile into the nearest cluster.
func (a *KMeansClusters) Assign(p models.UserProfile) int {
	a.acquirePredictLock()
	defer a.releasePredictLock()

	if len(a.centroids) == 0 || a.features == nil {
		return 0
	}
	return nearestCentroid(a.features.encode(p), a.centroids)
}

// featureEncoder one-hot encodes demographic fields and standardizes
// the columns over the training population.
type featureEncoder struct {
	columns map[string]int
	means   []float64
	stddevs []float64
}

func newFeatureEncoder(profiles []models.UserProfile) *featureEncoder {
	// Collect the categorical vocabulary in a stable order.
	vocab := make(map[string]struct{})
	for _, p := range profiles {
		vocab["age:"+p.AgeGroup] = struct{}{}
		vocab["country:"+p.HomeCountry] = struct{}{}
		vocab["occupation:"+p.Occupation] = struct{}{}
	}
	keys := make([]string, 0, len(vocab))
	for k := range vocab {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := make(map[string]int, len(keys))
	for i, k := range keys {
		columns[k] = i
	}

	enc := &featureEncoder{
		columns: columns,
		means:   make([]float64, len(columns)),
		stddevs: make([]float64, len(columns)),
	}

	if len(profiles) == 0 {
		return enc
	}

	raw := make([][]float64, len(profiles))
	for i, p := range profiles {
		raw[i] = enc.oneHot(p)
	}
	n := float64(len(raw))
	for col := range enc.means {
		var sum float64
		for _, row := range raw {
			sum += row[col]
		}
		enc.means[col] = sum / n
	}
	for col := range enc.stddevs {
		var sq float64
		for _, row := range raw {
			d := row[col] - enc.means[col]
			sq += d * d
		}
		enc.stddevs[col] = math.Sqrt(sq / n)
	}
	return enc
}

func (e *featureEncoder) oneHot(p models.UserProfile) []float64 {
	row := make([]float64, len(e.columns))
	for _, key := range []string{
		"age:" + p.AgeGroup,
		"country:" + p.HomeCountry,
		"occupation:" + p.Occupation,
	} {
		if col, ok := e.columns[key]; ok {
			row[col] = 1
		}
	}
	return row
}

func (e *featureEncoder) encode(p models.UserProfile) []float64 {
	row := e.oneHot(p)
	for col := range row {
		if e.stddevs[col] > 0 {
			row[col] = (row[col] - e.means[col]) / e.stddevs[col]
		} else {
			row[col] -= e.means[col]
		}
	}
	return row
}

// initCentroids picks up to k distinct feature vectors as starting
// centroids. Duplicate vectors are skipped so two centroids never
// start at the same point; when the data has fewer than k distinct
// vectors the result is shorter than k.
func initCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	perm := rng.Perm(len(points))
	centroids := make([][]float64, 0, k)
	for _, idx := range perm {
		if len(centroids) == k {
			break
		}
		src := points[idx]
		if containsVector(centroids, src) {
			continue
		}
		c := make([]float64, len(src))
		copy(c, src)
		centroids = append(centroids, c)
	}
	return centroids
}

func containsVector(vecs [][]float64, v []float64) bool {
	for _, w := range vecs {
		if vectorsEqual(w, v) {
			return true
		}
	}
	return false
}

func vectorsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nearestCentroid(pt []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centroids {
		var d float64
		for j := range pt {
			if j >= len(c) {
				break
			}
			diff := pt[j] - c[j]
			d += diff * diff
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// recomputeCentroids moves each centroid to the mean of its members.
// A cluster with no members keeps its previous centroid.
func recomputeCentroids(points [][]float64, labels []int, centroids [][]float64) {
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for i, c := range centroids {
		sums[i] = make([]float64, len(c))
	}
	for i, pt := range points {
		l := labels[i]
		counts[l]++
		for j, v := range pt {
			sums[l][j] += v
		}
	}
	for i := range centroids {
		if counts[i] == 0 {
			continue
		}
		for j := range centroids[i] {
			centroids[i][j] = sums[i][j] / float64(counts[i])
		}
	}
}
