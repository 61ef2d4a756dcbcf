// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/store"
)

// ---- fakes ----

type fakeNeighbors struct {
	rows map[int][]Candidate
}

func (f *fakeNeighbors) Name() string    { return "fake-neighbors" }
func (f *fakeNeighbors) IsTrained() bool { return true }

func (f *fakeNeighbors) Neighbors(locationID, k int) []Candidate {
	row := f.rows[locationID]
	if k > 0 && len(row) > k {
		row = row[:k]
	}
	return row
}

type fakePopularity struct {
	ranking []Candidate
}

func (f *fakePopularity) Name() string { return "fake-popularity" }

func (f *fakePopularity) Ranking(n int) []Candidate {
	row := f.ranking
	if n > 0 && len(row) > n {
		row = row[:n]
	}
	return row
}

type fakeClusters struct {
	assignments map[int]int
	assign      int
}

func (f *fakeClusters) Name() string             { return "fake-clusters" }
func (f *fakeClusters) Assignments() map[int]int { return f.assignments }
func (f *fakeClusters) Assign(models.UserProfile) int {
	return f.assign
}

type fakeRatingStore struct {
	ratings []models.Rating
	err     error
}

func (f *fakeRatingStore) AllRatings(ctx context.Context) ([]models.Rating, error) {
	return f.ratings, f.err
}

func (f *fakeRatingStore) RatingsForUser(ctx context.Context, userID int) ([]models.Rating, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Rating
	for _, r := range f.ratings {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRatingStore) RatingsForLocation(ctx context.Context, locationID int) ([]models.Rating, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Rating
	for _, r := range f.ratings {
		if r.LocationID == locationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRatingStore) Upsert(ctx context.Context, rating models.Rating) error { return f.err }
func (f *fakeRatingStore) Delete(ctx context.Context, userID, locationID int) error {
	return f.err
}

type fakeLocationStore struct {
	locations []models.Location
	err       error
}

func (f *fakeLocationStore) AllLocations(ctx context.Context) ([]models.Location, error) {
	return f.locations, f.err
}

func (f *fakeLocationStore) LocationByID(ctx context.Context, locationID int) (*models.Location, error) {
	for i := range f.locations {
		if f.locations[i].LocationID == locationID {
			return &f.locations[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeLocationStore) LocationByName(ctx context.Context, name string) (*models.Location, error) {
	return nil, store.ErrNotFound
}

func (f *fakeLocationStore) Put(ctx context.Context, loc *models.Location) error { return f.err }
func (f *fakeLocationStore) DeleteLocation(ctx context.Context, locationID int) error {
	return f.err
}

type fakeClusterStore struct {
	clusters map[int]int
	peers    map[int][]int
	set      map[int]int
	err      error
}

func (f *fakeClusterStore) ClusterForUser(ctx context.Context, userID int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	c, ok := f.clusters[userID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeClusterStore) PeersInCluster(ctx context.Context, cluster int) ([]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.peers[cluster], nil
}

func (f *fakeClusterStore) SetCluster(ctx context.Context, userID, cluster int) error {
	if f.set == nil {
		f.set = make(map[int]int)
	}
	f.set[userID] = cluster
	return nil
}

type fakeUserStore struct {
	profiles map[int]models.UserProfile
}

func (f *fakeUserStore) Profile(ctx context.Context, userID int) (*models.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (f *fakeUserStore) AllProfiles(ctx context.Context) ([]models.UserProfile, error) {
	var out []models.UserProfile
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeUserStore) PutProfile(ctx context.Context, p *models.UserProfile) error { return nil }

type fakeBuilder struct {
	set *ModelSet
	err error
}

func (f *fakeBuilder) Build(ctx context.Context, data TrainingData) (*ModelSet, error) {
	return f.set, f.err
}

// ---- fixtures ----

// testCatalog: ids 1-5 plus the cold-start pair 7 and 9. Catalog order
// matters for tie-breaks: 7 is ingested before 9.
func testCatalog() []models.Location {
	r := func(v float64) *float64 { return &v }
	return []models.Location{
		{LocationID: 1, Name: "Eiffel Tower", Category: models.CategoryList{"landmark"}, Country: "France", City: "Paris", Description: "iron lattice tower", Rating: r(4.7), Position: 0},
		{LocationID: 2, Name: "Louvre Museum", Category: models.CategoryList{"museum", "art"}, Country: "France", City: "Paris", Description: "world's largest art museum", Rating: r(4.6), Position: 1},
		{LocationID: 3, Name: "Colosseum", Category: models.CategoryList{"ruins"}, Country: "Italy", City: "Rome", Description: "ancient amphitheatre", Position: 2},
		{LocationID: 4, Name: "Trevi Fountain", Category: models.CategoryList{"fountain"}, Country: "Italy", City: "Rome", Description: "baroque fountain", Position: 3},
		{LocationID: 5, Name: "Mount Fuji", Category: models.CategoryList{"mountain"}, Country: "Japan", City: "Fujinomiya", Description: "highest peak in japan", Position: 4},
		{LocationID: 7, Name: "Kinkakuji", Category: models.CategoryList{"temple"}, Country: "Japan", City: "Kyoto", Description: "golden pavilion", Position: 5},
		{LocationID: 9, Name: "Fushimi Inari", Category: nil, Country: "Japan", City: "Kyoto", Description: "shrine of a thousand gates", Position: 6},
	}
}

func popularityOrder() []Candidate {
	// Catalog order doubles as the popularity fixture ranking.
	return []Candidate{
		{LocationID: 1, Score: 4.7},
		{LocationID: 2, Score: 4.6},
		{LocationID: 3, Score: 4.0},
		{LocationID: 4, Score: 3.9},
		{LocationID: 5, Score: 3.8},
		{LocationID: 7, Score: 3.7},
		{LocationID: 9, Score: 3.6},
	}
}

func testModelSet() *ModelSet {
	return &ModelSet{
		ItemCF: &fakeNeighbors{rows: map[int][]Candidate{
			// Collaborative neighbors; nothing Japanese among
			// the neighbors of 2, 3 and 4.
			1: {{LocationID: 2, Score: 0.9}, {LocationID: 3, Score: 0.5}},
			2: {{LocationID: 1, Score: 0.9}, {LocationID: 4, Score: 0.4}},
			3: {{LocationID: 4, Score: 0.8}, {LocationID: 1, Score: 0.5}},
			4: {{LocationID: 3, Score: 0.8}},
		}},
		Content: &fakeNeighbors{rows: map[int][]Candidate{
			1: {{LocationID: 3, Score: 0.7}, {LocationID: 2, Score: 0.3}},
			5: {{LocationID: 7, Score: 0.6}, {LocationID: 9, Score: 0.5}},
		}},
		Popularity: &fakePopularity{ranking: popularityOrder()},
		Clusters:   &fakeClusters{assignments: map[int]int{}, assign: 3},
	}
}

type engineFixture struct {
	engine   *Engine
	ratings  *fakeRatingStore
	clusters *fakeClusterStore
	users    *fakeUserStore
}

func newTestEngine(t *testing.T) *engineFixture {
	t.Helper()

	ratings := &fakeRatingStore{}
	clusters := &fakeClusterStore{clusters: map[int]int{}, peers: map[int][]int{}}
	users := &fakeUserStore{profiles: map[int]models.UserProfile{}}

	e := NewEngine(DefaultConfig(), Stores{
		Ratings:   ratings,
		Locations: &fakeLocationStore{locations: testCatalog()},
		Clusters:  clusters,
		Users:     users,
	}, &fakeBuilder{set: testModelSet()})
	e.snapshot.Store(newSnapshot(1, testCatalog(), testModelSet(), 0))

	return &engineFixture{engine: e, ratings: ratings, clusters: clusters, users: users}
}

func ids(records []Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.LocationID
	}
	return out
}

func equalIDs(a, b []int) bool {
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

// giveRichHistory rates locations 1-4 six times each so the user
// stays over the rich-history threshold even when one location's
// ratings are removed.
func giveRichHistory(f *engineFixture, userID int) {
	for i := 0; i < 6; i++ {
		for _, loc := range []int{1, 2, 3, 4} {
			f.ratings.ratings = append(f.ratings.ratings, models.Rating{
				UserID: userID, LocationID: loc, Value: 4,
			})
		}
	}
}

// ---- classifier ----

func TestClassifyVerdicts(t *testing.T) {
	snap := newSnapshot(1, testCatalog(), testModelSet(), 0)

	tests := []struct {
		name  string
		input string
		want  Verdict
	}{
		{"empty", "", VerdictNone},
		{"whitespace only", "   ", VerdictNone},
		{"exact name", "Eiffel Tower", VerdictExactName},
		{"exact name case-insensitive", "eiffel TOWER", VerdictExactName},
		{"country", "Japan", VerdictCountry},
		{"country substring", "apa", VerdictCountry},
		{"country case-insensitive", "jApAn", VerdictCountry},
		{"keyword", "temple garden", VerdictKeyword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.input, snap); got != tt.want {
				t.Errorf("classify(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifyExactNameBeatsCountry(t *testing.T) {
	// A location literally named "Japan" while Japan is also a
	// country in the catalog.
	catalog := append(testCatalog(), models.Location{
		LocationID: 20, Name: "Japan", Country: "Themeparkland", Position: 7,
	})
	snap := newSnapshot(1, catalog, testModelSet(), 0)

	if got := classify("Japan", snap); got != VerdictExactName {
		t.Errorf("expected exact-name precedence, got %v", got)
	}
}

// ---- guest routing ----

func TestGuestNoQueryReturnsPopularity(t *testing.T) {
	f := newTestEngine(t)

	resp, err := f.engine.Recommend(context.Background(), Request{N: 3})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !equalIDs(ids(resp.Records), []int{1, 2, 3}) {
		t.Errorf("expected popularity head, got %v", ids(resp.Records))
	}
	if resp.Metadata.Strategy != "popularity" {
		t.Errorf("expected popularity strategy, got %s", resp.Metadata.Strategy)
	}
}

func TestGuestExactNameReturnsContentNeighbors(t *testing.T) {
	f := newTestEngine(t)

	resp, err := f.engine.Recommend(context.Background(), Request{Query: "Eiffel Tower", N: 5})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !equalIDs(ids(resp.Records), []int{3, 2}) {
		t.Errorf("expected content neighbors of Eiffel Tower, got %v", ids(resp.Records))
	}
}

func TestGuestCountryFilter(t *testing.T) {
	f := newTestEngine(t)

	resp, err := f.engine.Recommend(context.Background(), Request{Query: "Italy", N: 10})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !equalIDs(ids(resp.Records), []int{3, 4}) {
		t.Errorf("expected only Italian locations, got %v", ids(resp.Records))
	}
}

func TestGuestKeywordFilter(t *testing.T) {
	f := newTestEngine(t)

	resp, err := f.engine.Recommend(context.Background(), Request{Query: "museum", N: 10})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !equalIDs(ids(resp.Records), []int{2}) {
		t.Errorf("expected keyword match on category/description, got %v", ids(resp.Records))
	}
}

func TestGuestKeywordFallbackLaw(t *testing.T) {
	f := newTestEngine(t)

	// No catalog text contains this keyword; the response must
	// equal the unfiltered candidate top-n.
	resp, err := f.engine.Recommend(context.Background(), Request{Query: "zzzunmatchable", N: 3})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !equalIDs(ids(resp.Records), []int{1, 2, 3}) {
		t.Errorf("keyword fallback must return unfiltered top-n, got %v", ids(resp.Records))
	}
}

// ---- cold start ----

func TestColdStartClusterFixture(t *testing.T) {
	f := newTestEngine(t)

	// User 99 has zero ratings and sits in cluster 2. Peers: A
	// rated loc7=5, B rated loc7=3, C rated loc9=4. Means tie at
	// 4.0; catalog order puts loc7 first.
	f.clusters.clusters[99] = 2
	f.clusters.peers[2] = []int{100, 101, 102}
	f.ratings.ratings = []models.Rating{
		{UserID: 100, LocationID: 7, Value: 5},
		{UserID: 101, LocationID: 7, Value: 3},
		{UserID: 102, LocationID: 9, Value: 4},
	}

	userID := 99
	resp, err := f.engine.Recommend(context.Background(), Request{UserID: &userID, N: 1})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !equalIDs(ids(resp.Records), []int{7}) {
		t.Errorf("cold-start fixture must yield [7], got %v", ids(resp.Records))
	}
	if resp.Metadata.Strategy != "cluster" {
		t.Errorf("expected cluster strategy, got %s", resp.Metadata.Strategy)
	}
}

func TestColdStartEmptyClusterFallsBackToPopularity(t *testing.T) {
	f := newTestEngine(t)

	f.clusters.clusters[50] = 1
	f.clusters.peers[1] = []int{51}
	// Peer 51 has no ratings at all.

	userID := 50
	resp, err := f.engine.Recommend(context.Background(), Request{UserID: &userID, N: 2})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !equalIDs(ids(resp.Records), []int{1, 2}) {
		t.Errorf("expected popularity fallback, got %v", ids(resp.Records))
	}
	if resp.Metadata.Strategy != "popularity" {
		t.Errorf("expected popularity strategy, got %s", resp.Metadata.Strategy)
	}
}

func TestColdStartLazyClusterAssignment(t *testing.T) {
	f := newTestEngine(t)

	// User 60 has no rating history and no cluster assignment yet.
	// The cluster model assigns cluster 3; the assignment must be
	// persisted.
	f.users.profiles[60] = models.UserProfile{UserID: 60, AgeGroup: "18-24"}
	f.clusters.peers[3] = []int{61}
	f.ratings.ratings = []models.Rating{
		{UserID: 61, LocationID: 4, Value: 5},
	}

	userID := 60
	resp, err := f.engine.Recommend(context.Background(), Request{UserID: &userID, N: 1})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !equalIDs(ids(resp.Records), []int{4}) {
		t.Errorf("expected peer favorite, got %v", ids(resp.Records))
	}
	if f.clusters.set[60] != 3 {
		t.Errorf("lazy assignment not persisted: %v", f.clusters.set)
	}
}

// ---- sparse history ----

func TestSparseHistoryUsesContentStrategy(t *testing.T) {
	f := newTestEngine(t)
	f.ratings.ratings = []models.Rating{{UserID: 8, LocationID: 1, Value: 5}}

	userID := 8
	resp, err := f.engine.Recommend(context.Background(), Request{UserID: &userID, N: 3})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if resp.Metadata.Strategy != "content" {
		t.Errorf("expected content strategy for sparse history, got %s", resp.Metadata.Strategy)
	}
	if !equalIDs(ids(resp.Records), []int{1, 2, 3}) {
		t.Errorf("expected popularity-ordered catalog head, got %v", ids(resp.Records))
	}
}

func TestSparseHistoryAtThresholdStaysContent(t *testing.T) {
	f := newTestEngine(t)
	// Exactly 15 ratings is still sparse.
	for i := 0; i < 15; i++ {
		f.ratings.ratings = append(f.ratings.ratings, models.Rating{
			UserID: 8, LocationID: 1 + i%4, Value: 4,
		})
	}

	userID := 8
	resp, err := f.engine.Recommend(context.Background(), Request{UserID: &userID, N: 2})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if resp.Metadata.Strategy != "content" {
		t.Errorf("15 ratings must stay content, got %s", resp.Metadata.Strategy)
	}
}

// ---- rich history ----

func TestRichHistoryUsesNeighborUnion(t *testing.T) {
	f := newTestEngine(t)
	giveRichHistory(f, 12)

	userID := 12
	resp, err := f.engine.Recommend(context.Background(), Request{UserID: &userID, N: 10})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if resp.Metadata.Strategy != "collaborative" {
		t.Errorf("expected collaborative strategy, got %s", resp.Metadata.Strategy)
	}
	// Every neighbor of the rated set is itself rated, so the
	// union after exclusion is empty.
	if len(resp.Records) != 0 {
		t.Errorf("expected empty union after excluding rated items, got %v", ids(resp.Records))
	}
}

func TestRichHistoryExactNameBeatsHistoryUnion(t *testing.T) {
	f := newTestEngine(t)
	giveRichHistory(f, 12)

	userID := 12
	resp, err := f.engine.Recommend(context.Background(), Request{UserID: &userID, Query: "Eiffel Tower", N: 5})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	// Item neighbors of the named item, including ones the user
	// already rated; not the history union.
	if !equalIDs(ids(resp.Records), []int{2, 3}) {
		t.Errorf("expected item neighbors of Eiffel Tower, got %v", ids(resp.Records))
	}
}

func TestRichHistoryCountryFilterNeverFallsBack(t *testing.T) {
	f := newTestEngine(t)
	giveRichHistory(f, 12)
	// Leave one location unrated so the union is non-empty: drop
	// the ratings for location 4.
	var kept []models.Rating
	for _, r := range f.ratings.ratings {
		if r.LocationID != 4 {
			kept = append(kept, r)
		}
	}
	f.ratings.ratings = kept

	userID := 12
	resp, err := f.engine.Recommend(context.Background(), Request{UserID: &userID, Query: "Japan", N: 5})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	// The candidate union contains only location 4 (Italy); the
	// country filter is authoritative and must yield nothing.
	if len(resp.Records) != 0 {
		t.Errorf("country filter must not fall back, got %v", ids(resp.Records))
	}
}

// ---- degradation ----

func TestRatingsStoreFailureDegradesToGuestPath(t *testing.T) {
	f := newTestEngine(t)
	f.ratings.err = errors.New("store down")

	userID := 5
	resp, err := f.engine.Recommend(context.Background(), Request{UserID: &userID, N: 2})
	if err != nil {
		t.Fatalf("expected degraded response, got error: %v", err)
	}
	if !equalIDs(ids(resp.Records), []int{1, 2}) {
		t.Errorf("expected popularity degradation, got %v", ids(resp.Records))
	}
}

func TestRecommendBeforeTraining(t *testing.T) {
	e := NewEngine(DefaultConfig(), Stores{}, &fakeBuilder{})

	_, err := e.Recommend(context.Background(), Request{N: 1})
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

// ---- assembler ----

func TestAssembleDedupeAndTrim(t *testing.T) {
	snap := newSnapshot(1, testCatalog(), testModelSet(), 0)

	cands := []Candidate{
		{LocationID: 7, Score: 1.0},
		{LocationID: 9, Score: 0.9},
		{LocationID: 7, Score: 0.8}, // duplicate, first wins
		{LocationID: 888, Score: 0.7}, // stale, dropped silently
		{LocationID: 1, Score: 0.6},
	}

	records := assemble(cands, 2, snap)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].LocationID != 7 || records[1].LocationID != 9 {
		t.Errorf("unexpected order: %v", ids(records))
	}
}

func TestAssembleNormalizesFields(t *testing.T) {
	snap := newSnapshot(1, testCatalog(), testModelSet(), 0)

	// Location 9 has a nil category and no rating in the fixture.
	records := assemble([]Candidate{{LocationID: 9}}, 5, snap)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Category == nil {
		t.Error("category must never be nil")
	}
	if len(records[0].Category) != 0 {
		t.Errorf("expected empty category list, got %v", records[0].Category)
	}
	if records[0].Rating != nil {
		t.Errorf("expected absent rating to stay nil, got %v", *records[0].Rating)
	}
}

func TestResponseNeverExceedsN(t *testing.T) {
	f := newTestEngine(t)

	for _, n := range []int{1, 3, 100} {
		resp, err := f.engine.Recommend(context.Background(), Request{N: n})
		if err != nil {
			t.Fatalf("recommend n=%d: %v", n, err)
		}
		if len(resp.Records) > n {
			t.Errorf("n=%d returned %d records", n, len(resp.Records))
		}
		for _, r := range resp.Records {
			if r.LocationID == 0 {
				t.Error("record with zero locationId")
			}
			if r.Category == nil {
				t.Error("record with nil category")
			}
		}
	}
}

// ---- training lifecycle ----

func TestTrainPublishesSnapshot(t *testing.T) {
	set := testModelSet()
	set.Clusters = &fakeClusters{assignments: map[int]int{1: 2}, assign: 0}

	clusters := &fakeClusterStore{clusters: map[int]int{}, peers: map[int][]int{}}
	e := NewEngine(DefaultConfig(), Stores{
		Ratings:   &fakeRatingStore{ratings: []models.Rating{{UserID: 1, LocationID: 1, Value: 5}}},
		Locations: &fakeLocationStore{locations: testCatalog()},
		Clusters:  clusters,
		Users:     &fakeUserStore{profiles: map[int]models.UserProfile{}},
	}, &fakeBuilder{set: set})

	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("train: %v", err)
	}

	snap := e.Snapshot()
	if snap == nil {
		t.Fatal("no snapshot published")
	}
	if snap.Version != 1 || snap.RatingCount != 1 {
		t.Errorf("unexpected snapshot: version=%d ratings=%d", snap.Version, snap.RatingCount)
	}
	if clusters.set[1] != 2 {
		t.Errorf("cluster assignments not persisted: %v", clusters.set)
	}

	status := e.Status()
	if status.ModelVersion != 1 || status.IsTraining {
		t.Errorf("unexpected status: %+v", status)
	}

	// A second cycle bumps the version.
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("retrain: %v", err)
	}
	if e.Snapshot().Version != 2 {
		t.Errorf("expected version 2, got %d", e.Snapshot().Version)
	}
}

func TestTrainFailureKeepsServingOldSnapshot(t *testing.T) {
	builder := &fakeBuilder{set: testModelSet()}
	e := NewEngine(DefaultConfig(), Stores{
		Ratings:   &fakeRatingStore{},
		Locations: &fakeLocationStore{locations: testCatalog()},
		Clusters:  &fakeClusterStore{clusters: map[int]int{}, peers: map[int][]int{}},
		Users:     &fakeUserStore{profiles: map[int]models.UserProfile{}},
	}, builder)

	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("train: %v", err)
	}

	builder.err = errors.New("model blew up")
	if err := e.Train(context.Background()); err == nil {
		t.Fatal("expected training error")
	}

	if e.Snapshot() == nil || e.Snapshot().Version != 1 {
		t.Error("failed rebuild must keep the previous snapshot")
	}
	if e.Status().LastError == "" {
		t.Error("status must surface the training error")
	}

	// Requests still work against the old snapshot.
	if _, err := e.Recommend(context.Background(), Request{N: 1}); err != nil {
		t.Errorf("recommend after failed rebuild: %v", err)
	}
}
