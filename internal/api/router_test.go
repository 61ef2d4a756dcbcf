// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/wayfarer/internal/models"
	"github.com/tomtom215/wayfarer/internal/recommend"
	"github.com/tomtom215/wayfarer/internal/recommend/algorithms"
	"github.com/tomtom215/wayfarer/internal/store"
)

// ---- in-memory store fakes ----

type memRatingStore struct {
	ratings map[[2]int]models.Rating
}

func newMemRatingStore() *memRatingStore {
	return &memRatingStore{ratings: make(map[[2]int]models.Rating)}
}

func (m *memRatingStore) AllRatings(_ context.Context) ([]models.Rating, error) {
	out := make([]models.Rating, 0, len(m.ratings))
	for _, rt := range m.ratings {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].LocationID < out[j].LocationID
	})
	return out, nil
}

func (m *memRatingStore) RatingsForUser(_ context.Context, userID int) ([]models.Rating, error) {
	var out []models.Rating
	for key, rt := range m.ratings {
		if key[0] == userID {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

func (m *memRatingStore) RatingsForLocation(_ context.Context, locationID int) ([]models.Rating, error) {
	var out []models.Rating
	for key, rt := range m.ratings {
		if key[1] == locationID {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memRatingStore) Upsert(_ context.Context, rt models.Rating) error {
	m.ratings[[2]int{rt.UserID, rt.LocationID}] = rt
	return nil
}

func (m *memRatingStore) Delete(_ context.Context, userID, locationID int) error {
	key := [2]int{userID, locationID}
	if _, ok := m.ratings[key]; !ok {
		return store.ErrNotFound
	}
	delete(m.ratings, key)
	return nil
}

type memLocationStore struct {
	locations []models.Location
}

func (m *memLocationStore) AllLocations(_ context.Context) ([]models.Location, error) {
	return append([]models.Location(nil), m.locations...), nil
}

func (m *memLocationStore) LocationByID(_ context.Context, locationID int) (*models.Location, error) {
	for i := range m.locations {
		if m.locations[i].LocationID == locationID {
			loc := m.locations[i]
			return &loc, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memLocationStore) LocationByName(_ context.Context, name string) (*models.Location, error) {
	for i := range m.locations {
		if m.locations[i].Name == name {
			loc := m.locations[i]
			return &loc, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memLocationStore) Put(_ context.Context, loc *models.Location) error {
	for i := range m.locations {
		if m.locations[i].LocationID == loc.LocationID {
			loc.Position = m.locations[i].Position
			m.locations[i] = *loc
			return nil
		}
	}
	loc.Position = len(m.locations)
	m.locations = append(m.locations, *loc)
	return nil
}

func (m *memLocationStore) DeleteLocation(_ context.Context, locationID int) error {
	for i := range m.locations {
		if m.locations[i].LocationID == locationID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type memClusterStore struct {
	clusters map[int]int
}

func (m *memClusterStore) ClusterForUser(_ context.Context, userID int) (int, error) {
	c, ok := m.clusters[userID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return c, nil
}

func (m *memClusterStore) PeersInCluster(_ context.Context, cluster int) ([]int, error) {
	var out []int
	for user, c := range m.clusters {
		if c == cluster {
			out = append(out, user)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (m *memClusterStore) SetCluster(_ context.Context, userID, cluster int) error {
	if m.clusters == nil {
		m.clusters = make(map[int]int)
	}
	m.clusters[userID] = cluster
	return nil
}

type memUserStore struct {
	profiles map[int]models.UserProfile
}

func (m *memUserStore) Profile(_ context.Context, userID int) (*models.UserProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memUserStore) AllProfiles(_ context.Context) ([]models.UserProfile, error) {
	out := make([]models.UserProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memUserStore) PutProfile(_ context.Context, p *models.UserProfile) error {
	if m.profiles == nil {
		m.profiles = make(map[int]models.UserProfile)
	}
	m.profiles[p.UserID] = *p
	return nil
}

// ---- fixtures ----

func apiCatalog() []models.Location {
	return []models.Location{
		{LocationID: 1, Name: "Eiffel Tower", Category: models.CategoryList{"landmark"}, Country: "France", City: "Paris", Description: "Iron lattice tower", Position: 0},
		{LocationID: 2, Name: "Louvre", Category: models.CategoryList{"museum"}, Country: "France", City: "Paris", Description: "Art museum", Position: 1},
		{LocationID: 3, Name: "Colosseum", Category: models.CategoryList{"landmark"}, Country: "Italy", City: "Rome", Description: "Ancient amphitheatre", Position: 2},
		{LocationID: 4, Name: "Mount Fuji", Category: models.CategoryList{"nature"}, Country: "Japan", City: "Fujinomiya", Description: "Volcanic peak", Position: 3},
	}
}

type testEnv struct {
	engine    *recommend.Engine
	ratings   *memRatingStore
	locations *memLocationStore
	clusters  *memClusterStore
	handler   http.Handler
}

func newTestEnv(t *testing.T, train bool) *testEnv {
	t.Helper()

	ratings := newMemRatingStore()
	locations := &memLocationStore{locations: apiCatalog()}
	clusters := &memClusterStore{clusters: make(map[int]int)}
	users := &memUserStore{profiles: make(map[int]models.UserProfile)}

	// Louvre outranks the Eiffel Tower; the rest stay unrated and
	// trail in catalog order.
	seed := []models.Rating{
		{UserID: 50, LocationID: 2, Value: 5},
		{UserID: 51, LocationID: 2, Value: 5},
		{UserID: 50, LocationID: 1, Value: 4},
	}
	for _, rt := range seed {
		if err := ratings.Upsert(context.Background(), rt); err != nil {
			t.Fatalf("seed rating: %v", err)
		}
	}

	engine := recommend.NewEngine(recommend.DefaultConfig(), recommend.Stores{
		Ratings:   ratings,
		Locations: locations,
		Clusters:  clusters,
		Users:     users,
	}, algorithms.NewBuilder(algorithms.DefaultBuilderConfig()))

	if train {
		if err := engine.Train(context.Background()); err != nil {
			t.Fatalf("train: %v", err)
		}
	}

	router := NewRouter(engine, Stores{
		Ratings:   ratings,
		Locations: locations,
		Clusters:  clusters,
		Users:     users,
	}, nil)

	return &testEnv{
		engine:    engine,
		ratings:   ratings,
		locations: locations,
		clusters:  clusters,
		handler:   router.Handler(),
	}
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func recordIDs(t *testing.T, data interface{}) []int {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var resp recommend.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode recommendation response: %v", err)
	}
	ids := make([]int, len(resp.Records))
	for i, rec := range resp.Records {
		ids[i] = rec.LocationID
	}
	return ids
}

// ---- recommendation endpoints ----

func TestGuestRecommendationsPopularityOrder(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/recommendations?n=4", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Fatal("expected success envelope")
	}

	got := recordIDs(t, resp.Data)
	want := []int{2, 1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got ids %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got ids %v, want %v", got, want)
		}
	}
}

func TestRecommendationsInvalidParams(t *testing.T) {
	env := newTestEnv(t, true)

	cases := []struct {
		name string
		path string
	}{
		{"non-numeric n", "/api/v1/recommendations?n=abc"},
		{"zero n", "/api/v1/recommendations?n=0"},
		{"negative n", "/api/v1/recommendations?n=-3"},
		{"non-numeric user", "/api/v1/recommendations/abc"},
		{"zero user", "/api/v1/recommendations/0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tc.path, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Error == nil || resp.Error.Code != ErrCodeBadRequest {
				t.Fatalf("error = %+v, want %s", resp.Error, ErrCodeBadRequest)
			}
		})
	}
}

func TestRecommendationsBeforeTraining(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/v1/recommendations", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeServiceUnavailable {
		t.Fatalf("error = %+v, want %s", resp.Error, ErrCodeServiceUnavailable)
	}
}

func TestUserRecommendationsServed(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/recommendations/50?n=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	ids := recordIDs(t, resp.Data)
	if len(ids) == 0 || len(ids) > 2 {
		t.Fatalf("got %d records, want 1..2", len(ids))
	}
}

// ---- ratings endpoints ----

func TestRatingsLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	body := map[string]interface{}{"userId": 7, "locationId": 3, "rating": 4.5}
	rec := env.do(t, http.MethodPut, "/api/v1/ratings", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/ratings/user/7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T, want object", resp.Data)
	}
	if count, _ := data["count"].(float64); count != 1 {
		t.Fatalf("count = %v, want 1", data["count"])
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/ratings", map[string]interface{}{"userId": 7, "locationId": 3})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/ratings/user/7", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want 404", rec.Code)
	}
}

func TestUpsertRatingValidation(t *testing.T) {
	env := newTestEnv(t, true)

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"rating above scale", map[string]interface{}{"userId": 1, "locationId": 1, "rating": 6}},
		{"rating below scale", map[string]interface{}{"userId": 1, "locationId": 1, "rating": 0.5}},
		{"missing user", map[string]interface{}{"locationId": 1, "rating": 3}},
		{"missing location", map[string]interface{}{"userId": 1, "rating": 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, "/api/v1/ratings", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
				t.Fatalf("error = %+v, want %s", resp.Error, ErrCodeValidationFailed)
			}
		})
	}
}

func TestUpsertRatingUnknownLocation(t *testing.T) {
	env := newTestEnv(t, true)

	body := map[string]interface{}{"userId": 7, "locationId": 999, "rating": 4}
	rec := env.do(t, http.MethodPut, "/api/v1/ratings", body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUpsertRatingMalformedJSON(t *testing.T) {
	env := newTestEnv(t, true)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/ratings", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteRatingNotFound(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodDelete, "/api/v1/ratings", map[string]interface{}{"userId": 999, "locationId": 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// ---- locations endpoints ----

func TestListLocations(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/locations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	if count, _ := data["count"].(float64); count != 4 {
		t.Fatalf("count = %v, want 4", data["count"])
	}
}

func TestGetLocationByID(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/locations/3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	if name, _ := data["name"].(string); name != "Colosseum" {
		t.Fatalf("name = %v, want Colosseum", data["name"])
	}

	rec = env.do(t, http.MethodGet, "/api/v1/locations/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing id status = %d, want 404", rec.Code)
	}
}

func TestSearchLocations(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/locations/search?name=Louvre", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/locations/search?name=Atlantis", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no-match status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/locations/search", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing-name status = %d, want 400", rec.Code)
	}
}

func TestCreateLocation(t *testing.T) {
	env := newTestEnv(t, true)

	body := map[string]interface{}{
		"locationId": 10,
		"name":       "Sagrada Familia",
		"category":   "church",
		"country":    "Spain",
		"city":       "Barcelona",
	}
	rec := env.do(t, http.MethodPost, "/api/v1/locations", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	loc, err := env.locations.LocationByID(context.Background(), 10)
	if err != nil {
		t.Fatalf("location not persisted: %v", err)
	}
	if len(loc.Category) != 1 || loc.Category[0] != "church" {
		t.Fatalf("category = %v, want single-tag list", loc.Category)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/locations", map[string]interface{}{"name": "No Country"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid payload status = %d, want 400", rec.Code)
	}
}

// ---- training endpoints ----

func TestRecommendStatus(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/recommend/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	if v, _ := data["model_version"].(float64); v != 1 {
		t.Fatalf("model_version = %v, want 1", data["model_version"])
	}
	if sz, _ := data["catalog_size"].(float64); sz != 4 {
		t.Fatalf("catalog_size = %v, want 4", data["catalog_size"])
	}
}

func TestTriggerTrainAccepted(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/recommend/train", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	// The rebuild runs in the background; wait for the snapshot.
	deadline := time.After(5 * time.Second)
	for env.engine.Status().ModelVersion == 0 {
		select {
		case <-deadline:
			t.Fatal("training never completed")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// blockingBuilder parks Build until released so tests can observe the
// in-training state deterministically.
type blockingBuilder struct {
	inner   recommend.ModelBuilder
	started chan struct{}
	release chan struct{}
}

func (b *blockingBuilder) Build(ctx context.Context, data recommend.TrainingData) (*recommend.ModelSet, error) {
	close(b.started)
	<-b.release
	return b.inner.Build(ctx, data)
}

func TestTriggerTrainConflictWhileTraining(t *testing.T) {
	builder := &blockingBuilder{
		inner:   algorithms.NewBuilder(algorithms.DefaultBuilderConfig()),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	ratings := newMemRatingStore()
	locations := &memLocationStore{locations: apiCatalog()}
	clusters := &memClusterStore{clusters: make(map[int]int)}
	users := &memUserStore{}

	engine := recommend.NewEngine(recommend.DefaultConfig(), recommend.Stores{
		Ratings:   ratings,
		Locations: locations,
		Clusters:  clusters,
		Users:     users,
	}, builder)
	router := NewRouter(engine, Stores{
		Ratings:   ratings,
		Locations: locations,
		Clusters:  clusters,
		Users:     users,
	}, nil)
	env := &testEnv{engine: engine, handler: router.Handler()}

	trainDone := make(chan error, 1)
	go func() {
		trainDone <- engine.Train(context.Background())
	}()
	<-builder.started

	rec := env.do(t, http.MethodPost, "/api/v1/recommend/train", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	close(builder.release)
	if err := <-trainDone; err != nil {
		t.Fatalf("train: %v", err)
	}
}

// ---- health endpoints ----

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/v1/health/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("live status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/health/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready-before-training status = %d, want 503", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	if status, _ := data["status"].(string); status != "degraded" {
		t.Fatalf("status = %v, want degraded before training", data["status"])
	}

	if err := env.engine.Train(context.Background()); err != nil {
		t.Fatalf("train: %v", err)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/health/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready-after-training status = %d, want 200", rec.Code)
	}
}

// ---- routing envelopes ----

func TestUnknownRouteEnvelope(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Fatalf("error = %+v, want %s", resp.Error, ErrCodeNotFound)
	}
}

func TestMethodNotAllowedEnvelope(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodDelete, "/api/v1/locations", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeMethodNotAllowed {
		t.Fatalf("error = %+v, want %s", resp.Error, ErrCodeMethodNotAllowed)
	}
}
