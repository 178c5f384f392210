package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stagewatch/stagewatch/internal/api/handler"
	"github.com/stagewatch/stagewatch/internal/cache"
	"github.com/stagewatch/stagewatch/internal/scheduler"
	"github.com/stagewatch/stagewatch/internal/store"
	"github.com/stagewatch/stagewatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache implements cache.Cache in memory for handler tests.
type memCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	statuses map[uuid.UUID]string
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), statuses: make(map[uuid.UUID]string)}
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) DeleteByPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memCache) Ping(_ context.Context) error { return nil }

func (m *memCache) SetJobStatus(_ context.Context, jobID uuid.UUID, status string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[jobID] = status
	return nil
}

func (m *memCache) GetJobStatus(_ context.Context, jobID uuid.UUID) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[jobID]
	return s, ok, nil
}

func (m *memCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

func seedConcert(t *testing.T, st store.Store, artist, title, venue, city string, date time.Time) *models.Concert {
	t.Helper()
	c, err := st.CreateConcert(context.Background(), models.ConcertInput{
		Title:   title,
		Artist:  artist,
		Venue:   venue,
		City:    city,
		Country: "United Kingdom",
		Date:    date,
		Source:  "ticketmaster",
	})
	require.NoError(t, err)
	return c
}

// withURLParam injects a chi route parameter into the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- Concerts ---

func TestListConcerts(t *testing.T) {
	st := store.NewMemoryStore()
	seedConcert(t, st, "BLACKPINK", "World Tour", "O2 Arena", "London", time.Now().Add(24*time.Hour))
	seedConcert(t, st, "IVE", "I AM Tour", "Palau Olimpic", "Barcelona", time.Now().Add(48*time.Hour))

	h := handler.NewListConcertsHandler(st)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/concerts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data  []models.Concert `json:"data"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Data, 2)
}

func TestListConcerts_FilterByArtist(t *testing.T) {
	st := store.NewMemoryStore()
	seedConcert(t, st, "BLACKPINK", "World Tour", "O2 Arena", "London", time.Now().Add(24*time.Hour))
	seedConcert(t, st, "IVE", "I AM Tour", "Palau Olimpic", "Barcelona", time.Now().Add(48*time.Hour))

	h := handler.NewListConcertsHandler(st)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/concerts?artist=black", nil))

	var body struct {
		Data []models.Concert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "BLACKPINK", body.Data[0].Artist)
}

func TestListConcerts_InvalidVenueSize(t *testing.T) {
	h := handler.NewListConcertsHandler(store.NewMemoryStore())
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/concerts?venue_size=ballroom", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")
}

func TestListConcerts_InvalidDate(t *testing.T) {
	h := handler.NewListConcertsHandler(store.NewMemoryStore())
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/concerts?date_from=tomorrow", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpcomingConcerts_ExcludesPast(t *testing.T) {
	st := store.NewMemoryStore()
	seedConcert(t, st, "BLACKPINK", "World Tour", "O2 Arena", "London", time.Now().Add(24*time.Hour))
	seedConcert(t, st, "IVE", "Old Show", "Palau Olimpic", "Barcelona", time.Now().Add(-24*time.Hour))

	h := handler.NewUpcomingConcertsHandler(st)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/concerts/upcoming", nil))

	var body struct {
		Data []models.Concert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "BLACKPINK", body.Data[0].Artist)
}

func TestFeaturedConcerts_Capped(t *testing.T) {
	st := store.NewMemoryStore()
	for i := 0; i < 10; i++ {
		seedConcert(t, st, "Artist", "Show", "Venue", "London",
			time.Now().Add(time.Duration(i+1)*24*time.Hour))
	}

	h := handler.NewFeaturedConcertsHandler(st)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/concerts/featured", nil))

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 6, body.Count)
}

func TestGetConcert(t *testing.T) {
	st := store.NewMemoryStore()
	c := seedConcert(t, st, "BLACKPINK", "World Tour", "O2 Arena", "London", time.Now().Add(24*time.Hour))

	h := handler.NewGetConcertHandler(st)
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/concerts/"+c.ID.String(), nil),
		"concertID", c.ID.String())
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data models.Concert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, c.ID, body.Data.ID)
}

func TestGetConcert_NotFound(t *testing.T) {
	h := handler.NewGetConcertHandler(store.NewMemoryStore())
	id := uuid.NewString()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/concerts/"+id, nil), "concertID", id)
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetConcert_BadID(t *testing.T) {
	h := handler.NewGetConcertHandler(store.NewMemoryStore())
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/concerts/abc", nil), "concertID", "abc")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateConcert(t *testing.T) {
	st := store.NewMemoryStore()
	h := handler.NewCreateConcertHandler(st)

	body := `{
		"title": "Fan Meeting",
		"artist": "TWICE",
		"venue": "Indigo at the O2",
		"city": "London",
		"country": "United Kingdom",
		"date": "2025-09-01T19:00:00Z"
	}`
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/concerts", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data models.Concert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "TWICE", resp.Data.Artist)
	assert.Equal(t, "manual", resp.Data.Source)
	assert.NotEqual(t, uuid.Nil, resp.Data.ID)
}

func TestCreateConcert_MissingFields(t *testing.T) {
	h := handler.NewCreateConcertHandler(store.NewMemoryStore())
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/concerts",
		strings.NewReader(`{"title": "No Artist"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteConcert(t *testing.T) {
	st := store.NewMemoryStore()
	c := seedConcert(t, st, "BLACKPINK", "World Tour", "O2 Arena", "London", time.Now().Add(24*time.Hour))

	h := handler.NewDeleteConcertHandler(st)
	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/concerts/"+c.ID.String(), nil),
		"concertID", c.ID.String())
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := st.GetConcert(context.Background(), c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Artists ---

func TestTrendingArtists_CachesResult(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	a, err := st.CreateArtist(ctx, models.ArtistInput{Name: "BLACKPINK"})
	require.NoError(t, err)
	score := 30
	_, err = st.UpdateArtist(ctx, a.ID, store.ArtistUpdate{TrendingScore: &score})
	require.NoError(t, err)

	c := newMemCache()
	h := handler.NewTrendingArtistsHandler(st, c)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/artists/trending", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Second call is served from cache even after the store changes.
	score = 100
	_, err = st.UpdateArtist(ctx, a.ID, store.ArtistUpdate{TrendingScore: &score})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/artists/trending", nil))

	var body struct {
		Data []models.Artist `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 30, body.Data[0].TrendingScore)
}

func TestTrendingArtists_FreshAfterInvalidation(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	a, err := st.CreateArtist(ctx, models.ArtistInput{Name: "BLACKPINK"})
	require.NoError(t, err)
	score := 30
	_, err = st.UpdateArtist(ctx, a.ID, store.ArtistUpdate{TrendingScore: &score})
	require.NoError(t, err)

	c := newMemCache()
	h := handler.NewTrendingArtistsHandler(st, c)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/artists/trending", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// An ingestion run bumps the score and drops the trending entries; the
	// next read must reflect the store, not the cached response.
	score = 100
	_, err = st.UpdateArtist(ctx, a.ID, store.ArtistUpdate{TrendingScore: &score})
	require.NoError(t, err)
	require.NoError(t, c.DeleteByPrefix(ctx, cache.TrendingArtistsPrefix))

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/artists/trending", nil))

	var body struct {
		Data []models.Artist `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 100, body.Data[0].TrendingScore)
}

// --- Stats ---

func TestStats(t *testing.T) {
	st := store.NewMemoryStore()
	seedConcert(t, st, "BLACKPINK", "World Tour", "O2 Arena", "London", time.Now().Add(24*time.Hour))

	h := handler.NewStatsHandler(st, newMemCache())
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data models.DashboardStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.TotalConcerts)
	assert.Equal(t, 1, body.Data.Cities)
}

func TestFilterOptions(t *testing.T) {
	st := store.NewMemoryStore()
	seedConcert(t, st, "BLACKPINK", "World Tour", "O2 Arena", "London", time.Now().Add(24*time.Hour))
	seedConcert(t, st, "IVE", "I AM Tour", "Palau Olimpic", "Barcelona", time.Now().Add(48*time.Hour))

	h := handler.NewFilterOptionsHandler(st)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/filter-options", nil))

	var body struct {
		Data struct {
			Cities     []string `json:"cities"`
			VenueSizes []string `json:"venue_sizes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.ElementsMatch(t, []string{"London", "Barcelona"}, body.Data.Cities)
	assert.Contains(t, body.Data.VenueSizes, "arena")
}

// --- Scrape ---

// fakeTrigger implements handler.Trigger.
type fakeTrigger struct {
	started bool
	status  scheduler.Status
}

func (f *fakeTrigger) TriggerAsync() bool       { return f.started }
func (f *fakeTrigger) Status() scheduler.Status { return f.status }

func TestTriggerScrape(t *testing.T) {
	h := handler.NewTriggerScrapeHandler(&fakeTrigger{started: true})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scrape/trigger", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body struct {
		Data struct {
			Started bool `json:"started"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Started)
}

func TestTriggerScrape_SkippedWhileRunning(t *testing.T) {
	h := handler.NewTriggerScrapeHandler(&fakeTrigger{started: false})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scrape/trigger", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"started":false`)
}

func TestScrapeStatus(t *testing.T) {
	st := store.NewMemoryStore()
	job := &models.ScrapeJob{
		ID:        uuid.New(),
		Source:    "all",
		Status:    models.JobStatusRunning,
		StartTime: time.Now().UTC(),
	}
	require.NoError(t, st.CreateScrapeJob(context.Background(), job))

	h := handler.NewScrapeStatusHandler(&fakeTrigger{
		status: scheduler.Status{InProgress: true, ScheduleActive: true},
	}, st)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scrape/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			InProgress     bool               `json:"in_progress"`
			ScheduleActive bool               `json:"schedule_active"`
			RecentJobs     []models.ScrapeJob `json:"recent_jobs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.InProgress)
	assert.True(t, body.Data.ScheduleActive)
	require.Len(t, body.Data.RecentJobs, 1)
	assert.Equal(t, job.ID, body.Data.RecentJobs[0].ID)
}

func TestGetScrapeJob_NotFound(t *testing.T) {
	h := handler.NewGetScrapeJobHandler(store.NewMemoryStore(), newMemCache())
	id := uuid.NewString()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/scrape/jobs/"+id, nil), "jobID", id)
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// errJobStore simulates an unreachable database for the job handlers.
type errJobStore struct{}

func (errJobStore) GetScrapeJob(_ context.Context, _ uuid.UUID) (*models.ScrapeJob, error) {
	return nil, errors.New("connection refused")
}

func (errJobStore) ListScrapeJobs(_ context.Context, _ int) ([]*models.ScrapeJob, error) {
	return nil, errors.New("connection refused")
}

func TestGetScrapeJob_CachedStatusWhenStoreDown(t *testing.T) {
	c := newMemCache()
	id := uuid.New()
	require.NoError(t, c.SetJobStatus(context.Background(), id, models.JobStatusRunning, time.Minute))

	h := handler.NewGetScrapeJobHandler(errJobStore{}, c)
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/scrape/jobs/"+id.String(), nil), "jobID", id.String())
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id, body.Data.ID)
	assert.Equal(t, models.JobStatusRunning, body.Data.Status)
}

func TestGetScrapeJob_StoreDownNoCachedStatus(t *testing.T) {
	h := handler.NewGetScrapeJobHandler(errJobStore{}, newMemCache())
	id := uuid.NewString()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/scrape/jobs/"+id, nil), "jobID", id)
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
