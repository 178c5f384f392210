package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stagewatch/stagewatch/pkg/models"
)

// MemoryStore implements Store with in-process maps. It is the reference
// implementation used by tests and by deployments running without Postgres.
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	concerts map[uuid.UUID]*models.Concert
	artists  map[uuid.UUID]*models.Artist
	venues   map[uuid.UUID]*models.Venue
	jobs     map[uuid.UUID]*models.ScrapeJob
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		concerts: make(map[uuid.UUID]*models.Concert),
		artists:  make(map[uuid.UUID]*models.Artist),
		venues:   make(map[uuid.UUID]*models.Venue),
		jobs:     make(map[uuid.UUID]*models.ScrapeJob),
	}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// --- Concerts ---

func (s *MemoryStore) CreateConcert(_ context.Context, in models.ConcertInput) (*models.Concert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createConcertLocked(in), nil
}

func (s *MemoryStore) createConcertLocked(in models.ConcertInput) *models.Concert {
	c := &models.Concert{
		ID:          uuid.New(),
		Title:       in.Title,
		Artist:      in.Artist,
		Venue:       in.Venue,
		City:        in.City,
		Country:     in.Country,
		Date:        in.Date,
		Capacity:    in.Capacity,
		TicketURL:   in.TicketURL,
		ImageURL:    in.ImageURL,
		Status:      in.Status,
		Source:      in.Source,
		LastUpdated: time.Now().UTC(),
		Metadata:    in.Metadata,
	}
	if c.Status == "" {
		c.Status = models.ConcertStatusAvailable
	}
	s.concerts[c.ID] = c
	return c
}

func (s *MemoryStore) GetConcert(_ context.Context, id uuid.UUID) (*models.Concert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.concerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListConcerts(_ context.Context, filter ConcertFilter) ([]*models.Concert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Concert, 0, len(s.concerts))
	for _, c := range s.concerts {
		if filter.Artist != "" && !strings.Contains(strings.ToLower(c.Artist), strings.ToLower(filter.Artist)) {
			continue
		}
		if filter.City != "" && !strings.Contains(strings.ToLower(c.City), strings.ToLower(filter.City)) {
			continue
		}
		if !filter.DateFrom.IsZero() && c.Date.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && c.Date.After(filter.DateTo) {
			continue
		}
		if filter.VenueSize != "" {
			if c.Capacity == nil || !MatchesVenueSize(filter.VenueSize, *c.Capacity) {
				continue
			}
		}
		cp := *c
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) UpdateConcert(_ context.Context, id uuid.UUID, upd ConcertUpdate) (*models.Concert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.concerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	if upd.Capacity != nil {
		c.Capacity = upd.Capacity
	}
	if upd.TicketURL != nil {
		c.TicketURL = upd.TicketURL
	}
	if upd.ImageURL != nil {
		c.ImageURL = upd.ImageURL
	}
	if upd.Metadata != nil {
		c.Metadata = upd.Metadata
	}
	c.LastUpdated = time.Now().UTC()
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) DeleteConcert(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.concerts[id]; !ok {
		return ErrNotFound
	}
	delete(s.concerts, id)
	return nil
}

func (s *MemoryStore) BulkCreateConcerts(_ context.Context, ins []models.ConcertInput) ([]*models.Concert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]*models.Concert, 0, len(ins))
	for _, in := range ins {
		created = append(created, s.createConcertLocked(in))
	}
	return created, nil
}

// --- Artists ---

func (s *MemoryStore) CreateArtist(_ context.Context, in models.ArtistInput) (*models.Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.artists {
		if strings.EqualFold(a.Name, in.Name) {
			return nil, ErrDuplicateKey
		}
	}

	a := &models.Artist{
		ID:          uuid.New(),
		Name:        in.Name,
		ImageURL:    in.ImageURL,
		LastUpdated: time.Now().UTC(),
	}
	s.artists[a.ID] = a
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) GetArtist(_ context.Context, id uuid.UUID) (*models.Artist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artists[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) GetArtistByName(_ context.Context, name string) (*models.Artist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.artists {
		if strings.EqualFold(a.Name, name) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListArtists(_ context.Context) ([]*models.Artist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Artist, 0, len(s.artists))
	for _, a := range s.artists {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) UpdateArtist(_ context.Context, id uuid.UUID, upd ArtistUpdate) (*models.Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artists[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.ImageURL != nil {
		a.ImageURL = upd.ImageURL
	}
	if upd.TrendingScore != nil {
		a.TrendingScore = *upd.TrendingScore
	}
	if upd.UpcomingShows != nil {
		a.UpcomingShows = *upd.UpcomingShows
	}
	a.LastUpdated = time.Now().UTC()
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) TrendingArtists(_ context.Context, limit int) ([]*models.Artist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Artist, 0, len(s.artists))
	for _, a := range s.artists {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrendingScore > out[j].TrendingScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Venues ---

func (s *MemoryStore) CreateVenue(_ context.Context, in models.VenueInput) (*models.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.venues {
		if strings.EqualFold(v.Name, in.Name) && strings.EqualFold(v.City, in.City) {
			return nil, ErrDuplicateKey
		}
	}

	v := &models.Venue{
		ID:          uuid.New(),
		Name:        in.Name,
		City:        in.City,
		Country:     in.Country,
		Capacity:    in.Capacity,
		ImageURL:    in.ImageURL,
		LastUpdated: time.Now().UTC(),
	}
	s.venues[v.ID] = v
	cp := *v
	return &cp, nil
}

func (s *MemoryStore) GetVenue(_ context.Context, id uuid.UUID) (*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.venues[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *MemoryStore) GetVenueByNameCity(_ context.Context, name, city string) (*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.venues {
		if strings.EqualFold(v.Name, name) && strings.EqualFold(v.City, city) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListVenues(_ context.Context) ([]*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Venue, 0, len(s.venues))
	for _, v := range s.venues {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) UpdateVenue(_ context.Context, id uuid.UUID, upd VenueUpdate) (*models.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.venues[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Capacity != nil {
		v.Capacity = upd.Capacity
	}
	if upd.ImageURL != nil {
		v.ImageURL = upd.ImageURL
	}
	if upd.UpcomingShows != nil {
		v.UpcomingShows = *upd.UpcomingShows
	}
	v.LastUpdated = time.Now().UTC()
	cp := *v
	return &cp, nil
}

func (s *MemoryStore) FeaturedVenues(_ context.Context, limit int) ([]*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Venue, 0, len(s.venues))
	for _, v := range s.venues {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpcomingShows > out[j].UpcomingShows })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Scrape jobs ---

func (s *MemoryStore) CreateScrapeJob(_ context.Context, job *models.ScrapeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *MemoryStore) GetScrapeJob(_ context.Context, id uuid.UUID) (*models.ScrapeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) ListScrapeJobs(_ context.Context, limit int) ([]*models.ScrapeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ScrapeJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) FinishScrapeJob(_ context.Context, id uuid.UUID, status string, opts ...JobFinishOption) error {
	params := &jobFinishParams{}
	for _, opt := range opts {
		opt(params)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if err := validateJobTransition(j.Status, status); err != nil {
		return err
	}

	now := time.Now().UTC()
	j.Status = status
	j.EndTime = &now
	if params.ConcertsFound != nil {
		j.ConcertsFound = *params.ConcertsFound
	}
	if params.ErrorMessage != nil {
		j.ErrorMessage = params.ErrorMessage
	}
	return nil
}

// --- Dashboard ---

func (s *MemoryStore) DashboardStats(_ context.Context) (*models.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cities := make(map[string]struct{})
	for _, c := range s.concerts {
		cities[c.City] = struct{}{}
	}

	stats := &models.DashboardStats{
		TotalConcerts: len(s.concerts),
		ActiveArtists: len(s.artists),
		Cities:        len(cities),
	}

	var lastJob *models.ScrapeJob
	completed := 0
	for _, j := range s.jobs {
		if j.Status == models.JobStatusCompleted {
			completed++
		}
		if lastJob == nil || j.StartTime.After(lastJob.StartTime) {
			lastJob = j
		}
	}
	if lastJob != nil {
		t := lastJob.StartTime
		stats.LastSyncAt = &t
		stats.LastSyncStatus = lastJob.Status
	}
	if len(s.jobs) > 0 {
		stats.ScrapePerformance = float64(completed) / float64(len(s.jobs)) * 100
	}

	return stats, nil
}
