package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stagewatch/stagewatch/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All entity reads and writes go through here;
// no component keeps a private copy of persisted state across calls.
type Store interface {
	Ping(ctx context.Context) error

	CreateConcert(ctx context.Context, in models.ConcertInput) (*models.Concert, error)
	GetConcert(ctx context.Context, id uuid.UUID) (*models.Concert, error)
	ListConcerts(ctx context.Context, filter ConcertFilter) ([]*models.Concert, error)
	UpdateConcert(ctx context.Context, id uuid.UUID, upd ConcertUpdate) (*models.Concert, error)
	DeleteConcert(ctx context.Context, id uuid.UUID) error
	BulkCreateConcerts(ctx context.Context, ins []models.ConcertInput) ([]*models.Concert, error)

	CreateArtist(ctx context.Context, in models.ArtistInput) (*models.Artist, error)
	GetArtist(ctx context.Context, id uuid.UUID) (*models.Artist, error)
	GetArtistByName(ctx context.Context, name string) (*models.Artist, error)
	ListArtists(ctx context.Context) ([]*models.Artist, error)
	UpdateArtist(ctx context.Context, id uuid.UUID, upd ArtistUpdate) (*models.Artist, error)
	TrendingArtists(ctx context.Context, limit int) ([]*models.Artist, error)

	CreateVenue(ctx context.Context, in models.VenueInput) (*models.Venue, error)
	GetVenue(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	GetVenueByNameCity(ctx context.Context, name, city string) (*models.Venue, error)
	ListVenues(ctx context.Context) ([]*models.Venue, error)
	UpdateVenue(ctx context.Context, id uuid.UUID, upd VenueUpdate) (*models.Venue, error)
	FeaturedVenues(ctx context.Context, limit int) ([]*models.Venue, error)

	CreateScrapeJob(ctx context.Context, job *models.ScrapeJob) error
	GetScrapeJob(ctx context.Context, id uuid.UUID) (*models.ScrapeJob, error)
	ListScrapeJobs(ctx context.Context, limit int) ([]*models.ScrapeJob, error)
	FinishScrapeJob(ctx context.Context, id uuid.UUID, status string, opts ...JobFinishOption) error

	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
}

// ConcertFilter narrows ListConcerts. Artist and City match as case-insensitive
// substrings; VenueSize is one of the capacity buckets below.
type ConcertFilter struct {
	Artist    string
	City      string
	DateFrom  time.Time
	DateTo    time.Time
	VenueSize string
}

// Venue-size capacity buckets, matching the dashboard filter options.
const (
	VenueSizeArena   = "arena"   // >= 20k
	VenueSizeStadium = "stadium" // >= 50k
	VenueSizeTheater = "theater" // 5k - 20k
	VenueSizeClub    = "club"    // 1k - 5k
)

// MatchesVenueSize reports whether a capacity falls inside the named bucket.
// Unknown buckets match nothing.
func MatchesVenueSize(size string, capacity int) bool {
	switch size {
	case VenueSizeArena:
		return capacity >= 20000
	case VenueSizeStadium:
		return capacity >= 50000
	case VenueSizeTheater:
		return capacity >= 5000 && capacity < 20000
	case VenueSizeClub:
		return capacity >= 1000 && capacity < 5000
	default:
		return false
	}
}

// ConcertUpdate is a partial update; nil fields are left unchanged.
type ConcertUpdate struct {
	Title     *string
	Status    *string
	Capacity  *int
	TicketURL *string
	ImageURL  *string
	Metadata  map[string]any
}

// ArtistUpdate is a partial update; nil fields are left unchanged.
type ArtistUpdate struct {
	ImageURL      *string
	TrendingScore *int
	UpcomingShows *int
}

// VenueUpdate is a partial update; nil fields are left unchanged.
type VenueUpdate struct {
	Capacity      *int
	ImageURL      *string
	UpcomingShows *int
}

// Jobs transition running -> completed|failed exactly once; a terminal job is immutable.
var validJobTransitions = map[string][]string{
	models.JobStatusRunning: {models.JobStatusCompleted, models.JobStatusFailed},
}

func validateJobTransition(from, to string) error {
	for _, allowed := range validJobTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("invalid job status transition: %s -> %s", from, to)
}

type jobFinishParams struct {
	ConcertsFound *int
	ErrorMessage  *string
}

type JobFinishOption func(*jobFinishParams)

func WithConcertsFound(n int) JobFinishOption {
	return func(p *jobFinishParams) {
		p.ConcertsFound = &n
	}
}

func WithErrorMessage(msg string) JobFinishOption {
	return func(p *jobFinishParams) {
		p.ErrorMessage = &msg
	}
}
