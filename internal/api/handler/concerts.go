package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stagewatch/stagewatch/internal/api/response"
	"github.com/stagewatch/stagewatch/internal/store"
	"github.com/stagewatch/stagewatch/pkg/models"
)

// ConcertStore is the subset of the store the concert handlers depend on.
type ConcertStore interface {
	CreateConcert(ctx context.Context, in models.ConcertInput) (*models.Concert, error)
	GetConcert(ctx context.Context, id uuid.UUID) (*models.Concert, error)
	ListConcerts(ctx context.Context, filter store.ConcertFilter) ([]*models.Concert, error)
	DeleteConcert(ctx context.Context, id uuid.UUID) error
}

var validVenueSizes = map[string]bool{
	store.VenueSizeArena:   true,
	store.VenueSizeStadium: true,
	store.VenueSizeTheater: true,
	store.VenueSizeClub:    true,
}

// NewListConcertsHandler returns an http.HandlerFunc for GET /api/v1/concerts.
// Filters: artist, city (substring match), date_from, date_to (RFC3339),
// venue_size (arena|stadium|theater|club).
func NewListConcertsHandler(st ConcertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := parseConcertFilter(w, r)
		if !ok {
			return
		}

		concerts, err := st.ListConcerts(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list concerts", nil)
			return
		}
		response.Collection(w, concerts, len(concerts))
	}
}

// NewUpcomingConcertsHandler returns future-dated concerts, soonest first.
func NewUpcomingConcertsHandler(st ConcertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		concerts, err := st.ListConcerts(r.Context(), store.ConcertFilter{
			DateFrom: time.Now().UTC(),
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list concerts", nil)
			return
		}
		response.Collection(w, concerts, len(concerts))
	}
}

const featuredConcertCount = 6

// NewFeaturedConcertsHandler returns the next few upcoming concerts for the
// dashboard's featured strip.
func NewFeaturedConcertsHandler(st ConcertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		concerts, err := st.ListConcerts(r.Context(), store.ConcertFilter{
			DateFrom: time.Now().UTC(),
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list concerts", nil)
			return
		}
		if len(concerts) > featuredConcertCount {
			concerts = concerts[:featuredConcertCount]
		}
		response.Collection(w, concerts, len(concerts))
	}
}

// NewGetConcertHandler returns an http.HandlerFunc for GET /api/v1/concerts/{concertID}.
func NewGetConcertHandler(st ConcertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "concertID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"concertID must be a valid UUID", nil)
			return
		}

		concert, err := st.GetConcert(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Concert not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load concert", nil)
			return
		}
		response.JSON(w, concert)
	}
}

// NewCreateConcertHandler returns an http.HandlerFunc for POST /api/v1/concerts.
// Manually-entered listings carry source "manual".
func NewCreateConcertHandler(st ConcertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.ConcertInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if in.Title == "" || in.Artist == "" || in.Venue == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"title, artist, and venue are required", nil)
			return
		}
		if in.Date.IsZero() {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "date is required", nil)
			return
		}
		if in.Capacity != nil && *in.Capacity <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"capacity must be positive", nil)
			return
		}
		if in.Source == "" {
			in.Source = "manual"
		}

		concert, err := st.CreateConcert(r.Context(), in)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to create concert", nil)
			return
		}
		response.Created(w, concert)
	}
}

// NewDeleteConcertHandler returns an http.HandlerFunc for DELETE /api/v1/concerts/{concertID}.
func NewDeleteConcertHandler(st ConcertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "concertID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"concertID must be a valid UUID", nil)
			return
		}

		err = st.DeleteConcert(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Concert not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to delete concert", nil)
			return
		}
		response.NoContent(w)
	}
}

func parseConcertFilter(w http.ResponseWriter, r *http.Request) (store.ConcertFilter, bool) {
	q := r.URL.Query()
	filter := store.ConcertFilter{
		Artist: q.Get("artist"),
		City:   q.Get("city"),
	}

	if v := q.Get("date_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"date_from must be a valid RFC3339 timestamp", nil)
			return filter, false
		}
		filter.DateFrom = t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"date_to must be a valid RFC3339 timestamp", nil)
			return filter, false
		}
		filter.DateTo = t
	}
	if v := q.Get("venue_size"); v != "" {
		if !validVenueSizes[v] {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"venue_size must be one of arena, stadium, theater, club", nil)
			return filter, false
		}
		filter.VenueSize = v
	}

	return filter, true
}
