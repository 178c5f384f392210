package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/stagewatch/stagewatch/internal/api/response"
	"github.com/stagewatch/stagewatch/internal/cache"
	"github.com/stagewatch/stagewatch/pkg/models"
)

const (
	defaultTrendingLimit = 10
	maxListLimit         = 100
	listingCacheTTL      = 60 * time.Second
)

// ArtistStore is the subset of the store the artist handlers depend on.
type ArtistStore interface {
	ListArtists(ctx context.Context) ([]*models.Artist, error)
	TrendingArtists(ctx context.Context, limit int) ([]*models.Artist, error)
}

// NewListArtistsHandler returns an http.HandlerFunc for GET /api/v1/artists.
func NewListArtistsHandler(st ArtistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artists, err := st.ListArtists(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list artists", nil)
			return
		}
		response.Collection(w, artists, len(artists))
	}
}

// NewTrendingArtistsHandler returns an http.HandlerFunc for GET /api/v1/artists/trending.
// Results are cached briefly since trending only changes on ingestion runs.
func NewTrendingArtistsHandler(st ArtistStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseLimit(r, defaultTrendingLimit)

		key := cache.TrendingArtistsKey(limit)
		if cached, found, err := c.Get(r.Context(), key); err == nil && found {
			var artists []*models.Artist
			if json.Unmarshal(cached, &artists) == nil {
				response.Collection(w, artists, len(artists))
				return
			}
		}

		artists, err := st.TrendingArtists(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list trending artists", nil)
			return
		}

		if payload, err := json.Marshal(artists); err == nil {
			// Cache write failures are invisible to the caller.
			_ = c.Set(r.Context(), key, payload, listingCacheTTL)
		}
		response.Collection(w, artists, len(artists))
	}
}

func parseLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
