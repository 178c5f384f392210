package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/stagewatch/stagewatch/internal/api/response"
	"github.com/stagewatch/stagewatch/internal/cache"
	"github.com/stagewatch/stagewatch/pkg/models"
)

const defaultFeaturedVenues = 6

// VenueStore is the subset of the store the venue handlers depend on.
type VenueStore interface {
	ListVenues(ctx context.Context) ([]*models.Venue, error)
	FeaturedVenues(ctx context.Context, limit int) ([]*models.Venue, error)
}

// NewListVenuesHandler returns an http.HandlerFunc for GET /api/v1/venues.
func NewListVenuesHandler(st VenueStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		venues, err := st.ListVenues(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list venues", nil)
			return
		}
		response.Collection(w, venues, len(venues))
	}
}

// NewFeaturedVenuesHandler returns an http.HandlerFunc for GET /api/v1/venues/featured:
// venues ranked by upcoming-show count.
func NewFeaturedVenuesHandler(st VenueStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseLimit(r, defaultFeaturedVenues)

		key := cache.FeaturedVenuesKey(limit)
		if cached, found, err := c.Get(r.Context(), key); err == nil && found {
			var venues []*models.Venue
			if json.Unmarshal(cached, &venues) == nil {
				response.Collection(w, venues, len(venues))
				return
			}
		}

		venues, err := st.FeaturedVenues(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list featured venues", nil)
			return
		}

		if payload, err := json.Marshal(venues); err == nil {
			_ = c.Set(r.Context(), key, payload, listingCacheTTL)
		}
		response.Collection(w, venues, len(venues))
	}
}
