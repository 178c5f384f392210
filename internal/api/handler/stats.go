package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/stagewatch/stagewatch/internal/api/response"
	"github.com/stagewatch/stagewatch/internal/cache"
	"github.com/stagewatch/stagewatch/internal/store"
	"github.com/stagewatch/stagewatch/pkg/models"
)

// StatsStore is the subset of the store the stats handler depends on.
type StatsStore interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	Ping(ctx context.Context) error
}

// NewStatsHandler returns an http.HandlerFunc for GET /api/v1/stats.
func NewStatsHandler(st StatsStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := cache.DashboardStatsKey()
		if cached, found, err := c.Get(r.Context(), key); err == nil && found {
			var stats models.DashboardStats
			if json.Unmarshal(cached, &stats) == nil {
				response.JSON(w, &stats)
				return
			}
		}

		stats, err := st.DashboardStats(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to compute dashboard stats", nil)
			return
		}

		if payload, err := json.Marshal(stats); err == nil {
			_ = c.Set(r.Context(), key, payload, listingCacheTTL)
		}
		response.JSON(w, stats)
	}
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// Reports degraded dependencies without failing the check outright.
func NewHealthHandler(st StatsStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "ok"
		if err := st.Ping(r.Context()); err != nil {
			dbStatus = "unreachable"
		}
		cacheStatus := "ok"
		if err := c.Ping(r.Context()); err != nil {
			cacheStatus = "unreachable"
		}

		status := http.StatusOK
		overall := "ok"
		if dbStatus != "ok" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{
			"status":   overall,
			"database": dbStatus,
			"cache":    cacheStatus,
		})
	}
}

// NewFilterOptionsHandler returns an http.HandlerFunc for GET /api/v1/filter-options:
// the distinct cities and the fixed venue-size buckets the concert list filters accept.
func NewFilterOptionsHandler(st ConcertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		concerts, err := st.ListConcerts(r.Context(), store.ConcertFilter{})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load filter options", nil)
			return
		}

		seen := make(map[string]bool)
		var cities []string
		for _, c := range concerts {
			if c.City != "" && !seen[c.City] {
				seen[c.City] = true
				cities = append(cities, c.City)
			}
		}

		response.JSON(w, map[string]any{
			"cities": cities,
			"venue_sizes": []string{
				store.VenueSizeClub,
				store.VenueSizeTheater,
				store.VenueSizeArena,
				store.VenueSizeStadium,
			},
		})
	}
}
