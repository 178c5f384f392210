package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/stagewatch/stagewatch/internal/api/middleware"
	"github.com/stagewatch/stagewatch/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler        http.HandlerFunc
	StatsHandler         http.HandlerFunc
	FilterOptionsHandler http.HandlerFunc

	ListConcerts     http.HandlerFunc
	UpcomingConcerts http.HandlerFunc
	FeaturedConcerts http.HandlerFunc
	GetConcert       http.HandlerFunc
	CreateConcert    http.HandlerFunc
	DeleteConcert    http.HandlerFunc

	ListArtists     http.HandlerFunc
	TrendingArtists http.HandlerFunc

	ListVenues     http.HandlerFunc
	FeaturedVenues http.HandlerFunc

	TriggerScrape  http.HandlerFunc
	ScrapeStatus   http.HandlerFunc
	ListScrapeJobs http.HandlerFunc
	GetScrapeJob   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Get("/api/v1/stats", orNotImplemented(deps.StatsHandler))
		r.Get("/api/v1/filter-options", orNotImplemented(deps.FilterOptionsHandler))

		// Static segments must register before the {concertID} match.
		r.Get("/api/v1/concerts", orNotImplemented(deps.ListConcerts))
		r.Get("/api/v1/concerts/upcoming", orNotImplemented(deps.UpcomingConcerts))
		r.Get("/api/v1/concerts/featured", orNotImplemented(deps.FeaturedConcerts))
		r.Get("/api/v1/concerts/{concertID}", orNotImplemented(deps.GetConcert))
		r.Post("/api/v1/concerts", orNotImplemented(deps.CreateConcert))
		r.Delete("/api/v1/concerts/{concertID}", orNotImplemented(deps.DeleteConcert))

		r.Get("/api/v1/artists", orNotImplemented(deps.ListArtists))
		r.Get("/api/v1/artists/trending", orNotImplemented(deps.TrendingArtists))

		r.Get("/api/v1/venues", orNotImplemented(deps.ListVenues))
		r.Get("/api/v1/venues/featured", orNotImplemented(deps.FeaturedVenues))

		r.Post("/api/v1/scrape/trigger", orNotImplemented(deps.TriggerScrape))
		r.Get("/api/v1/scrape/status", orNotImplemented(deps.ScrapeStatus))
		r.Get("/api/v1/scrape/jobs", orNotImplemented(deps.ListScrapeJobs))
		r.Get("/api/v1/scrape/jobs/{jobID}", orNotImplemented(deps.GetScrapeJob))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
