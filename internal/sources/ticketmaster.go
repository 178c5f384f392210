package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stagewatch/stagewatch/internal/config"
	"github.com/stagewatch/stagewatch/pkg/models"
)

const (
	ticketmasterPageSize = 100
	ticketmasterMaxPages = 5
	ticketmasterDaily    = 5000
)

// TicketmasterSource pulls K-pop events from the Ticketmaster Discovery API
// and normalizes them into concert, artist, and venue proposals.
type TicketmasterSource struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rateLimiter
}

// rateLimiter enforces a rolling daily request budget against the upstream API.
type rateLimiter struct {
	mu          sync.Mutex
	requests    int
	windowStart time.Time
	dailyLimit  int
}

func newRateLimiter(dailyLimit int) *rateLimiter {
	return &rateLimiter{
		dailyLimit:  dailyLimit,
		windowStart: time.Now(),
	}
}

func (r *rateLimiter) Allow() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.windowStart) > 24*time.Hour {
		r.requests = 0
		r.windowStart = now
	}

	if r.requests >= r.dailyLimit {
		return fmt.Errorf("daily request limit of %d exhausted", r.dailyLimit)
	}

	r.requests++
	return nil
}

func NewTicketmasterSource(cfg config.TicketmasterConfig) *TicketmasterSource {
	return &TicketmasterSource{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		rateLimiter: newRateLimiter(ticketmasterDaily),
	}
}

func (s *TicketmasterSource) Name() string { return "ticketmaster" }

// Discovery API wire format, reduced to the fields we read.
type tmEventsPage struct {
	Embedded struct {
		Events []tmEvent `json:"events"`
	} `json:"_embedded"`
	Page struct {
		TotalPages int `json:"totalPages"`
		Number     int `json:"number"`
	} `json:"page"`
}

type tmEvent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Dates struct {
		Start struct {
			DateTime string `json:"dateTime"`
		} `json:"start"`
		Status struct {
			Code string `json:"code"`
		} `json:"status"`
	} `json:"dates"`
	Embedded struct {
		Venues      []tmVenue      `json:"venues"`
		Attractions []tmAttraction `json:"attractions"`
	} `json:"_embedded"`
}

type tmVenue struct {
	Name string `json:"name"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	Country struct {
		Name string `json:"name"`
	} `json:"country"`
	Capacity int `json:"capacity"`
}

type tmAttraction struct {
	Name   string `json:"name"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Scrape walks the Discovery API's K-pop event pages. Failures never escape:
// a page-level failure ends pagination with an error string, and a malformed
// event contributes an error string without discarding the rest of its page.
func (s *TicketmasterSource) Scrape(ctx context.Context) (models.Batch, []string) {
	var batch models.Batch
	var errs []string

	for page := 0; page < ticketmasterMaxPages; page++ {
		result, err := s.fetchPage(ctx, page)
		if err != nil {
			errs = append(errs, err.Error())
			break
		}

		for _, ev := range result.Embedded.Events {
			concert, evErrs := s.convertEvent(ev)
			errs = append(errs, evErrs...)
			if concert == nil {
				continue
			}
			batch.Concerts = append(batch.Concerts, *concert)
			if len(ev.Embedded.Attractions) > 0 {
				batch.Artists = append(batch.Artists, convertAttraction(ev.Embedded.Attractions[0]))
			}
			if len(ev.Embedded.Venues) > 0 {
				batch.Venues = append(batch.Venues, convertVenue(ev.Embedded.Venues[0]))
			}
		}

		if page >= result.Page.TotalPages-1 {
			break
		}
	}

	return batch, errs
}

func (s *TicketmasterSource) fetchPage(ctx context.Context, page int) (*tmEventsPage, error) {
	if err := s.rateLimiter.Allow(); err != nil {
		return nil, err
	}

	eventsURL := fmt.Sprintf("%s/events.json", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eventsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("apikey", s.apiKey)
	q.Set("classificationName", "K-Pop")
	q.Set("size", fmt.Sprintf("%d", ticketmasterPageSize))
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("sort", "date,asc")
	req.URL.RawQuery = q.Encode()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &tmEventsPage{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("events page %d failed: status %d", page, resp.StatusCode)
	}

	var result tmEventsPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode events page %d: %w", page, err)
	}
	return &result, nil
}

func (s *TicketmasterSource) convertEvent(ev tmEvent) (*models.ConcertInput, []string) {
	if ev.Dates.Start.DateTime == "" {
		return nil, []string{fmt.Sprintf("event %s has no start time", ev.ID)}
	}
	date, err := time.Parse(time.RFC3339, ev.Dates.Start.DateTime)
	if err != nil {
		return nil, []string{fmt.Sprintf("event %s has unparseable start time %q", ev.ID, ev.Dates.Start.DateTime)}
	}
	if len(ev.Embedded.Venues) == 0 {
		return nil, []string{fmt.Sprintf("event %s has no venue", ev.ID)}
	}

	artist := ev.Name
	if len(ev.Embedded.Attractions) > 0 {
		artist = ev.Embedded.Attractions[0].Name
	}
	venue := ev.Embedded.Venues[0]

	concert := &models.ConcertInput{
		Title:   ev.Name,
		Artist:  artist,
		Venue:   venue.Name,
		City:    venue.City.Name,
		Country: venue.Country.Name,
		Date:    date,
		Status:  convertStatus(ev.Dates.Status.Code),
		Source:  "ticketmaster",
		Metadata: map[string]any{
			"ticketmaster_id": ev.ID,
		},
	}
	if venue.Capacity > 0 {
		capacity := venue.Capacity
		concert.Capacity = &capacity
	}
	if ev.URL != "" {
		u := ev.URL
		concert.TicketURL = &u
	}
	if len(ev.Images) > 0 && ev.Images[0].URL != "" {
		img := ev.Images[0].URL
		concert.ImageURL = &img
	}
	return concert, nil
}

func convertStatus(code string) string {
	switch code {
	case "offsale":
		return models.ConcertStatusSoldOut
	case "limited":
		return models.ConcertStatusFewLeft
	default:
		return models.ConcertStatusAvailable
	}
}

func convertAttraction(a tmAttraction) models.ArtistInput {
	in := models.ArtistInput{Name: a.Name}
	if len(a.Images) > 0 && a.Images[0].URL != "" {
		img := a.Images[0].URL
		in.ImageURL = &img
	}
	return in
}

func convertVenue(v tmVenue) models.VenueInput {
	in := models.VenueInput{
		Name:    v.Name,
		City:    v.City.Name,
		Country: v.Country.Name,
	}
	if v.Capacity > 0 {
		capacity := v.Capacity
		in.Capacity = &capacity
	}
	return in
}
