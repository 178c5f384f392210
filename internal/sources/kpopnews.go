package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stagewatch/stagewatch/internal/config"
	"github.com/stagewatch/stagewatch/pkg/models"
)

// KPopNewsSource reads a curated JSON feed of tour announcements. The feed
// covers shows Ticketmaster has not listed yet, so entries often lack
// capacity and ticket URLs.
type KPopNewsSource struct {
	feedURL    string
	httpClient *http.Client
}

func NewKPopNewsSource(cfg config.KPopNewsConfig) *KPopNewsSource {
	return &KPopNewsSource{
		feedURL: cfg.FeedURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *KPopNewsSource) Name() string { return "kpopnews" }

type newsFeed struct {
	Announcements []newsAnnouncement `json:"announcements"`
}

type newsAnnouncement struct {
	Artist    string `json:"artist"`
	TourName  string `json:"tour_name"`
	Venue     string `json:"venue"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Date      string `json:"date"`
	TicketURL string `json:"ticket_url"`
	ImageURL  string `json:"image_url"`
}

func (s *KPopNewsSource) Scrape(ctx context.Context) (models.Batch, []string) {
	var batch models.Batch

	feed, err := s.fetchFeed(ctx)
	if err != nil {
		return batch, []string{err.Error()}
	}

	var errs []string
	for i, a := range feed.Announcements {
		if a.Artist == "" || a.Venue == "" {
			errs = append(errs, fmt.Sprintf("announcement %d is missing artist or venue", i))
			continue
		}
		date, err := time.Parse(time.RFC3339, a.Date)
		if err != nil {
			errs = append(errs, fmt.Sprintf("announcement %d has unparseable date %q", i, a.Date))
			continue
		}

		concert := models.ConcertInput{
			Title:   a.TourName,
			Artist:  a.Artist,
			Venue:   a.Venue,
			City:    a.City,
			Country: a.Country,
			Date:    date,
			Status:  models.ConcertStatusAvailable,
			Source:  "kpopnews",
		}
		if a.TourName == "" {
			concert.Title = a.Artist + " Live"
		}
		if a.TicketURL != "" {
			u := a.TicketURL
			concert.TicketURL = &u
		}
		if a.ImageURL != "" {
			img := a.ImageURL
			concert.ImageURL = &img
		}

		batch.Concerts = append(batch.Concerts, concert)
		artist := models.ArtistInput{Name: a.Artist}
		if a.ImageURL != "" {
			img := a.ImageURL
			artist.ImageURL = &img
		}
		batch.Artists = append(batch.Artists, artist)
		batch.Venues = append(batch.Venues, models.VenueInput{
			Name:    a.Venue,
			City:    a.City,
			Country: a.Country,
		})
	}

	return batch, errs
}

func (s *KPopNewsSource) fetchFeed(ctx context.Context) (*newsFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &newsFeed{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed fetch failed: status %d", resp.StatusCode)
	}

	var feed newsFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	return &feed, nil
}
