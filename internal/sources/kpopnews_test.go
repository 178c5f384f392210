package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stagewatch/stagewatch/internal/config"
	"github.com/stagewatch/stagewatch/internal/sources"
	"github.com/stagewatch/stagewatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newsFeedBody = `{
	"announcements": [
		{
			"artist": "NewJeans",
			"tour_name": "Get Up Tour",
			"venue": "Ziggo Dome",
			"city": "Amsterdam",
			"country": "Netherlands",
			"date": "2025-06-10T19:00:00Z",
			"ticket_url": "https://tickets.example.com/nj",
			"image_url": "https://img.example.com/nj.jpg"
		},
		{
			"artist": "aespa",
			"venue": "Mercedes-Benz Arena",
			"city": "Berlin",
			"country": "Germany",
			"date": "2025-07-02T20:00:00Z"
		},
		{
			"artist": "",
			"venue": "Nowhere",
			"date": "2025-08-01T20:00:00Z"
		},
		{
			"artist": "ITZY",
			"venue": "AccorHotels Arena",
			"city": "Paris",
			"country": "France",
			"date": "not-a-date"
		}
	]
}`

func newKPopNews(t *testing.T, handler http.HandlerFunc) *sources.KPopNewsSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return sources.NewKPopNewsSource(config.KPopNewsConfig{FeedURL: srv.URL})
}

func TestKPopNews_Scrape(t *testing.T) {
	src := newKPopNews(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(newsFeedBody))
	})

	batch, errs := src.Scrape(context.Background())

	// Two valid announcements; one missing artist, one bad date.
	require.Len(t, batch.Concerts, 2)
	require.Len(t, errs, 2)

	first := batch.Concerts[0]
	assert.Equal(t, "NewJeans", first.Artist)
	assert.Equal(t, "Get Up Tour", first.Title)
	assert.Equal(t, "kpopnews", first.Source)
	assert.Equal(t, models.ConcertStatusAvailable, first.Status)
	require.NotNil(t, first.TicketURL)

	// Missing tour name falls back to a generated title.
	assert.Equal(t, "aespa Live", batch.Concerts[1].Title)
	assert.Nil(t, batch.Concerts[1].Capacity)

	require.Len(t, batch.Artists, 2)
	assert.Equal(t, "NewJeans", batch.Artists[0].Name)
	require.Len(t, batch.Venues, 2)
	assert.Equal(t, "Ziggo Dome", batch.Venues[0].Name)
}

func TestKPopNews_Scrape_FeedDown(t *testing.T) {
	src := newKPopNews(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	batch, errs := src.Scrape(context.Background())
	assert.Empty(t, batch.Concerts)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "status 502")
}

func TestKPopNews_Scrape_MalformedBody(t *testing.T) {
	src := newKPopNews(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	batch, errs := src.Scrape(context.Background())
	assert.Empty(t, batch.Concerts)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "decode")
}

func TestBuild_SourceOrderPreserved(t *testing.T) {
	cfg := config.ScraperConfig{
		Sources:      []string{"kpopnews", "ticketmaster"},
		Ticketmaster: config.TicketmasterConfig{BaseURL: "https://example.com", APIKey: "k"},
		KPopNews:     config.KPopNewsConfig{FeedURL: "https://example.com/feed"},
	}

	built, err := sources.Build(cfg)
	require.NoError(t, err)
	require.Len(t, built, 2)
	assert.Equal(t, "kpopnews", built[0].Name())
	assert.Equal(t, "ticketmaster", built[1].Name())
}

func TestBuild_UnknownSource(t *testing.T) {
	_, err := sources.Build(config.ScraperConfig{Sources: []string{"myspace"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "myspace")
}
