package sourcetest

import (
	"context"
	"time"

	"github.com/stagewatch/stagewatch/internal/sources"
	"github.com/stagewatch/stagewatch/pkg/models"
)

// MockSource satisfies sources.Source for testing.
type MockSource struct {
	Name_      string
	ScrapeFunc func(ctx context.Context) (models.Batch, []string)
}

func (m *MockSource) Name() string { return m.Name_ }

func (m *MockSource) Scrape(ctx context.Context) (models.Batch, []string) {
	if m.ScrapeFunc != nil {
		return m.ScrapeFunc(ctx)
	}
	return models.Batch{}, nil
}

// NewMockSource returns a MockSource that yields the given batch with no errors.
func NewMockSource(name string, batch models.Batch) *MockSource {
	return &MockSource{
		Name_: name,
		ScrapeFunc: func(_ context.Context) (models.Batch, []string) {
			return batch, nil
		},
	}
}

// NewFailingSource returns a MockSource that yields nothing but the given error strings.
func NewFailingSource(name string, errs ...string) *MockSource {
	return &MockSource{
		Name_: name,
		ScrapeFunc: func(_ context.Context) (models.Batch, []string) {
			return models.Batch{}, errs
		},
	}
}

// NewPanickingSource returns a MockSource whose Scrape panics.
func NewPanickingSource(name string) *MockSource {
	return &MockSource{
		Name_: name,
		ScrapeFunc: func(_ context.Context) (models.Batch, []string) {
			panic(name + " exploded")
		},
	}
}

// NewHangingSource returns a MockSource that blocks until its context is done.
func NewHangingSource(name string) *MockSource {
	return &MockSource{
		Name_: name,
		ScrapeFunc: func(ctx context.Context) (models.Batch, []string) {
			<-ctx.Done()
			return models.Batch{}, []string{"context cancelled: " + ctx.Err().Error()}
		},
	}
}

// Concert builds a minimal concert proposal for test fixtures.
func Concert(artist, title, venue string, date time.Time) models.ConcertInput {
	return models.ConcertInput{
		Title:   title,
		Artist:  artist,
		Venue:   venue,
		City:    "London",
		Country: "United Kingdom",
		Date:    date,
		Status:  models.ConcertStatusAvailable,
		Source:  "mock",
	}
}

// Compile-time check that MockSource implements Source.
var _ sources.Source = (*MockSource)(nil)
