package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/stagewatch/stagewatch/internal/sources"
	"github.com/stagewatch/stagewatch/pkg/models"
)

// Aggregator fans out one scrape cycle across all configured sources and
// merges the results into a single deduplicated batch. Source order is
// significant: when two sources propose the same entity, the one configured
// first wins.
type Aggregator struct {
	sources       []sources.Source
	concurrency   int
	sourceTimeout time.Duration
	logger        *slog.Logger
}

func NewAggregator(srcs []sources.Source, concurrency int, sourceTimeout time.Duration, logger *slog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{
		sources:       srcs,
		concurrency:   concurrency,
		sourceTimeout: sourceTimeout,
		logger:        logger,
	}
}

type sourceResult struct {
	batch models.Batch
	errs  []string
}

// Run scrapes every source with bounded parallelism and returns the merged,
// deduplicated batch plus the source-prefixed error strings collected along
// the way. A failing source contributes only errors; Run itself never fails.
func (a *Aggregator) Run(ctx context.Context) (models.Batch, []string) {
	results := make([]sourceResult, len(a.sources))

	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = a.scrapeOne(ctx, src)
		}(i, src)
	}
	wg.Wait()

	// Collect in configured order so first-seen precedence is deterministic
	// regardless of which goroutine finished first.
	var merged models.Batch
	var errs []string
	for i, src := range a.sources {
		merged.Merge(results[i].batch)
		for _, e := range results[i].errs {
			errs = append(errs, fmt.Sprintf("%s: %s", src.Name(), e))
		}
	}

	return dedupe(merged), errs
}

// scrapeOne runs a single source under its own timeout and converts panics
// into error strings so one bad source cannot take down the cycle.
func (a *Aggregator) scrapeOne(ctx context.Context, src sources.Source) (result sourceResult) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("source panicked", "source", src.Name(), "panic", r)
			result = sourceResult{errs: []string{fmt.Sprintf("panic: %v", r)}}
		}
	}()

	scrapeCtx := ctx
	if a.sourceTimeout > 0 {
		var cancel context.CancelFunc
		scrapeCtx, cancel = context.WithTimeout(ctx, a.sourceTimeout)
		defer cancel()
	}

	start := time.Now()
	batch, errs := src.Scrape(scrapeCtx)
	a.logger.Info("source scraped",
		"source", src.Name(),
		"concerts", len(batch.Concerts),
		"errors", len(errs),
		"duration", time.Since(start))

	return sourceResult{batch: batch, errs: errs}
}

// concertKey identifies a concert across sources. Two proposals agreeing on
// artist, title, date, and venue are the same event no matter who found it.
func concertKey(c models.ConcertInput) string {
	return strings.Join([]string{c.Artist, c.Title, c.Date.UTC().Format(time.RFC3339), c.Venue}, "|")
}

func artistKey(a models.ArtistInput) string {
	return strings.ToLower(a.Name)
}

func venueKey(v models.VenueInput) string {
	return strings.ToLower(v.Name) + "|" + strings.ToLower(v.City)
}

// dedupe drops later duplicates from the merged batch, keeping the first
// occurrence of each identity key.
func dedupe(in models.Batch) models.Batch {
	var out models.Batch

	seenConcerts := make(map[string]bool, len(in.Concerts))
	for _, c := range in.Concerts {
		key := concertKey(c)
		if seenConcerts[key] {
			continue
		}
		seenConcerts[key] = true
		out.Concerts = append(out.Concerts, c)
	}

	seenArtists := make(map[string]bool, len(in.Artists))
	for _, a := range in.Artists {
		key := artistKey(a)
		if seenArtists[key] {
			continue
		}
		seenArtists[key] = true
		out.Artists = append(out.Artists, a)
	}

	seenVenues := make(map[string]bool, len(in.Venues))
	for _, v := range in.Venues {
		key := venueKey(v)
		if seenVenues[key] {
			continue
		}
		seenVenues[key] = true
		out.Venues = append(out.Venues, v)
	}

	return out
}
