package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stagewatch/stagewatch/internal/store"
	"github.com/stagewatch/stagewatch/pkg/models"
)

type artistTally struct {
	total  int
	future int
}

type venueTally struct {
	future  int
	city    string
	name    string
	country string
}

// recomputeStats rebuilds every derived field from the persisted concerts.
// Upcoming-show counts for artists cover all their concerts; trending scores
// and venue counts only count future-dated ones. Artists and venues that
// appear in a concert but have no record yet are created here, so derived
// fields always land on a persisted entity.
func (r *Runner) recomputeStats(ctx context.Context) error {
	concerts, err := r.store.ListConcerts(ctx, store.ConcertFilter{})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	artists := make(map[string]*artistTally)
	venues := make(map[string]*venueTally)

	for _, c := range concerts {
		future := c.Date.After(now)

		aKey := strings.ToLower(c.Artist)
		at, ok := artists[aKey]
		if !ok {
			at = &artistTally{}
			artists[aKey] = at
		}
		at.total++
		if future {
			at.future++
		}

		vKey := strings.ToLower(c.Venue) + "|" + strings.ToLower(c.City)
		vt, ok := venues[vKey]
		if !ok {
			vt = &venueTally{name: c.Venue, city: c.City, country: c.Country}
			venues[vKey] = vt
		}
		if future {
			vt.future++
		}
	}

	for key, tally := range artists {
		artist, err := r.store.GetArtistByName(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			artist, err = r.store.CreateArtist(ctx, models.ArtistInput{Name: concertArtistName(concerts, key)})
		}
		if err != nil {
			return err
		}

		score := 10 * tally.future
		if _, err := r.store.UpdateArtist(ctx, artist.ID, store.ArtistUpdate{
			TrendingScore: &score,
			UpcomingShows: &tally.total,
		}); err != nil {
			return err
		}
	}

	for _, tally := range venues {
		venue, err := r.store.GetVenueByNameCity(ctx, tally.name, tally.city)
		if errors.Is(err, store.ErrNotFound) {
			venue, err = r.store.CreateVenue(ctx, models.VenueInput{
				Name:    tally.name,
				City:    tally.city,
				Country: tally.country,
			})
		}
		if err != nil {
			return err
		}

		if _, err := r.store.UpdateVenue(ctx, venue.ID, store.VenueUpdate{
			UpcomingShows: &tally.future,
		}); err != nil {
			return err
		}
	}

	return nil
}

// concertArtistName recovers the original casing of an artist name from the
// concert list, since tally keys are lowercased.
func concertArtistName(concerts []*models.Concert, key string) string {
	for _, c := range concerts {
		if strings.ToLower(c.Artist) == key {
			return c.Artist
		}
	}
	return key
}
