package models

import "time"

// Batch is the normalized output of one scrape invocation: proposed entities
// that have not yet been persisted or assigned identities.
type Batch struct {
	Concerts []ConcertInput
	Artists  []ArtistInput
	Venues   []VenueInput
}

// Merge appends the contents of other to b.
func (b *Batch) Merge(other Batch) {
	b.Concerts = append(b.Concerts, other.Concerts...)
	b.Artists = append(b.Artists, other.Artists...)
	b.Venues = append(b.Venues, other.Venues...)
}

// DashboardStats is the aggregate summary served to the dashboard.
// ScrapePerformance is the percentage of recorded jobs that completed.
type DashboardStats struct {
	TotalConcerts     int        `json:"total_concerts"`
	ActiveArtists     int        `json:"active_artists"`
	Cities            int        `json:"cities"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus    string     `json:"last_sync_status"`
	ScrapePerformance float64    `json:"scrape_performance"`
}
