package models

import (
	"time"

	"github.com/google/uuid"
)

// Artist is a performer tracked across concerts. TrendingScore and UpcomingShows
// are derived fields owned by the statistics recompute.
type Artist struct {
	ID            uuid.UUID `db:"id"             json:"id"`
	Name          string    `db:"name"           json:"name"`
	ImageURL      *string   `db:"image_url"      json:"image_url,omitempty"`
	TrendingScore int       `db:"trending_score" json:"trending_score"`
	UpcomingShows int       `db:"upcoming_shows" json:"upcoming_shows"`
	LastUpdated   time.Time `db:"last_updated"   json:"last_updated"`
}

// ArtistInput is a proposed artist produced by a source.
type ArtistInput struct {
	Name     string  `json:"name"`
	ImageURL *string `json:"image_url,omitempty"`
}
