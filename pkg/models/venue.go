package models

import (
	"time"

	"github.com/google/uuid"
)

// Venue is a performance location, identified by (name, city). UpcomingShows is
// derived and owned by the statistics recompute.
type Venue struct {
	ID            uuid.UUID `db:"id"             json:"id"`
	Name          string    `db:"name"           json:"name"`
	City          string    `db:"city"           json:"city"`
	Country       string    `db:"country"       json:"country"`
	Capacity      *int      `db:"capacity"       json:"capacity,omitempty"`
	ImageURL      *string   `db:"image_url"      json:"image_url,omitempty"`
	UpcomingShows int       `db:"upcoming_shows" json:"upcoming_shows"`
	LastUpdated   time.Time `db:"last_updated"   json:"last_updated"`
}

// VenueInput is a proposed venue produced by a source.
type VenueInput struct {
	Name     string  `json:"name"`
	City     string  `json:"city"`
	Country  string  `json:"country"`
	Capacity *int    `json:"capacity,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}
