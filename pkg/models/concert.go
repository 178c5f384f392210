package models

import (
	"time"

	"github.com/google/uuid"
)

// Concert availability statuses as reported by ticketing sources.
const (
	ConcertStatusAvailable = "available"
	ConcertStatusFewLeft   = "few-left"
	ConcertStatusSoldOut   = "sold-out"
)

// Concert is one scheduled performance as persisted in the store.
type Concert struct {
	ID          uuid.UUID      `db:"id"           json:"id"`
	Title       string         `db:"title"        json:"title"`
	Artist      string         `db:"artist"       json:"artist"`
	Venue       string         `db:"venue"        json:"venue"`
	City        string         `db:"city"         json:"city"`
	Country     string         `db:"country"      json:"country"`
	Date        time.Time      `db:"date"         json:"date"`
	Capacity    *int           `db:"capacity"     json:"capacity,omitempty"`
	TicketURL   *string        `db:"ticket_url"   json:"ticket_url,omitempty"`
	ImageURL    *string        `db:"image_url"    json:"image_url,omitempty"`
	Status      string         `db:"status"       json:"status"`
	Source      string         `db:"source"       json:"source"`
	LastUpdated time.Time      `db:"last_updated" json:"last_updated"`
	Metadata    map[string]any `db:"metadata"     json:"metadata,omitempty"`
}

// ConcertInput is a proposed concert produced by a source before it has an identity.
type ConcertInput struct {
	Title     string         `json:"title"`
	Artist    string         `json:"artist"`
	Venue     string         `json:"venue"`
	City      string         `json:"city"`
	Country   string         `json:"country"`
	Date      time.Time      `json:"date"`
	Capacity  *int           `json:"capacity,omitempty"`
	TicketURL *string        `json:"ticket_url,omitempty"`
	ImageURL  *string        `json:"image_url,omitempty"`
	Status    string         `json:"status"`
	Source    string         `json:"source"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
