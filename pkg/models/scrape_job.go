package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// ScrapeJob is the durable audit record of one ingestion run. A job is created
// with status running and receives exactly one terminal update; it is immutable
// once completed or failed.
type ScrapeJob struct {
	ID            uuid.UUID  `db:"id"             json:"id"`
	Source        string     `db:"source"         json:"source"`
	Status        string     `db:"status"         json:"status"`
	StartTime     time.Time  `db:"start_time"     json:"start_time"`
	EndTime       *time.Time `db:"end_time"       json:"end_time,omitempty"`
	ConcertsFound int        `db:"concerts_found" json:"concerts_found"`
	ErrorMessage  *string    `db:"error_message"  json:"error_message,omitempty"`
}
