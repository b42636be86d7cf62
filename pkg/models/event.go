package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is an optional grouping entity (e.g. a conference) that contacts may
// reference. Deleting an event clears the reference on its contacts; it never
// deletes them.
type Event struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Location  string     `json:"location,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
