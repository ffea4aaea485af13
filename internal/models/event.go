package models

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory is a named grouping for events.
type EventCategory struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
}

// EventTag is a free-form label attached to events.
type EventTag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Event represents a bookable event.
type Event struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Location          string     `json:"location"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	MaxAttendees      *int       `json:"max_attendees,omitempty"` // nil means unlimited
	CategoryID        *uuid.UUID `json:"category_id,omitempty"`
	Tags              []EventTag `json:"tags,omitempty"`
	IsRecurring       bool       `json:"is_recurring"`
	RecurrencePattern string     `json:"recurrence_pattern,omitempty"`
	ExternalID        string     `json:"external_id,omitempty"` // provenance when imported from a provider
	ExternalProvider  string     `json:"external_provider,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsPast reports whether the event has already ended.
func (e *Event) IsPast(now time.Time) bool {
	return e.EndTime.Before(now)
}

// Review is an attendee's rating of a past event.
type Review struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	EventID   uuid.UUID `json:"event_id"`
	Rating    int       `json:"rating"` // 1..5
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
