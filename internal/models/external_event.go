package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Provider identifies an external event source.
type Provider string

const (
	ProviderTicketmaster Provider = "ticketmaster"
	ProviderSeatGeek     Provider = "seatgeek"
)

// ExternalEvent is an event fetched from a provider API, staged for import.
type ExternalEvent struct {
	ID              uuid.UUID       `json:"id"`
	ExternalID      string          `json:"external_id"`
	Provider        Provider        `json:"provider"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Location        string          `json:"location"`
	VenueName       string          `json:"venue_name,omitempty"`
	VenueAddress    string          `json:"venue_address,omitempty"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	ImageURL        string          `json:"image_url,omitempty"`
	TicketURL       string          `json:"ticket_url,omitempty"`
	PriceRange      string          `json:"price_range,omitempty"`
	Category        string          `json:"category,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	RawData         json.RawMessage `json:"-"` // original provider payload
	FetchedAt       time.Time       `json:"fetched_at"`
	IsImported      bool            `json:"is_imported"`
	ImportedEventID *uuid.UUID      `json:"imported_event_id,omitempty"`
}
