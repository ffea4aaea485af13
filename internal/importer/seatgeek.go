package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gatherly/backend/internal/models"
)

// SeatGeekClient fetches events from the SeatGeek API.
type SeatGeekClient struct {
	baseURL  string
	clientID string
	pageSize int
	http     *http.Client
}

// NewSeatGeekClient creates a SeatGeek client.
func NewSeatGeekClient(baseURL, clientID string, pageSize int, timeout time.Duration) *SeatGeekClient {
	return &SeatGeekClient{
		baseURL:  baseURL,
		clientID: clientID,
		pageSize: pageSize,
		http:     &http.Client{Timeout: timeout},
	}
}

type sgResponse struct {
	Events []sgEvent `json:"events"`
}

type sgEvent struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DatetimeUTC string `json:"datetime_utc"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Venue       struct {
		Name            string `json:"name"`
		Address         string `json:"address"`
		DisplayLocation string `json:"display_location"`
	} `json:"venue"`
	Performers []struct {
		Image string `json:"image"`
	} `json:"performers"`
	Stats struct {
		LowestPrice  *float64 `json:"lowest_price"`
		HighestPrice *float64 `json:"highest_price"`
	} `json:"stats"`
	Taxonomies []struct {
		Name string `json:"name"`
	} `json:"taxonomies"`
}

// Search queries SeatGeek for events matching the params.
func (c *SeatGeekClient) Search(ctx context.Context, p SearchParams) ([]models.ExternalEvent, error) {
	q := url.Values{}
	q.Set("per_page", fmt.Sprintf("%d", c.pageSize))
	if c.clientID != "" {
		q.Set("client_id", c.clientID)
	}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	if p.Location != "" {
		q.Set("venue.city", p.Location)
	}
	if p.DateFrom != nil {
		q.Set("datetime_utc.gte", p.DateFrom.UTC().Format("2006-01-02"))
	}
	if p.DateTo != nil {
		q.Set("datetime_utc.lte", p.DateTo.UTC().Format("2006-01-02"))
	}

	body, err := fetchJSON(ctx, c.http, c.baseURL+"/events?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("seatgeek: %w", err)
	}
	var resp sgResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("seatgeek: decode: %w", err)
	}

	events := make([]models.ExternalEvent, 0, len(resp.Events))
	for _, raw := range resp.Events {
		ev, err := mapSeatGeekEvent(raw)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func mapSeatGeekEvent(raw sgEvent) (models.ExternalEvent, error) {
	start, err := time.Parse("2006-01-02T15:04:05", raw.DatetimeUTC)
	if err != nil {
		return models.ExternalEvent{}, fmt.Errorf("parse start: %w", err)
	}
	ev := models.ExternalEvent{
		ExternalID:   fmt.Sprintf("sg-%d", raw.ID),
		Provider:     models.ProviderSeatGeek,
		Title:        raw.Title,
		Description:  raw.Description,
		StartTime:    start.UTC(),
		TicketURL:    raw.URL,
		VenueName:    raw.Venue.Name,
		VenueAddress: raw.Venue.Address,
		Location:     raw.Venue.DisplayLocation,
		Category:     raw.Type,
	}
	if len(raw.Performers) > 0 {
		ev.ImageURL = raw.Performers[0].Image
	}
	if raw.Stats.LowestPrice != nil && raw.Stats.HighestPrice != nil {
		ev.PriceRange = fmt.Sprintf("%.2f-%.2f USD", *raw.Stats.LowestPrice, *raw.Stats.HighestPrice)
	}
	for _, t := range raw.Taxonomies {
		if t.Name != "" {
			ev.Tags = append(ev.Tags, t.Name)
		}
	}
	if data, err := json.Marshal(raw); err == nil {
		ev.RawData = data
	}
	return ev, nil
}
