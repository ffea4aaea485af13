package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gatherly/backend/internal/models"
)

// TicketmasterClient fetches events from the Ticketmaster Discovery API.
type TicketmasterClient struct {
	baseURL  string
	apiKey   string
	pageSize int
	http     *http.Client
}

// NewTicketmasterClient creates a Ticketmaster client.
func NewTicketmasterClient(baseURL, apiKey string, pageSize int, timeout time.Duration) *TicketmasterClient {
	return &TicketmasterClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		pageSize: pageSize,
		http:     &http.Client{Timeout: timeout},
	}
}

type tmResponse struct {
	Embedded struct {
		Events []tmEvent `json:"events"`
	} `json:"_embedded"`
}

type tmEvent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Info   string `json:"info"`
	URL    string `json:"url"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Dates struct {
		Start struct {
			DateTime string `json:"dateTime"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
		} `json:"end"`
	} `json:"dates"`
	PriceRanges []struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"priceRanges"`
	Classifications []struct {
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
		Genre struct {
			Name string `json:"name"`
		} `json:"genre"`
	} `json:"classifications"`
	Embedded struct {
		Venues []struct {
			Name string `json:"name"`
			City struct {
				Name string `json:"name"`
			} `json:"city"`
			Address struct {
				Line1 string `json:"line1"`
			} `json:"address"`
		} `json:"venues"`
	} `json:"_embedded"`
}

// Search queries Ticketmaster for events matching the params.
func (c *TicketmasterClient) Search(ctx context.Context, p SearchParams) ([]models.ExternalEvent, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("ticketmaster api key not configured")
	}
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("size", fmt.Sprintf("%d", c.pageSize))
	if p.Query != "" {
		q.Set("keyword", p.Query)
	}
	if p.Location != "" {
		q.Set("city", p.Location)
	}
	if p.Category != "" {
		q.Set("classificationName", p.Category)
	}
	if p.DateFrom != nil {
		q.Set("startDateTime", p.DateFrom.UTC().Format("2006-01-02T15:04:05Z"))
	}
	if p.DateTo != nil {
		q.Set("endDateTime", p.DateTo.UTC().Format("2006-01-02T15:04:05Z"))
	}

	body, err := fetchJSON(ctx, c.http, c.baseURL+"/events.json?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("ticketmaster: %w", err)
	}
	var resp tmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ticketmaster: decode: %w", err)
	}

	events := make([]models.ExternalEvent, 0, len(resp.Embedded.Events))
	for _, raw := range resp.Embedded.Events {
		ev, err := mapTicketmasterEvent(raw)
		if err != nil {
			continue // skip events without a parseable start time
		}
		events = append(events, ev)
	}
	return events, nil
}

func mapTicketmasterEvent(raw tmEvent) (models.ExternalEvent, error) {
	start, err := time.Parse(time.RFC3339, raw.Dates.Start.DateTime)
	if err != nil {
		return models.ExternalEvent{}, fmt.Errorf("parse start: %w", err)
	}
	ev := models.ExternalEvent{
		ExternalID:  "tm-" + raw.ID,
		Provider:    models.ProviderTicketmaster,
		Title:       raw.Name,
		Description: raw.Info,
		StartTime:   start,
		TicketURL:   raw.URL,
	}
	if raw.Dates.End.DateTime != "" {
		if end, err := time.Parse(time.RFC3339, raw.Dates.End.DateTime); err == nil {
			ev.EndTime = &end
		}
	}
	if len(raw.Images) > 0 {
		ev.ImageURL = raw.Images[0].URL
	}
	if len(raw.Embedded.Venues) > 0 {
		v := raw.Embedded.Venues[0]
		ev.VenueName = v.Name
		ev.VenueAddress = v.Address.Line1
		ev.Location = v.City.Name
	}
	if len(raw.PriceRanges) > 0 {
		pr := raw.PriceRanges[0]
		ev.PriceRange = fmt.Sprintf("%.2f-%.2f %s", pr.Min, pr.Max, pr.Currency)
	}
	if len(raw.Classifications) > 0 {
		ev.Category = raw.Classifications[0].Segment.Name
		if g := raw.Classifications[0].Genre.Name; g != "" {
			ev.Tags = append(ev.Tags, g)
		}
	}
	if data, err := json.Marshal(raw); err == nil {
		ev.RawData = data
	}
	return ev, nil
}

func fetchJSON(ctx context.Context, client *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
