package importer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/backend/internal/models"
)

const tmEventJSON = `{
	"id": "G5vYZb2vv_1234",
	"name": "Summer Jazz Night",
	"info": "An evening of live jazz.",
	"url": "https://www.ticketmaster.com/event/G5vYZb2vv_1234",
	"images": [{"url": "https://img.ticketmaster.com/jazz.jpg"}],
	"dates": {
		"start": {"dateTime": "2026-07-15T19:30:00Z"},
		"end": {"dateTime": "2026-07-15T22:00:00Z"}
	},
	"priceRanges": [{"min": 25, "max": 80, "currency": "USD"}],
	"classifications": [{"segment": {"name": "Music"}, "genre": {"name": "Jazz"}}],
	"_embedded": {
		"venues": [{
			"name": "Blue Note",
			"city": {"name": "New York"},
			"address": {"line1": "131 W 3rd St"}
		}]
	}
}`

func TestMapTicketmasterEvent(t *testing.T) {
	raw := decodeTM(t, tmEventJSON)

	ev, err := mapTicketmasterEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, "tm-G5vYZb2vv_1234", ev.ExternalID)
	assert.Equal(t, models.ProviderTicketmaster, ev.Provider)
	assert.Equal(t, "Summer Jazz Night", ev.Title)
	assert.Equal(t, "An evening of live jazz.", ev.Description)
	assert.Equal(t, time.Date(2026, 7, 15, 19, 30, 0, 0, time.UTC), ev.StartTime.UTC())
	require.NotNil(t, ev.EndTime)
	assert.Equal(t, time.Date(2026, 7, 15, 22, 0, 0, 0, time.UTC), ev.EndTime.UTC())
	assert.Equal(t, "Blue Note", ev.VenueName)
	assert.Equal(t, "131 W 3rd St", ev.VenueAddress)
	assert.Equal(t, "New York", ev.Location)
	assert.Equal(t, "https://img.ticketmaster.com/jazz.jpg", ev.ImageURL)
	assert.Equal(t, "25.00-80.00 USD", ev.PriceRange)
	assert.Equal(t, "Music", ev.Category)
	assert.Equal(t, []string{"Jazz"}, ev.Tags)
	assert.NotEmpty(t, ev.RawData)
}

func TestMapTicketmasterEventMissingStartTime(t *testing.T) {
	raw := decodeTM(t, `{"id": "x", "name": "no date"}`)

	_, err := mapTicketmasterEvent(raw)
	assert.Error(t, err)
}

func TestMapSeatGeekEvent(t *testing.T) {
	low, high := 30.0, 120.0
	raw := sgEvent{
		ID:          5551234,
		Title:       "Knicks at Celtics",
		DatetimeUTC: "2026-11-02T00:30:00",
		URL:         "https://seatgeek.com/e/5551234",
		Type:        "nba",
	}
	raw.Venue.Name = "TD Garden"
	raw.Venue.Address = "100 Legends Way"
	raw.Venue.DisplayLocation = "Boston, MA"
	raw.Performers = []struct {
		Image string `json:"image"`
	}{{Image: "https://img.seatgeek.com/knicks.jpg"}}
	raw.Stats.LowestPrice = &low
	raw.Stats.HighestPrice = &high
	raw.Taxonomies = []struct {
		Name string `json:"name"`
	}{{Name: "sports"}, {Name: "basketball"}}

	ev, err := mapSeatGeekEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, "sg-5551234", ev.ExternalID)
	assert.Equal(t, models.ProviderSeatGeek, ev.Provider)
	assert.Equal(t, time.Date(2026, 11, 2, 0, 30, 0, 0, time.UTC), ev.StartTime)
	assert.Equal(t, "TD Garden", ev.VenueName)
	assert.Equal(t, "Boston, MA", ev.Location)
	assert.Equal(t, "30.00-120.00 USD", ev.PriceRange)
	assert.Equal(t, "nba", ev.Category)
	assert.Equal(t, []string{"sports", "basketball"}, ev.Tags)
}

func TestMapSeatGeekEventPriceOmittedWhenStatsMissing(t *testing.T) {
	raw := sgEvent{ID: 1, Title: "tba", DatetimeUTC: "2026-01-01T12:00:00"}

	ev, err := mapSeatGeekEvent(raw)
	require.NoError(t, err)
	assert.Empty(t, ev.PriceRange)
}

func TestTicketmasterSearch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"apikey":             q.Get("apikey"),
			"keyword":            q.Get("keyword"),
			"city":               q.Get("city"),
			"classificationName": q.Get("classificationName"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"_embedded": {"events": [` + tmEventJSON + `, {"id": "broken", "name": "no date"}]}}`))
	}))
	defer srv.Close()

	client := NewTicketmasterClient(srv.URL, "test-key", 20, 5*time.Second)
	events, err := client.Search(context.Background(), SearchParams{
		Query:    "jazz",
		Location: "New York",
		Category: "Music",
	})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotQuery["apikey"])
	assert.Equal(t, "jazz", gotQuery["keyword"])
	assert.Equal(t, "New York", gotQuery["city"])
	assert.Equal(t, "Music", gotQuery["classificationName"])

	// The event without a parseable start time is skipped, not fatal.
	require.Len(t, events, 1)
	assert.Equal(t, "tm-G5vYZb2vv_1234", events[0].ExternalID)
}

func TestTicketmasterSearchRequiresAPIKey(t *testing.T) {
	client := NewTicketmasterClient("http://localhost", "", 20, time.Second)
	_, err := client.Search(context.Background(), SearchParams{})
	assert.Error(t, err)
}

func TestSeatGeekSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewSeatGeekClient(srv.URL, "cid", 20, time.Second)
	_, err := client.Search(context.Background(), SearchParams{})
	assert.Error(t, err)
}

func decodeTM(t *testing.T, body string) tmEvent {
	t.Helper()
	var raw tmEvent
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}
