package importer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/models"
)

// ErrExternalEventNotFound is returned when no staged external event matches.
var ErrExternalEventNotFound = errors.New("external event not found")

// Repository handles staged external event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an importer repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const externalColumns = `id, external_id, provider, title, description, location, venue_name, venue_address,
	start_time, end_time, image_url, ticket_url, price_range, category, tags, raw_data, fetched_at,
	is_imported, imported_event_id`

func scanExternal(row pgx.Row) (*models.ExternalEvent, error) {
	var ev models.ExternalEvent
	var tags []byte
	err := row.Scan(&ev.ID, &ev.ExternalID, &ev.Provider, &ev.Title, &ev.Description, &ev.Location,
		&ev.VenueName, &ev.VenueAddress, &ev.StartTime, &ev.EndTime, &ev.ImageURL, &ev.TicketURL,
		&ev.PriceRange, &ev.Category, &tags, &ev.RawData, &ev.FetchedAt, &ev.IsImported, &ev.ImportedEventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExternalEventNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(tags, &ev.Tags)
	return &ev, nil
}

// Upsert stages a fetched external event, refreshing fields on re-fetch.
// Import state is never reset by a refresh.
func (r *Repository) Upsert(ctx context.Context, ev *models.ExternalEvent) error {
	tags, err := json.Marshal(ev.Tags)
	if err != nil {
		return err
	}
	if ev.Tags == nil {
		tags = []byte("[]")
	}
	raw := ev.RawData
	if raw == nil {
		raw = []byte("{}")
	}
	const q = `INSERT INTO external_events
		(external_id, provider, title, description, location, venue_name, venue_address,
		 start_time, end_time, image_url, ticket_url, price_range, category, tags, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description, location = EXCLUDED.location,
			venue_name = EXCLUDED.venue_name, venue_address = EXCLUDED.venue_address,
			start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
			image_url = EXCLUDED.image_url, ticket_url = EXCLUDED.ticket_url,
			price_range = EXCLUDED.price_range, category = EXCLUDED.category,
			tags = EXCLUDED.tags, raw_data = EXCLUDED.raw_data, fetched_at = NOW()
		RETURNING id, fetched_at, is_imported, imported_event_id`
	return r.pool.QueryRow(ctx, q, ev.ExternalID, string(ev.Provider), ev.Title, ev.Description, ev.Location,
		ev.VenueName, ev.VenueAddress, ev.StartTime, ev.EndTime, ev.ImageURL, ev.TicketURL,
		ev.PriceRange, ev.Category, tags, raw).
		Scan(&ev.ID, &ev.FetchedAt, &ev.IsImported, &ev.ImportedEventID)
}

// GetByID returns a staged external event.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ExternalEvent, error) {
	return scanExternal(r.pool.QueryRow(ctx, `SELECT `+externalColumns+` FROM external_events WHERE id = $1`, id))
}

// List returns staged external events, optionally filtered by provider and
// import state, newest start first.
func (r *Repository) List(ctx context.Context, provider string, imported *bool) ([]models.ExternalEvent, error) {
	q := `SELECT ` + externalColumns + ` FROM external_events`
	var (
		conds []string
		args  []interface{}
	)
	if provider != "" {
		args = append(args, provider)
		conds = append(conds, "provider = $1")
	}
	if imported != nil {
		args = append(args, *imported)
		if len(args) == 1 {
			conds = append(conds, "is_imported = $1")
		} else {
			conds = append(conds, "is_imported = $2")
		}
	}
	for i, cond := range conds {
		if i == 0 {
			q += " WHERE " + cond
		} else {
			q += " AND " + cond
		}
	}
	q += " ORDER BY start_time DESC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ExternalEvent
	for rows.Next() {
		ev, err := scanExternal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *ev)
	}
	return list, rows.Err()
}

// MarkImported links a staged external event to the native event created from it.
func (r *Repository) MarkImported(ctx context.Context, id, eventID uuid.UUID) error {
	const q = `UPDATE external_events SET is_imported = TRUE, imported_event_id = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, eventID)
	return err
}
