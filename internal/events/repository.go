package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/models"
)

// ErrNotFound is returned when an event does not exist.
var ErrNotFound = errors.New("event not found")

// Repository handles event, category and tag persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `e.id, e.title, e.description, e.location, e.start_time, e.end_time, e.created_by,
	e.max_attendees, e.category_id, e.is_recurring, COALESCE(e.recurrence_pattern,''),
	COALESCE(e.external_id,''), COALESCE(e.external_provider,''), e.created_at, e.updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartTime, &e.EndTime, &e.CreatedBy,
		&e.MaxAttendees, &e.CategoryID, &e.IsRecurring, &e.RecurrencePattern,
		&e.ExternalID, &e.ExternalProvider, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event and attaches its tags.
func (r *Repository) Create(ctx context.Context, e *models.Event, tagNames []string) error {
	const q = `INSERT INTO events (title, description, location, start_time, end_time, created_by,
			max_attendees, category_id, is_recurring, recurrence_pattern, external_id, external_provider)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10,''), NULLIF($11,''), NULLIF($12,''))
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Location, e.StartTime, e.EndTime, e.CreatedBy,
		e.MaxAttendees, e.CategoryID, e.IsRecurring, e.RecurrencePattern, e.ExternalID, e.ExternalProvider).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return err
	}
	return r.SetTags(ctx, e, tagNames)
}

// SetTags replaces the event's tag set, creating unknown tags on the fly.
func (r *Repository) SetTags(ctx context.Context, e *models.Event, tagNames []string) error {
	if tagNames == nil {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM event_tag_links WHERE event_id = $1`, e.ID); err != nil {
		return err
	}
	e.Tags = nil
	for _, name := range tagNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var tag models.EventTag
		err := r.pool.QueryRow(ctx, `INSERT INTO event_tags (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, name`, name).Scan(&tag.ID, &tag.Name)
		if err != nil {
			return err
		}
		if _, err := r.pool.Exec(ctx, `INSERT INTO event_tag_links (event_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, e.ID, tag.ID); err != nil {
			return err
		}
		e.Tags = append(e.Tags, tag)
	}
	return nil
}

// GetByID returns an event with its tags.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
	if err != nil {
		return nil, err
	}
	e.Tags, err = r.tagsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Repository) tagsFor(ctx context.Context, eventID uuid.UUID) ([]models.EventTag, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.name FROM event_tags t
		INNER JOIN event_tag_links l ON l.tag_id = t.id WHERE l.event_id = $1 ORDER BY t.name`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []models.EventTag
	for rows.Next() {
		var t models.EventTag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// SearchParams filters and orders the event listing.
type SearchParams struct {
	Query       string     // matches title, description, location
	Location    string
	CategoryID  *uuid.UUID
	OrganizerID *uuid.UUID
	DateFrom    *time.Time
	DateTo      *time.Time
	SortBy      string // "start_time" (default) or "popularity"
	SortAsc     bool
}

// Search returns events matching the params. Popularity sorting counts
// going RSVPs.
func (r *Repository) Search(ctx context.Context, p SearchParams) ([]models.Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Query != "" {
		ph := arg("%" + p.Query + "%")
		conds = append(conds, fmt.Sprintf("(e.title ILIKE %s OR e.description ILIKE %s OR e.location ILIKE %s)", ph, ph, ph))
	}
	if p.Location != "" {
		conds = append(conds, "e.location ILIKE "+arg("%"+p.Location+"%"))
	}
	if p.CategoryID != nil {
		conds = append(conds, "e.category_id = "+arg(*p.CategoryID))
	}
	if p.OrganizerID != nil {
		conds = append(conds, "e.created_by = "+arg(*p.OrganizerID))
	}
	if p.DateFrom != nil {
		conds = append(conds, "e.start_time >= "+arg(*p.DateFrom))
	}
	if p.DateTo != nil {
		conds = append(conds, "e.start_time <= "+arg(*p.DateTo))
	}

	q := `SELECT ` + eventColumns + ` FROM events e`
	if p.SortBy == "popularity" {
		q = `SELECT ` + eventColumns + `, COUNT(r.id) FILTER (WHERE r.status = 'going') AS going_count
			FROM events e LEFT JOIN rsvps r ON r.event_id = e.id`
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	dir := "DESC"
	if p.SortAsc {
		dir = "ASC"
	}
	switch p.SortBy {
	case "popularity":
		q += " GROUP BY e.id ORDER BY going_count " + dir + ", e.start_time DESC"
	default:
		q += " ORDER BY e.start_time " + dir
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var e models.Event
		dest := []interface{}{&e.ID, &e.Title, &e.Description, &e.Location, &e.StartTime, &e.EndTime, &e.CreatedBy,
			&e.MaxAttendees, &e.CategoryID, &e.IsRecurring, &e.RecurrencePattern,
			&e.ExternalID, &e.ExternalProvider, &e.CreatedAt, &e.UpdatedAt}
		if p.SortBy == "popularity" {
			var goingCount int
			dest = append(dest, &goingCount)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update modifies event fields in place. Nil pointers keep current values.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, location *string,
	startTime, endTime *time.Time, maxAttendees *int, clearCapacity bool) error {
	const q = `UPDATE events SET
		title = COALESCE($1, title),
		description = COALESCE($2, description),
		location = COALESCE($3, location),
		start_time = COALESCE($4, start_time),
		end_time = COALESCE($5, end_time),
		max_attendees = CASE WHEN $7 THEN NULL ELSE COALESCE($6, max_attendees) END,
		updated_at = NOW()
		WHERE id = $8`
	tag, err := r.pool.Exec(ctx, q, title, description, location, startTime, endTime, maxAttendees, clearCapacity, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an event.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates RSVP and review figures for one event.
type Stats struct {
	TotalRSVPs     int      `json:"total_rsvps"`
	GoingCount     int      `json:"going_count"`
	InterestedCount int     `json:"interested_count"`
	WaitlistCount  int      `json:"waitlist_count"`
	CancelledCount int      `json:"cancelled_count"`
	AvailableSpots *int     `json:"available_spots,omitempty"` // nil when capacity unset
	IsFull         bool     `json:"is_full"`
	AverageRating  *float64 `json:"average_rating,omitempty"`
	ReviewCount    int      `json:"review_count"`
}

// GetStats returns aggregate figures for an event.
func (r *Repository) GetStats(ctx context.Context, e *models.Event) (*Stats, error) {
	var s Stats
	const q = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'going'),
		COUNT(*) FILTER (WHERE status = 'interested'),
		COUNT(*) FILTER (WHERE status = 'waitlist'),
		COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM rsvps WHERE event_id = $1`
	if err := r.pool.QueryRow(ctx, q, e.ID).Scan(&s.TotalRSVPs, &s.GoingCount, &s.InterestedCount, &s.WaitlistCount, &s.CancelledCount); err != nil {
		return nil, err
	}
	if e.MaxAttendees != nil {
		spots := *e.MaxAttendees - s.GoingCount
		if spots < 0 {
			spots = 0
		}
		s.AvailableSpots = &spots
		s.IsFull = s.GoingCount >= *e.MaxAttendees
	}
	const rq = `SELECT COUNT(*), AVG(rating) FROM reviews WHERE event_id = $1`
	if err := r.pool.QueryRow(ctx, rq, e.ID).Scan(&s.ReviewCount, &s.AverageRating); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListCategories returns all event categories.
func (r *Repository) ListCategories(ctx context.Context) ([]models.EventCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM event_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventCategory
	for rows.Next() {
		var c models.EventCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// ListTags returns all event tags.
func (r *Repository) ListTags(ctx context.Context) ([]models.EventTag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM event_tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventTag
	for rows.Next() {
		var t models.EventTag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// GetOrCreateCategory returns the category with the given name, creating it
// when absent. Used by the provider import pipeline.
func (r *Repository) GetOrCreateCategory(ctx context.Context, name string) (*models.EventCategory, error) {
	var c models.EventCategory
	err := r.pool.QueryRow(ctx, `INSERT INTO event_categories (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description`, name).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
