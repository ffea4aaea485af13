package rsvp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository handles RSVP persistence. It implements both Store (pool-scoped
// reads) and Locker (per-event serialized transactional scope).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an RSVP repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithEventLock runs fn inside a transaction holding an advisory lock keyed
// by the event ID. Transitions into going and waitlist promotions for one
// event are thereby serialized against the capacity check, across replicas.
func (r *Repository) WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context, st Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, eventID); err != nil {
		return fmt.Errorf("acquire event lock: %w", err)
	}
	if err := fn(ctx, &txStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// txStore is the transaction-scoped Store handed to the state machine.
type txStore struct {
	q querier
}

func (s *txStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return getEvent(ctx, s.q, id)
}

func (s *txStore) GetRSVP(ctx context.Context, userID, eventID uuid.UUID) (*models.RSVP, error) {
	return getRSVP(ctx, s.q, userID, eventID)
}

func (s *txStore) SaveRSVP(ctx context.Context, rv *models.RSVP) error {
	return saveRSVP(ctx, s.q, rv)
}

func (s *txStore) CountByStatus(ctx context.Context, eventID uuid.UUID, status models.RSVPStatus) (int, error) {
	return countByStatus(ctx, s.q, eventID, status)
}

func (s *txStore) ListWaitlisted(ctx context.Context, eventID uuid.UUID) ([]models.RSVP, error) {
	return listWaitlisted(ctx, s.q, eventID)
}

const rsvpColumns = `id, user_id, event_id, status, note, created_at, updated_at`

func scanRSVP(row pgx.Row) (*models.RSVP, error) {
	var rv models.RSVP
	err := row.Scan(&rv.ID, &rv.UserID, &rv.EventID, &rv.Status, &rv.Note, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRSVPNotFound
		}
		return nil, err
	}
	return &rv, nil
}

func getEvent(ctx context.Context, q querier, id uuid.UUID) (*models.Event, error) {
	const query = `SELECT id, title, description, location, start_time, end_time, created_by, max_attendees,
		category_id, is_recurring, COALESCE(recurrence_pattern,''), COALESCE(external_id,''), COALESCE(external_provider,''),
		created_at, updated_at FROM events WHERE id = $1`
	var e models.Event
	err := q.QueryRow(ctx, query, id).Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartTime, &e.EndTime,
		&e.CreatedBy, &e.MaxAttendees, &e.CategoryID, &e.IsRecurring, &e.RecurrencePattern,
		&e.ExternalID, &e.ExternalProvider, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

func getRSVP(ctx context.Context, q querier, userID, eventID uuid.UUID) (*models.RSVP, error) {
	const query = `SELECT ` + rsvpColumns + ` FROM rsvps WHERE user_id = $1 AND event_id = $2`
	return scanRSVP(q.QueryRow(ctx, query, userID, eventID))
}

func saveRSVP(ctx context.Context, q querier, rv *models.RSVP) error {
	const query = `INSERT INTO rsvps (user_id, event_id, status, note)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, event_id) DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	return q.QueryRow(ctx, query, rv.UserID, rv.EventID, string(rv.Status), rv.Note).
		Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
}

func countByStatus(ctx context.Context, q querier, eventID uuid.UUID, status models.RSVPStatus) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM rsvps WHERE event_id = $1 AND status = $2`, eventID, string(status)).Scan(&n)
	return n, err
}

func listWaitlisted(ctx context.Context, q querier, eventID uuid.UUID) ([]models.RSVP, error) {
	const query = `SELECT ` + rsvpColumns + ` FROM rsvps WHERE event_id = $1 AND status = 'waitlist'
		ORDER BY created_at ASC, id ASC`
	rows, err := q.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.RSVP
	for rows.Next() {
		var rv models.RSVP
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.EventID, &rv.Status, &rv.Note, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, rv)
	}
	return list, rows.Err()
}

// GetByUserAndEvent returns the RSVP for a (user, event) pair outside any lock scope.
func (r *Repository) GetByUserAndEvent(ctx context.Context, userID, eventID uuid.UUID) (*models.RSVP, error) {
	return getRSVP(ctx, r.pool, userID, eventID)
}

// CountByStatus returns the number of RSVPs with the given status for an event.
func (r *Repository) CountByStatus(ctx context.Context, eventID uuid.UUID, status models.RSVPStatus) (int, error) {
	return countByStatus(ctx, r.pool, eventID, status)
}

// ListByUser returns all of a user's RSVPs, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RSVP, error) {
	const query = `SELECT ` + rsvpColumns + ` FROM rsvps WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.RSVP
	for rows.Next() {
		var rv models.RSVP
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.EventID, &rv.Status, &rv.Note, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, rv)
	}
	return list, rows.Err()
}

// UserEventRSVP pairs an RSVP with its event for "my events" listings.
type UserEventRSVP struct {
	RSVP  models.RSVP  `json:"rsvp"`
	Event models.Event `json:"event"`
}

// ListGoingByUser returns the user's going RSVPs joined with their events,
// ordered by event start time.
func (r *Repository) ListGoingByUser(ctx context.Context, userID uuid.UUID) ([]UserEventRSVP, error) {
	const query = `SELECT r.id, r.user_id, r.event_id, r.status, r.note, r.created_at, r.updated_at,
		e.id, e.title, e.description, e.location, e.start_time, e.end_time, e.created_by, e.max_attendees,
		e.category_id, e.is_recurring, COALESCE(e.recurrence_pattern,''), e.created_at, e.updated_at
		FROM rsvps r INNER JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1 AND r.status = 'going'
		ORDER BY e.start_time ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []UserEventRSVP
	for rows.Next() {
		var item UserEventRSVP
		if err := rows.Scan(&item.RSVP.ID, &item.RSVP.UserID, &item.RSVP.EventID, &item.RSVP.Status, &item.RSVP.Note,
			&item.RSVP.CreatedAt, &item.RSVP.UpdatedAt,
			&item.Event.ID, &item.Event.Title, &item.Event.Description, &item.Event.Location,
			&item.Event.StartTime, &item.Event.EndTime, &item.Event.CreatedBy, &item.Event.MaxAttendees,
			&item.Event.CategoryID, &item.Event.IsRecurring, &item.Event.RecurrencePattern,
			&item.Event.CreatedAt, &item.Event.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// ListAttendees returns all RSVPs for an event joined with user display
// names, ordered by RSVP creation. Filtering per caller role happens in the
// visibility layer, not here.
func (r *Repository) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.AttendeeRecord, error) {
	const query = `SELECT r.id, r.user_id, u.full_name, r.status, r.note, r.created_at
		FROM rsvps r INNER JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY r.created_at ASC, r.id ASC`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AttendeeRecord
	for rows.Next() {
		var a models.AttendeeRecord
		if err := rows.Scan(&a.RSVPID, &a.UserID, &a.FullName, &a.Status, &a.Note, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
