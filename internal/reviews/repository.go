package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/models"
)

// Repository handles review persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a review repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a review (unique per user+event; re-reviewing updates in place).
func (r *Repository) Create(ctx context.Context, rev *models.Review) error {
	const q = `INSERT INTO reviews (user_id, event_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, event_id) DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, rev.UserID, rev.EventID, rev.Rating, rev.Comment).
		Scan(&rev.ID, &rev.CreatedAt, &rev.UpdatedAt)
}

// ListByEvent returns all reviews for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Review, error) {
	const q = `SELECT id, user_id, event_id, rating, comment, created_at, updated_at
		FROM reviews WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Review
	for rows.Next() {
		var rev models.Review
		if err := rows.Scan(&rev.ID, &rev.UserID, &rev.EventID, &rev.Rating, &rev.Comment, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, rev)
	}
	return list, rows.Err()
}

// HasGoingRSVP reports whether a user responded going to an event.
func (r *Repository) HasGoingRSVP(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rsvps WHERE user_id = $1 AND event_id = $2 AND status = 'going')`,
		userID, eventID).Scan(&exists)
	return exists, err
}
