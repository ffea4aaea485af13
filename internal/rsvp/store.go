package rsvp

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gatherly/backend/internal/models"
)

var (
	// ErrEventNotFound is returned when the target event does not exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrRSVPNotFound is returned when no RSVP exists for a (user, event) pair.
	ErrRSVPNotFound = errors.New("rsvp not found")
	// ErrEventPast is returned when RSVPing to an event that already ended.
	ErrEventPast = errors.New("event has already ended")
)

// Store is the transactional persistence surface the state machine drives.
// All calls within one Locker.WithEventLock invocation share a transaction.
type Store interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetRSVP(ctx context.Context, userID, eventID uuid.UUID) (*models.RSVP, error)
	SaveRSVP(ctx context.Context, r *models.RSVP) error
	CountByStatus(ctx context.Context, eventID uuid.UUID, status models.RSVPStatus) (int, error)
	// ListWaitlisted returns waitlisted RSVPs ordered by created_at ascending,
	// id ascending on equal timestamps.
	ListWaitlisted(ctx context.Context, eventID uuid.UUID) ([]models.RSVP, error)
}

// Locker serializes status transitions per event. Two concurrent going
// requests for the same event must never both observe open capacity.
type Locker interface {
	WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context, st Store) error) error
}

// Notifier schedules an RSVP lifecycle notification. Fire-and-forget:
// failures are logged by the caller and never roll back a transition.
type Notifier interface {
	Notify(ctx context.Context, r models.RSVP, kind NotificationKind) error
}

// NotificationKind describes what happened to the RSVP.
type NotificationKind string

const (
	NotifyConfirmed  NotificationKind = "confirmed"
	NotifyWaitlisted NotificationKind = "waitlisted"
	NotifyPromoted   NotificationKind = "promoted"
)
