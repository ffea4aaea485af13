package rsvp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
)

// Service owns RSVP status transitions: it validates them against the
// transition table, enforces event capacity, and promotes from the waitlist
// when a going slot frees up.
type Service struct {
	locker   Locker
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an RSVP service.
func NewService(locker Locker, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{locker: locker, notifier: notifier, logger: logger, now: time.Now}
}

// Result is the outcome of a status request.
type Result struct {
	RSVP    *models.RSVP
	Created bool // true when this request created the RSVP row
}

type pendingNotification struct {
	rsvp models.RSVP
	kind NotificationKind
}

// RequestStatus creates or updates the caller's RSVP for an event.
//
// The requested status is validated against the transition table (skipped on
// first create), then capacity is enforced: a going request against a full
// event is stored as waitlist instead of being rejected, and the caller
// learns the outcome from the returned status. If the change freed a going
// slot, waitlisted RSVPs are promoted FIFO within the same lock scope.
func (s *Service) RequestStatus(ctx context.Context, userID, eventID uuid.UUID, desired models.RSVPStatus, note string) (*Result, error) {
	var (
		result  Result
		pending []pendingNotification
	)

	err := s.locker.WithEventLock(ctx, eventID, func(ctx context.Context, st Store) error {
		event, err := st.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if desired != models.StatusCancelled && event.IsPast(s.now()) {
			return ErrEventPast
		}

		existing, err := st.GetRSVP(ctx, userID, eventID)
		if err != nil && err != ErrRSVPNotFound {
			return err
		}

		if existing != nil && !CanTransition(existing.Status, desired) {
			return newInvalidTransition(existing.Status, desired)
		}

		resolved := desired
		if desired == models.StatusGoing {
			going, err := st.CountByStatus(ctx, eventID, models.StatusGoing)
			if err != nil {
				return err
			}
			if existing != nil && existing.Status == models.StatusGoing {
				going-- // this RSVP's own slot does not count against it
			}
			if !HasOpenCapacity(event.MaxAttendees, going) {
				resolved = models.StatusWaitlist
			}
		}

		r := existing
		if r == nil {
			r = &models.RSVP{UserID: userID, EventID: eventID}
			result.Created = true
		}
		priorStatus := r.Status
		r.Status = resolved
		r.Note = note
		if err := st.SaveRSVP(ctx, r); err != nil {
			return err
		}
		result.RSVP = r

		switch resolved {
		case models.StatusGoing:
			pending = append(pending, pendingNotification{rsvp: *r, kind: NotifyConfirmed})
		case models.StatusWaitlist:
			pending = append(pending, pendingNotification{rsvp: *r, kind: NotifyWaitlisted})
		}

		if existing != nil && priorStatus == models.StatusGoing && resolved != models.StatusGoing {
			promoted := s.promote(ctx, st, event)
			for _, p := range promoted {
				pending = append(pending, pendingNotification{rsvp: p, kind: NotifyPromoted})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, pending)
	return &result, nil
}

// Cancel sets the caller's RSVP to cancelled. Unlike RequestStatus it
// requires an existing RSVP; cancelling nothing is a not-found.
func (s *Service) Cancel(ctx context.Context, userID, eventID uuid.UUID) (*models.RSVP, error) {
	var (
		out     *models.RSVP
		pending []pendingNotification
	)
	err := s.locker.WithEventLock(ctx, eventID, func(ctx context.Context, st Store) error {
		event, err := st.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		existing, err := st.GetRSVP(ctx, userID, eventID)
		if err != nil {
			return err
		}
		priorStatus := existing.Status
		existing.Status = models.StatusCancelled
		if err := st.SaveRSVP(ctx, existing); err != nil {
			return err
		}
		out = existing

		if priorStatus == models.StatusGoing {
			promoted := s.promote(ctx, st, event)
			for _, p := range promoted {
				pending = append(pending, pendingNotification{rsvp: p, kind: NotifyPromoted})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, pending)
	return out, nil
}

// promote moves waitlisted RSVPs to going, oldest first, while capacity
// remains. Each promotion is persisted individually; a persistence failure
// stops the loop and leaves earlier promotions in place (fail-forward).
// Runs inside the caller's event lock so freed capacity is never visible
// to new requests before the waitlist has claimed it.
func (s *Service) promote(ctx context.Context, st Store, event *models.Event) []models.RSVP {
	waiting, err := st.ListWaitlisted(ctx, event.ID)
	if err != nil {
		s.logger.Error("list waitlist failed", zap.Error(err), zap.String("event_id", event.ID.String()))
		return nil
	}

	var promoted []models.RSVP
	for i := range waiting {
		going, err := st.CountByStatus(ctx, event.ID, models.StatusGoing)
		if err != nil {
			s.logger.Error("count going failed", zap.Error(err), zap.String("event_id", event.ID.String()))
			break
		}
		if !HasOpenCapacity(event.MaxAttendees, going) {
			break
		}
		w := waiting[i]
		w.Status = models.StatusGoing
		if err := st.SaveRSVP(ctx, &w); err != nil {
			s.logger.Error("promote waitlisted rsvp failed",
				zap.Error(err),
				zap.String("event_id", event.ID.String()),
				zap.String("rsvp_id", w.ID.String()),
			)
			break
		}
		promoted = append(promoted, w)
	}
	return promoted
}

func (s *Service) dispatch(ctx context.Context, pending []pendingNotification) {
	if s.notifier == nil {
		return
	}
	for _, p := range pending {
		if err := s.notifier.Notify(ctx, p.rsvp, p.kind); err != nil {
			s.logger.Warn("schedule notification failed",
				zap.Error(err),
				zap.String("rsvp_id", p.rsvp.ID.String()),
				zap.String("kind", string(p.kind)),
			)
		}
	}
}
