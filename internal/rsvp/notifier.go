package rsvp

import (
	"context"
	"fmt"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/queue"
)

// QueueNotifier schedules RSVP notifications on the Redis job queue for the
// background worker to deliver.
type QueueNotifier struct {
	q *queue.Queue
}

// NewQueueNotifier creates a queue-backed notifier.
func NewQueueNotifier(q *queue.Queue) *QueueNotifier {
	return &QueueNotifier{q: q}
}

// Notify enqueues a notification job for the RSVP.
func (n *QueueNotifier) Notify(ctx context.Context, r models.RSVP, kind NotificationKind) error {
	var jobKind queue.NotificationKind
	switch kind {
	case NotifyConfirmed:
		jobKind = queue.NotifyConfirmed
	case NotifyWaitlisted:
		jobKind = queue.NotifyWaitlisted
	case NotifyPromoted:
		jobKind = queue.NotifyPromoted
	default:
		return fmt.Errorf("unknown notification kind: %s", kind)
	}
	return n.q.EnqueueNotification(ctx, queue.NotificationPayload{
		Kind:    jobKind,
		RSVPID:  r.ID,
		UserID:  r.UserID,
		EventID: r.EventID,
	})
}
