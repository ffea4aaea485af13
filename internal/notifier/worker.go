// Package notifier delivers RSVP lifecycle notifications queued by the API.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gatherly/backend/pkg/queue"
)

// Processor consumes notification jobs: load the RSVP context, compose the
// message, hand it to the mailer.
type Processor struct {
	pool   *pgxpool.Pool
	mailer Mailer
	queue  *queue.Queue
	logger *zap.Logger
}

// NewProcessor creates a notification processor.
func NewProcessor(pool *pgxpool.Pool, mailer Mailer, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{pool: pool, mailer: mailer, queue: q, logger: logger}
}

type notificationContext struct {
	Email      string
	FullName   string
	EventTitle string
	StartTime  time.Time
	Location   string
}

func (p *Processor) loadContext(ctx context.Context, payload queue.NotificationPayload) (*notificationContext, error) {
	const q = `SELECT u.email, u.full_name, e.title, e.start_time, e.location
		FROM rsvps r
		INNER JOIN users u ON u.id = r.user_id
		INNER JOIN events e ON e.id = r.event_id
		WHERE r.id = $1`
	var nc notificationContext
	err := p.pool.QueryRow(ctx, q, payload.RSVPID).Scan(&nc.Email, &nc.FullName, &nc.EventTitle, &nc.StartTime, &nc.Location)
	if err != nil {
		return nil, fmt.Errorf("load notification context: %w", err)
	}
	return &nc, nil
}

// Process executes one notification job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	nc, err := p.loadContext(ctx, payload)
	if err != nil {
		return err
	}

	subject, body := compose(payload.Kind, nc)
	if err := p.mailer.Send(nc.Email, subject, body); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	p.logger.Info("notification delivered",
		zap.String("kind", string(payload.Kind)),
		zap.String("rsvp_id", payload.RSVPID.String()),
	)
	return nil
}

func compose(kind queue.NotificationKind, nc *notificationContext) (subject, body string) {
	when := nc.StartTime.Format("Mon, 2 Jan 2006 15:04 MST")
	switch kind {
	case queue.NotifyConfirmed:
		subject = fmt.Sprintf("You're going: %s", nc.EventTitle)
		body = fmt.Sprintf("Hi %s,\n\nYour spot for %q on %s at %s is confirmed.",
			nc.FullName, nc.EventTitle, when, nc.Location)
	case queue.NotifyWaitlisted:
		subject = fmt.Sprintf("Waitlisted: %s", nc.EventTitle)
		body = fmt.Sprintf("Hi %s,\n\n%q is currently full, so you're on the waitlist. We'll let you know the moment a spot opens up.",
			nc.FullName, nc.EventTitle)
	case queue.NotifyPromoted:
		subject = fmt.Sprintf("A spot opened up: %s", nc.EventTitle)
		body = fmt.Sprintf("Hi %s,\n\nGood news: a spot opened up and you're now confirmed for %q on %s at %s.",
			nc.FullName, nc.EventTitle, when, nc.Location)
	default:
		subject = fmt.Sprintf("Update on %s", nc.EventTitle)
		body = fmt.Sprintf("Hi %s,\n\nThere's an update on your RSVP for %q.", nc.FullName, nc.EventTitle)
	}
	return subject, body
}

// Run consumes notification jobs until ctx is cancelled. Failed jobs are
// retried with backoff and dead-lettered after queue.MaxRetries attempts.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("notification worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopped")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("process notification failed", zap.Error(err), zap.String("job_id", job.ID))
			time.Sleep(queue.RetryBackoff)
			if err := p.queue.Retry(ctx, job); err != nil {
				p.logger.Error("retry failed", zap.Error(err), zap.String("job_id", job.ID))
			}
		}
	}
}
