package rsvp

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
)

// memStore is an in-memory Store and Locker. The mutex stands in for the
// per-event advisory lock: every lock scope is fully serialized.
type memStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
	rsvps  map[uuid.UUID]*models.RSVP
	clock  time.Time

	// failSaveFor makes SaveRSVP fail for this user's RSVPs.
	failSaveFor uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[uuid.UUID]*models.Event),
		rsvps:  make(map[uuid.UUID]*models.RSVP),
		clock:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) addEvent(maxAttendees *int) *models.Event {
	e := &models.Event{
		ID:           uuid.New(),
		Title:        "test event",
		StartTime:    m.clock.Add(24 * time.Hour),
		EndTime:      m.clock.Add(26 * time.Hour),
		CreatedBy:    uuid.New(),
		MaxAttendees: maxAttendees,
	}
	m.events[e.ID] = e
	return e
}

func (m *memStore) WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context, st Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, m)
}

func (m *memStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (m *memStore) GetRSVP(ctx context.Context, userID, eventID uuid.UUID) (*models.RSVP, error) {
	for _, r := range m.rsvps {
		if r.UserID == userID && r.EventID == eventID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, ErrRSVPNotFound
}

func (m *memStore) SaveRSVP(ctx context.Context, r *models.RSVP) error {
	if m.failSaveFor != uuid.Nil && r.UserID == m.failSaveFor {
		return assert.AnError
	}
	m.clock = m.clock.Add(time.Second)
	if r.ID == uuid.Nil {
		// mirror the ON CONFLICT upsert: an existing (user, event) row is updated
		for _, existing := range m.rsvps {
			if existing.UserID == r.UserID && existing.EventID == r.EventID {
				r.ID = existing.ID
				r.CreatedAt = existing.CreatedAt
			}
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
		r.CreatedAt = m.clock
	}
	r.UpdatedAt = m.clock
	copied := *r
	m.rsvps[r.ID] = &copied
	return nil
}

func (m *memStore) CountByStatus(ctx context.Context, eventID uuid.UUID, status models.RSVPStatus) (int, error) {
	n := 0
	for _, r := range m.rsvps {
		if r.EventID == eventID && r.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListWaitlisted(ctx context.Context, eventID uuid.UUID) ([]models.RSVP, error) {
	var list []models.RSVP
	for _, r := range m.rsvps {
		if r.EventID == eventID && r.Status == models.StatusWaitlist {
			list = append(list, *r)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list, nil
}

// recordingNotifier captures scheduled notifications.
type recordingNotifier struct {
	mu    sync.Mutex
	kinds map[uuid.UUID][]NotificationKind
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{kinds: make(map[uuid.UUID][]NotificationKind)}
}

func (n *recordingNotifier) Notify(ctx context.Context, r models.RSVP, kind NotificationKind) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds[r.UserID] = append(n.kinds[r.UserID], kind)
	return nil
}

func newTestService(store *memStore, notifier Notifier) *Service {
	svc := NewService(store, notifier, zap.NewNop())
	svc.now = func() time.Time { return store.clock }
	return svc
}

func TestRequestStatusCreatesRSVP(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	event := store.addEvent(nil)
	user := uuid.New()

	result, err := svc.RequestStatus(context.Background(), user, event.ID, models.StatusInterested, "bringing snacks")
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, models.StatusInterested, result.RSVP.Status)
	assert.Equal(t, "bringing snacks", result.RSVP.Note)
}

func TestRequestStatusGoingWithCapacity(t *testing.T) {
	store := newMemStore()
	notifier := newRecordingNotifier()
	svc := newTestService(store, notifier)
	capacity := 2
	event := store.addEvent(&capacity)
	user := uuid.New()

	result, err := svc.RequestStatus(context.Background(), user, event.ID, models.StatusGoing, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusGoing, result.RSVP.Status)
	assert.Equal(t, []NotificationKind{NotifyConfirmed}, notifier.kinds[user])
}

func TestRequestStatusFullEventOverridesToWaitlist(t *testing.T) {
	store := newMemStore()
	notifier := newRecordingNotifier()
	svc := newTestService(store, notifier)
	capacity := 1
	event := store.addEvent(&capacity)
	first, second := uuid.New(), uuid.New()

	_, err := svc.RequestStatus(context.Background(), first, event.ID, models.StatusGoing, "")
	require.NoError(t, err)

	// The second going request is not an error: it persists as waitlist and
	// the caller learns from the returned status.
	result, err := svc.RequestStatus(context.Background(), second, event.ID, models.StatusGoing, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaitlist, result.RSVP.Status)
	assert.Equal(t, []NotificationKind{NotifyWaitlisted}, notifier.kinds[second])
}

func TestRequestStatusIdempotentReRequest(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	capacity := 5
	event := store.addEvent(&capacity)
	user := uuid.New()

	first, err := svc.RequestStatus(context.Background(), user, event.ID, models.StatusGoing, "")
	require.NoError(t, err)
	second, err := svc.RequestStatus(context.Background(), user, event.ID, models.StatusGoing, "")
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.RSVP.ID, second.RSVP.ID)
	assert.Len(t, store.rsvps, 1)
	assert.Equal(t, models.StatusGoing, second.RSVP.Status)
}

func TestRequestStatusOwnSlotDoesNotCountAgainstItself(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	capacity := 1
	event := store.addEvent(&capacity)
	user := uuid.New()

	_, err := svc.RequestStatus(context.Background(), user, event.ID, models.StatusGoing, "")
	require.NoError(t, err)

	// The only going attendee re-requesting going must not be waitlisted by
	// its own slot.
	result, err := svc.RequestStatus(context.Background(), user, event.ID, models.StatusGoing, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusGoing, result.RSVP.Status)
}

func TestRequestStatusRejectsIllegalTransition(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	event := store.addEvent(nil)
	user := uuid.New()

	_, err := svc.RequestStatus(context.Background(), user, event.ID, models.StatusCancelled, "")
	require.NoError(t, err)

	_, err = svc.RequestStatus(context.Background(), user, event.ID, models.StatusWaitlist, "")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.StatusCancelled, invalid.From)
	assert.Equal(t, models.StatusWaitlist, invalid.To)
	assert.ElementsMatch(t, []models.RSVPStatus{models.StatusInterested, models.StatusGoing}, invalid.Allowed)
}

func TestRequestStatusEventNotFound(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)

	_, err := svc.RequestStatus(context.Background(), uuid.New(), uuid.New(), models.StatusGoing, "")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRequestStatusPastEventRejected(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	event := store.addEvent(nil)
	event.EndTime = store.clock.Add(-time.Hour)
	user := uuid.New()

	_, err := svc.RequestStatus(context.Background(), user, event.ID, models.StatusGoing, "")
	assert.ErrorIs(t, err, ErrEventPast)
}

func TestCancelPastEventStillAllowed(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	event := store.addEvent(nil)
	user := uuid.New()

	_, err := svc.RequestStatus(context.Background(), user, event.ID, models.StatusGoing, "")
	require.NoError(t, err)

	event.EndTime = store.clock.Add(-time.Minute)
	rv, err := svc.Cancel(context.Background(), user, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, rv.Status)
}

func TestCancelWithoutRSVPIsNotFound(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	event := store.addEvent(nil)

	_, err := svc.Cancel(context.Background(), uuid.New(), event.ID)
	assert.ErrorIs(t, err, ErrRSVPNotFound)
}

func TestWaitlistPromotionIsFIFO(t *testing.T) {
	store := newMemStore()
	notifier := newRecordingNotifier()
	svc := newTestService(store, notifier)
	capacity := 1
	event := store.addEvent(&capacity)

	holder := uuid.New()
	_, err := svc.RequestStatus(context.Background(), holder, event.ID, models.StatusGoing, "")
	require.NoError(t, err)

	// Three users waitlist in order; store.clock advances per save.
	w1, w2, w3 := uuid.New(), uuid.New(), uuid.New()
	for _, u := range []uuid.UUID{w1, w2, w3} {
		result, err := svc.RequestStatus(context.Background(), u, event.ID, models.StatusGoing, "")
		require.NoError(t, err)
		require.Equal(t, models.StatusWaitlist, result.RSVP.Status)
	}

	_, err = svc.Cancel(context.Background(), holder, event.ID)
	require.NoError(t, err)

	// Exactly one slot freed: the first-waitlisted user is promoted, the rest stay queued.
	st1, _ := store.GetRSVP(context.Background(), w1, event.ID)
	st2, _ := store.GetRSVP(context.Background(), w2, event.ID)
	st3, _ := store.GetRSVP(context.Background(), w3, event.ID)
	assert.Equal(t, models.StatusGoing, st1.Status)
	assert.Equal(t, models.StatusWaitlist, st2.Status)
	assert.Equal(t, models.StatusWaitlist, st3.Status)
	assert.Equal(t, []NotificationKind{NotifyWaitlisted, NotifyPromoted}, notifier.kinds[w1])
}

func TestPromotionFillsAllFreedCapacity(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	capacity := 3
	event := store.addEvent(&capacity)

	var holders []uuid.UUID
	for i := 0; i < 3; i++ {
		u := uuid.New()
		holders = append(holders, u)
		_, err := svc.RequestStatus(context.Background(), u, event.ID, models.StatusGoing, "")
		require.NoError(t, err)
	}
	var waiters []uuid.UUID
	for i := 0; i < 2; i++ {
		u := uuid.New()
		waiters = append(waiters, u)
		_, err := svc.RequestStatus(context.Background(), u, event.ID, models.StatusGoing, "")
		require.NoError(t, err)
	}

	// Capacity drops from 3 going to 1 via two freeing transitions.
	_, err := svc.Cancel(context.Background(), holders[0], event.ID)
	require.NoError(t, err)
	_, err = svc.RequestStatus(context.Background(), holders[1], event.ID, models.StatusInterested, "")
	require.NoError(t, err)

	going, err := store.CountByStatus(context.Background(), event.ID, models.StatusGoing)
	require.NoError(t, err)
	assert.Equal(t, 3, going, "both freed slots must be claimed by the waitlist")
	for _, u := range waiters {
		rv, err := store.GetRSVP(context.Background(), u, event.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusGoing, rv.Status)
	}
}

func TestPromotionFailureDoesNotFailTheCancel(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	capacity := 1
	event := store.addEvent(&capacity)

	holder, waiter := uuid.New(), uuid.New()
	_, err := svc.RequestStatus(context.Background(), holder, event.ID, models.StatusGoing, "")
	require.NoError(t, err)
	result, err := svc.RequestStatus(context.Background(), waiter, event.ID, models.StatusGoing, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusWaitlist, result.RSVP.Status)

	// The promotion save fails; the cancel itself must still land and the
	// waiter stays queued for the next freeing transition.
	store.failSaveFor = waiter
	rv, err := svc.Cancel(context.Background(), holder, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, rv.Status)

	st, err := store.GetRSVP(context.Background(), waiter, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaitlist, st.Status)
}

func TestConcurrentGoingRequestsRespectCapacity(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	capacity := 5
	event := store.addEvent(&capacity)

	const requesters = 20
	var wg sync.WaitGroup
	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RequestStatus(context.Background(), uuid.New(), event.ID, models.StatusGoing, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	going, err := store.CountByStatus(context.Background(), event.ID, models.StatusGoing)
	require.NoError(t, err)
	waitlisted, err := store.CountByStatus(context.Background(), event.ID, models.StatusWaitlist)
	require.NoError(t, err)
	assert.Equal(t, 5, going, "going must never exceed capacity")
	assert.Equal(t, requesters-5, waitlisted)
}
