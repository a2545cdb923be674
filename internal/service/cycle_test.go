package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"debtster-collection/internal/domain"
	"debtster-collection/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	busy     bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(_ context.Context, _ string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.busy || l.held {
		return nil, false, nil
	}
	l.held = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
	}, true, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	tenants []string
	reports []any
}

func (r *fakeRecorder) RecordRun(_ context.Context, tenantID string, report any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants = append(r.tenants, tenantID)
	r.reports = append(r.reports, report)
	return nil
}

func newCycle(store *memory.Store, notifier Notifier, locker Locker, events EventPublisher) *CycleService {
	return NewCycleService(
		NewOverdueService(store, testClock),
		NewLadderService(store, notifier, testClock, time.Second),
		NewReminderService(store, notifier, testClock, time.Second),
		NewAgreementService(store, testClock),
		testClock,
		locker,
		time.Minute,
		events,
	)
}

func TestCycle_EndToEnd(t *testing.T) {
	store := memory.New()
	c := newCase("c1", domain.StatusPending, today.AddDays(-10))
	c.Reminder1DueDate = datePtr(today)
	c.Reminder2DueDate = datePtr(today.AddDays(5))
	store.PutCase(c)

	notifier := &fakeNotifier{}
	events := &fakePublisher{}
	recorder := &fakeRecorder{}
	locker := &fakeLocker{}
	svc := newCycle(store, notifier, locker, events)
	svc.SetRecorder(recorder)

	report, err := svc.RunAll(context.Background(), nil)
	require.NoError(t, err)

	got, _ := store.Case("c1")
	assert.Equal(t, domain.StatusOverdue, got.Status)
	require.NotNil(t, got.Reminder1SentAt)
	assert.Equal(t, testNow, *got.Reminder1SentAt)
	assert.Nil(t, got.Reminder2SentAt)
	assert.Equal(t, []sentNotice{{CaseID: "c1", Kind: domain.NoticeReminder1}}, notifier.Sent())

	require.NotNil(t, report.Promote)
	assert.Equal(t, int64(1), report.Promote.Updated)
	require.NotNil(t, report.Ladder)
	assert.Equal(t, 0, report.Ladder.Advanced)
	require.NotNil(t, report.Reminders)
	assert.Equal(t, 1, report.Reminders.Sent)
	require.NotNil(t, report.Agreements)
	assert.Equal(t, today.String(), report.Today)
	assert.NotEmpty(t, report.RunID)
	assert.Empty(t, report.Error)

	var names []string
	for _, e := range events.Events() {
		names = append(names, e.Event)
	}
	assert.Equal(t, []string{"cycle_step", "cycle_step", "cycle_step", "cycle_complete"}, names)

	assert.Equal(t, 1, locker.released)
	require.Len(t, recorder.reports, 1)
	assert.Equal(t, "", recorder.tenants[0])

	// a second run the same day changes nothing
	report, err = svc.RunAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.Promote.Updated)
	assert.Equal(t, 0, report.Reminders.Sent)
	assert.Len(t, notifier.Sent(), 1)
}

func TestCycle_BusyDistributedLock(t *testing.T) {
	store := memory.New()
	events := &fakePublisher{}
	recorder := &fakeRecorder{}
	svc := newCycle(store, &fakeNotifier{}, &fakeLocker{busy: true}, events)
	svc.SetRecorder(recorder)

	_, err := svc.RunAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrCycleBusy)
	assert.Empty(t, events.Events(), "a rejected run publishes nothing")
	assert.Empty(t, recorder.reports, "a rejected run is not recorded")

	_, err = svc.PromoteOverdue(context.Background(), nil)
	assert.ErrorIs(t, err, ErrCycleBusy)
}

func TestCycle_LockErrorIsReported(t *testing.T) {
	lockErr := errors.New("redis: connection refused")
	svc := newCycle(memory.New(), &fakeNotifier{}, &fakeLocker{err: lockErr}, nil)

	_, err := svc.AdvanceLadder(context.Background(), nil)
	assert.ErrorIs(t, err, lockErr)
}

func TestCycle_OverlappingRunsRejected(t *testing.T) {
	store := memory.New()
	store.PutCase(newCase("c1", domain.StatusAanmaning, today.AddDays(3)))

	hang := make(chan struct{})
	started := make(chan struct{}, 1)
	notifier := &fakeNotifier{hang: hang, started: started}
	svc := newCycle(store, notifier, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.AdvanceLadder(context.Background(), nil)
		done <- err
	}()

	<-started
	_, err := svc.RunAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrCycleBusy)
	_, err = svc.SendReminders(context.Background(), nil)
	assert.ErrorIs(t, err, ErrCycleBusy)

	close(hang)
	require.NoError(t, <-done)

	_, err = svc.ReconcileAgreements(context.Background(), nil)
	assert.NoError(t, err)
}

func TestCycle_RepositoryFailureStopsRun(t *testing.T) {
	store := memory.New()
	store.Err = errors.New("db unavailable")
	events := &fakePublisher{}
	recorder := &fakeRecorder{}
	svc := newCycle(store, &fakeNotifier{}, nil, events)
	svc.SetRecorder(recorder)

	report, err := svc.RunAll(context.Background(), strPtr("tenant-a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.Err)

	assert.Nil(t, report.Promote)
	assert.Nil(t, report.Ladder)
	assert.Contains(t, report.Error, "promote overdue")

	evs := events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, "cycle_complete", evs[0].Event)
	assert.Equal(t, "tenant-a", evs[0].TenantID)
	assert.Equal(t, []string{"tenant-a"}, recorder.tenants)
}

func TestCycle_SingleJobsPublish(t *testing.T) {
	store := memory.New()
	store.PutCase(newCase("c1", domain.StatusPending, today.AddDays(-2)))
	events := &fakePublisher{}
	svc := newCycle(store, &fakeNotifier{}, nil, events)

	res, err := svc.PromoteOverdue(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Updated)

	evs := events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, "promote_overdue", evs[0].Event)
}
