package service

import (
	"context"
	"testing"
	"time"

	"debtster-collection/internal/domain"
	"debtster-collection/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overdueCase(id string) domain.CollectionCase {
	c := newCase(id, domain.StatusOverdue, today.AddDays(-10))
	c.Reminder1DueDate = datePtr(today)
	c.Reminder2DueDate = datePtr(today.AddDays(5))
	return c
}

func TestReminder_FiresOnceAndStamps(t *testing.T) {
	store := memory.New()
	store.PutCase(overdueCase("c1"))
	notifier := &fakeNotifier{}
	svc := NewReminderService(store, notifier, testClock, time.Second)

	res, err := svc.SendDue(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, []sentNotice{{CaseID: "c1", Kind: domain.NoticeReminder1}}, notifier.Sent())

	c, _ := store.Case("c1")
	require.NotNil(t, c.Reminder1SentAt)
	assert.Equal(t, testNow, *c.Reminder1SentAt)
	assert.Nil(t, c.Reminder2SentAt)

	res, err = svc.SendDue(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Len(t, notifier.Sent(), 1)
}

func TestReminder_BothSameDay(t *testing.T) {
	store := memory.New()
	c := overdueCase("c1")
	c.Reminder2DueDate = datePtr(today)
	store.PutCase(c)
	notifier := &fakeNotifier{}

	res, err := NewReminderService(store, notifier, testClock, time.Second).SendDue(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sent)
	assert.ElementsMatch(t, []sentNotice{
		{CaseID: "c1", Kind: domain.NoticeReminder1},
		{CaseID: "c1", Kind: domain.NoticeReminder2},
	}, notifier.Sent())
}

func TestReminder_MissingDateSkipsBoth(t *testing.T) {
	store := memory.New()
	c := overdueCase("c1")
	c.Reminder2DueDate = nil
	store.PutCase(c)
	notifier := &fakeNotifier{}

	res, err := NewReminderService(store, notifier, testClock, time.Second).SendDue(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Sent)
	assert.Empty(t, notifier.Sent())
}

func TestReminder_SkipsBlokkadeAndMissingEmail(t *testing.T) {
	store := memory.New()
	store.PutCase(overdueCase("blocked"))
	store.AddNotification(domain.StageNotification("n1", "blocked", domain.NotificationBlokkade, testNow))
	noMail := overdueCase("nomail")
	noMail.Debtor.Email = nil
	store.PutCase(noMail)
	notifier := &fakeNotifier{}

	res, err := NewReminderService(store, notifier, testClock, time.Second).SendDue(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Considered)
	assert.Equal(t, 2, res.Skipped)
	assert.Empty(t, notifier.Sent())
}

func TestReminder_FailedSendIsNotStamped(t *testing.T) {
	store := memory.New()
	store.PutCase(overdueCase("c1"))
	notifier := &fakeNotifier{failFor: map[string]bool{"c1": true}}
	svc := NewReminderService(store, notifier, testClock, time.Second)

	res, err := svc.SendDue(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	c, _ := store.Case("c1")
	assert.Nil(t, c.Reminder1SentAt)

	notifier.failFor = nil
	res, err = svc.SendDue(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
}

func TestReminder_NotDueYet(t *testing.T) {
	store := memory.New()
	c := overdueCase("c1")
	c.Reminder1DueDate = datePtr(today.AddDays(1))
	store.PutCase(c)
	notifier := &fakeNotifier{}

	res, err := NewReminderService(store, notifier, testClock, time.Second).SendDue(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Empty(t, notifier.Sent())
}

func TestReminder_MergesPromotedCases(t *testing.T) {
	store := memory.New()
	stored := overdueCase("c1")
	store.PutCase(stored)

	// c2 was promoted this run but is not visible to the overdue query yet
	fresh := overdueCase("c2")
	pending := fresh
	pending.Status = domain.StatusPending
	store.PutCase(pending)

	notifier := &fakeNotifier{}
	res, err := NewReminderService(store, notifier, testClock, time.Second).
		SendDue(context.Background(), nil, []domain.CollectionCase{stored, fresh})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Considered)
	assert.Equal(t, 2, res.Sent)
	assert.ElementsMatch(t, []sentNotice{
		{CaseID: "c1", Kind: domain.NoticeReminder1},
		{CaseID: "c2", Kind: domain.NoticeReminder1},
	}, notifier.Sent())
}
