package clients

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"debtster-collection/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeList struct {
	lists   map[string][]string
	strings map[string]string
	ttls    map[string]time.Duration
	err     error
}

func newFakeList() *fakeList {
	return &fakeList{lists: map[string][]string{}, strings: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeList) RPush(_ context.Context, key string, values ...any) error {
	if f.err != nil {
		return f.err
	}
	for _, v := range values {
		f.lists[key] = append(f.lists[key], v.(string))
	}
	return nil
}

func TestQueueNotifier_PushesJob(t *testing.T) {
	q := newFakeList()
	n := NewQueueNotifier(q, "")

	require.NoError(t, n.Send(context.Background(), "c1", domain.NoticeSommatie))

	items := q.lists["collection:notifications"]
	require.Len(t, items, 1)

	var job NotificationJob
	require.NoError(t, json.Unmarshal([]byte(items[0]), &job))
	assert.Equal(t, "c1", job.CaseID)
	assert.Equal(t, domain.NoticeSommatie, job.Kind)
	assert.NotEmpty(t, job.ID)
	assert.False(t, job.QueuedAt.IsZero())
}

func TestQueueNotifier_PushFailure(t *testing.T) {
	q := newFakeList()
	q.err = errors.New("redis down")
	n := NewQueueNotifier(q, "mailer")

	err := n.Send(context.Background(), "c1", domain.NoticeReminder1)
	assert.ErrorIs(t, err, q.err)
	assert.Empty(t, q.lists["mailer"])
}
