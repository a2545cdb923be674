package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"debtster-collection/internal/domain"

	"github.com/google/uuid"
)

// NotificationJob is the payload the mailer worker pops from the queue.
type NotificationJob struct {
	ID       string            `json:"id"`
	CaseID   string            `json:"case_id"`
	Kind     domain.NoticeKind `json:"kind"`
	QueuedAt time.Time         `json:"queued_at"`
}

type jobQueue interface {
	RPush(ctx context.Context, key string, values ...any) error
}

// QueueNotifier hands notices to the mailer by pushing jobs on a Redis list.
// A successful push counts as an accepted dispatch.
type QueueNotifier struct {
	queue jobQueue
	key   string
}

func NewQueueNotifier(queue jobQueue, key string) *QueueNotifier {
	if key == "" {
		key = "collection:notifications"
	}
	return &QueueNotifier{queue: queue, key: key}
}

func (n *QueueNotifier) Send(ctx context.Context, caseID string, kind domain.NoticeKind) error {
	job := NotificationJob{
		ID:       uuid.NewString(),
		CaseID:   caseID,
		Kind:     kind,
		QueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := n.queue.RPush(ctx, n.key, string(data)); err != nil {
		return fmt.Errorf("queue %s for case %s: %w", kind, caseID, err)
	}
	log.Printf("[NOTIFY] queued %s for case %s (job %s)", kind, caseID, job.ID)
	return nil
}
