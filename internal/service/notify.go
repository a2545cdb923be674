package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debtster-collection/internal/domain"
)

// Notifier delivers a notice for a case. A nil error means the dispatch was
// accepted; delivery itself happens elsewhere.
type Notifier interface {
	Send(ctx context.Context, caseID string, kind domain.NoticeKind) error
}

// EventPublisher receives progress events of collection jobs.
type EventPublisher interface {
	PublishCycleEvent(ctx context.Context, tenantID string, event string, payload any) error
}

var ErrNotifyTimeout = errors.New("notify: dispatch timed out")

// dispatch calls the notifier and gives up after timeout even when the
// notifier ignores its context.
func dispatch(ctx context.Context, n Notifier, timeout time.Duration, caseID string, kind domain.NoticeKind) error {
	if timeout <= 0 {
		return n.Send(ctx, caseID, kind)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- n.Send(ctx, caseID, kind)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrNotifyTimeout, err)
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrNotifyTimeout
		}
		return ctx.Err()
	}
}

func tenantLabel(tenantID *string) string {
	if tenantID == nil {
		return ""
	}
	return *tenantID
}
