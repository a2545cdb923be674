package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"debtster-collection/internal/clock"
	"debtster-collection/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	testNow   = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
	testClock = clock.Fixed{At: testNow}
	today     = testClock.Today()
)

var errTransport = errors.New("smtp: connection refused")

type sentNotice struct {
	CaseID string
	Kind   domain.NoticeKind
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotice

	// failFor makes Send fail for the listed case ids.
	failFor map[string]bool
	// hang, when set, blocks Send until it is closed, ignoring ctx.
	hang chan struct{}
	// started receives a value each time Send is entered.
	started chan struct{}
}

func (n *fakeNotifier) Send(ctx context.Context, caseID string, kind domain.NoticeKind) error {
	if n.started != nil {
		n.started <- struct{}{}
	}
	if n.hang != nil {
		<-n.hang
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[caseID] {
		return errTransport
	}
	n.sent = append(n.sent, sentNotice{CaseID: caseID, Kind: kind})
	return nil
}

func (n *fakeNotifier) Sent() []sentNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotice(nil), n.sent...)
}

func strPtr(s string) *string { return &s }

func datePtr(d clock.Date) *clock.Date { return &d }

func newCase(id string, status domain.CaseStatus, due clock.Date) domain.CollectionCase {
	return domain.CollectionCase{
		ID:       id,
		TenantID: "tenant-a",
		DebtorID: "debtor-" + id,
		Debtor: domain.Debtor{
			ID:    "debtor-" + id,
			Name:  "Debtor " + id,
			Email: strPtr("debtor-" + id + "@example.nl"),
		},
		IssueDate:      due.AddDays(-14),
		DueDate:        due,
		AmountOriginal: decimal.NewFromInt(1000),
		FeeRate:        decimal.NewFromInt(15),
		AbbRate:        decimal.NewFromInt(21),
		Status:         status,
	}
}

type recordedEvent struct {
	TenantID string
	Event    string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) PublishCycleEvent(_ context.Context, tenantID string, event string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{TenantID: tenantID, Event: event})
	return nil
}

func (p *fakePublisher) Events() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}
