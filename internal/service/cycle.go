package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"debtster-collection/internal/clock"

	"github.com/google/uuid"
)

var ErrCycleBusy = errors.New("collection run already in progress")

// Locker guards job runs across processes. release must be called once the
// run is over; ok is false when another holder owns the lock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// RunRecorder keeps finished run reports for later inspection.
type RunRecorder interface {
	RecordRun(ctx context.Context, tenantID string, report any) error
}

const runLockKey = "collection:run-lock"

type CycleReport struct {
	RunID      string           `json:"run_id"`
	Today      string           `json:"today"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Promote    *PromoteResult   `json:"promote,omitempty"`
	Ladder     *LadderResult    `json:"ladder,omitempty"`
	Reminders  *ReminderResult  `json:"reminders,omitempty"`
	Agreements *ReconcileResult `json:"agreements,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// CycleService is the single entry point for collection jobs. Every job,
// whether triggered alone or as part of RunAll, holds the run lock, so two
// runs never overlap.
type CycleService struct {
	overdue    *OverdueService
	ladder     *LadderService
	reminders  *ReminderService
	agreements *AgreementService

	clock   clock.Clock
	locker  Locker
	lockTTL time.Duration
	events  EventPublisher
	runs    RunRecorder

	mu sync.Mutex
}

func NewCycleService(
	overdue *OverdueService,
	ladder *LadderService,
	reminders *ReminderService,
	agreements *AgreementService,
	clk clock.Clock,
	locker Locker,
	lockTTL time.Duration,
	events EventPublisher,
) *CycleService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &CycleService{
		overdue:    overdue,
		ladder:     ladder,
		reminders:  reminders,
		agreements: agreements,
		clock:      clk,
		locker:     locker,
		lockTTL:    lockTTL,
		events:     events,
	}
}

// SetRecorder enables run history. RunAll reports are handed to r after
// each run, including failed ones.
func (s *CycleService) SetRecorder(r RunRecorder) {
	s.runs = r
}

func (s *CycleService) withLock(ctx context.Context, fn func() error) error {
	if !s.mu.TryLock() {
		return ErrCycleBusy
	}
	defer s.mu.Unlock()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, runLockKey, s.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return ErrCycleBusy
		}
		defer release()
	}

	return fn()
}

func (s *CycleService) publish(ctx context.Context, tenantID *string, event string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCycleEvent(ctx, tenantLabel(tenantID), event, payload); err != nil {
		log.Printf("[CYCLE] publish %s: %v", event, err)
	}
}

func (s *CycleService) PromoteOverdue(ctx context.Context, tenantID *string) (res PromoteResult, err error) {
	err = s.withLock(ctx, func() error {
		res, err = s.overdue.Promote(ctx, tenantID)
		s.publish(ctx, tenantID, "promote_overdue", res)
		return err
	})
	return res, err
}

func (s *CycleService) AdvanceLadder(ctx context.Context, tenantID *string) (res LadderResult, err error) {
	err = s.withLock(ctx, func() error {
		res, err = s.ladder.Advance(ctx, tenantID)
		s.publish(ctx, tenantID, "advance_ladder", res)
		return err
	})
	return res, err
}

func (s *CycleService) SendReminders(ctx context.Context, tenantID *string) (res ReminderResult, err error) {
	err = s.withLock(ctx, func() error {
		res, err = s.reminders.SendDue(ctx, tenantID, nil)
		s.publish(ctx, tenantID, "send_reminders", res)
		return err
	})
	return res, err
}

func (s *CycleService) ReconcileAgreements(ctx context.Context, tenantID *string) (res ReconcileResult, err error) {
	err = s.withLock(ctx, func() error {
		res, err = s.agreements.Reconcile(ctx, tenantID)
		s.publish(ctx, tenantID, "reconcile_agreements", res)
		return err
	})
	return res, err
}

// RunAll executes promote, advance, remind and reconcile in that order. The
// first failing step stops the run; the report holds what completed.
func (s *CycleService) RunAll(ctx context.Context, tenantID *string) (CycleReport, error) {
	report := CycleReport{
		RunID:     uuid.NewString(),
		Today:     s.clock.Today().String(),
		StartedAt: s.clock.Now(),
	}

	err := s.withLock(ctx, func() error {
		promote, err := s.overdue.Promote(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("promote overdue: %w", err)
		}
		report.Promote = &promote
		s.publish(ctx, tenantID, "cycle_step", map[string]any{"run_id": report.RunID, "step": "promote_overdue", "result": promote})

		ladder, err := s.ladder.Advance(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("advance ladder: %w", err)
		}
		report.Ladder = &ladder
		s.publish(ctx, tenantID, "cycle_step", map[string]any{"run_id": report.RunID, "step": "advance_ladder", "result": ladder})

		reminders, err := s.reminders.SendDue(ctx, tenantID, promote.Cases)
		if err != nil {
			return fmt.Errorf("send reminders: %w", err)
		}
		report.Reminders = &reminders
		s.publish(ctx, tenantID, "cycle_step", map[string]any{"run_id": report.RunID, "step": "send_reminders", "result": reminders})

		agreements, err := s.agreements.Reconcile(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("reconcile agreements: %w", err)
		}
		report.Agreements = &agreements
		return nil
	})

	report.FinishedAt = s.clock.Now()
	if err != nil {
		report.Error = err.Error()
		if !errors.Is(err, ErrCycleBusy) {
			log.Printf("[CYCLE] run %s failed: %v", report.RunID, err)
		}
	} else {
		log.Printf("[CYCLE] run %s done in %s", report.RunID, report.FinishedAt.Sub(report.StartedAt))
	}
	if errors.Is(err, ErrCycleBusy) {
		return report, err
	}

	s.publish(ctx, tenantID, "cycle_complete", report)
	if s.runs != nil {
		if rerr := s.runs.RecordRun(ctx, tenantLabel(tenantID), report); rerr != nil {
			log.Printf("[CYCLE] record run %s: %v", report.RunID, rerr)
		}
	}

	return report, err
}
