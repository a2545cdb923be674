package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"debtster-collection/internal/clock"
	"debtster-collection/internal/domain"
	"debtster-collection/internal/repository"

	"github.com/google/uuid"
)

type LadderRepository interface {
	FindCasesByStatus(ctx context.Context, statuses []domain.CaseStatus, tenantID *string) ([]domain.CollectionCase, error)
	AdvanceCase(ctx context.Context, id string, from, to domain.CaseStatus, n domain.Notification) error
}

type Transition struct {
	CaseID string            `json:"case_id"`
	From   domain.CaseStatus `json:"from"`
	To     domain.CaseStatus `json:"to"`
}

type LadderResult struct {
	Considered  int          `json:"considered"`
	Advanced    int          `json:"advanced"`
	Skipped     int          `json:"skipped"`
	Failed      int          `json:"failed"`
	Transitions []Transition `json:"transitions"`
}

// LadderService moves cases one rung up the notification ladder
// (AANMANING → SOMMATIE → INGEBREKESTELLING → BLOKKADE).
type LadderService struct {
	repo          LadderRepository
	notifier      Notifier
	clock         clock.Clock
	notifyTimeout time.Duration
}

func NewLadderService(repo LadderRepository, notifier Notifier, clk clock.Clock, notifyTimeout time.Duration) *LadderService {
	return &LadderService{repo: repo, notifier: notifier, clock: clk, notifyTimeout: notifyTimeout}
}

// Advance evaluates every case still on the ladder once. A case whose notice
// cannot be dispatched keeps its status and is retried on the next run.
// Repository failures abort the run.
func (s *LadderService) Advance(ctx context.Context, tenantID *string) (LadderResult, error) {
	res := LadderResult{Transitions: []Transition{}}

	cases, err := s.repo.FindCasesByStatus(ctx, domain.LadderStatuses, tenantID)
	if err != nil {
		return res, fmt.Errorf("load ladder cases: %w", err)
	}

	today := s.clock.Today()
	seen := make(map[string]bool, len(cases))

	for i := range cases {
		c := &cases[i]
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		res.Considered++

		next, ok := s.eligible(c, today)
		if !ok {
			res.Skipped++
			continue
		}

		ntype, err := domain.NotificationTypeFor(next)
		if err != nil {
			log.Printf("[LADDER] case %s: %v", c.ID, err)
			res.Skipped++
			continue
		}

		if err := dispatch(ctx, s.notifier, s.notifyTimeout, c.ID, domain.NoticeForStage(ntype)); err != nil {
			log.Printf("[LADDER] case %s: notify %s failed, will retry next run: %v", c.ID, ntype, err)
			res.Failed++
			continue
		}

		n := domain.StageNotification(uuid.NewString(), c.ID, ntype, s.clock.Now())
		if err := s.repo.AdvanceCase(ctx, c.ID, c.Status, next, n); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				log.Printf("[LADDER] case %s changed during run, not advanced from %s", c.ID, c.Status)
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("advance case %s to %s: %w", c.ID, next, err)
		}

		log.Printf("[LADDER] case %s: %s -> %s", c.ID, c.Status, next)
		res.Transitions = append(res.Transitions, Transition{CaseID: c.ID, From: c.Status, To: next})
		res.Advanced++
	}

	return res, nil
}

func (s *LadderService) eligible(c *domain.CollectionCase, today clock.Date) (domain.CaseStatus, bool) {
	if c.Status.IsTerminal() || c.HasBlokkade() {
		return "", false
	}
	if c.DueDate.Before(today) {
		return "", false
	}
	if _, ok := c.Debtor.ContactEmail(); !ok {
		log.Printf("[LADDER] case %s: debtor %s has no usable email, skipped", c.ID, c.DebtorID)
		return "", false
	}
	if ag, ok := c.ActiveAgreement(); ok {
		log.Printf("[LADDER] case %s: agreement %s (%s) pauses escalation", c.ID, ag.ID, ag.Status)
		return "", false
	}
	return c.Status.Next()
}
