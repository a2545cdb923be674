package service

import (
	"context"
	"fmt"
	"log"

	"debtster-collection/internal/clock"
	"debtster-collection/internal/domain"
)

type OverdueRepository interface {
	FindCasesByStatus(ctx context.Context, statuses []domain.CaseStatus, tenantID *string) ([]domain.CollectionCase, error)
	UpdateCasesStatus(ctx context.Context, ids []string, from, to domain.CaseStatus) (int64, error)
}

type PromoteResult struct {
	Matched int   `json:"matched"`
	Updated int64 `json:"updated"`

	// Cases holds the promoted cases for the reminder step of the same run.
	Cases []domain.CollectionCase `json:"-"`
}

// OverdueService moves pending cases that are past due, unpaid and without
// an accepted agreement into OVERDUE.
type OverdueService struct {
	repo  OverdueRepository
	clock clock.Clock
}

func NewOverdueService(repo OverdueRepository, clk clock.Clock) *OverdueService {
	return &OverdueService{repo: repo, clock: clk}
}

func (s *OverdueService) Promote(ctx context.Context, tenantID *string) (PromoteResult, error) {
	var res PromoteResult

	cases, err := s.repo.FindCasesByStatus(ctx, []domain.CaseStatus{domain.StatusPending}, tenantID)
	if err != nil {
		return res, fmt.Errorf("load pending cases: %w", err)
	}

	today := s.clock.Today()
	var ids []string
	for _, c := range cases {
		if !qualifiesOverdue(&c, today) {
			continue
		}
		ids = append(ids, c.ID)
		res.Cases = append(res.Cases, c)
	}
	res.Matched = len(ids)
	if len(ids) == 0 {
		return res, nil
	}

	n, err := s.repo.UpdateCasesStatus(ctx, ids, domain.StatusPending, domain.StatusOverdue)
	if err != nil {
		return res, fmt.Errorf("promote %d cases: %w", len(ids), err)
	}
	res.Updated = n

	for i := range res.Cases {
		res.Cases[i].Status = domain.StatusOverdue
	}

	log.Printf("[OVERDUE] %d cases matched, %d promoted to %s", res.Matched, n, domain.StatusOverdue)
	return res, nil
}

func qualifiesOverdue(c *domain.CollectionCase, today clock.Date) bool {
	return c.Status == domain.StatusPending &&
		c.DueDate.Before(today) &&
		c.PaymentsCount == 0 &&
		!c.HasAcceptedAgreement()
}
