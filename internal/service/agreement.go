package service

import (
	"context"
	"fmt"
	"log"

	"debtster-collection/internal/clock"
	"debtster-collection/internal/domain"
)

type AgreementRepository interface {
	FindAgreementsByStatus(ctx context.Context, statuses []domain.AgreementStatus) ([]domain.PaymentAgreement, error)
	UpdateAgreementStatus(ctx context.Context, id string, status domain.AgreementStatus) error
}

type ReconcileResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// AgreementService keeps the status of running payment agreements in line
// with their installments.
type AgreementService struct {
	repo  AgreementRepository
	clock clock.Clock
}

func NewAgreementService(repo AgreementRepository, clk clock.Clock) *AgreementService {
	return &AgreementService{repo: repo, clock: clk}
}

// Reconcile re-derives ACTIVE/OVERDUE/PAID for every running agreement and
// writes only the ones that changed.
func (s *AgreementService) Reconcile(ctx context.Context, tenantID *string) (ReconcileResult, error) {
	var res ReconcileResult

	agreements, err := s.repo.FindAgreementsByStatus(ctx, []domain.AgreementStatus{domain.AgreementActive, domain.AgreementOverdue})
	if err != nil {
		return res, fmt.Errorf("load agreements: %w", err)
	}

	today := s.clock.Today()
	for i := range agreements {
		a := &agreements[i]
		if tenantID != nil && *tenantID != "" && a.TenantID != *tenantID {
			continue
		}
		res.Checked++

		if len(a.Installments) == 0 {
			res.Skipped++
			continue
		}
		if err := a.CheckInstallments(); err != nil {
			log.Printf("[AGREEMENT] skipped: %v", err)
			res.Skipped++
			continue
		}

		next, ok := a.DeriveStatus(today)
		if !ok || next == a.Status {
			continue
		}

		if err := s.repo.UpdateAgreementStatus(ctx, a.ID, next); err != nil {
			return res, fmt.Errorf("update agreement %s: %w", a.ID, err)
		}
		log.Printf("[AGREEMENT] %s: %s -> %s", a.ID, a.Status, next)
		res.Updated++
	}

	return res, nil
}
