package domain

import (
	"fmt"
	"strings"

	"debtster-collection/internal/clock"

	"github.com/shopspring/decimal"
)

type AgreementStatus string

const (
	AgreementPending   AgreementStatus = "PENDING"
	AgreementActive    AgreementStatus = "ACTIVE"
	AgreementOverdue   AgreementStatus = "OVERDUE"
	AgreementPaid      AgreementStatus = "PAID"
	AgreementRejected  AgreementStatus = "REJECTED"
	AgreementCancelled AgreementStatus = "CANCELLED"
)

func ParseAgreementStatus(s string) (AgreementStatus, error) {
	st := AgreementStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case AgreementPending, AgreementActive, AgreementOverdue, AgreementPaid, AgreementRejected, AgreementCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown agreement status %q", s)
}

// IsLive reports whether the agreement still binds the case (anything but rejected or cancelled).
func (s AgreementStatus) IsLive() bool {
	switch s {
	case AgreementRejected, AgreementCancelled:
		return false
	case AgreementPending, AgreementActive, AgreementOverdue, AgreementPaid:
		return true
	}
	return false
}

// IsAccepted reports whether the agreement was approved by the creditor.
func (s AgreementStatus) IsAccepted() bool {
	switch s {
	case AgreementActive, AgreementOverdue, AgreementPaid:
		return true
	case AgreementPending, AgreementRejected, AgreementCancelled:
		return false
	}
	return false
}

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

func ParseInstallmentStatus(s string) (InstallmentStatus, error) {
	st := InstallmentStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case InstallmentPending, InstallmentPaid, InstallmentOverdue:
		return st, nil
	}
	return "", fmt.Errorf("unknown installment status %q", s)
}

type Installment struct {
	ID                 string
	PaymentAgreementID string
	Number             int
	DueDate            clock.Date
	Amount             decimal.Decimal
	Status             InstallmentStatus
	PaymentID          *string
}

// IsOverdueOn reports whether the installment is unpaid and its due date lies before today.
func (i Installment) IsOverdueOn(today clock.Date) bool {
	return i.Status != InstallmentPaid && i.DueDate.Before(today)
}

type PaymentAgreement struct {
	ID                string
	CollectionCaseID  string
	TenantID          string
	TotalAmount       decimal.Decimal
	InstallmentAmount decimal.Decimal
	InstallmentsCount int
	StartDate         clock.Date
	EndDate           clock.Date
	Status            AgreementStatus
	Comment           *string

	Installments []Installment
}

// CheckInstallments verifies that installment numbers are unique and run
// contiguously from 1 to InstallmentsCount.
func (a *PaymentAgreement) CheckInstallments() error {
	if a.InstallmentsCount != len(a.Installments) {
		return fmt.Errorf("agreement %s: expected %d installments, found %d", a.ID, a.InstallmentsCount, len(a.Installments))
	}
	seen := make(map[int]bool, len(a.Installments))
	for _, inst := range a.Installments {
		if inst.Number < 1 || inst.Number > a.InstallmentsCount {
			return fmt.Errorf("agreement %s: installment number %d out of range 1..%d", a.ID, inst.Number, a.InstallmentsCount)
		}
		if seen[inst.Number] {
			return fmt.Errorf("agreement %s: duplicate installment number %d", a.ID, inst.Number)
		}
		seen[inst.Number] = true
	}
	return nil
}

// DeriveStatus computes the agreement status from its installments.
// ok is false when the agreement has no installments.
func (a *PaymentAgreement) DeriveStatus(today clock.Date) (status AgreementStatus, ok bool) {
	if len(a.Installments) == 0 {
		return "", false
	}

	allPaid := true
	hasOverdue := false
	for _, inst := range a.Installments {
		if inst.Status != InstallmentPaid {
			allPaid = false
		}
		if inst.IsOverdueOn(today) {
			hasOverdue = true
		}
	}

	switch {
	case allPaid:
		return AgreementPaid, true
	case hasOverdue:
		return AgreementOverdue, true
	default:
		return AgreementActive, true
	}
}
