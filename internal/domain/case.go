package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"debtster-collection/internal/clock"

	"github.com/shopspring/decimal"
)

type CaseStatus string

const (
	StatusAanmaning         CaseStatus = "AANMANING"
	StatusSommatie          CaseStatus = "SOMMATIE"
	StatusIngebrekestelling CaseStatus = "INGEBREKESTELLING"
	StatusBlokkade          CaseStatus = "BLOKKADE"
	StatusOverdue           CaseStatus = "OVERDUE"
	StatusPending           CaseStatus = "PENDING"
	StatusInProgress        CaseStatus = "IN_PROGRESS"
	StatusPaid              CaseStatus = "PAID"
	StatusCancelled         CaseStatus = "CANCELLED"
)

// LadderStatuses are the statuses from which a case can still climb a rung.
var LadderStatuses = []CaseStatus{StatusAanmaning, StatusSommatie, StatusIngebrekestelling}

func ParseCaseStatus(s string) (CaseStatus, error) {
	st := CaseStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusAanmaning, StatusSommatie, StatusIngebrekestelling, StatusBlokkade,
		StatusOverdue, StatusPending, StatusInProgress, StatusPaid, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown case status %q", s)
}

// Next returns the ladder rung following s. ok is false for statuses that
// are not on the ladder and for BLOKKADE, the last rung.
func (s CaseStatus) Next() (next CaseStatus, ok bool) {
	switch s {
	case StatusAanmaning:
		return StatusSommatie, true
	case StatusSommatie:
		return StatusIngebrekestelling, true
	case StatusIngebrekestelling:
		return StatusBlokkade, true
	case StatusBlokkade, StatusOverdue, StatusPending, StatusInProgress, StatusPaid, StatusCancelled:
		return "", false
	}
	return "", false
}

// IsTerminal reports whether no job may change a case in s any more.
func (s CaseStatus) IsTerminal() bool {
	switch s {
	case StatusPaid, StatusCancelled, StatusBlokkade:
		return true
	}
	return false
}

type Debtor struct {
	ID    string
	Name  string
	Email *string
}

// ContactEmail returns the debtor's address when it is present and parses as
// a single mailbox.
func (d Debtor) ContactEmail() (string, bool) {
	if d.Email == nil {
		return "", false
	}
	e := strings.TrimSpace(*d.Email)
	if e == "" {
		return "", false
	}
	if _, err := mail.ParseAddress(e); err != nil {
		return "", false
	}
	return e, true
}

// AgreementRef is the slice of an agreement a case carries for predicates.
type AgreementRef struct {
	ID     string
	Status AgreementStatus
}

type CollectionCase struct {
	ID       string
	TenantID string
	DebtorID string
	Debtor   Debtor

	IssueDate clock.Date
	DueDate   clock.Date

	AmountOriginal decimal.Decimal
	FeeRate        decimal.Decimal
	FeeAmount      decimal.Decimal
	AbbRate        decimal.Decimal
	AbbAmount      decimal.Decimal
	TotalFined     decimal.Decimal
	TotalDue       decimal.Decimal
	TotalToReceive decimal.Decimal
	TotalPaid      decimal.Decimal
	Balance        decimal.Decimal

	Status CaseStatus

	Reminder1DueDate *clock.Date
	Reminder1SentAt  *time.Time
	Reminder2DueDate *clock.Date
	Reminder2SentAt  *time.Time

	Notifications []Notification
	PaymentsCount int
	Agreements    []AgreementRef
}

func (c *CollectionCase) HasBlokkade() bool {
	for _, n := range c.Notifications {
		if n.Type == NotificationBlokkade {
			return true
		}
	}
	return false
}

// ActiveAgreement returns the first agreement that is neither rejected nor cancelled.
func (c *CollectionCase) ActiveAgreement() (AgreementRef, bool) {
	for _, a := range c.Agreements {
		if a.Status.IsLive() {
			return a, true
		}
	}
	return AgreementRef{}, false
}

func (c *CollectionCase) HasAcceptedAgreement() bool {
	for _, a := range c.Agreements {
		if a.Status.IsAccepted() {
			return true
		}
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Recalculate derives the fee, ABB and total fields from AmountOriginal,
// the rates, TotalPaid and the accrued interest.
func (c *CollectionCase) Recalculate(interest decimal.Decimal) {
	c.FeeAmount = c.AmountOriginal.Mul(c.FeeRate).Div(hundred).Round(2)
	c.AbbAmount = c.FeeAmount.Mul(c.AbbRate).Div(hundred).Round(2)
	c.TotalFined = c.FeeAmount.Add(c.AbbAmount)
	c.TotalDue = c.AmountOriginal.Add(c.TotalFined)
	c.TotalToReceive = c.TotalDue.Add(interest)

	balance := c.TotalToReceive.Sub(c.TotalPaid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	c.Balance = balance
}
