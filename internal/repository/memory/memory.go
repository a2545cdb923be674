// Package memory is an in-memory implementation of the collection
// repositories, used by the service and REST tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"debtster-collection/internal/domain"
	"debtster-collection/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	cases         map[string]domain.CollectionCase
	notifications map[string][]domain.Notification
	payments      map[string][]domain.Payment
	agreements    map[string]domain.PaymentAgreement
	rates         map[string][]domain.InterestRate
	verdicts      []domain.VerdictInterest

	// Err, when set, is returned by every repository call.
	Err error
}

func New() *Store {
	return &Store{
		cases:         make(map[string]domain.CollectionCase),
		notifications: make(map[string][]domain.Notification),
		payments:      make(map[string][]domain.Payment),
		agreements:    make(map[string]domain.PaymentAgreement),
		rates:         make(map[string][]domain.InterestRate),
	}
}

// =============================================================================
// SEEDING
// =============================================================================

func (s *Store) PutCase(c domain.CollectionCase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Notifications, c.Agreements, c.PaymentsCount = nil, nil, 0
	s.cases[c.ID] = c
}

func (s *Store) AddNotification(n domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.CollectionCaseID] = append(s.notifications[n.CollectionCaseID], n)
}

func (s *Store) AddPayment(p domain.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.CollectionCaseID] = append(s.payments[p.CollectionCaseID], p)
}

func (s *Store) PutAgreement(a domain.PaymentAgreement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Installments = append([]domain.Installment(nil), a.Installments...)
	s.agreements[a.ID] = a
}

func (s *Store) PutRates(interestTypeID string, rates []domain.InterestRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[interestTypeID] = append([]domain.InterestRate(nil), rates...)
}

// =============================================================================
// INSPECTION
// =============================================================================

func (s *Store) Case(id string) (domain.CollectionCase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return c, false
	}
	return s.hydrateLocked(c), true
}

func (s *Store) Notifications(caseID string) []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Notification(nil), s.notifications[caseID]...)
}

func (s *Store) Agreement(id string) (domain.PaymentAgreement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agreements[id]
	return a, ok
}

func (s *Store) VerdictInterests() []domain.VerdictInterest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.VerdictInterest(nil), s.verdicts...)
}

// =============================================================================
// CASES
// =============================================================================

func (s *Store) hydrateLocked(c domain.CollectionCase) domain.CollectionCase {
	c.Notifications = append([]domain.Notification(nil), s.notifications[c.ID]...)

	count := 0
	for _, p := range s.payments[c.ID] {
		if p.DeletedAt == nil {
			count++
		}
	}
	c.PaymentsCount = count

	c.Agreements = nil
	for _, a := range s.agreements {
		if a.CollectionCaseID == c.ID {
			c.Agreements = append(c.Agreements, domain.AgreementRef{ID: a.ID, Status: a.Status})
		}
	}
	sort.Slice(c.Agreements, func(i, j int) bool { return c.Agreements[i].ID < c.Agreements[j].ID })

	if c.Reminder1SentAt != nil {
		at := *c.Reminder1SentAt
		c.Reminder1SentAt = &at
	}
	if c.Reminder2SentAt != nil {
		at := *c.Reminder2SentAt
		c.Reminder2SentAt = &at
	}
	return c
}

func (s *Store) FindCasesByStatus(_ context.Context, statuses []domain.CaseStatus, tenantID *string) ([]domain.CollectionCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	want := make(map[domain.CaseStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}

	var out []domain.CollectionCase
	for _, c := range s.cases {
		if !want[c.Status] {
			continue
		}
		if tenantID != nil && *tenantID != "" && c.TenantID != *tenantID {
			continue
		}
		out = append(out, s.hydrateLocked(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetCase(_ context.Context, id string) (*domain.CollectionCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.cases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	h := s.hydrateLocked(c)
	return &h, nil
}

func (s *Store) UpdateCasesStatus(_ context.Context, ids []string, from, to domain.CaseStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, id := range ids {
		c, ok := s.cases[id]
		if !ok || c.Status != from {
			continue
		}
		c.Status = to
		s.cases[id] = c
		n++
	}
	return n, nil
}

func (s *Store) AdvanceCase(_ context.Context, id string, from, to domain.CaseStatus, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	c, ok := s.cases[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.Status != from {
		return repository.ErrStaleState
	}
	if n.Type == domain.NotificationBlokkade {
		for _, existing := range s.notifications[id] {
			if existing.Type == domain.NotificationBlokkade {
				return repository.ErrStaleState
			}
		}
	}
	c.Status = to
	s.cases[id] = c
	s.notifications[id] = append(s.notifications[id], n)
	return nil
}

func (s *Store) MarkReminderSent(_ context.Context, id string, slot domain.ReminderSlot, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	c, ok := s.cases[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	stamp := at
	switch slot {
	case domain.Reminder1:
		if c.Reminder1SentAt != nil {
			return false, nil
		}
		c.Reminder1SentAt = &stamp
	case domain.Reminder2:
		if c.Reminder2SentAt != nil {
			return false, nil
		}
		c.Reminder2SentAt = &stamp
	}
	s.cases[id] = c
	return true, nil
}

func (s *Store) SaveCaseTotals(_ context.Context, c *domain.CollectionCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	stored, ok := s.cases[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.FeeAmount = c.FeeAmount
	stored.AbbAmount = c.AbbAmount
	stored.TotalFined = c.TotalFined
	stored.TotalDue = c.TotalDue
	stored.TotalToReceive = c.TotalToReceive
	stored.Balance = c.Balance
	s.cases[c.ID] = stored
	return nil
}

// =============================================================================
// AGREEMENTS
// =============================================================================

func (s *Store) FindAgreementsByStatus(_ context.Context, statuses []domain.AgreementStatus) ([]domain.PaymentAgreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	want := make(map[domain.AgreementStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}

	var out []domain.PaymentAgreement
	for _, a := range s.agreements {
		if !want[a.Status] {
			continue
		}
		a.Installments = append([]domain.Installment(nil), a.Installments...)
		sort.Slice(a.Installments, func(i, j int) bool { return a.Installments[i].Number < a.Installments[j].Number })
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateAgreementStatus(_ context.Context, id string, status domain.AgreementStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	a, ok := s.agreements[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	s.agreements[id] = a
	return nil
}

// =============================================================================
// INTEREST
// =============================================================================

func (s *Store) ListRates(_ context.Context, interestTypeID string) ([]domain.InterestRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	rates, ok := s.rates[interestTypeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]domain.InterestRate(nil), rates...), nil
}

func (s *Store) SaveVerdictInterest(_ context.Context, vi *domain.VerdictInterest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cp := *vi
	cp.Details = append([]domain.VerdictInterestDetail(nil), vi.Details...)
	s.verdicts = append(s.verdicts, cp)
	return nil
}
