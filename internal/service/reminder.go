package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"debtster-collection/internal/clock"
	"debtster-collection/internal/domain"
)

type ReminderRepository interface {
	FindCasesByStatus(ctx context.Context, statuses []domain.CaseStatus, tenantID *string) ([]domain.CollectionCase, error)
	MarkReminderSent(ctx context.Context, id string, slot domain.ReminderSlot, at time.Time) (bool, error)
}

type ReminderResult struct {
	Considered int `json:"considered"`
	Sent       int `json:"sent"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// ReminderService fires the two dated reminders of overdue cases, each at
// most once.
type ReminderService struct {
	repo          ReminderRepository
	notifier      Notifier
	clock         clock.Clock
	notifyTimeout time.Duration
}

func NewReminderService(repo ReminderRepository, notifier Notifier, clk clock.Clock, notifyTimeout time.Duration) *ReminderService {
	return &ReminderService{repo: repo, notifier: notifier, clock: clk, notifyTimeout: notifyTimeout}
}

// SendDue sends every reminder due today. promoted are the cases the overdue
// step of the same run just moved; freshly loaded rows take precedence.
func (s *ReminderService) SendDue(ctx context.Context, tenantID *string, promoted []domain.CollectionCase) (ReminderResult, error) {
	var res ReminderResult

	cases, err := s.repo.FindCasesByStatus(ctx, []domain.CaseStatus{domain.StatusOverdue}, tenantID)
	if err != nil {
		return res, fmt.Errorf("load overdue cases: %w", err)
	}

	seen := make(map[string]bool, len(cases)+len(promoted))
	for _, c := range cases {
		seen[c.ID] = true
	}
	for _, c := range promoted {
		if !seen[c.ID] && c.Status == domain.StatusOverdue {
			cases = append(cases, c)
			seen[c.ID] = true
		}
	}

	today := s.clock.Today()
	for i := range cases {
		c := &cases[i]
		res.Considered++

		if c.HasBlokkade() {
			res.Skipped++
			continue
		}
		if _, ok := c.Debtor.ContactEmail(); !ok {
			res.Skipped++
			continue
		}
		if c.Reminder1DueDate == nil || c.Reminder2DueDate == nil {
			log.Printf("[REMINDER] case %s: reminder dates incomplete, skipped", c.ID)
			res.Skipped++
			continue
		}

		for _, slot := range []domain.ReminderSlot{domain.Reminder1, domain.Reminder2} {
			due, sentAt := reminderFields(c, slot)
			if sentAt != nil || !due.Equal(today) {
				continue
			}

			if err := dispatch(ctx, s.notifier, s.notifyTimeout, c.ID, slot.Notice()); err != nil {
				log.Printf("[REMINDER] case %s: %s failed, will retry: %v", c.ID, slot, err)
				res.Failed++
				continue
			}

			stamped, err := s.repo.MarkReminderSent(ctx, c.ID, slot, s.clock.Now())
			if err != nil {
				return res, fmt.Errorf("stamp %s for case %s: %w", slot, c.ID, err)
			}
			if !stamped {
				log.Printf("[REMINDER] case %s: %s was already stamped by another run", c.ID, slot)
			}
			res.Sent++
		}
	}

	if res.Sent > 0 || res.Failed > 0 {
		log.Printf("[REMINDER] %d sent, %d failed, %d skipped", res.Sent, res.Failed, res.Skipped)
	}
	return res, nil
}

func reminderFields(c *domain.CollectionCase, slot domain.ReminderSlot) (clock.Date, *time.Time) {
	if slot == domain.Reminder2 {
		return *c.Reminder2DueDate, c.Reminder2SentAt
	}
	return *c.Reminder1DueDate, c.Reminder1SentAt
}
