package service

import (
	"context"
	"testing"

	"debtster-collection/internal/domain"
	"debtster-collection/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverdue_PromotesUnpaidPastDue(t *testing.T) {
	store := memory.New()
	store.PutCase(newCase("unpaid", domain.StatusPending, today.AddDays(-1)))
	store.PutCase(newCase("paid", domain.StatusPending, today.AddDays(-1)))
	store.AddPayment(domain.Payment{ID: "p1", CollectionCaseID: "paid", Amount: decimal.NewFromInt(50)})

	res, err := NewOverdueService(store, testClock).Promote(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, int64(1), res.Updated)
	require.Len(t, res.Cases, 1)
	assert.Equal(t, "unpaid", res.Cases[0].ID)
	assert.Equal(t, domain.StatusOverdue, res.Cases[0].Status)

	unpaid, _ := store.Case("unpaid")
	assert.Equal(t, domain.StatusOverdue, unpaid.Status)
	paid, _ := store.Case("paid")
	assert.Equal(t, domain.StatusPending, paid.Status)
}

func TestOverdue_Predicate(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(s *memory.Store)
		promoted bool
	}{
		{
			name:     "due today is not past due",
			setup:    func(s *memory.Store) { s.PutCase(newCase("c1", domain.StatusPending, today)) },
			promoted: false,
		},
		{
			name: "accepted agreement",
			setup: func(s *memory.Store) {
				s.PutCase(newCase("c1", domain.StatusPending, today.AddDays(-5)))
				s.PutAgreement(domain.PaymentAgreement{ID: "a1", CollectionCaseID: "c1", Status: domain.AgreementActive})
			},
			promoted: false,
		},
		{
			name: "paid agreement",
			setup: func(s *memory.Store) {
				s.PutCase(newCase("c1", domain.StatusPending, today.AddDays(-5)))
				s.PutAgreement(domain.PaymentAgreement{ID: "a1", CollectionCaseID: "c1", Status: domain.AgreementPaid})
			},
			promoted: false,
		},
		{
			name: "agreement still pending approval",
			setup: func(s *memory.Store) {
				s.PutCase(newCase("c1", domain.StatusPending, today.AddDays(-5)))
				s.PutAgreement(domain.PaymentAgreement{ID: "a1", CollectionCaseID: "c1", Status: domain.AgreementPending})
			},
			promoted: true,
		},
		{
			name: "deleted payment does not count",
			setup: func(s *memory.Store) {
				s.PutCase(newCase("c1", domain.StatusPending, today.AddDays(-5)))
				deleted := testNow
				s.AddPayment(domain.Payment{ID: "p1", CollectionCaseID: "c1", DeletedAt: &deleted})
			},
			promoted: true,
		},
		{
			name:     "not pending",
			setup:    func(s *memory.Store) { s.PutCase(newCase("c1", domain.StatusAanmaning, today.AddDays(-5))) },
			promoted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			tt.setup(store)

			res, err := NewOverdueService(store, testClock).Promote(context.Background(), nil)
			require.NoError(t, err)

			c, _ := store.Case("c1")
			if tt.promoted {
				assert.Equal(t, 1, res.Matched)
				assert.Equal(t, domain.StatusOverdue, c.Status)
			} else {
				assert.Equal(t, 0, res.Matched)
				assert.NotEqual(t, domain.StatusOverdue, c.Status)
			}
		})
	}
}

func TestOverdue_Idempotent(t *testing.T) {
	store := memory.New()
	store.PutCase(newCase("c1", domain.StatusPending, today.AddDays(-3)))
	svc := NewOverdueService(store, testClock)

	first, err := svc.Promote(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Updated)

	second, err := svc.Promote(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Matched)
	assert.Equal(t, int64(0), second.Updated)
	assert.Empty(t, second.Cases)
}
