package domain

import (
	"testing"
	"time"

	"debtster-collection/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agreementWith(statuses []InstallmentStatus, due []clock.Date) PaymentAgreement {
	a := PaymentAgreement{ID: "agr-1", InstallmentsCount: len(statuses), Status: AgreementActive}
	for i, st := range statuses {
		a.Installments = append(a.Installments, Installment{
			ID:      "inst",
			Number:  i + 1,
			DueDate: due[i],
			Status:  st,
		})
	}
	return a
}

func TestPaymentAgreement_DeriveStatus(t *testing.T) {
	today := clock.NewDate(2024, time.June, 15)
	past := today.AddDays(-10)
	future := today.AddDays(10)

	a := agreementWith([]InstallmentStatus{InstallmentPaid, InstallmentPaid}, []clock.Date{past, future})
	st, ok := a.DeriveStatus(today)
	require.True(t, ok)
	assert.Equal(t, AgreementPaid, st)

	a = agreementWith([]InstallmentStatus{InstallmentPaid, InstallmentPending}, []clock.Date{past, past})
	st, _ = a.DeriveStatus(today)
	assert.Equal(t, AgreementOverdue, st)

	a = agreementWith([]InstallmentStatus{InstallmentPending, InstallmentPending}, []clock.Date{future, future})
	st, _ = a.DeriveStatus(today)
	assert.Equal(t, AgreementActive, st)

	// due today is not overdue yet
	a = agreementWith([]InstallmentStatus{InstallmentPending}, []clock.Date{today})
	st, _ = a.DeriveStatus(today)
	assert.Equal(t, AgreementActive, st)

	empty := PaymentAgreement{ID: "agr-2"}
	_, ok = empty.DeriveStatus(today)
	assert.False(t, ok)
}

func TestPaymentAgreement_CheckInstallments(t *testing.T) {
	d := clock.NewDate(2024, time.January, 1)
	a := agreementWith([]InstallmentStatus{InstallmentPending, InstallmentPending}, []clock.Date{d, d})
	require.NoError(t, a.CheckInstallments())

	a.Installments[1].Number = 1
	assert.Error(t, a.CheckInstallments())

	a.Installments[1].Number = 3
	assert.Error(t, a.CheckInstallments())

	a.Installments = a.Installments[:1]
	assert.Error(t, a.CheckInstallments())
}

func TestAgreementStatus_Classification(t *testing.T) {
	assert.True(t, AgreementPending.IsLive())
	assert.False(t, AgreementPending.IsAccepted())
	assert.True(t, AgreementPaid.IsAccepted())
	assert.False(t, AgreementRejected.IsLive())
	assert.False(t, AgreementCancelled.IsLive())

	_, err := ParseAgreementStatus("approved")
	assert.Error(t, err)
}
