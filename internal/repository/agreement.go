package repository

import (
	"context"
	"database/sql"
	"fmt"

	"debtster-collection/internal/domain"
)

type AgreementRepository struct {
	db *sql.DB
}

func NewAgreementRepository(db *sql.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

// FindAgreementsByStatus loads agreements in any of statuses with their
// installments ordered by number.
func (r *AgreementRepository) FindAgreementsByStatus(ctx context.Context, statuses []domain.AgreementStatus) ([]domain.PaymentAgreement, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			a.id,
			a.collection_case_id,
			a.tenant_id,
			a.total_amount,
			a.installment_amount,
			a.installments_count,
			a.start_date,
			a.end_date,
			a.status,
			a.comment
		FROM payment_agreements a
		WHERE a.status = ANY($1)
		ORDER BY a.id
	`, names)
	if err != nil {
		return nil, fmt.Errorf("query agreements: %w", err)
	}
	defer rows.Close()

	var result []domain.PaymentAgreement
	index := map[string]int{}

	for rows.Next() {
		var (
			a      domain.PaymentAgreement
			status string
		)
		if err := rows.Scan(
			&a.ID,
			&a.CollectionCaseID,
			&a.TenantID,
			&a.TotalAmount,
			&a.InstallmentAmount,
			&a.InstallmentsCount,
			&a.StartDate,
			&a.EndDate,
			&status,
			&a.Comment,
		); err != nil {
			return nil, fmt.Errorf("scan agreement: %w", err)
		}
		if a.Status, err = domain.ParseAgreementStatus(status); err != nil {
			return nil, fmt.Errorf("agreement %s: %w", a.ID, err)
		}
		index[a.ID] = len(result)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	ids := make([]string, len(result))
	for i, a := range result {
		ids[i] = a.ID
	}

	irows, err := r.db.QueryContext(ctx, `
		SELECT id, payment_agreement_id, number, due_date, amount, status, payment_id
		FROM installments
		WHERE payment_agreement_id = ANY($1)
		ORDER BY payment_agreement_id, number
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query installments: %w", err)
	}
	defer irows.Close()

	for irows.Next() {
		var (
			inst   domain.Installment
			status string
		)
		if err := irows.Scan(&inst.ID, &inst.PaymentAgreementID, &inst.Number, &inst.DueDate, &inst.Amount, &status, &inst.PaymentID); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		if inst.Status, err = domain.ParseInstallmentStatus(status); err != nil {
			return nil, fmt.Errorf("installment %s: %w", inst.ID, err)
		}
		i := index[inst.PaymentAgreementID]
		result[i].Installments = append(result[i].Installments, inst)
	}
	if err := irows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *AgreementRepository) UpdateAgreementStatus(ctx context.Context, id string, status domain.AgreementStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_agreements SET status = $1, updated_at = now() WHERE id = $2
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("update agreement %s status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
