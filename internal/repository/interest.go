package repository

import (
	"context"
	"database/sql"
	"fmt"

	"debtster-collection/internal/domain"
)

type InterestRepository struct {
	db *sql.DB
}

func NewInterestRepository(db *sql.DB) *InterestRepository {
	return &InterestRepository{db: db}
}

// ListRates returns the rate schedule of an interest type, oldest first.
func (r *InterestRepository) ListRates(ctx context.Context, interestTypeID string) ([]domain.InterestRate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT interest_type_id, effective_from, annual_rate
		FROM interest_rates
		WHERE interest_type_id = $1
		ORDER BY effective_from
	`, interestTypeID)
	if err != nil {
		return nil, fmt.Errorf("query interest rates: %w", err)
	}
	defer rows.Close()

	var out []domain.InterestRate
	for rows.Next() {
		var ir domain.InterestRate
		if err := rows.Scan(&ir.InterestTypeID, &ir.EffectiveFrom, &ir.AnnualRate); err != nil {
			return nil, fmt.Errorf("scan interest rate: %w", err)
		}
		out = append(out, ir)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT true FROM interest_types WHERE id = $1`, interestTypeID).Scan(&exists)
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SaveVerdictInterest stores a calculation and its detail lines atomically.
func (r *InterestRepository) SaveVerdictInterest(ctx context.Context, vi *domain.VerdictInterest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin verdict interest: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO verdict_interests
			(id, collection_case_id, interest_type_id, base_amount, calculation_start, calculation_end, total_interest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, vi.ID, vi.CollectionCaseID, vi.InterestTypeID, vi.BaseAmount, vi.CalculationStart, vi.CalculationEnd, vi.TotalInterest, vi.CreatedAt); err != nil {
		return fmt.Errorf("insert verdict interest: %w", err)
	}

	for i, d := range vi.Details {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO verdict_interest_details
				(verdict_interest_id, position, period, period_start, period_end, days,
				 annual_rate, proportional_rate, base_amount, interest, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, vi.ID, i+1, d.Period, d.PeriodStart, d.PeriodEnd, d.Days,
			d.AnnualRate, d.ProportionalRate, d.BaseAmount, d.Interest, d.Total); err != nil {
			return fmt.Errorf("insert verdict interest detail %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}
