package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"debtster-collection/internal/domain"
)

type CaseRepository struct {
	db *sql.DB
}

func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

const caseSelect = `
	SELECT
		c.id,
		c.tenant_id,
		c.debtor_id,
		COALESCE(dbt.name, ''),
		dbt.email,
		c.issue_date,
		c.due_date,
		c.amount_original,
		c.fee_rate,
		c.fee_amount,
		c.abb_rate,
		c.abb_amount,
		c.total_fined,
		c.total_due,
		c.total_to_receive,
		c.total_paid,
		c.balance,
		c.status,
		c.reminder1_due_date,
		c.reminder1_sent_at,
		c.reminder2_due_date,
		c.reminder2_sent_at,
		(
			SELECT COUNT(*)
			FROM payments p
			WHERE p.collection_case_id = c.id
			  AND p.deleted_at IS NULL
		) AS payments_count
	FROM collection_cases c
	LEFT JOIN debtors dbt ON dbt.id = c.debtor_id
`

// FindCasesByStatus loads cases in any of statuses, optionally for one tenant,
// with their debtor, notifications and agreement references attached.
func (r *CaseRepository) FindCasesByStatus(ctx context.Context, statuses []domain.CaseStatus, tenantID *string) ([]domain.CollectionCase, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}

	where := []string{"c.status = ANY($1)"}
	args := []any{names}
	i := 2

	if tenantID != nil && *tenantID != "" {
		where = append(where, fmt.Sprintf("c.tenant_id = $%d", i))
		args = append(args, *tenantID)
		i++
	}

	query := caseSelect + " WHERE " + strings.Join(where, " AND ") + " ORDER BY c.due_date, c.id"

	cases, err := r.queryCases(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err := r.attach(ctx, cases); err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *CaseRepository) GetCase(ctx context.Context, id string) (*domain.CollectionCase, error) {
	cases, err := r.queryCases(ctx, caseSelect+" WHERE c.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, ErrNotFound
	}
	if err := r.attach(ctx, cases); err != nil {
		return nil, err
	}
	return &cases[0], nil
}

func (r *CaseRepository) queryCases(ctx context.Context, query string, args ...any) ([]domain.CollectionCase, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var result []domain.CollectionCase
	for rows.Next() {
		var (
			c      domain.CollectionCase
			status string
		)
		if err := rows.Scan(
			&c.ID,
			&c.TenantID,
			&c.DebtorID,
			&c.Debtor.Name,
			&c.Debtor.Email,
			&c.IssueDate,
			&c.DueDate,
			&c.AmountOriginal,
			&c.FeeRate,
			&c.FeeAmount,
			&c.AbbRate,
			&c.AbbAmount,
			&c.TotalFined,
			&c.TotalDue,
			&c.TotalToReceive,
			&c.TotalPaid,
			&c.Balance,
			&status,
			&c.Reminder1DueDate,
			&c.Reminder1SentAt,
			&c.Reminder2DueDate,
			&c.Reminder2SentAt,
			&c.PaymentsCount,
		); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}

		c.Debtor.ID = c.DebtorID
		c.Status, err = domain.ParseCaseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.ID, err)
		}

		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *CaseRepository) attach(ctx context.Context, cases []domain.CollectionCase) error {
	if len(cases) == 0 {
		return nil
	}

	ids := make([]string, len(cases))
	index := make(map[string]int, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
		index[c.ID] = i
	}

	nrows, err := r.db.QueryContext(ctx, `
		SELECT id, collection_case_id, type, title, message, sent_at, created_at
		FROM notifications
		WHERE collection_case_id = ANY($1)
		ORDER BY created_at
	`, ids)
	if err != nil {
		return fmt.Errorf("query notifications: %w", err)
	}
	defer nrows.Close()

	for nrows.Next() {
		var (
			n     domain.Notification
			ntype string
		)
		if err := nrows.Scan(&n.ID, &n.CollectionCaseID, &ntype, &n.Title, &n.Message, &n.SentAt, &n.CreatedAt); err != nil {
			return fmt.Errorf("scan notification: %w", err)
		}
		n.Type = domain.NotificationType(ntype)
		i := index[n.CollectionCaseID]
		cases[i].Notifications = append(cases[i].Notifications, n)
	}
	if err := nrows.Err(); err != nil {
		return err
	}

	arows, err := r.db.QueryContext(ctx, `
		SELECT id, collection_case_id, status
		FROM payment_agreements
		WHERE collection_case_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("query agreements: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		var ref domain.AgreementRef
		var caseID, status string
		if err := arows.Scan(&ref.ID, &caseID, &status); err != nil {
			return fmt.Errorf("scan agreement ref: %w", err)
		}
		if ref.Status, err = domain.ParseAgreementStatus(status); err != nil {
			return fmt.Errorf("agreement %s: %w", ref.ID, err)
		}
		i := index[caseID]
		cases[i].Agreements = append(cases[i].Agreements, ref)
	}
	return arows.Err()
}

// UpdateCasesStatus moves every listed case still in from to to and returns
// the number of rows changed.
func (r *CaseRepository) UpdateCasesStatus(ctx context.Context, ids []string, from, to domain.CaseStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE collection_cases
		SET status = $1, updated_at = now()
		WHERE id = ANY($2) AND status = $3
	`, string(to), ids, string(from))
	if err != nil {
		return 0, fmt.Errorf("batch update case status: %w", err)
	}
	return res.RowsAffected()
}

// AdvanceCase records the stage notification and moves the case from one
// ladder status to the next in a single transaction.
func (r *CaseRepository) AdvanceCase(ctx context.Context, id string, from, to domain.CaseStatus, n domain.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin advance %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE collection_cases
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("advance case %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleState
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (id, collection_case_id, type, title, message, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.CollectionCaseID, string(n.Type), n.Title, n.Message, n.SentAt, n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification for %s: %w", id, err)
	}

	return tx.Commit()
}

// MarkReminderSent stamps the reminder's sent-at column unless it is already
// set. It reports whether the stamp was written.
func (r *CaseRepository) MarkReminderSent(ctx context.Context, id string, slot domain.ReminderSlot, at time.Time) (bool, error) {
	var column string
	switch slot {
	case domain.Reminder1:
		column = "reminder1_sent_at"
	case domain.Reminder2:
		column = "reminder2_sent_at"
	default:
		return false, fmt.Errorf("unknown reminder slot %d", slot)
	}

	query := fmt.Sprintf(`UPDATE collection_cases SET %[1]s = $1, updated_at = now() WHERE id = $2 AND %[1]s IS NULL`, column)
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("stamp %s for %s: %w", slot, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveCaseTotals persists the derived money fields of c.
func (r *CaseRepository) SaveCaseTotals(ctx context.Context, c *domain.CollectionCase) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE collection_cases
		SET fee_amount = $1, abb_amount = $2, total_fined = $3, total_due = $4,
		    total_to_receive = $5, balance = $6, updated_at = now()
		WHERE id = $7
	`, c.FeeAmount, c.AbbAmount, c.TotalFined, c.TotalDue, c.TotalToReceive, c.Balance, c.ID)
	if err != nil {
		return fmt.Errorf("save totals for %s: %w", c.ID, err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
