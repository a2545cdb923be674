package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a registered payment towards a collection case. The engine only
// needs to know whether any exist; amounts are kept for totals.
type Payment struct {
	ID               string
	CollectionCaseID string
	Amount           decimal.Decimal
	Confirmed        bool
	PaymentDate      *time.Time

	CreatedAt *time.Time
	DeletedAt *time.Time
}
