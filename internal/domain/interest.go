package domain

import (
	"time"

	"debtster-collection/internal/clock"

	"github.com/shopspring/decimal"
)

// InterestRate is one entry of a rate schedule. AnnualRate is in whole
// percent: 12.5 means 12.5% a year.
type InterestRate struct {
	InterestTypeID string
	EffectiveFrom  clock.Date
	AnnualRate     decimal.Decimal
}

type VerdictInterest struct {
	ID               string
	CollectionCaseID *string
	InterestTypeID   string
	BaseAmount       decimal.Decimal
	CalculationStart clock.Date
	CalculationEnd   clock.Date
	TotalInterest    decimal.Decimal
	Details          []VerdictInterestDetail
	CreatedAt        time.Time
}

type VerdictInterestDetail struct {
	Period           string
	PeriodStart      clock.Date
	PeriodEnd        clock.Date
	Days             int
	AnnualRate       decimal.Decimal
	ProportionalRate decimal.Decimal
	BaseAmount       decimal.Decimal
	Interest         decimal.Decimal
	Total            decimal.Decimal
}
