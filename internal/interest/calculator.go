// Package interest computes verdict interest over a rate schedule.
//
// The schedule's effective intervals are intersected with the requested
// inclusive date range; each overlap becomes one detail line. Rates are whole
// percent per year and the day basis is 365 regardless of leap years.
package interest

import (
	"errors"
	"fmt"

	"debtster-collection/internal/clock"
	"debtster-collection/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeBase     = errors.New("interest: base amount must not be negative")
	ErrEmptySchedule    = errors.New("interest: rate schedule is empty")
	ErrUnsortedSchedule = errors.New("interest: rate schedule must be strictly ascending by effective date")
)

var (
	daysInYear = decimal.NewFromInt(365)
	percentDay = decimal.NewFromInt(365 * 100)
)

const labelLayout = "02-01-2006"

// Calculate returns the period-segmented interest on base for [start, end].
// When start is after end the result has no details and zero interest.
// The first rate of the schedule also applies to days before its effective date.
func Calculate(base decimal.Decimal, schedule []domain.InterestRate, start, end clock.Date) (domain.VerdictInterest, error) {
	if base.IsNegative() {
		return domain.VerdictInterest{}, ErrNegativeBase
	}
	if len(schedule) == 0 {
		return domain.VerdictInterest{}, ErrEmptySchedule
	}
	for i := 1; i < len(schedule); i++ {
		if !schedule[i-1].EffectiveFrom.Before(schedule[i].EffectiveFrom) {
			return domain.VerdictInterest{}, fmt.Errorf("%w: %s is not after %s",
				ErrUnsortedSchedule, schedule[i].EffectiveFrom, schedule[i-1].EffectiveFrom)
		}
	}

	result := domain.VerdictInterest{
		InterestTypeID:   schedule[0].InterestTypeID,
		BaseAmount:       base,
		CalculationStart: start,
		CalculationEnd:   end,
		TotalInterest:    decimal.Zero,
	}
	if start.After(end) {
		return result, nil
	}

	last := len(schedule) - 1
	for i, rate := range schedule {
		segStart := start
		if i > 0 && rate.EffectiveFrom.After(segStart) {
			segStart = rate.EffectiveFrom
		}
		segEnd := end
		if i < last {
			if boundary := schedule[i+1].EffectiveFrom.AddDays(-1); boundary.Before(segEnd) {
				segEnd = boundary
			}
		}
		if segStart.After(segEnd) {
			continue
		}

		detail := segment(base, rate.AnnualRate, segStart, segEnd)
		result.Details = append(result.Details, detail)
		result.TotalInterest = result.TotalInterest.Add(detail.Interest)
	}

	return result, nil
}

func segment(base, annual decimal.Decimal, from, to clock.Date) domain.VerdictInterestDetail {
	days := from.DaysUntil(to) + 1
	d := decimal.NewFromInt(int64(days))

	interest := base.Mul(annual).Mul(d).Div(percentDay).Round(2)

	return domain.VerdictInterestDetail{
		Period:           fmt.Sprintf("%s t/m %s", from.Time().Format(labelLayout), to.Time().Format(labelLayout)),
		PeriodStart:      from,
		PeriodEnd:        to,
		Days:             days,
		AnnualRate:       annual,
		ProportionalRate: annual.Mul(d).Div(daysInYear).Round(6),
		BaseAmount:       base,
		Interest:         interest,
		Total:            base.Add(interest),
	}
}
