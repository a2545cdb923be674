package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"debtster-collection/internal/clock"
	"debtster-collection/internal/domain"
	"debtster-collection/internal/transport/auth"

	"github.com/shopspring/decimal"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var errTenantMismatch = errors.New("tenant_id does not match the token's tenant")

// resolveTenant picks the tenant scope of a request. A token bound to a
// tenant restricts the caller to that tenant; otherwise ?tenant_id= is
// optional and absent means all tenants.
func resolveTenant(r *http.Request) (*string, error) {
	query := r.URL.Query().Get("tenant_id")
	if bound, ok := auth.GetTenantID(r.Context()); ok {
		if query != "" && query != bound {
			return nil, errTenantMismatch
		}
		return &bound, nil
	}
	if query == "" {
		return nil, nil
	}
	return &query, nil
}

func parseLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, &ValidationError{Field: "limit", Message: "limit must be a positive integer"}
	}
	return n, nil
}

func toDate(field, v string, required bool) (clock.Date, error) {
	if v == "" {
		if required {
			return clock.Date{}, &ValidationError{Field: field, Message: field + " is required"}
		}
		return clock.Date{}, nil
	}
	d, err := clock.ParseDate(v)
	if err != nil {
		return clock.Date{}, &ValidationError{Field: field, Message: field + " must be YYYY-MM-DD"}
	}
	return d, nil
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
		return &ValidationError{Message: "invalid JSON"}
	}
	return nil
}

type CaseInterestRequest struct {
	InterestTypeID string `json:"interest_type_id"`
	EndDate        string `json:"end_date"`
}

type caseInterestInput struct {
	InterestTypeID string
	End            clock.Date
}

func ValidateCaseInterestRequest(r *http.Request) (*caseInterestInput, error) {
	var req CaseInterestRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.InterestTypeID == "" {
		return nil, &ValidationError{Field: "interest_type_id", Message: "interest_type_id is required"}
	}
	end, err := toDate("end_date", req.EndDate, false)
	if err != nil {
		return nil, err
	}
	return &caseInterestInput{InterestTypeID: req.InterestTypeID, End: end}, nil
}

type RateRequest struct {
	EffectiveFrom string `json:"effective_from"`
	AnnualRate    string `json:"annual_rate"`
}

type CalculateInterestRequest struct {
	BaseAmount string        `json:"base_amount"`
	StartDate  string        `json:"start_date"`
	EndDate    string        `json:"end_date"`
	Rates      []RateRequest `json:"rates"`
}

type calculateInput struct {
	Base     decimal.Decimal
	Start    clock.Date
	End      clock.Date
	Schedule []domain.InterestRate
}

func ValidateCalculateInterestRequest(r *http.Request) (*calculateInput, error) {
	var req CalculateInterestRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}

	base, err := decimal.NewFromString(req.BaseAmount)
	if err != nil {
		return nil, &ValidationError{Field: "base_amount", Message: "base_amount must be a decimal number"}
	}
	start, err := toDate("start_date", req.StartDate, true)
	if err != nil {
		return nil, err
	}
	end, err := toDate("end_date", req.EndDate, true)
	if err != nil {
		return nil, err
	}
	if len(req.Rates) == 0 {
		return nil, &ValidationError{Field: "rates", Message: "rates is required and must be an array"}
	}

	schedule := make([]domain.InterestRate, 0, len(req.Rates))
	for _, rr := range req.Rates {
		from, err := toDate("rates.effective_from", rr.EffectiveFrom, true)
		if err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(rr.AnnualRate)
		if err != nil {
			return nil, &ValidationError{Field: "rates.annual_rate", Message: "annual_rate must be a decimal number"}
		}
		schedule = append(schedule, domain.InterestRate{EffectiveFrom: from, AnnualRate: rate})
	}

	return &calculateInput{Base: base, Start: start, End: end, Schedule: schedule}, nil
}
