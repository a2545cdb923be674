package rest

import (
	"debtster-collection/internal/domain"
	"debtster-collection/internal/service"

	"github.com/shopspring/decimal"
)

type InterestDetailResponse struct {
	Period           string          `json:"period"`
	PeriodStart      string          `json:"period_start"`
	PeriodEnd        string          `json:"period_end"`
	Days             int             `json:"days"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	ProportionalRate decimal.Decimal `json:"proportional_rate"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	Interest         decimal.Decimal `json:"interest"`
	Total            decimal.Decimal `json:"total"`
}

type InterestResponse struct {
	ID               string                   `json:"id,omitempty"`
	InterestTypeID   string                   `json:"interest_type_id,omitempty"`
	BaseAmount       decimal.Decimal          `json:"base_amount"`
	CalculationStart string                   `json:"calculation_start"`
	CalculationEnd   string                   `json:"calculation_end"`
	TotalInterest    decimal.Decimal          `json:"total_interest"`
	Details          []InterestDetailResponse `json:"details"`
}

type CaseTotalsResponse struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	AmountOriginal decimal.Decimal `json:"amount_original"`
	FeeAmount      decimal.Decimal `json:"fee_amount"`
	AbbAmount      decimal.Decimal `json:"abb_amount"`
	TotalFined     decimal.Decimal `json:"total_fined"`
	TotalDue       decimal.Decimal `json:"total_due"`
	TotalToReceive decimal.Decimal `json:"total_to_receive"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	Balance        decimal.Decimal `json:"balance"`
}

type CaseInterestResponse struct {
	Case     CaseTotalsResponse `json:"case"`
	Interest InterestResponse   `json:"interest"`
}

func toInterestResponse(vi domain.VerdictInterest) InterestResponse {
	out := InterestResponse{
		ID:               vi.ID,
		InterestTypeID:   vi.InterestTypeID,
		BaseAmount:       vi.BaseAmount,
		CalculationStart: vi.CalculationStart.String(),
		CalculationEnd:   vi.CalculationEnd.String(),
		TotalInterest:    vi.TotalInterest,
		Details:          make([]InterestDetailResponse, 0, len(vi.Details)),
	}
	for _, d := range vi.Details {
		out.Details = append(out.Details, InterestDetailResponse{
			Period:           d.Period,
			PeriodStart:      d.PeriodStart.String(),
			PeriodEnd:        d.PeriodEnd.String(),
			Days:             d.Days,
			AnnualRate:       d.AnnualRate,
			ProportionalRate: d.ProportionalRate,
			BaseAmount:       d.BaseAmount,
			Interest:         d.Interest,
			Total:            d.Total,
		})
	}
	return out
}

func toCaseInterestResponse(ci *service.CaseInterest) CaseInterestResponse {
	c := ci.Case
	return CaseInterestResponse{
		Case: CaseTotalsResponse{
			ID:             c.ID,
			Status:         string(c.Status),
			AmountOriginal: c.AmountOriginal,
			FeeAmount:      c.FeeAmount,
			AbbAmount:      c.AbbAmount,
			TotalFined:     c.TotalFined,
			TotalDue:       c.TotalDue,
			TotalToReceive: c.TotalToReceive,
			TotalPaid:      c.TotalPaid,
			Balance:        c.Balance,
		},
		Interest: toInterestResponse(*ci.Interest),
	}
}
