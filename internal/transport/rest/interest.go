package rest

import (
	"errors"
	"log"
	"net/http"

	"debtster-collection/internal/interest"
	"debtster-collection/internal/repository"
	"debtster-collection/internal/service"

	"github.com/go-chi/chi/v5"
)

func interestError(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		ErrorBadRequest(w, verr.Error())
	case errors.Is(err, repository.ErrNotFound):
		ErrorNotFound(w, "case or interest type not found")
	case errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, interest.ErrNegativeBase),
		errors.Is(err, interest.ErrEmptySchedule),
		errors.Is(err, interest.ErrUnsortedSchedule):
		ErrorBadRequest(w, err.Error())
	default:
		log.Printf("[HTTP] %s error: %v", op, err)
		ErrorInternal(w, "failed to calculate interest")
	}
}

func (h *Handler) computeCaseInterest(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "case_id")
	if caseID == "" {
		ErrorBadRequest(w, "case_id is required")
		return
	}

	req, err := ValidateCaseInterestRequest(r)
	if err != nil {
		interestError(w, "computeCaseInterest", err)
		return
	}

	res, err := h.interest.ComputeForCase(r.Context(), caseID, req.InterestTypeID, req.End)
	if err != nil {
		interestError(w, "computeCaseInterest", err)
		return
	}

	Success(w, "interest calculated", toCaseInterestResponse(res))
}

func (h *Handler) exportCaseInterest(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "case_id")
	if caseID == "" {
		ErrorBadRequest(w, "case_id is required")
		return
	}

	req, err := ValidateCaseInterestRequest(r)
	if err != nil {
		interestError(w, "exportCaseInterest", err)
		return
	}

	url, fileName, err := h.interest.ExportStatement(r.Context(), caseID, req.InterestTypeID, req.End)
	if err != nil {
		interestError(w, "exportCaseInterest", err)
		return
	}

	SuccessCreated(w, "statement generated", map[string]interface{}{
		"url":       url,
		"file_name": fileName,
	})
}

func (h *Handler) calculateInterest(w http.ResponseWriter, r *http.Request) {
	req, err := ValidateCalculateInterestRequest(r)
	if err != nil {
		interestError(w, "calculateInterest", err)
		return
	}

	vi, err := h.interest.Calculate(req.Base, req.Schedule, req.Start, req.End)
	if err != nil {
		interestError(w, "calculateInterest", err)
		return
	}

	Success(w, "", toInterestResponse(vi))
}
