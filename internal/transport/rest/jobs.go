package rest

import (
	"errors"
	"log"
	"net/http"

	"debtster-collection/internal/service"
)

func (h *Handler) jobTenant(w http.ResponseWriter, r *http.Request) (*string, bool) {
	tenantID, err := resolveTenant(r)
	if err != nil {
		ErrorForbidden(w, err.Error())
		return nil, false
	}
	return tenantID, true
}

func jobError(w http.ResponseWriter, job string, err error) {
	if errors.Is(err, service.ErrCycleBusy) {
		ErrorConflict(w, "a collection run is already in progress")
		return
	}
	log.Printf("[HTTP] %s error: %v", job, err)
	ErrorInternal(w, "failed to run "+job)
}

func (h *Handler) promoteOverdue(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.jobTenant(w, r)
	if !ok {
		return
	}

	res, err := h.cycle.PromoteOverdue(r.Context(), tenantID)
	if err != nil {
		jobError(w, "promote-overdue", err)
		return
	}

	Success(w, "overdue cases promoted", res)
}

func (h *Handler) advanceLadder(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.jobTenant(w, r)
	if !ok {
		return
	}

	res, err := h.cycle.AdvanceLadder(r.Context(), tenantID)
	if err != nil {
		jobError(w, "advance-ladder", err)
		return
	}

	Success(w, "ladder advanced", res)
}

func (h *Handler) sendReminders(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.jobTenant(w, r)
	if !ok {
		return
	}

	res, err := h.cycle.SendReminders(r.Context(), tenantID)
	if err != nil {
		jobError(w, "send-reminders", err)
		return
	}

	Success(w, "reminders sent", res)
}

func (h *Handler) reconcileAgreements(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.jobTenant(w, r)
	if !ok {
		return
	}

	res, err := h.cycle.ReconcileAgreements(r.Context(), tenantID)
	if err != nil {
		jobError(w, "reconcile-agreements", err)
		return
	}

	Success(w, "agreements reconciled", res)
}

func (h *Handler) runAll(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.jobTenant(w, r)
	if !ok {
		return
	}

	report, err := h.cycle.RunAll(r.Context(), tenantID)
	if err != nil {
		jobError(w, "run-all", err)
		return
	}

	Success(w, "collection cycle completed", report)
}
