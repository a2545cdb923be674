package rest

import (
	"errors"
	"log"
	"net/http"

	"debtster-collection/internal/clients"
)

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		ErrorNotFound(w, "run history is not enabled")
		return
	}
	tenantID, ok := h.jobTenant(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r, 20)
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	runs, err := h.runs.Recent(r.Context(), derefTenant(tenantID), limit)
	if err != nil {
		log.Printf("[HTTP] listRuns error: %v", err)
		ErrorInternal(w, "failed to get runs")
		return
	}

	Success(w, "", runs)
}

func (h *Handler) lastRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		ErrorNotFound(w, "run history is not enabled")
		return
	}
	tenantID, ok := h.jobTenant(w, r)
	if !ok {
		return
	}

	run, err := h.runs.Last(r.Context(), derefTenant(tenantID))
	if err != nil {
		if errors.Is(err, clients.ErrNoRuns) {
			ErrorNotFound(w, "no run recorded yet")
			return
		}
		log.Printf("[HTTP] lastRun error: %v", err)
		ErrorInternal(w, "failed to get last run")
		return
	}

	Success(w, "", run)
}

func derefTenant(tenantID *string) string {
	if tenantID == nil {
		return ""
	}
	return *tenantID
}
