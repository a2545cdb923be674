package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"debtster-collection/internal/clock"
	"debtster-collection/internal/domain"
	"debtster-collection/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

type CycleRunner interface {
	PromoteOverdue(ctx context.Context, tenantID *string) (service.PromoteResult, error)
	AdvanceLadder(ctx context.Context, tenantID *string) (service.LadderResult, error)
	SendReminders(ctx context.Context, tenantID *string) (service.ReminderResult, error)
	ReconcileAgreements(ctx context.Context, tenantID *string) (service.ReconcileResult, error)
	RunAll(ctx context.Context, tenantID *string) (service.CycleReport, error)
}

type InterestCalculator interface {
	Calculate(base decimal.Decimal, schedule []domain.InterestRate, start, end clock.Date) (domain.VerdictInterest, error)
	ComputeForCase(ctx context.Context, caseID, interestTypeID string, end clock.Date) (*service.CaseInterest, error)
	ExportStatement(ctx context.Context, caseID, interestTypeID string, end clock.Date) (string, string, error)
}

type RunHistory interface {
	Recent(ctx context.Context, tenantID string, limit int) ([]json.RawMessage, error)
	Last(ctx context.Context, tenantID string) (json.RawMessage, error)
}

type Handler struct {
	cycle    CycleRunner
	interest InterestCalculator
	runs     RunHistory
}

// NewHandler wires the REST surface. runs may be nil when no history store
// is configured.
func NewHandler(cycle CycleRunner, interest InterestCalculator, runs RunHistory) *Handler {
	return &Handler{
		cycle:    cycle,
		interest: interest,
		runs:     runs,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(5*time.Minute),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/promote-overdue", h.promoteOverdue)
		r.Post("/advance-ladder", h.advanceLadder)
		r.Post("/send-reminders", h.sendReminders)
		r.Post("/reconcile-agreements", h.reconcileAgreements)
		r.Post("/run-all", h.runAll)
		r.Get("/runs", h.listRuns)
		r.Get("/runs/last", h.lastRun)
	})

	r.Route("/cases/{case_id}/interest", func(r chi.Router) {
		r.Post("/", h.computeCaseInterest)
		r.Post("/export", h.exportCaseInterest)
	})

	r.Post("/interest/calculate", h.calculateInterest)

	return r
}
