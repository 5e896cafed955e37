package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"compliance-monitor/internal/compliance"
	"compliance-monitor/internal/domain"
	"compliance-monitor/internal/storage"
	dErrors "compliance-monitor/pkg/domain-errors"
	"compliance-monitor/pkg/platform/httputil"
	"compliance-monitor/pkg/requestcontext"
)

// Lifecycle defines the violation case operations the handler needs.
type Lifecycle interface {
	Create(ctx context.Context, v *domain.Violation) (*domain.Violation, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Violation, error)
	List(ctx context.Context, filter storage.ViolationFilter) ([]*domain.Violation, error)
	Active(ctx context.Context, severity *domain.Severity) (*compliance.ActiveSummary, error)
	Resolve(ctx context.Context, id uuid.UUID, notes, resolvedBy string) (*domain.Violation, error)
}

// Dashboard defines the monitoring summary operation.
type Dashboard interface {
	Summary(ctx context.Context) (*compliance.DashboardSummary, error)
}

// Handler wires violation case-management and dashboard endpoints.
type Handler struct {
	lifecycle Lifecycle
	dashboard Dashboard
	logger    *slog.Logger
}

// New constructs a compliance handler with its dependencies.
func New(lifecycle Lifecycle, dashboard Dashboard, logger *slog.Logger) *Handler {
	return &Handler{lifecycle: lifecycle, dashboard: dashboard, logger: logger}
}

// Register mounts violation and dashboard endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/violations", h.HandleList)
	r.Post("/violations", h.HandleCreate)
	r.Get("/violations/active", h.HandleActive)
	r.Get("/violations/{id}", h.HandleGet)
	r.Post("/violations/{id}/resolve", h.HandleResolve)
	r.Get("/dashboard/summary", h.HandleDashboard)
}

// HandleList handles GET /violations requests. Optional query parameters:
// severity, status, limit, offset.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	vs, err := h.lifecycle.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "violation listing failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromViolations(vs, requestcontext.Now(ctx)))
}

// HandleCreate handles POST /violations requests, the manual entry path.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*CreateViolationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v, err := h.lifecycle.Create(ctx, req.ToDomain())
	if err != nil {
		h.logger.ErrorContext(ctx, "manual violation creation failed",
			"request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromViolation(v, requestcontext.Now(ctx)))
}

// HandleGet handles GET /violations/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Validation("id", "violation UUID", chi.URLParam(r, "id")))
		return
	}

	v, err := h.lifecycle.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromViolation(v, requestcontext.Now(ctx)))
}

// HandleActive handles GET /violations/active requests. The optional severity
// query parameter narrows the caseload.
func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var severity *domain.Severity
	if raw := r.URL.Query().Get("severity"); raw != "" {
		parsed, err := domain.ParseSeverity(strings.ToUpper(raw))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		severity = &parsed
	}

	summary, err := h.lifecycle.Active(ctx, severity)
	if err != nil {
		h.logger.ErrorContext(ctx, "active violation summary failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromActiveSummary(summary, requestcontext.Now(ctx)))
}

// HandleResolve handles POST /violations/{id}/resolve requests.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Validation("id", "violation UUID", chi.URLParam(r, "id")))
		return
	}

	req, ok := httputil.DecodeAndPrepare[*ResolveViolationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resolvedBy := req.ResolvedBy
	if resolvedBy == "" {
		resolvedBy = requestcontext.Actor(ctx)
	}

	v, err := h.lifecycle.Resolve(ctx, id, req.ResolutionNotes, resolvedBy)
	if err != nil {
		h.logger.ErrorContext(ctx, "violation resolution failed",
			"request_id", requestID,
			"violation_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromViolation(v, requestcontext.Now(ctx)))
}

// HandleDashboard handles GET /dashboard/summary requests.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	summary, err := h.dashboard.Summary(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard summary failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.DebugContext(ctx, "dashboard summary served",
		"duration_ms", time.Since(start).Milliseconds())
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func parseFilter(r *http.Request) (storage.ViolationFilter, error) {
	var filter storage.ViolationFilter
	if raw := r.URL.Query().Get("severity"); raw != "" {
		parsed, err := domain.ParseSeverity(strings.ToUpper(raw))
		if err != nil {
			return filter, err
		}
		filter.Severity = &parsed
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := domain.ParseViolationStatus(strings.ToUpper(raw))
		if err != nil {
			return filter, err
		}
		filter.Status = &parsed
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Offset = n
		}
	}
	return filter, nil
}
