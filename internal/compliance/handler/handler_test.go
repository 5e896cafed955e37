package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"compliance-monitor/internal/compliance"
	"compliance-monitor/internal/domain"
	"compliance-monitor/internal/events"
	"compliance-monitor/internal/storage"
	"compliance-monitor/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite

	now        time.Time
	violations *storage.InMemoryViolationStore
	router     chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.now = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.violations = storage.NewInMemoryViolationStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lifecycle := compliance.NewLifecycle(s.violations, events.NopPublisher{}, logger, nil)
	dashboard := compliance.NewDashboard(s.violations, nil)

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), s.now)))
		})
	})
	New(lifecycle, dashboard, logger).Register(s.router)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) seed(severity domain.Severity, status domain.ViolationStatus, risk float64, age time.Duration) *domain.Violation {
	v := &domain.Violation{
		ID:         uuid.New(),
		Type:       domain.ViolationTransactionLimit,
		Severity:   severity,
		Title:      "seeded violation",
		Status:     status,
		RiskScore:  risk,
		DetectedAt: s.now.Add(-age),
	}
	s.Require().NoError(s.violations.Insert(context.Background(), v))
	return v
}

func (s *HandlerSuite) TestListWithFilters() {
	s.seed(domain.SeverityCritical, domain.StatusOpen, 8, time.Hour)
	s.seed(domain.SeverityHigh, domain.StatusOpen, 5, time.Hour)
	s.seed(domain.SeverityCritical, domain.StatusResolved, 8, time.Hour)

	rec := s.do(http.MethodGet, "/violations?severity=critical&status=open", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp []*ViolationResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp, 1)
	s.Equal("CRITICAL", resp[0].Severity)
	s.Equal("OPEN", resp[0].Status)
}

func (s *HandlerSuite) TestListRejectsUnknownSeverity() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/violations?severity=EXTREME", nil).Code)
}

func (s *HandlerSuite) TestManualCreate() {
	rec := s.do(http.MethodPost, "/violations", map[string]any{
		"violation_type": "REGULATORY_BREACH",
		"severity":       "MEDIUM",
		"title":          "Quarterly report filed late",
		"risk_score":     4.0,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var resp ViolationResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("OPEN", resp.Status)
	s.Equal("REGULATORY_BREACH", resp.ViolationType)
	s.NotEmpty(resp.ID)
}

func (s *HandlerSuite) TestManualCreateRejectsBadSeverity() {
	rec := s.do(http.MethodPost, "/violations", map[string]any{
		"violation_type": "REGULATORY_BREACH",
		"severity":       "SEVERE",
		"title":          "x",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestResolveFlow() {
	seeded := s.seed(domain.SeverityHigh, domain.StatusOpen, 5, time.Hour)

	rec := s.do(http.MethodPost, "/violations/"+seeded.ID.String()+"/resolve", map[string]any{
		"resolution_notes": "verified with customer",
		"resolved_by":      "officer.smith",
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp ViolationResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("RESOLVED", resp.Status)
	s.NotNil(resp.ResolvedAt)

	// Second resolve conflicts.
	again := s.do(http.MethodPost, "/violations/"+seeded.ID.String()+"/resolve", map[string]any{
		"resolution_notes": "again",
	})
	s.Equal(http.StatusConflict, again.Code)
}

func (s *HandlerSuite) TestResolveRequiresNotes() {
	seeded := s.seed(domain.SeverityHigh, domain.StatusOpen, 5, time.Hour)
	rec := s.do(http.MethodPost, "/violations/"+seeded.ID.String()+"/resolve", map[string]any{})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestResolveUnknownViolation() {
	rec := s.do(http.MethodPost, "/violations/"+uuid.NewString()+"/resolve", map[string]any{
		"resolution_notes": "notes",
	})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestActiveSummary() {
	s.seed(domain.SeverityCritical, domain.StatusOpen, 8, 25*time.Hour)
	s.seed(domain.SeverityHigh, domain.StatusInvestigating, 5, time.Hour)
	s.seed(domain.SeverityLow, domain.StatusResolved, 1, time.Hour)

	rec := s.do(http.MethodGet, "/violations/active", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp ActiveSummaryResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(2, resp.TotalActive)
	s.Equal(1, resp.BySeverity["CRITICAL"])
	s.Require().Len(resp.CriticalAttention, 1)
	s.True(resp.CriticalAttention[0].IsOverdue)
}

func (s *HandlerSuite) TestDashboardSummary() {
	s.seed(domain.SeverityCritical, domain.StatusOpen, 8, 25*time.Hour)

	rec := s.do(http.MethodGet, "/dashboard/summary", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp compliance.DashboardSummary
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(1, resp.TotalViolations)
	s.Equal(1, resp.OverdueCount)
	s.InDelta(15.0, resp.ComplianceScore, 1e-9)
}

func (s *HandlerSuite) TestDashboardSummaryEmpty() {
	rec := s.do(http.MethodGet, "/dashboard/summary", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp compliance.DashboardSummary
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(100.0, resp.ComplianceScore)
}
