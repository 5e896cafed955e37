package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"compliance-monitor/internal/compliance"
	"compliance-monitor/internal/events"
	"compliance-monitor/internal/patterns"
	"compliance-monitor/internal/storage"
	"compliance-monitor/internal/transaction"
	"compliance-monitor/pkg/platform/tx"
	"compliance-monitor/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite

	now    time.Time
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.now = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	transactionStore := storage.NewInMemoryTransactionStore()
	violationStore := storage.NewInMemoryViolationStore()
	patternStore := storage.NewInMemoryPatternStore()

	registry := compliance.NewRegistry(
		compliance.NewLimitRule(decimal.NewFromInt(10000)),
		compliance.NewGeographicRule([]string{"IRN"}),
	)
	evaluator := compliance.NewEvaluator(registry, compliance.NewContextBuilder(transactionStore),
		transactionStore, violationStore, tx.NoopRunner{}, events.NopPublisher{}, logger, nil)
	service := transaction.NewService(transactionStore, evaluator, logger)
	detector := patterns.NewDetector(transactionStore, patternStore, tx.NoopRunner{},
		events.NopPublisher{}, logger, nil)

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), s.now)))
		})
	})
	New(service, detector, logger).Register(s.router)
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

func (s *HandlerSuite) createBody(amount float64, country string) map[string]any {
	return map[string]any{
		"account_id":       "ACC-001",
		"amount":           amount,
		"currency":         "AUD",
		"transaction_type": "DEBIT",
		"location_country": country,
	}
}

func (s *HandlerSuite) TestCreateCleanTransaction() {
	rec := s.do(http.MethodPost, "/transactions", s.createBody(500, "AUS"))
	s.Require().Equal(http.StatusCreated, rec.Code)

	var resp CreateTransactionResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Empty(resp.Violations)
	s.False(resp.Transaction.IsFlagged)
	s.Equal("PENDING", resp.Transaction.ComplianceStatus)
}

func (s *HandlerSuite) TestCreateFlaggedTransaction() {
	rec := s.do(http.MethodPost, "/transactions", s.createBody(25000, "IRN"))
	s.Require().Equal(http.StatusCreated, rec.Code)

	var resp CreateTransactionResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Len(resp.Violations, 2)
	s.True(resp.Transaction.IsFlagged)
	s.Equal("UNDER_REVIEW", resp.Transaction.ComplianceStatus)
	s.Equal(8.0, resp.Transaction.RiskScore)
}

func (s *HandlerSuite) TestCreateRejectsBadPayload() {
	body := s.createBody(100, "AUS")
	body["transaction_type"] = "WIRE"

	rec := s.do(http.MethodPost, "/transactions", body)
	s.Equal(http.StatusBadRequest, rec.Code)

	var resp map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("validation_failed", resp["error"])
}

func (s *HandlerSuite) TestGetRoundTrip() {
	rec := s.do(http.MethodPost, "/transactions", s.createBody(500, "AUS"))
	s.Require().Equal(http.StatusCreated, rec.Code)

	var created CreateTransactionResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))

	got := s.do(http.MethodGet, "/transactions/"+created.Transaction.ID, nil)
	s.Require().Equal(http.StatusOK, got.Code)

	var fetched TransactionResponse
	s.Require().NoError(json.Unmarshal(got.Body.Bytes(), &fetched))
	s.Equal(created.Transaction.ID, fetched.ID)
}

func (s *HandlerSuite) TestGetUnknownAndMalformedIDs() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/transactions/7f0f7bb7-24f4-4f16-a55f-3e5c1c4a9e01", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/transactions/not-a-uuid", nil).Code)
}

func (s *HandlerSuite) TestFlaggedListing() {
	s.do(http.MethodPost, "/transactions", s.createBody(500, "AUS"))
	s.do(http.MethodPost, "/transactions", s.createBody(25000, "AUS"))

	rec := s.do(http.MethodGet, "/transactions/flagged", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp []*TransactionResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp, 1)
	s.True(resp[0].IsFlagged)
}

func (s *HandlerSuite) TestAccountListingAndStatistics() {
	for i := 0; i < 3; i++ {
		s.do(http.MethodPost, "/transactions", s.createBody(float64(100*(i+1)), "AUS"))
	}

	list := s.do(http.MethodGet, "/accounts/ACC-001/transactions", nil)
	s.Require().Equal(http.StatusOK, list.Code)
	var txns []*TransactionResponse
	s.Require().NoError(json.Unmarshal(list.Body.Bytes(), &txns))
	s.Len(txns, 3)

	stats := s.do(http.MethodGet, "/accounts/ACC-001/statistics", nil)
	s.Require().Equal(http.StatusOK, stats.Code)
	var parsed transaction.Statistics
	s.Require().NoError(json.Unmarshal(stats.Body.Bytes(), &parsed))
	s.Equal(3, parsed.TransactionCount)
}

func (s *HandlerSuite) TestHighValueThresholdValidation() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/transactions/high-value?threshold=-5", nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/transactions/high-value?threshold=5000", nil).Code)
}

func (s *HandlerSuite) TestPatternDetectionEndpoint() {
	// Five structuring-band transactions spread across distinct hours.
	for i := 0; i < 5; i++ {
		body := s.createBody(9500, "AUS")
		body["timestamp"] = s.now.Add(-time.Duration(2*i+1) * time.Hour).Format(time.RFC3339)
		s.do(http.MethodPost, "/transactions", body)
	}

	rec := s.do(http.MethodPost, "/accounts/ACC-001/patterns/detect", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp []*PatternResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotEmpty(resp)

	found := false
	for _, p := range resp {
		if p.PatternType == "AMOUNT" {
			found = true
			s.Equal(5, p.FrequencyCount)
			s.Len(p.TransactionIDs, 5)
		}
	}
	s.True(found, fmt.Sprintf("expected an AMOUNT pattern, got %+v", resp))
}
