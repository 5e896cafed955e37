package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"compliance-monitor/internal/domain"
	"compliance-monitor/internal/storage"
	"compliance-monitor/internal/transaction"
	dErrors "compliance-monitor/pkg/domain-errors"
	"compliance-monitor/pkg/platform/httputil"
	"compliance-monitor/pkg/requestcontext"
)

// Service defines the transaction operations the handler needs.
type Service interface {
	Create(ctx context.Context, txn *domain.Transaction) (*transaction.CreateResult, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, window storage.TimeRange, limit, offset int) ([]*domain.Transaction, error)
	Flagged(ctx context.Context) ([]*domain.Transaction, error)
	HighValue(ctx context.Context, threshold *decimal.Decimal) ([]*domain.Transaction, error)
	AccountStatistics(ctx context.Context, accountID string) (*transaction.Statistics, error)
}

// PatternDetector defines the on-demand pattern analysis operation.
type PatternDetector interface {
	Detect(ctx context.Context, accountID string) ([]*domain.TransactionPattern, error)
}

// Handler wires transaction and account endpoints to their services.
type Handler struct {
	service  Service
	detector PatternDetector
	logger   *slog.Logger
}

// New constructs a transaction handler with its dependencies.
func New(service Service, detector PatternDetector, logger *slog.Logger) *Handler {
	return &Handler{service: service, detector: detector, logger: logger}
}

// Register mounts transaction and account endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/transactions", h.HandleCreate)
	r.Get("/transactions/flagged", h.HandleFlagged)
	r.Get("/transactions/high-value", h.HandleHighValue)
	r.Get("/transactions/{id}", h.HandleGet)
	r.Get("/accounts/{accountID}/transactions", h.HandleListByAccount)
	r.Get("/accounts/{accountID}/statistics", h.HandleStatistics)
	r.Post("/accounts/{accountID}/patterns/detect", h.HandleDetectPatterns)
}

// HandleCreate handles POST /transactions requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[*CreateTransactionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Create(ctx, req.ToDomain())
	if err != nil {
		h.logger.ErrorContext(ctx, "transaction creation failed",
			"request_id", requestID,
			"account_id", req.AccountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transaction accepted",
		"request_id", requestID,
		"transaction_id", result.Transaction.ID,
		"flagged", result.Transaction.IsFlagged,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromCreateResult(result.Transaction, result.Violations))
}

// HandleGet handles GET /transactions/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Validation("id", "transaction UUID", chi.URLParam(r, "id")))
		return
	}

	txn, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransaction(txn))
}

// HandleListByAccount handles GET /accounts/{accountID}/transactions requests.
// Optional query parameters: from, to (RFC 3339), limit, offset.
func (h *Handler) HandleListByAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "accountID")

	window, err := parseWindow(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit := parseIntParam(r, "limit", 0)
	offset := parseIntParam(r, "offset", 0)

	txns, err := h.service.ListByAccount(ctx, accountID, window, limit, offset)
	if err != nil {
		h.logger.ErrorContext(ctx, "account transaction listing failed",
			"account_id", accountID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransactions(txns))
}

// HandleFlagged handles GET /transactions/flagged requests.
func (h *Handler) HandleFlagged(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txns, err := h.service.Flagged(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "flagged transaction listing failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransactions(txns))
}

// HandleHighValue handles GET /transactions/high-value requests. The optional
// threshold query parameter overrides the reporting default.
func (h *Handler) HandleHighValue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var threshold *decimal.Decimal
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || !parsed.IsPositive() {
			httputil.WriteError(w, dErrors.Validation("threshold", "positive decimal amount", raw))
			return
		}
		threshold = &parsed
	}

	txns, err := h.service.HighValue(ctx, threshold)
	if err != nil {
		h.logger.ErrorContext(ctx, "high-value transaction listing failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransactions(txns))
}

// HandleStatistics handles GET /accounts/{accountID}/statistics requests.
func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "accountID")

	stats, err := h.service.AccountStatistics(ctx, accountID)
	if err != nil {
		h.logger.ErrorContext(ctx, "account statistics failed",
			"account_id", accountID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleDetectPatterns handles POST /accounts/{accountID}/patterns/detect
// requests.
func (h *Handler) HandleDetectPatterns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	accountID := chi.URLParam(r, "accountID")
	start := time.Now()

	patterns, err := h.detector.Detect(ctx, accountID)
	if err != nil {
		h.logger.ErrorContext(ctx, "pattern detection failed",
			"request_id", requestID,
			"account_id", accountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "pattern detection completed",
		"request_id", requestID,
		"account_id", accountID,
		"pattern_count", len(patterns),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromPatterns(patterns))
}

func parseWindow(r *http.Request) (storage.TimeRange, error) {
	var window storage.TimeRange
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return window, dErrors.Validation("from", "RFC 3339 timestamp", raw)
		}
		window.From = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return window, dErrors.Validation("to", "RFC 3339 timestamp", raw)
		}
		window.To = &t
	}
	return window, nil
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
