// Package transaction owns transaction ingestion and queries. Ingestion is
// the front door of the monitor: every created transaction passes structural
// validation and the full compliance rule set before it is visible anywhere.
package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"compliance-monitor/internal/compliance"
	"compliance-monitor/internal/domain"
	"compliance-monitor/internal/storage"
	"compliance-monitor/pkg/requestcontext"
)

const (
	defaultListLimit = 100
	flaggedListLimit = 200

	// statisticsWindow is the period covered by account statistics.
	statisticsWindow     = 30 * 24 * time.Hour
	statisticsFetchLimit = 5000
)

// highValueDefaultThreshold applies when the caller does not supply one.
var highValueDefaultThreshold = decimal.NewFromInt(10000)

// Service coordinates validation, rule evaluation, and persistence for
// transactions.
type Service struct {
	store     storage.TransactionStore
	evaluator *compliance.Evaluator
	logger    *slog.Logger
}

func NewService(store storage.TransactionStore, evaluator *compliance.Evaluator, logger *slog.Logger) *Service {
	return &Service{store: store, evaluator: evaluator, logger: logger}
}

// CreateResult pairs the stored transaction with the violations its creation
// triggered, so the API can report both in one response.
type CreateResult struct {
	Transaction *domain.Transaction
	Violations  []*domain.Violation
}

// Create validates the transaction, evaluates it against the active rule set,
// and persists the transaction, any violations, and the resulting flag state
// atomically. Validation failures reject the transaction before any write.
func (s *Service) Create(ctx context.Context, txn *domain.Transaction) (*CreateResult, error) {
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	txn.ID = uuid.New()
	if txn.Timestamp.IsZero() {
		txn.Timestamp = now
	}
	txn.IsFlagged = false
	txn.RiskScore = 0
	txn.ComplianceStatus = domain.CompliancePending
	txn.CreatedAt = now
	txn.UpdatedAt = now

	violations, err := s.evaluator.EvaluateAndPersist(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "transaction created",
		"transaction_id", txn.ID,
		"account_id", txn.AccountID,
		"amount", txn.Amount,
		"flagged", txn.IsFlagged,
		"violation_count", len(violations),
	)

	return &CreateResult{Transaction: txn, Violations: violations}, nil
}

// Get returns one transaction by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return txn, nil
}

// ListByAccount returns an account's transactions inside the optional window,
// newest first.
func (s *Service) ListByAccount(ctx context.Context, accountID string, window storage.TimeRange, limit, offset int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	txns, err := s.store.FindByAccount(ctx, accountID, window, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions for account %s: %w", accountID, err)
	}
	return txns, nil
}

// Flagged returns transactions currently flagged for review.
func (s *Service) Flagged(ctx context.Context) ([]*domain.Transaction, error) {
	txns, err := s.store.FindFlagged(ctx, flaggedListLimit)
	if err != nil {
		return nil, fmt.Errorf("list flagged transactions: %w", err)
	}
	return txns, nil
}

// HighValue returns transactions at or above the threshold over the last 24
// hours. A nil threshold uses the reporting default.
func (s *Service) HighValue(ctx context.Context, threshold *decimal.Decimal) ([]*domain.Transaction, error) {
	t := highValueDefaultThreshold
	if threshold != nil {
		t = *threshold
	}
	since := requestcontext.Now(ctx).Add(-24 * time.Hour)
	txns, err := s.store.FindHighValue(ctx, t, since)
	if err != nil {
		return nil, fmt.Errorf("list high-value transactions: %w", err)
	}
	return txns, nil
}

// Statistics summarizes one account's activity over the last 30 days.
type Statistics struct {
	AccountID        string                         `json:"account_id"`
	PeriodDays       int                            `json:"period_days"`
	TransactionCount int                            `json:"transaction_count"`
	TotalAmount      decimal.Decimal                `json:"total_amount"`
	AverageAmount    decimal.Decimal                `json:"average_amount"`
	MaxAmount        decimal.Decimal                `json:"max_amount"`
	FlaggedCount     int                            `json:"flagged_count"`
	ByType           map[domain.TransactionType]int `json:"by_type"`
}

// AccountStatistics computes aggregate figures over the account's recent
// history. An account with no activity returns zeroed statistics, not an
// error.
func (s *Service) AccountStatistics(ctx context.Context, accountID string) (*Statistics, error) {
	now := requestcontext.Now(ctx)
	from := now.Add(-statisticsWindow)

	txns, err := s.store.FindByAccount(ctx, accountID,
		storage.TimeRange{From: &from, To: &now}, statisticsFetchLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("load statistics for account %s: %w", accountID, err)
	}

	stats := &Statistics{
		AccountID:  accountID,
		PeriodDays: int(statisticsWindow / (24 * time.Hour)),
		ByType:     make(map[domain.TransactionType]int),
	}
	for _, t := range txns {
		stats.TransactionCount++
		stats.TotalAmount = stats.TotalAmount.Add(t.Amount)
		if t.Amount.GreaterThan(stats.MaxAmount) {
			stats.MaxAmount = t.Amount
		}
		if t.IsFlagged {
			stats.FlaggedCount++
		}
		stats.ByType[t.Type]++
	}
	if stats.TransactionCount > 0 {
		stats.AverageAmount = stats.TotalAmount.Div(decimal.NewFromInt(int64(stats.TransactionCount))).Round(2)
	}
	return stats, nil
}
