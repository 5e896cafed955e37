package compliance

import (
	"context"
	"fmt"
	"time"

	"compliance-monitor/internal/domain"
	"compliance-monitor/internal/storage"
	"compliance-monitor/pkg/requestcontext"
)

// Rules receive a fixed 24-hour account history regardless of their own
// window; each rule narrows further as it needs.
const contextWindow = 24 * time.Hour

// contextFetchLimit bounds the history read. High enough that no realistic
// account exceeds it inside one day.
const contextFetchLimit = 1000

// EvalContext is the bundle of historical data supplied to every rule for
// one evaluation. Rules must treat it as read-only.
type EvalContext struct {
	AccountID string
	// RecentTransactions holds the account's transactions from the last 24
	// hours, excluding the transaction under evaluation.
	RecentTransactions []*domain.Transaction
	EvaluatedAt        time.Time
}

// ContextBuilder gathers the history a rule set needs. Side-effect-free
// besides the store read.
type ContextBuilder struct {
	transactions storage.TransactionStore
}

func NewContextBuilder(transactions storage.TransactionStore) *ContextBuilder {
	return &ContextBuilder{transactions: transactions}
}

// Build fetches the account's recent history and stamps the evaluation time.
// The transaction being evaluated is filtered out so rules that count "prior
// plus current" never double-count it.
func (b *ContextBuilder) Build(ctx context.Context, txn *domain.Transaction) (*EvalContext, error) {
	now := requestcontext.Now(ctx)
	from := now.Add(-contextWindow)

	history, err := b.transactions.FindByAccount(ctx, txn.AccountID,
		storage.TimeRange{From: &from, To: &now}, contextFetchLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("build evaluation context: %w", err)
	}

	recent := make([]*domain.Transaction, 0, len(history))
	for _, t := range history {
		if t.ID == txn.ID {
			continue
		}
		recent = append(recent, t)
	}

	return &EvalContext{
		AccountID:          txn.AccountID,
		RecentTransactions: recent,
		EvaluatedAt:        now,
	}, nil
}
