package compliance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-monitor/internal/domain"
)

var evalTime = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func txnWith(amount int64, country string) *domain.Transaction {
	return &domain.Transaction{
		AccountID: "ACC-001",
		Amount:    decimal.NewFromInt(amount),
		Currency:  "AUD",
		Type:      domain.TransactionDebit,
		Country:   country,
		Timestamp: evalTime,
	}
}

func emptyCtx() *EvalContext {
	return &EvalContext{AccountID: "ACC-001", EvaluatedAt: evalTime}
}

func TestLimitRule(t *testing.T) {
	rule := NewLimitRule(decimal.NewFromInt(10000))

	t.Run("below limit passes", func(t *testing.T) {
		assert.Nil(t, rule.Evaluate(txnWith(9999, ""), emptyCtx()))
	})

	t.Run("exactly at limit passes", func(t *testing.T) {
		assert.Nil(t, rule.Evaluate(txnWith(10000, ""), emptyCtx()))
	})

	t.Run("above limit triggers", func(t *testing.T) {
		v := rule.Evaluate(txnWith(15000, ""), emptyCtx())
		require.NotNil(t, v)
		assert.Equal(t, domain.ViolationTransactionLimit, v.Type)
		assert.Equal(t, domain.SeverityHigh, v.Severity)
		assert.InDelta(t, 1.5, v.RiskScore, 1e-9)
		assert.Equal(t, 1.0, v.ConfidenceScore)

		excess, ok := v.Data.Float64("excess_amount")
		require.True(t, ok)
		assert.InDelta(t, 5000, excess, 1e-9)
		pct, ok := v.Data.Float64("violation_percentage")
		require.True(t, ok)
		assert.InDelta(t, 150, pct, 1e-9)
	})

	t.Run("risk score caps at 10", func(t *testing.T) {
		v := rule.Evaluate(txnWith(500000, ""), emptyCtx())
		require.NotNil(t, v)
		assert.Equal(t, 10.0, v.RiskScore)
	})
}

func TestVelocityRule(t *testing.T) {
	rule := NewVelocityRule(3, decimal.NewFromInt(20000))

	history := func(count int, amount int64, age time.Duration, account string) []*domain.Transaction {
		out := make([]*domain.Transaction, 0, count)
		for i := 0; i < count; i++ {
			out = append(out, &domain.Transaction{
				AccountID: account,
				Amount:    decimal.NewFromInt(amount),
				Timestamp: evalTime.Add(-age),
			})
		}
		return out
	}

	t.Run("quiet account passes", func(t *testing.T) {
		ctx := emptyCtx()
		ctx.RecentTransactions = history(2, 100, 10*time.Minute, "ACC-001")
		assert.Nil(t, rule.Evaluate(txnWith(100, ""), ctx))
	})

	t.Run("count over limit triggers", func(t *testing.T) {
		ctx := emptyCtx()
		ctx.RecentTransactions = history(3, 100, 10*time.Minute, "ACC-001")
		v := rule.Evaluate(txnWith(100, ""), ctx)
		require.NotNil(t, v)
		assert.Equal(t, domain.ViolationSuspiciousPattern, v.Type)
		assert.Equal(t, domain.SeverityHigh, v.Severity)

		count, ok := v.Data.Int("transaction_count")
		require.True(t, ok)
		assert.Equal(t, 4, count)
	})

	t.Run("amount over limit triggers", func(t *testing.T) {
		ctx := emptyCtx()
		ctx.RecentTransactions = history(1, 15000, 10*time.Minute, "ACC-001")
		v := rule.Evaluate(txnWith(15000, ""), ctx)
		require.NotNil(t, v)

		total, ok := v.Data.Float64("total_amount")
		require.True(t, ok)
		assert.InDelta(t, 30000, total, 1e-9)
	})

	t.Run("extreme count escalates to critical", func(t *testing.T) {
		ctx := emptyCtx()
		ctx.RecentTransactions = history(6, 100, 10*time.Minute, "ACC-001")
		v := rule.Evaluate(txnWith(100, ""), ctx)
		require.NotNil(t, v)
		assert.Equal(t, domain.SeverityCritical, v.Severity)
	})

	t.Run("other accounts are ignored", func(t *testing.T) {
		ctx := emptyCtx()
		ctx.RecentTransactions = history(10, 5000, 10*time.Minute, "ACC-OTHER")
		assert.Nil(t, rule.Evaluate(txnWith(100, ""), ctx))
	})

	t.Run("transactions older than an hour are ignored", func(t *testing.T) {
		ctx := emptyCtx()
		ctx.RecentTransactions = history(10, 5000, 2*time.Hour, "ACC-001")
		assert.Nil(t, rule.Evaluate(txnWith(100, ""), ctx))
	})
}

func TestGeographicRule(t *testing.T) {
	rule := NewGeographicRule([]string{"IRN", "PRK"})

	t.Run("safe country passes", func(t *testing.T) {
		assert.Nil(t, rule.Evaluate(txnWith(100, "AUS"), emptyCtx()))
	})

	t.Run("missing country passes", func(t *testing.T) {
		assert.Nil(t, rule.Evaluate(txnWith(100, ""), emptyCtx()))
	})

	t.Run("high-risk country triggers regardless of amount", func(t *testing.T) {
		v := rule.Evaluate(txnWith(1, "IRN"), emptyCtx())
		require.NotNil(t, v)
		assert.Equal(t, domain.ViolationSuspiciousPattern, v.Type)
		assert.Equal(t, domain.SeverityCritical, v.Severity)
		assert.Equal(t, 8.0, v.RiskScore)
		assert.Equal(t, 1.0, v.ConfidenceScore)

		edd, ok := v.Data.Bool("requires_enhanced_due_diligence")
		require.True(t, ok)
		assert.True(t, edd)
	})
}
