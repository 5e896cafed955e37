package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-monitor/internal/domain"
)

var baseTime = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func seedTxn(t *testing.T, store *InMemoryTransactionStore, accountID string, amount int64, at time.Time, flagged bool) *domain.Transaction {
	t.Helper()
	txn := &domain.Transaction{
		ID:               uuid.New(),
		AccountID:        accountID,
		Amount:           decimal.NewFromInt(amount),
		Currency:         "AUD",
		Type:             domain.TransactionDebit,
		Timestamp:        at,
		IsFlagged:        flagged,
		ComplianceStatus: domain.CompliancePending,
	}
	require.NoError(t, store.Insert(context.Background(), txn))
	return txn
}

func TestInMemoryTransactionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("find by id round-trips", func(t *testing.T) {
		store := NewInMemoryTransactionStore()
		seeded := seedTxn(t, store, "ACC-001", 500, baseTime, false)

		found, err := store.FindByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, found.ID)
		assert.True(t, seeded.Amount.Equal(found.Amount))
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		store := NewInMemoryTransactionStore()
		_, err := store.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("find by account honors window and order", func(t *testing.T) {
		store := NewInMemoryTransactionStore()
		old := seedTxn(t, store, "ACC-001", 100, baseTime.Add(-48*time.Hour), false)
		recent := seedTxn(t, store, "ACC-001", 200, baseTime.Add(-time.Hour), false)
		newest := seedTxn(t, store, "ACC-001", 300, baseTime, false)
		seedTxn(t, store, "ACC-OTHER", 400, baseTime, false)

		from := baseTime.Add(-24 * time.Hour)
		got, err := store.FindByAccount(ctx, "ACC-001", TimeRange{From: &from}, 10, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newest.ID, got[0].ID)
		assert.Equal(t, recent.ID, got[1].ID)

		all, err := store.FindByAccount(ctx, "ACC-001", TimeRange{}, 10, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
		_ = old
	})

	t.Run("pagination", func(t *testing.T) {
		store := NewInMemoryTransactionStore()
		for i := 0; i < 5; i++ {
			seedTxn(t, store, "ACC-001", 100, baseTime.Add(time.Duration(i)*time.Minute), false)
		}

		page, err := store.FindByAccount(ctx, "ACC-001", TimeRange{}, 2, 2)
		require.NoError(t, err)
		assert.Len(t, page, 2)
	})

	t.Run("flagged listing", func(t *testing.T) {
		store := NewInMemoryTransactionStore()
		seedTxn(t, store, "ACC-001", 100, baseTime, false)
		flagged := seedTxn(t, store, "ACC-001", 200, baseTime, true)

		got, err := store.FindFlagged(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, flagged.ID, got[0].ID)
	})

	t.Run("high value listing filters amount and time", func(t *testing.T) {
		store := NewInMemoryTransactionStore()
		seedTxn(t, store, "ACC-001", 500, baseTime, false)
		big := seedTxn(t, store, "ACC-001", 15000, baseTime, false)
		seedTxn(t, store, "ACC-001", 20000, baseTime.Add(-48*time.Hour), false)

		got, err := store.FindHighValue(ctx, decimal.NewFromInt(10000), baseTime.Add(-24*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, big.ID, got[0].ID)
	})

	t.Run("update compliance fields", func(t *testing.T) {
		store := NewInMemoryTransactionStore()
		seeded := seedTxn(t, store, "ACC-001", 100, baseTime, false)

		seeded.IsFlagged = true
		seeded.RiskScore = 8.0
		seeded.ComplianceStatus = domain.ComplianceUnderReview
		require.NoError(t, store.UpdateComplianceFields(ctx, seeded))

		found, err := store.FindByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.True(t, found.IsFlagged)
		assert.Equal(t, 8.0, found.RiskScore)
		assert.Equal(t, domain.ComplianceUnderReview, found.ComplianceStatus)
	})

	t.Run("returned copies do not alias the store", func(t *testing.T) {
		store := NewInMemoryTransactionStore()
		seeded := seedTxn(t, store, "ACC-001", 100, baseTime, false)

		found, err := store.FindByID(ctx, seeded.ID)
		require.NoError(t, err)
		found.AccountID = "TAMPERED"

		again, err := store.FindByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, "ACC-001", again.AccountID)
	})
}

func seedViolation(t *testing.T, store *InMemoryViolationStore, severity domain.Severity, status domain.ViolationStatus, at time.Time) *domain.Violation {
	t.Helper()
	v := &domain.Violation{
		ID:         uuid.New(),
		Type:       domain.ViolationTransactionLimit,
		Severity:   severity,
		Title:      "test violation",
		Status:     status,
		RiskScore:  5,
		DetectedAt: at,
		Data:       domain.ViolationData{"transaction_amount": 15000.0},
	}
	require.NoError(t, store.Insert(context.Background(), v))
	return v
}

func TestInMemoryViolationStore(t *testing.T) {
	ctx := context.Background()

	t.Run("filter by severity and status", func(t *testing.T) {
		store := NewInMemoryViolationStore()
		critical := seedViolation(t, store, domain.SeverityCritical, domain.StatusOpen, baseTime)
		seedViolation(t, store, domain.SeverityHigh, domain.StatusOpen, baseTime)
		seedViolation(t, store, domain.SeverityCritical, domain.StatusResolved, baseTime)

		severity := domain.SeverityCritical
		status := domain.StatusOpen
		got, err := store.FindByFilter(ctx, ViolationFilter{Severity: &severity, Status: &status})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, critical.ID, got[0].ID)
	})

	t.Run("active excludes terminal states", func(t *testing.T) {
		store := NewInMemoryViolationStore()
		seedViolation(t, store, domain.SeverityCritical, domain.StatusOpen, baseTime)
		seedViolation(t, store, domain.SeverityHigh, domain.StatusInvestigating, baseTime)
		seedViolation(t, store, domain.SeverityHigh, domain.StatusResolved, baseTime)
		seedViolation(t, store, domain.SeverityHigh, domain.StatusClosed, baseTime)

		got, err := store.FindActive(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("update round-trips violation data", func(t *testing.T) {
		store := NewInMemoryViolationStore()
		seeded := seedViolation(t, store, domain.SeverityHigh, domain.StatusOpen, baseTime)

		seeded.Status = domain.StatusResolved
		resolvedAt := baseTime.Add(time.Hour)
		seeded.ResolvedAt = &resolvedAt
		require.NoError(t, store.Update(ctx, seeded))

		found, err := store.FindByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, found.Status)
		require.NotNil(t, found.ResolvedAt)

		amount, ok := found.Data.Float64("transaction_amount")
		require.True(t, ok)
		assert.Equal(t, 15000.0, amount)
	})

	t.Run("update unknown violation returns not found", func(t *testing.T) {
		store := NewInMemoryViolationStore()
		err := store.Update(ctx, &domain.Violation{ID: uuid.New()})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInMemoryPatternStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryPatternStore()

	batch := []*domain.TransactionPattern{
		{ID: uuid.New(), AccountID: "ACC-001", Type: domain.PatternVelocity},
		{ID: uuid.New(), AccountID: "ACC-001", Type: domain.PatternAmount},
		{ID: uuid.New(), AccountID: "ACC-OTHER", Type: domain.PatternTemporal},
	}
	require.NoError(t, store.InsertBatch(ctx, batch))

	assert.Len(t, store.ListByAccount("ACC-001"), 2)
	assert.Len(t, store.ListByAccount("ACC-OTHER"), 1)
	assert.Empty(t, store.ListByAccount("ACC-NONE"))
}
