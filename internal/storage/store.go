package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"compliance-monitor/internal/domain"
)

// Stores are interface-driven to keep the domain logic testable and to allow
// swapping in-memory and PostgreSQL persistence without rewiring business
// code. Postgres implementations participate in an ambient *sql.Tx when one
// is present in context (pkg/platform/tx).

// TimeRange bounds a query window; nil endpoints are unbounded.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// ViolationFilter narrows violation listings. Nil fields match everything.
type ViolationFilter struct {
	Severity *domain.Severity
	Status   *domain.ViolationStatus
	Limit    int
	Offset   int
}

type TransactionStore interface {
	Insert(ctx context.Context, txn *domain.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// FindByAccount returns the account's transactions inside the range,
	// newest first.
	FindByAccount(ctx context.Context, accountID string, window TimeRange, limit, offset int) ([]*domain.Transaction, error)
	FindFlagged(ctx context.Context, limit int) ([]*domain.Transaction, error)
	// FindHighValue returns transactions at or above the threshold since the
	// given time, largest first.
	FindHighValue(ctx context.Context, threshold decimal.Decimal, since time.Time) ([]*domain.Transaction, error)
	// UpdateComplianceFields persists only the mutable post-evaluation fields.
	UpdateComplianceFields(ctx context.Context, txn *domain.Transaction) error
}

type ViolationStore interface {
	Insert(ctx context.Context, v *domain.Violation) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Violation, error)
	// FindByFilter returns violations matching the filter, newest first.
	FindByFilter(ctx context.Context, filter ViolationFilter) ([]*domain.Violation, error)
	// FindActive returns OPEN and INVESTIGATING violations, newest first,
	// optionally narrowed to one severity.
	FindActive(ctx context.Context, severity *domain.Severity) ([]*domain.Violation, error)
	Update(ctx context.Context, v *domain.Violation) error
}

type PatternStore interface {
	// InsertBatch persists all patterns from one detection run together.
	InsertBatch(ctx context.Context, patterns []*domain.TransactionPattern) error
}
