package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"compliance-monitor/internal/domain"
)

// In-memory stores keep development and tests lightweight. They intentionally
// favor clarity over performance and return copies so callers never share
// mutable state with the store.

type InMemoryTransactionStore struct {
	mu   sync.RWMutex
	txns map[uuid.UUID]domain.Transaction
}

func NewInMemoryTransactionStore() *InMemoryTransactionStore {
	return &InMemoryTransactionStore{txns: make(map[uuid.UUID]domain.Transaction)}
}

func (s *InMemoryTransactionStore) Insert(_ context.Context, txn *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[txn.ID] = *txn
	return nil
}

func (s *InMemoryTransactionStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if txn, ok := s.txns[id]; ok {
		return &txn, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryTransactionStore) FindByAccount(_ context.Context, accountID string, window TimeRange, limit, offset int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*domain.Transaction, 0)
	for _, txn := range s.txns {
		if txn.AccountID != accountID || !window.Contains(txn.Timestamp) {
			continue
		}
		t := txn
		matches = append(matches, &t)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})
	return paginate(matches, limit, offset), nil
}

func (s *InMemoryTransactionStore) FindFlagged(_ context.Context, limit int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*domain.Transaction, 0)
	for _, txn := range s.txns {
		if txn.IsFlagged {
			t := txn
			matches = append(matches, &t)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})
	return paginate(matches, limit, 0), nil
}

func (s *InMemoryTransactionStore) FindHighValue(_ context.Context, threshold decimal.Decimal, since time.Time) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*domain.Transaction, 0)
	for _, txn := range s.txns {
		if txn.Amount.GreaterThanOrEqual(threshold) && !txn.Timestamp.Before(since) {
			t := txn
			matches = append(matches, &t)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Amount.GreaterThan(matches[j].Amount)
	})
	return matches, nil
}

func (s *InMemoryTransactionStore) UpdateComplianceFields(_ context.Context, txn *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.txns[txn.ID]
	if !ok {
		return ErrNotFound
	}
	stored.IsFlagged = txn.IsFlagged
	stored.RiskScore = txn.RiskScore
	stored.ComplianceStatus = txn.ComplianceStatus
	stored.UpdatedAt = txn.UpdatedAt
	s.txns[txn.ID] = stored
	return nil
}

type InMemoryViolationStore struct {
	mu         sync.RWMutex
	violations map[uuid.UUID]domain.Violation
}

func NewInMemoryViolationStore() *InMemoryViolationStore {
	return &InMemoryViolationStore{violations: make(map[uuid.UUID]domain.Violation)}
}

func (s *InMemoryViolationStore) Insert(_ context.Context, v *domain.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations[v.ID] = cloneViolation(v)
	return nil
}

func (s *InMemoryViolationStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.violations[id]; ok {
		out := cloneViolation(&v)
		return &out, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryViolationStore) FindByFilter(_ context.Context, filter ViolationFilter) ([]*domain.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*domain.Violation, 0)
	for _, v := range s.violations {
		if filter.Severity != nil && v.Severity != *filter.Severity {
			continue
		}
		if filter.Status != nil && v.Status != *filter.Status {
			continue
		}
		out := cloneViolation(&v)
		matches = append(matches, &out)
	}
	sortViolations(matches)
	return paginate(matches, filter.Limit, filter.Offset), nil
}

func (s *InMemoryViolationStore) FindActive(_ context.Context, severity *domain.Severity) ([]*domain.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*domain.Violation, 0)
	for _, v := range s.violations {
		if !v.IsOpen() {
			continue
		}
		if severity != nil && v.Severity != *severity {
			continue
		}
		out := cloneViolation(&v)
		matches = append(matches, &out)
	}
	sortViolations(matches)
	return matches, nil
}

func (s *InMemoryViolationStore) Update(_ context.Context, v *domain.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.violations[v.ID]; !ok {
		return ErrNotFound
	}
	s.violations[v.ID] = cloneViolation(v)
	return nil
}

type InMemoryPatternStore struct {
	mu       sync.RWMutex
	patterns []domain.TransactionPattern
}

func NewInMemoryPatternStore() *InMemoryPatternStore {
	return &InMemoryPatternStore{}
}

func (s *InMemoryPatternStore) InsertBatch(_ context.Context, patterns []*domain.TransactionPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range patterns {
		s.patterns = append(s.patterns, *p)
	}
	return nil
}

// ListByAccount is a test and demo convenience not part of the PatternStore
// contract.
func (s *InMemoryPatternStore) ListByAccount(accountID string) []domain.TransactionPattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TransactionPattern, 0)
	for _, p := range s.patterns {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out
}

func cloneViolation(v *domain.Violation) domain.Violation {
	out := *v
	if v.Data != nil {
		out.Data = make(domain.ViolationData, len(v.Data))
		for k, val := range v.Data {
			out.Data[k] = val
		}
	}
	if v.RemediationActions != nil {
		out.RemediationActions = append([]string(nil), v.RemediationActions...)
	}
	return out
}

func sortViolations(vs []*domain.Violation) {
	sort.Slice(vs, func(i, j int) bool {
		return vs[i].DetectedAt.After(vs[j].DetectedAt)
	})
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
