package compliance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"compliance-monitor/internal/compliance/metrics"
	"compliance-monitor/internal/domain"
	"compliance-monitor/internal/events"
	"compliance-monitor/internal/storage"
	dErrors "compliance-monitor/pkg/domain-errors"
	"compliance-monitor/pkg/requestcontext"
)

// Lifecycle manages violation case state after detection: manual entry,
// queries, and resolution.
type Lifecycle struct {
	violations storage.ViolationStore
	publisher  events.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewLifecycle(violations storage.ViolationStore, publisher events.Publisher, logger *slog.Logger, m *metrics.Metrics) *Lifecycle {
	return &Lifecycle{violations: violations, publisher: publisher, logger: logger, metrics: m}
}

// Create records a manually entered violation, as raised by a compliance
// officer outside the automated rule path. The caller supplies type, severity,
// and narrative; identity and detection time are stamped here.
func (l *Lifecycle) Create(ctx context.Context, v *domain.Violation) (*domain.Violation, error) {
	if v.Type == "" {
		return nil, dErrors.Validation("violation_type", "a known violation type", v.Type)
	}
	if v.Severity == "" {
		return nil, dErrors.Validation("severity", "a known severity", v.Severity)
	}
	if v.Title == "" {
		return nil, dErrors.Validation("title", "non-empty title", v.Title)
	}

	v.ID = uuid.New()
	v.Status = domain.StatusOpen
	v.DetectedAt = requestcontext.Now(ctx)
	if v.Data == nil {
		v.Data = domain.ViolationData{}
	}

	if err := l.violations.Insert(ctx, v); err != nil {
		return nil, fmt.Errorf("create violation: %w", err)
	}

	l.logger.InfoContext(ctx, "violation created manually",
		"violation_id", v.ID, "violation_type", v.Type, "severity", v.Severity,
		"actor", requestcontext.Actor(ctx))
	return v, nil
}

// Get returns one violation by id.
func (l *Lifecycle) Get(ctx context.Context, id uuid.UUID) (*domain.Violation, error) {
	v, err := l.violations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get violation %s: %w", id, err)
	}
	return v, nil
}

// List returns violations matching the filter, newest first.
func (l *Lifecycle) List(ctx context.Context, filter storage.ViolationFilter) ([]*domain.Violation, error) {
	vs, err := l.violations.FindByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	return vs, nil
}

// ActiveSummary describes the open caseload: counts per severity plus the
// most recent critical cases needing attention.
type ActiveSummary struct {
	TotalActive       int
	BySeverity        map[domain.Severity]int
	CriticalAttention []*domain.Violation
}

// criticalAttentionLimit caps the highlighted critical cases in the summary.
const criticalAttentionLimit = 5

// Active summarizes OPEN and INVESTIGATING violations, optionally narrowed
// to one severity.
func (l *Lifecycle) Active(ctx context.Context, severity *domain.Severity) (*ActiveSummary, error) {
	vs, err := l.violations.FindActive(ctx, severity)
	if err != nil {
		return nil, fmt.Errorf("list active violations: %w", err)
	}

	summary := &ActiveSummary{
		TotalActive: len(vs),
		BySeverity:  make(map[domain.Severity]int),
	}
	for _, v := range vs {
		summary.BySeverity[v.Severity]++
		if v.Severity == domain.SeverityCritical && len(summary.CriticalAttention) < criticalAttentionLimit {
			summary.CriticalAttention = append(summary.CriticalAttention, v)
		}
	}
	return summary, nil
}

// Resolve closes out a violation case. Unknown ids surface as not_found;
// violations already RESOLVED or CLOSED are rejected with conflict so the
// original resolution record is never overwritten.
func (l *Lifecycle) Resolve(ctx context.Context, id uuid.UUID, notes, resolvedBy string) (*domain.Violation, error) {
	v, err := l.violations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve violation %s: %w", id, err)
	}

	now := requestcontext.Now(ctx)
	if err := v.Resolve(now, notes, resolvedBy); err != nil {
		return nil, err
	}

	if err := l.violations.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("persist violation resolution %s: %w", id, err)
	}

	l.metrics.RecordResolution()
	l.logger.InfoContext(ctx, "violation resolved",
		"violation_id", v.ID, "violation_type", v.Type, "resolved_by", resolvedBy)

	violationID := v.ID
	event := events.Event{
		Type:          events.EventViolationResolved,
		Timestamp:     now,
		TransactionID: v.TransactionID,
		ViolationID:   &violationID,
		ViolationType: string(v.Type),
		Severity:      string(v.Severity),
		RequestID:     requestcontext.RequestID(ctx),
	}
	if err := l.publisher.Emit(ctx, event); err != nil {
		l.logger.WarnContext(ctx, "resolution event emission failed",
			"violation_id", v.ID, "error", err)
	}

	return v, nil
}
