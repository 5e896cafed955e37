package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"compliance-monitor/internal/compliance/metrics"
	"compliance-monitor/internal/domain"
	"compliance-monitor/internal/events"
	"compliance-monitor/internal/storage"
	"compliance-monitor/pkg/platform/tx"
	"compliance-monitor/pkg/requestcontext"
)

// Evaluator runs the active rule set against one transaction, aggregates the
// outcome into the transaction's risk fields, and persists everything inside
// a single transactional boundary.
type Evaluator struct {
	registry     *Registry
	contexts     *ContextBuilder
	transactions storage.TransactionStore
	violations   storage.ViolationStore
	runner       tx.Runner
	publisher    events.Publisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func NewEvaluator(
	registry *Registry,
	contexts *ContextBuilder,
	transactions storage.TransactionStore,
	violations storage.ViolationStore,
	runner tx.Runner,
	publisher events.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Evaluator {
	return &Evaluator{
		registry:     registry,
		contexts:     contexts,
		transactions: transactions,
		violations:   violations,
		runner:       runner,
		publisher:    publisher,
		logger:       logger,
		metrics:      m,
	}
}

// Evaluate builds the context once, runs every rule in registry order, and
// returns the triggered violations with IDs, status, detection time, and the
// transaction reference stamped. A rule that errors or panics is logged and
// skipped; one bad rule never blocks the rest or fails the transaction.
func (e *Evaluator) Evaluate(ctx context.Context, txn *domain.Transaction) ([]*domain.Violation, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveEvaluateLatency(time.Since(start)) }()

	evalCtx, err := e.contexts.Build(ctx, txn)
	if err != nil {
		return nil, err
	}

	violations := make([]*domain.Violation, 0)
	for _, rule := range e.registry.Rules() {
		violation := e.runRule(ctx, rule, txn, evalCtx)
		if violation == nil {
			continue
		}

		violation.ID = uuid.New()
		violation.Status = domain.StatusOpen
		violation.DetectedAt = evalCtx.EvaluatedAt
		txnID := txn.ID
		violation.TransactionID = &txnID

		violations = append(violations, violation)
		e.metrics.RecordViolation(rule.RuleID(), string(violation.Severity))

		e.logger.InfoContext(ctx, "compliance violation detected",
			"rule_id", rule.RuleID(),
			"violation_type", violation.Type,
			"severity", violation.Severity,
			"transaction_id", txn.ID,
			"risk_score", violation.RiskScore,
		)
	}

	return violations, nil
}

// runRule isolates a single rule invocation. Panics are converted into a
// logged skip so a defective rule cannot take down the evaluation.
func (e *Evaluator) runRule(ctx context.Context, rule Rule, txn *domain.Transaction, evalCtx *EvalContext) (violation *domain.Violation) {
	defer func() {
		if r := recover(); r != nil {
			violation = nil
			e.metrics.RecordRuleFailure(rule.RuleID())
			e.logger.ErrorContext(ctx, "compliance rule failed, skipping",
				"rule_id", rule.RuleID(),
				"transaction_id", txn.ID,
				"error", fmt.Sprint(r),
			)
		}
	}()
	return rule.Evaluate(txn, evalCtx)
}

// ApplyRiskAssessment derives the transaction's flag state from the violation
// set. With violations present: flagged, UNDER_REVIEW, risk score = max of
// the violations' scores. With none, the transaction keeps its initial
// PENDING, unflagged state; this never downgrades an already-flagged
// transaction.
func ApplyRiskAssessment(txn *domain.Transaction, violations []*domain.Violation, now time.Time) {
	if len(violations) == 0 {
		return
	}
	txn.IsFlagged = true
	txn.ComplianceStatus = domain.ComplianceUnderReview
	maxScore := 0.0
	for _, v := range violations {
		if v.RiskScore > maxScore {
			maxScore = v.RiskScore
		}
	}
	txn.RiskScore = maxScore
	txn.UpdatedAt = now
}

// EvaluateAndPersist is the ingestion-path entry point: it evaluates the
// transaction, applies the risk assessment, and persists the transaction,
// its violations, and the flag update atomically. Events are emitted only
// after the commit succeeds.
func (e *Evaluator) EvaluateAndPersist(ctx context.Context, txn *domain.Transaction) ([]*domain.Violation, error) {
	violations, err := e.Evaluate(ctx, txn)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)

	err = e.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := e.transactions.Insert(ctx, txn); err != nil {
			return err
		}
		for _, v := range violations {
			if err := e.violations.Insert(ctx, v); err != nil {
				return err
			}
		}
		if len(violations) > 0 {
			ApplyRiskAssessment(txn, violations, now)
			if err := e.transactions.UpdateComplianceFields(ctx, txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	requestID := requestcontext.RequestID(ctx)
	for _, v := range violations {
		violationID := v.ID
		event := events.Event{
			Type:          events.EventViolationDetected,
			Timestamp:     now,
			AccountID:     txn.AccountID,
			TransactionID: v.TransactionID,
			ViolationID:   &violationID,
			ViolationType: string(v.Type),
			Severity:      string(v.Severity),
			RiskScore:     v.RiskScore,
			RequestID:     requestID,
		}
		if err := e.publisher.Emit(ctx, event); err != nil {
			e.logger.WarnContext(ctx, "violation event emission failed",
				"violation_id", v.ID, "error", err)
		}
	}

	return violations, nil
}
