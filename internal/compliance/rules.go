package compliance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"compliance-monitor/internal/domain"
)

// Rule encapsulates one compliance check. Evaluate is a pure function of its
// inputs: it must not mutate the transaction or context, and a nil return is
// the normal "no violation" outcome, never an error.
type Rule interface {
	RuleID() string
	DefaultSeverity() domain.Severity
	Evaluate(txn *domain.Transaction, evalCtx *EvalContext) *domain.Violation
}

const regulatoryFramework = "APRA"
const standardReference = "CPS 234"

// maxRuleRiskScore caps ratio-derived risk scores.
const maxRuleRiskScore = 10.0

// LimitRule flags single transactions above a configured amount.
type LimitRule struct {
	Limit decimal.Decimal
}

func NewLimitRule(limit decimal.Decimal) *LimitRule {
	return &LimitRule{Limit: limit}
}

func (r *LimitRule) RuleID() string                   { return "TXN-LIMIT-001" }
func (r *LimitRule) DefaultSeverity() domain.Severity { return domain.SeverityHigh }

func (r *LimitRule) Evaluate(txn *domain.Transaction, _ *EvalContext) *domain.Violation {
	// Strict comparison: equality to the limit does not trigger.
	if !txn.Amount.GreaterThan(r.Limit) {
		return nil
	}

	ratio := txn.Amount.Div(r.Limit).InexactFloat64()
	return &domain.Violation{
		Type:                domain.ViolationTransactionLimit,
		Severity:            r.DefaultSeverity(),
		Title:               fmt.Sprintf("Transaction Limit Exceeded - %s %s", regulatoryFramework, standardReference),
		Description:         fmt.Sprintf("Transaction amount $%s exceeds limit of $%s", txn.Amount.StringFixed(2), r.Limit.StringFixed(2)),
		RegulatoryFramework: regulatoryFramework,
		StandardReference:   standardReference,
		RequirementID:       "CPS234-TXN-001",
		RiskScore:           min(ratio, maxRuleRiskScore),
		ConfidenceScore:     1.0,
		Data: domain.ViolationData{
			"transaction_amount":   txn.Amount.InexactFloat64(),
			"limit_amount":         r.Limit.InexactFloat64(),
			"excess_amount":        txn.Amount.Sub(r.Limit).InexactFloat64(),
			"violation_percentage": ratio * 100,
		},
		RemediationActions: []string{
			"Review transaction authorization",
			"Verify customer identity",
			"Check for suspicious activity",
			"Report to AUSTRAC if required",
		},
	}
}

// VelocityRule flags accounts exceeding per-hour count or amount limits.
// The context supplies a 24-hour history for the account; narrowing to the
// last hour relative to the evaluation time is this rule's job.
type VelocityRule struct {
	MaxCountPerHour  int
	MaxAmountPerHour decimal.Decimal
}

func NewVelocityRule(maxCount int, maxAmount decimal.Decimal) *VelocityRule {
	return &VelocityRule{MaxCountPerHour: maxCount, MaxAmountPerHour: maxAmount}
}

func (r *VelocityRule) RuleID() string                   { return "TXN-VELOCITY-001" }
func (r *VelocityRule) DefaultSeverity() domain.Severity { return domain.SeverityHigh }

func (r *VelocityRule) Evaluate(txn *domain.Transaction, evalCtx *EvalContext) *domain.Violation {
	oneHourAgo := evalCtx.EvaluatedAt.Add(-time.Hour)

	count := 1 // the transaction under evaluation
	total := txn.Amount
	for _, prior := range evalCtx.RecentTransactions {
		if prior.AccountID != txn.AccountID {
			continue
		}
		if prior.Timestamp.Before(oneHourAgo) {
			continue
		}
		count++
		total = total.Add(prior.Amount)
	}

	overCount := count > r.MaxCountPerHour
	overAmount := total.GreaterThan(r.MaxAmountPerHour)
	if !overCount && !overAmount {
		return nil
	}

	severity := domain.SeverityHigh
	if count > 2*r.MaxCountPerHour {
		severity = domain.SeverityCritical
	}

	countRatio := float64(count) / float64(r.MaxCountPerHour)
	amountRatio := total.Div(r.MaxAmountPerHour).InexactFloat64()

	return &domain.Violation{
		Type:     domain.ViolationSuspiciousPattern,
		Severity: severity,
		Title:    fmt.Sprintf("Transaction Velocity Violation - %s %s", regulatoryFramework, standardReference),
		Description: fmt.Sprintf("Account %s exceeded velocity limits: %d transactions totaling $%s in 1 hour",
			txn.AccountID, count, total.StringFixed(2)),
		RegulatoryFramework: regulatoryFramework,
		StandardReference:   standardReference,
		RequirementID:       "CPS234-VEL-001",
		RiskScore:           max(countRatio, amountRatio),
		ConfidenceScore:     0.9,
		Data: domain.ViolationData{
			"transaction_count": count,
			"max_transactions":  r.MaxCountPerHour,
			"total_amount":      total.InexactFloat64(),
			"max_amount":        r.MaxAmountPerHour.InexactFloat64(),
			"time_window_hours": 1,
			"account_id":        txn.AccountID,
		},
		RemediationActions: []string{
			"Freeze account temporarily",
			"Contact customer for verification",
			"Review transaction patterns",
			"Escalate to compliance team",
		},
	}
}

// GeographicRule flags transactions originating from high-risk countries.
type GeographicRule struct {
	highRisk map[string]struct{}
}

func NewGeographicRule(highRiskCountries []string) *GeographicRule {
	set := make(map[string]struct{}, len(highRiskCountries))
	for _, c := range highRiskCountries {
		set[c] = struct{}{}
	}
	return &GeographicRule{highRisk: set}
}

func (r *GeographicRule) RuleID() string                   { return "TXN-GEO-001" }
func (r *GeographicRule) DefaultSeverity() domain.Severity { return domain.SeverityCritical }

const geographicRiskScore = 8.0

func (r *GeographicRule) Evaluate(txn *domain.Transaction, _ *EvalContext) *domain.Violation {
	if _, listed := r.highRisk[txn.Country]; !listed {
		return nil
	}

	return &domain.Violation{
		Type:     domain.ViolationSuspiciousPattern,
		Severity: r.DefaultSeverity(),
		Title:    fmt.Sprintf("High-Risk Geographic Transaction - %s %s", regulatoryFramework, standardReference),
		Description: fmt.Sprintf("Transaction from high-risk country %s for amount $%s",
			txn.Country, txn.Amount.StringFixed(2)),
		RegulatoryFramework: regulatoryFramework,
		StandardReference:   standardReference,
		RequirementID:       "CPS234-GEO-001",
		RiskScore:           geographicRiskScore,
		ConfidenceScore:     1.0,
		Data: domain.ViolationData{
			"country_code":                    txn.Country,
			"risk_category":                   "HIGH_RISK_COUNTRY",
			"transaction_amount":              txn.Amount.InexactFloat64(),
			"requires_enhanced_due_diligence": true,
		},
		RemediationActions: []string{
			"Enhanced due diligence required",
			"Verify customer identity",
			"Check sanctions lists",
			"Report to AUSTRAC immediately",
		},
	}
}
