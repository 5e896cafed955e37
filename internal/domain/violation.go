package domain

import (
	"time"

	"github.com/google/uuid"

	dErrors "compliance-monitor/pkg/domain-errors"
)

// ViolationType identifies the regulatory concern a violation records.
type ViolationType string

const (
	ViolationTransactionLimit  ViolationType = "TRANSACTION_LIMIT"
	ViolationSuspiciousPattern ViolationType = "SUSPICIOUS_PATTERN"
	ViolationRegulatoryBreach  ViolationType = "REGULATORY_BREACH"
	ViolationDataQuality       ViolationType = "DATA_QUALITY"
	ViolationAuthorization     ViolationType = "AUTHORIZATION"
	ViolationReporting         ViolationType = "REPORTING"
	ViolationRiskThreshold     ViolationType = "RISK_THRESHOLD"
)

// Severity ranks how urgently a violation needs attention.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// ViolationStatus is the case-management state. OPEN and INVESTIGATING are
// active; RESOLVED and CLOSED are terminal.
type ViolationStatus string

const (
	StatusOpen          ViolationStatus = "OPEN"
	StatusInvestigating ViolationStatus = "INVESTIGATING"
	StatusResolved      ViolationStatus = "RESOLVED"
	StatusClosed        ViolationStatus = "CLOSED"
)

// Resolution SLAs: violations left active past these deadlines are overdue.
const (
	criticalResolutionSLA = 24 * time.Hour
	highResolutionSLA     = 72 * time.Hour
)

// ViolationData is an open payload keyed by string with typed accessors for
// the keys rules are known to set. Unknown keys pass through untouched.
type ViolationData map[string]any

// Float64 returns the value under key as a float64 when present.
func (d ViolationData) Float64(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Int returns the value under key as an int when present.
func (d ViolationData) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Bool returns the value under key as a bool when present.
func (d ViolationData) Bool(key string) (bool, bool) {
	v, ok := d[key].(bool)
	return v, ok
}

// String returns the value under key as a string when present.
func (d ViolationData) String(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

// Violation records one rule trigger, or a manually filed breach. It may
// exist standalone: TransactionID is nil for manual entries.
type Violation struct {
	ID          uuid.UUID
	Type        ViolationType
	Severity    Severity
	Title       string
	Description string

	RegulatoryFramework string
	StandardReference   string
	RequirementID       string

	TransactionID *uuid.UUID

	RiskScore       float64
	ConfidenceScore float64

	Status          ViolationStatus
	AssignedTo      string
	ResolutionNotes string

	DetectedAt     time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time

	Data               ViolationData
	RemediationActions []string
}

// IsOpen reports whether the violation still needs work.
func (v *Violation) IsOpen() bool {
	return v.Status == StatusOpen || v.Status == StatusInvestigating
}

// IsOverdue computes the resolution SLA at read time; nothing is stored.
// CRITICAL violations are overdue 24h after detection, HIGH after 72h.
// Lower severities have no SLA. Always false once resolved or closed.
func (v *Violation) IsOverdue(now time.Time) bool {
	if !v.IsOpen() {
		return false
	}
	switch v.Severity {
	case SeverityCritical:
		return now.Sub(v.DetectedAt) > criticalResolutionSLA
	case SeverityHigh:
		return now.Sub(v.DetectedAt) > highResolutionSLA
	default:
		return false
	}
}

// Resolve transitions the violation to RESOLVED. Terminal violations are not
// re-resolvable: the first resolution is authoritative and ResolvedAt never
// changes afterwards.
func (v *Violation) Resolve(now time.Time, notes, resolvedBy string) error {
	if !v.IsOpen() {
		return dErrors.Newf(dErrors.CodeConflict, "violation %s already %s", v.ID, v.Status)
	}
	v.Status = StatusResolved
	v.ResolvedAt = &now
	v.ResolutionNotes = notes
	v.AssignedTo = resolvedBy
	return nil
}

// ParseSeverity validates a severity string, typically from a query filter.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return Severity(s), nil
	default:
		return "", dErrors.Validation("severity", "one of CRITICAL, HIGH, MEDIUM, LOW, INFO", s)
	}
}

// ParseViolationStatus validates a status string.
func ParseViolationStatus(s string) (ViolationStatus, error) {
	switch ViolationStatus(s) {
	case StatusOpen, StatusInvestigating, StatusResolved, StatusClosed:
		return ViolationStatus(s), nil
	default:
		return "", dErrors.Validation("status", "one of OPEN, INVESTIGATING, RESOLVED, CLOSED", s)
	}
}

// ParseViolationType validates a violation type string.
func ParseViolationType(s string) (ViolationType, error) {
	switch ViolationType(s) {
	case ViolationTransactionLimit, ViolationSuspiciousPattern, ViolationRegulatoryBreach,
		ViolationDataQuality, ViolationAuthorization, ViolationReporting, ViolationRiskThreshold:
		return ViolationType(s), nil
	default:
		return "", dErrors.Validation("violation_type", "a known violation type", s)
	}
}
