package handler

import (
	"time"

	"compliance-monitor/internal/compliance"
	"compliance-monitor/internal/domain"
)

// ViolationResponse is the HTTP representation of a violation case.
type ViolationResponse struct {
	ID            string `json:"id"`
	ViolationType string `json:"violation_type"`
	Severity      string `json:"severity"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`

	RegulatoryFramework string `json:"regulatory_framework,omitempty"`
	StandardReference   string `json:"standard_reference,omitempty"`
	RequirementID       string `json:"requirement_id,omitempty"`

	TransactionID *string `json:"transaction_id,omitempty"`

	RiskScore       float64 `json:"risk_score"`
	ConfidenceScore float64 `json:"confidence_score"`

	Status          string `json:"status"`
	AssignedTo      string `json:"assigned_to,omitempty"`
	ResolutionNotes string `json:"resolution_notes,omitempty"`

	DetectedAt     time.Time  `json:"detected_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	IsOverdue      bool       `json:"is_overdue"`

	ViolationData      map[string]any `json:"violation_data,omitempty"`
	RemediationActions []string       `json:"remediation_actions,omitempty"`
}

// FromViolation converts a domain violation to its HTTP shape; overdue state
// is computed against now so clients never re-derive SLA math.
func FromViolation(v *domain.Violation, now time.Time) *ViolationResponse {
	resp := &ViolationResponse{
		ID:                  v.ID.String(),
		ViolationType:       string(v.Type),
		Severity:            string(v.Severity),
		Title:               v.Title,
		Description:         v.Description,
		RegulatoryFramework: v.RegulatoryFramework,
		StandardReference:   v.StandardReference,
		RequirementID:       v.RequirementID,
		RiskScore:           v.RiskScore,
		ConfidenceScore:     v.ConfidenceScore,
		Status:              string(v.Status),
		AssignedTo:          v.AssignedTo,
		ResolutionNotes:     v.ResolutionNotes,
		DetectedAt:          v.DetectedAt,
		AcknowledgedAt:      v.AcknowledgedAt,
		ResolvedAt:          v.ResolvedAt,
		IsOverdue:           v.IsOverdue(now),
		ViolationData:       v.Data,
		RemediationActions:  v.RemediationActions,
	}
	if v.TransactionID != nil {
		id := v.TransactionID.String()
		resp.TransactionID = &id
	}
	return resp
}

// FromViolations converts a slice, preserving order.
func FromViolations(vs []*domain.Violation, now time.Time) []*ViolationResponse {
	out := make([]*ViolationResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, FromViolation(v, now))
	}
	return out
}

// ActiveSummaryResponse is the HTTP shape of the open-caseload summary.
type ActiveSummaryResponse struct {
	TotalActive       int                  `json:"total_active"`
	BySeverity        map[string]int       `json:"by_severity"`
	CriticalAttention []*ViolationResponse `json:"critical_attention"`
}

// FromActiveSummary converts the summary to its HTTP shape.
func FromActiveSummary(s *compliance.ActiveSummary, now time.Time) *ActiveSummaryResponse {
	bySeverity := make(map[string]int, len(s.BySeverity))
	for severity, count := range s.BySeverity {
		bySeverity[string(severity)] = count
	}
	return &ActiveSummaryResponse{
		TotalActive:       s.TotalActive,
		BySeverity:        bySeverity,
		CriticalAttention: FromViolations(s.CriticalAttention, now),
	}
}
