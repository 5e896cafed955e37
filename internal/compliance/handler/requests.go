package handler

import (
	"strings"

	"github.com/google/uuid"

	"compliance-monitor/internal/domain"
	dErrors "compliance-monitor/pkg/domain-errors"
)

// CreateViolationRequest is the HTTP request body for POST /violations,
// the manual case-entry path used by compliance officers.
type CreateViolationRequest struct {
	ViolationType string `json:"violation_type"`
	Severity      string `json:"severity"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`

	RegulatoryFramework string `json:"regulatory_framework,omitempty"`
	StandardReference   string `json:"standard_reference,omitempty"`
	RequirementID       string `json:"requirement_id,omitempty"`

	TransactionID string `json:"transaction_id,omitempty"`

	RiskScore          float64        `json:"risk_score,omitempty"`
	ConfidenceScore    float64        `json:"confidence_score,omitempty"`
	AssignedTo         string         `json:"assigned_to,omitempty"`
	ViolationData      map[string]any `json:"violation_data,omitempty"`
	RemediationActions []string       `json:"remediation_actions,omitempty"`

	parsedType          domain.ViolationType
	parsedSeverity      domain.Severity
	parsedTransactionID *uuid.UUID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateViolationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	parsedType, err := domain.ParseViolationType(strings.ToUpper(strings.TrimSpace(r.ViolationType)))
	if err != nil {
		return err
	}
	r.parsedType = parsedType

	parsedSeverity, err := domain.ParseSeverity(strings.ToUpper(strings.TrimSpace(r.Severity)))
	if err != nil {
		return err
	}
	r.parsedSeverity = parsedSeverity

	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return dErrors.Validation("title", "non-empty title", r.Title)
	}

	if r.RiskScore < 0 || r.RiskScore > 10 {
		return dErrors.Validation("risk_score", "value between 0 and 10", r.RiskScore)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return dErrors.Validation("confidence_score", "value between 0 and 1", r.ConfidenceScore)
	}

	if r.TransactionID != "" {
		id, err := uuid.Parse(r.TransactionID)
		if err != nil {
			return dErrors.Validation("transaction_id", "transaction UUID", r.TransactionID)
		}
		r.parsedTransactionID = &id
	}
	return nil
}

// ToDomain builds the domain violation from the validated request.
func (r *CreateViolationRequest) ToDomain() *domain.Violation {
	return &domain.Violation{
		Type:                r.parsedType,
		Severity:            r.parsedSeverity,
		Title:               r.Title,
		Description:         r.Description,
		RegulatoryFramework: r.RegulatoryFramework,
		StandardReference:   r.StandardReference,
		RequirementID:       r.RequirementID,
		TransactionID:       r.parsedTransactionID,
		RiskScore:           r.RiskScore,
		ConfidenceScore:     r.ConfidenceScore,
		AssignedTo:          r.AssignedTo,
		Data:                domain.ViolationData(r.ViolationData),
		RemediationActions:  r.RemediationActions,
	}
}

// ResolveViolationRequest is the HTTP request body for
// POST /violations/{id}/resolve.
type ResolveViolationRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
	ResolvedBy      string `json:"resolved_by,omitempty"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ResolveViolationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ResolutionNotes = strings.TrimSpace(r.ResolutionNotes)
	if r.ResolutionNotes == "" {
		return dErrors.Validation("resolution_notes", "non-empty resolution notes", r.ResolutionNotes)
	}
	return nil
}
