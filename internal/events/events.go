// Package events publishes compliance lifecycle events to Kafka so downstream
// case-management and reporting systems can react without polling the stores.
// Emission is best-effort: a broker outage must never block transaction
// ingestion, so callers log failures and continue.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names the lifecycle moments the monitor announces.
type EventType string

const (
	EventViolationDetected EventType = "violation_detected"
	EventViolationResolved EventType = "violation_resolved"
	EventPatternsDetected  EventType = "patterns_detected"
)

// Event is the transport-agnostic payload. Keep it flat so consumers in other
// languages can decode it without shared types.
type Event struct {
	Type          EventType  `json:"type"`
	Timestamp     time.Time  `json:"timestamp"`
	AccountID     string     `json:"account_id,omitempty"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	ViolationID   *uuid.UUID `json:"violation_id,omitempty"`
	ViolationType string     `json:"violation_type,omitempty"`
	Severity      string     `json:"severity,omitempty"`
	RuleID        string     `json:"rule_id,omitempty"`
	RiskScore     float64    `json:"risk_score,omitempty"`
	PatternCount  int        `json:"pattern_count,omitempty"`
	RequestID     string     `json:"request_id,omitempty"`
}

// Publisher emits compliance events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close()
}

// NopPublisher drops all events; used when Kafka is not configured.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) error { return nil }
func (NopPublisher) Close()                            {}
