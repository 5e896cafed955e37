package domain

import (
	"time"

	"github.com/google/uuid"
)

// PatternType classifies a statistical anomaly across multiple transactions.
type PatternType string

const (
	PatternVelocity   PatternType = "VELOCITY"
	PatternAmount     PatternType = "AMOUNT"
	PatternTemporal   PatternType = "TEMPORAL"
	PatternGeographic PatternType = "GEOGRAPHIC"
)

// TransactionPattern is an advisory record produced by windowed analysis.
// It is distinct from a Violation: detection does not open a case.
type TransactionPattern struct {
	ID              uuid.UUID
	AccountID       string
	Type            PatternType
	Description     string
	ConfidenceScore float64
	FrequencyCount  int
	TimeWindowHours int
	FirstDetectedAt time.Time
	LastDetectedAt  time.Time
	IsActive        bool
	TransactionIDs  []uuid.UUID
}
