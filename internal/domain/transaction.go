package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dErrors "compliance-monitor/pkg/domain-errors"
)

// TransactionType classifies the direction of a financial event.
type TransactionType string

const (
	TransactionDebit    TransactionType = "DEBIT"
	TransactionCredit   TransactionType = "CREDIT"
	TransactionTransfer TransactionType = "TRANSFER"
)

// ComplianceStatus tracks where a transaction sits in the review pipeline.
type ComplianceStatus string

const (
	CompliancePending     ComplianceStatus = "PENDING"
	ComplianceUnderReview ComplianceStatus = "UNDER_REVIEW"
	ComplianceApproved    ComplianceStatus = "APPROVED"
	ComplianceRejected    ComplianceStatus = "REJECTED"
)

// Transaction is a financial event, immutable once created except for the
// compliance fields (IsFlagged, RiskScore, ComplianceStatus) which the
// evaluator sets exactly once, immediately after rule evaluation.
type Transaction struct {
	ID        uuid.UUID
	AccountID string
	Amount    decimal.Decimal
	Currency  string
	Type      TransactionType

	Description         string
	CounterpartyAccount string
	CounterpartyName    string
	CounterpartyBank    string
	Channel             string
	Country             string
	City                string
	IPAddress           string
	Timestamp           time.Time

	IsFlagged        bool
	RiskScore        float64
	ComplianceStatus ComplianceStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParseTransactionType validates a transaction type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionDebit, TransactionCredit, TransactionTransfer:
		return TransactionType(s), nil
	default:
		return "", dErrors.Validation("transaction_type", "one of DEBIT, CREDIT, TRANSFER", s)
	}
}

// Validate performs the structural data-quality checks that must pass before
// any persistence or rule evaluation.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.AccountID) == "" {
		return dErrors.Validation("account_id", "non-empty account identifier", t.AccountID)
	}
	if !t.Amount.IsPositive() {
		return dErrors.Validation("amount", "positive decimal amount", t.Amount)
	}
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		return err
	}
	if len(t.Currency) != 3 {
		return dErrors.Validation("currency", "3-letter ISO currency code", t.Currency)
	}
	if t.Country != "" && len(t.Country) != 3 {
		return dErrors.Validation("location_country", "3-letter ISO country code", t.Country)
	}
	return nil
}
