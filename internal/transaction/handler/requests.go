package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"compliance-monitor/internal/domain"
	dErrors "compliance-monitor/pkg/domain-errors"
)

// CreateTransactionRequest is the HTTP request body for POST /transactions.
type CreateTransactionRequest struct {
	AccountID       string          `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionType string          `json:"transaction_type"`

	Description         string     `json:"description,omitempty"`
	CounterpartyAccount string     `json:"counterparty_account,omitempty"`
	CounterpartyName    string     `json:"counterparty_name,omitempty"`
	CounterpartyBank    string     `json:"counterparty_bank,omitempty"`
	Channel             string     `json:"channel,omitempty"`
	LocationCountry     string     `json:"location_country,omitempty"`
	LocationCity        string     `json:"location_city,omitempty"`
	IPAddress           string     `json:"ip_address,omitempty"`
	Timestamp           *time.Time `json:"timestamp,omitempty"`

	parsedType domain.TransactionType
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateTransactionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.AccountID = strings.TrimSpace(r.AccountID)
	if r.AccountID == "" {
		return dErrors.Validation("account_id", "non-empty account identifier", r.AccountID)
	}

	parsed, err := domain.ParseTransactionType(strings.ToUpper(strings.TrimSpace(r.TransactionType)))
	if err != nil {
		return err
	}
	r.parsedType = parsed

	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.LocationCountry = strings.ToUpper(strings.TrimSpace(r.LocationCountry))
	return nil
}

// ToDomain builds the domain transaction. Structural checks beyond parsing
// run in the domain Validate, keeping one source of truth.
func (r *CreateTransactionRequest) ToDomain() *domain.Transaction {
	txn := &domain.Transaction{
		AccountID:           r.AccountID,
		Amount:              r.Amount,
		Currency:            r.Currency,
		Type:                r.parsedType,
		Description:         r.Description,
		CounterpartyAccount: r.CounterpartyAccount,
		CounterpartyName:    r.CounterpartyName,
		CounterpartyBank:    r.CounterpartyBank,
		Channel:             r.Channel,
		Country:             r.LocationCountry,
		City:                r.LocationCity,
		IPAddress:           r.IPAddress,
	}
	if r.Timestamp != nil {
		txn.Timestamp = *r.Timestamp
	}
	return txn
}
