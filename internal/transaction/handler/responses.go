package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"compliance-monitor/internal/domain"
)

// TransactionResponse is the HTTP representation of a transaction.
type TransactionResponse struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionType string          `json:"transaction_type"`

	Description         string `json:"description,omitempty"`
	CounterpartyAccount string `json:"counterparty_account,omitempty"`
	CounterpartyName    string `json:"counterparty_name,omitempty"`
	CounterpartyBank    string `json:"counterparty_bank,omitempty"`
	Channel             string `json:"channel,omitempty"`
	LocationCountry     string `json:"location_country,omitempty"`
	LocationCity        string `json:"location_city,omitempty"`
	IPAddress           string `json:"ip_address,omitempty"`

	Timestamp        time.Time `json:"timestamp"`
	IsFlagged        bool      `json:"is_flagged"`
	RiskScore        float64   `json:"risk_score"`
	ComplianceStatus string    `json:"compliance_status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FromTransaction converts a domain transaction to its HTTP shape.
func FromTransaction(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                  t.ID.String(),
		AccountID:           t.AccountID,
		Amount:              t.Amount,
		Currency:            t.Currency,
		TransactionType:     string(t.Type),
		Description:         t.Description,
		CounterpartyAccount: t.CounterpartyAccount,
		CounterpartyName:    t.CounterpartyName,
		CounterpartyBank:    t.CounterpartyBank,
		Channel:             t.Channel,
		LocationCountry:     t.Country,
		LocationCity:        t.City,
		IPAddress:           t.IPAddress,
		Timestamp:           t.Timestamp,
		IsFlagged:           t.IsFlagged,
		RiskScore:           t.RiskScore,
		ComplianceStatus:    string(t.ComplianceStatus),
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

// FromTransactions converts a slice, preserving order.
func FromTransactions(ts []*domain.Transaction) []*TransactionResponse {
	out := make([]*TransactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, FromTransaction(t))
	}
	return out
}

// ViolationSummary is the slim violation shape embedded in the create
// response; full case details live under /violations.
type ViolationSummary struct {
	ID            string  `json:"id"`
	ViolationType string  `json:"violation_type"`
	Severity      string  `json:"severity"`
	Title         string  `json:"title"`
	RiskScore     float64 `json:"risk_score"`
}

// CreateTransactionResponse pairs the stored transaction with any violations
// its creation triggered.
type CreateTransactionResponse struct {
	Transaction *TransactionResponse `json:"transaction"`
	Violations  []ViolationSummary   `json:"violations"`
}

// FromCreateResult converts the service result to the HTTP response.
func FromCreateResult(txn *domain.Transaction, violations []*domain.Violation) *CreateTransactionResponse {
	summaries := make([]ViolationSummary, 0, len(violations))
	for _, v := range violations {
		summaries = append(summaries, ViolationSummary{
			ID:            v.ID.String(),
			ViolationType: string(v.Type),
			Severity:      string(v.Severity),
			Title:         v.Title,
			RiskScore:     v.RiskScore,
		})
	}
	return &CreateTransactionResponse{
		Transaction: FromTransaction(txn),
		Violations:  summaries,
	}
}

// PatternResponse is the HTTP representation of a detected pattern.
type PatternResponse struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	PatternType     string    `json:"pattern_type"`
	Description     string    `json:"description"`
	ConfidenceScore float64   `json:"confidence_score"`
	FrequencyCount  int       `json:"frequency_count"`
	TimeWindowHours int       `json:"time_window_hours"`
	FirstDetectedAt time.Time `json:"first_detected_at"`
	LastDetectedAt  time.Time `json:"last_detected_at"`
	IsActive        bool      `json:"is_active"`
	TransactionIDs  []string  `json:"transaction_ids"`
}

// FromPatterns converts detected patterns to their HTTP shape.
func FromPatterns(ps []*domain.TransactionPattern) []*PatternResponse {
	out := make([]*PatternResponse, 0, len(ps))
	for _, p := range ps {
		ids := make([]string, 0, len(p.TransactionIDs))
		for _, id := range p.TransactionIDs {
			ids = append(ids, id.String())
		}
		out = append(out, &PatternResponse{
			ID:              p.ID.String(),
			AccountID:       p.AccountID,
			PatternType:     string(p.Type),
			Description:     p.Description,
			ConfidenceScore: p.ConfidenceScore,
			FrequencyCount:  p.FrequencyCount,
			TimeWindowHours: p.TimeWindowHours,
			FirstDetectedAt: p.FirstDetectedAt,
			LastDetectedAt:  p.LastDetectedAt,
			IsActive:        p.IsActive,
			TransactionIDs:  ids,
		})
	}
	return out
}
