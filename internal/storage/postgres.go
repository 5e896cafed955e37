package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"compliance-monitor/internal/domain"
	"compliance-monitor/pkg/platform/tx"
)

// querier is the subset of *sql.DB and *sql.Tx the stores need. Each call
// picks the ambient transaction from context when one is present so the
// evaluator's writes commit atomically.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func runner(ctx context.Context, db *sql.DB) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return db
}

// PostgresTransactionStore persists transactions in PostgreSQL.
type PostgresTransactionStore struct {
	db *sql.DB
}

func NewPostgresTransactionStore(db *sql.DB) *PostgresTransactionStore {
	return &PostgresTransactionStore{db: db}
}

const transactionColumns = `
	id, account_id, amount, currency, transaction_type, description,
	counterparty_account, counterparty_name, counterparty_bank,
	transaction_channel, location_country, location_city, ip_address,
	transaction_timestamp, is_flagged, risk_score, compliance_status,
	created_at, updated_at`

func (s *PostgresTransactionStore) Insert(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := runner(ctx, s.db).ExecContext(ctx, query,
		txn.ID, txn.AccountID, txn.Amount, txn.Currency, txn.Type, txn.Description,
		txn.CounterpartyAccount, txn.CounterpartyName, txn.CounterpartyBank,
		txn.Channel, txn.Country, txn.City, txn.IPAddress,
		txn.Timestamp, txn.IsFlagged, txn.RiskScore, txn.ComplianceStatus,
		txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresTransactionStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := runner(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return txn, nil
}

func (s *PostgresTransactionStore) FindByAccount(ctx context.Context, accountID string, window TimeRange, limit, offset int) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		  AND ($2::timestamptz IS NULL OR transaction_timestamp >= $2)
		  AND ($3::timestamptz IS NULL OR transaction_timestamp <= $3)
		ORDER BY transaction_timestamp DESC
		LIMIT $4 OFFSET $5`
	rows, err := runner(ctx, s.db).QueryContext(ctx, query,
		accountID, nullTime(window.From), nullTime(window.To), normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("find transactions by account: %w", err)
	}
	return collectTransactions(rows)
}

func (s *PostgresTransactionStore) FindFlagged(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE is_flagged
		ORDER BY transaction_timestamp DESC
		LIMIT $1`
	rows, err := runner(ctx, s.db).QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("find flagged transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (s *PostgresTransactionStore) FindHighValue(ctx context.Context, threshold decimal.Decimal, since time.Time) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE amount >= $1 AND transaction_timestamp >= $2
		ORDER BY amount DESC`
	rows, err := runner(ctx, s.db).QueryContext(ctx, query, threshold, since)
	if err != nil {
		return nil, fmt.Errorf("find high-value transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (s *PostgresTransactionStore) UpdateComplianceFields(ctx context.Context, txn *domain.Transaction) error {
	result, err := runner(ctx, s.db).ExecContext(ctx, `
		UPDATE transactions
		SET is_flagged = $2, risk_score = $3, compliance_status = $4, updated_at = $5
		WHERE id = $1`,
		txn.ID, txn.IsFlagged, txn.RiskScore, txn.ComplianceStatus, txn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update compliance fields: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update compliance fields: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTransaction(row *sql.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := row.Scan(
		&txn.ID, &txn.AccountID, &txn.Amount, &txn.Currency, &txn.Type, &txn.Description,
		&txn.CounterpartyAccount, &txn.CounterpartyName, &txn.CounterpartyBank,
		&txn.Channel, &txn.Country, &txn.City, &txn.IPAddress,
		&txn.Timestamp, &txn.IsFlagged, &txn.RiskScore, &txn.ComplianceStatus,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func collectTransactions(rows *sql.Rows) ([]*domain.Transaction, error) {
	defer rows.Close()
	txns := make([]*domain.Transaction, 0)
	for rows.Next() {
		var txn domain.Transaction
		err := rows.Scan(
			&txn.ID, &txn.AccountID, &txn.Amount, &txn.Currency, &txn.Type, &txn.Description,
			&txn.CounterpartyAccount, &txn.CounterpartyName, &txn.CounterpartyBank,
			&txn.Channel, &txn.Country, &txn.City, &txn.IPAddress,
			&txn.Timestamp, &txn.IsFlagged, &txn.RiskScore, &txn.ComplianceStatus,
			&txn.CreatedAt, &txn.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, &txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txns, nil
}

// PostgresViolationStore persists violations in PostgreSQL. The open payload
// fields are stored as JSONB and text[].
type PostgresViolationStore struct {
	db *sql.DB
}

func NewPostgresViolationStore(db *sql.DB) *PostgresViolationStore {
	return &PostgresViolationStore{db: db}
}

const violationColumns = `
	id, violation_type, severity, title, description,
	regulatory_framework, standard_reference, requirement_id,
	transaction_id, risk_score, confidence_score, status,
	assigned_to, resolution_notes, detected_at, acknowledged_at, resolved_at,
	violation_data, remediation_actions`

func (s *PostgresViolationStore) Insert(ctx context.Context, v *domain.Violation) error {
	data, err := json.Marshal(v.Data)
	if err != nil {
		return fmt.Errorf("marshal violation data: %w", err)
	}
	query := `
		INSERT INTO violations (` + violationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = runner(ctx, s.db).ExecContext(ctx, query,
		v.ID, v.Type, v.Severity, v.Title, v.Description,
		v.RegulatoryFramework, v.StandardReference, v.RequirementID,
		nullUUID(v.TransactionID), v.RiskScore, v.ConfidenceScore, v.Status,
		v.AssignedTo, v.ResolutionNotes, v.DetectedAt, nullTime(v.AcknowledgedAt), nullTime(v.ResolvedAt),
		data, pq.Array(v.RemediationActions),
	)
	if err != nil {
		return fmt.Errorf("insert violation: %w", err)
	}
	return nil
}

func (s *PostgresViolationStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Violation, error) {
	rows, err := runner(ctx, s.db).QueryContext(ctx,
		`SELECT `+violationColumns+` FROM violations WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find violation: %w", err)
	}
	violations, err := collectViolations(rows)
	if err != nil {
		return nil, err
	}
	if len(violations) == 0 {
		return nil, ErrNotFound
	}
	return violations[0], nil
}

func (s *PostgresViolationStore) FindByFilter(ctx context.Context, filter ViolationFilter) ([]*domain.Violation, error) {
	query := `SELECT ` + violationColumns + `
		FROM violations
		WHERE ($1::text IS NULL OR severity = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY detected_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := runner(ctx, s.db).QueryContext(ctx, query,
		nullSeverity(filter.Severity), nullStatus(filter.Status), normalizeLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("find violations by filter: %w", err)
	}
	return collectViolations(rows)
}

func (s *PostgresViolationStore) FindActive(ctx context.Context, severity *domain.Severity) ([]*domain.Violation, error) {
	query := `SELECT ` + violationColumns + `
		FROM violations
		WHERE status IN ('OPEN', 'INVESTIGATING')
		  AND ($1::text IS NULL OR severity = $1)
		ORDER BY detected_at DESC`
	rows, err := runner(ctx, s.db).QueryContext(ctx, query, nullSeverity(severity))
	if err != nil {
		return nil, fmt.Errorf("find active violations: %w", err)
	}
	return collectViolations(rows)
}

func (s *PostgresViolationStore) Update(ctx context.Context, v *domain.Violation) error {
	data, err := json.Marshal(v.Data)
	if err != nil {
		return fmt.Errorf("marshal violation data: %w", err)
	}
	result, err := runner(ctx, s.db).ExecContext(ctx, `
		UPDATE violations
		SET severity = $2, status = $3, assigned_to = $4, resolution_notes = $5,
		    acknowledged_at = $6, resolved_at = $7, violation_data = $8,
		    remediation_actions = $9
		WHERE id = $1`,
		v.ID, v.Severity, v.Status, v.AssignedTo, v.ResolutionNotes,
		nullTime(v.AcknowledgedAt), nullTime(v.ResolvedAt), data,
		pq.Array(v.RemediationActions))
	if err != nil {
		return fmt.Errorf("update violation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update violation: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func collectViolations(rows *sql.Rows) ([]*domain.Violation, error) {
	defer rows.Close()
	violations := make([]*domain.Violation, 0)
	for rows.Next() {
		var (
			v             domain.Violation
			transactionID uuid.NullUUID
			acknowledged  sql.NullTime
			resolved      sql.NullTime
			data          []byte
			actions       pq.StringArray
		)
		err := rows.Scan(
			&v.ID, &v.Type, &v.Severity, &v.Title, &v.Description,
			&v.RegulatoryFramework, &v.StandardReference, &v.RequirementID,
			&transactionID, &v.RiskScore, &v.ConfidenceScore, &v.Status,
			&v.AssignedTo, &v.ResolutionNotes, &v.DetectedAt, &acknowledged, &resolved,
			&data, &actions,
		)
		if err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		if transactionID.Valid {
			id := transactionID.UUID
			v.TransactionID = &id
		}
		if acknowledged.Valid {
			t := acknowledged.Time
			v.AcknowledgedAt = &t
		}
		if resolved.Valid {
			t := resolved.Time
			v.ResolvedAt = &t
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &v.Data); err != nil {
				return nil, fmt.Errorf("unmarshal violation data: %w", err)
			}
		}
		v.RemediationActions = []string(actions)
		violations = append(violations, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}
	return violations, nil
}

// PostgresPatternStore persists detected patterns in PostgreSQL.
type PostgresPatternStore struct {
	db *sql.DB
}

func NewPostgresPatternStore(db *sql.DB) *PostgresPatternStore {
	return &PostgresPatternStore{db: db}
}

func (s *PostgresPatternStore) InsertBatch(ctx context.Context, patterns []*domain.TransactionPattern) error {
	if len(patterns) == 0 {
		return nil
	}
	query := `
		INSERT INTO transaction_patterns (
			id, account_id, pattern_type, description, confidence_score,
			frequency_count, time_window_hours, first_detected_at,
			last_detected_at, is_active, transaction_ids
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for _, p := range patterns {
		ids := make([]string, 0, len(p.TransactionIDs))
		for _, id := range p.TransactionIDs {
			ids = append(ids, id.String())
		}
		_, err := runner(ctx, s.db).ExecContext(ctx, query,
			p.ID, p.AccountID, p.Type, p.Description, p.ConfidenceScore,
			p.FrequencyCount, p.TimeWindowHours, p.FirstDetectedAt,
			p.LastDetectedAt, p.IsActive, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("insert pattern: %w", err)
		}
	}
	return nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func nullUUID(value *uuid.UUID) uuid.NullUUID {
	if value == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *value, Valid: true}
}

func nullSeverity(value *domain.Severity) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*value), Valid: true}
}

func nullStatus(value *domain.ViolationStatus) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*value), Valid: true}
}

// normalizeLimit guards against unbounded listings; callers passing zero get
// a sane page size.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
