package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	goGate "github.com/InsightGuard/goGate"
)

// KeyStore is a PostgreSQL-backed [goGate.KeyStore].
type KeyStore struct {
	db *sql.DB
}

// NewKeyStore creates a [KeyStore] on top of db.
func NewKeyStore(db *sql.DB) *KeyStore {
	return &KeyStore{db: db}
}

const keyColumns = `id, user_id, key, usage_count, disabled, created_at`

// GetByKey describes the getbykey operation and its observable behavior.
func (s *KeyStore) GetByKey(ctx context.Context, key string) (goGate.APIKeyRecord, bool, error) {
	var record goGate.APIKeyRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE key = $1`, key,
	).Scan(&record.ID, &record.UserID, &record.Key, &record.Usage, &record.Disabled, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goGate.APIKeyRecord{}, false, nil
		}
		return goGate.APIKeyRecord{}, false, fmt.Errorf("query api key: %w", err)
	}
	return record, true, nil
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
func (s *KeyStore) Create(ctx context.Context, record goGate.APIKeyRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, user_id, key, usage_count, disabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.ID, record.UserID, record.Key, record.Usage, record.Disabled, createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicate
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// ListByUser describes the listbyuser operation and its observable behavior.
func (s *KeyStore) ListByUser(ctx context.Context, userID string) ([]goGate.APIKeyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	var records []goGate.APIKeyRecord
	for rows.Next() {
		var record goGate.APIKeyRecord
		if err := rows.Scan(&record.ID, &record.UserID, &record.Key, &record.Usage, &record.Disabled, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return records, nil
}

// IncrementUsage describes the incrementusage operation and its observable behavior.
func (s *KeyStore) IncrementUsage(ctx context.Context, keyID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET usage_count = usage_count + 1 WHERE id = $1`, keyID)
	if err != nil {
		return fmt.Errorf("increment api key usage: %w", err)
	}
	return nil
}

// SetDisabled flips a key's disabled flag.
func (s *KeyStore) SetDisabled(ctx context.Context, keyID string, disabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET disabled = $2 WHERE id = $1`, keyID, disabled)
	if err != nil {
		return fmt.Errorf("update api key disabled flag: %w", err)
	}
	return nil
}
