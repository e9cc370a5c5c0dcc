package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
	"github.com/ericfisherdev/mexcbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// It persists ciphertext/nonce pairs exactly as produced by the credential cipher
// and never sees plaintext.
type CredentialRepo struct {
	db  *DB
	now func() time.Time
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db, now: time.Now}
}

// Upsert inserts or replaces the user's credential record in a single statement,
// so both ciphertext/nonce pairs, the label and the active flag change together.
func (r *CredentialRepo) Upsert(ctx context.Context, rec model.CredentialRecord) (model.CredentialRecord, error) {
	if err := checkPairs(rec); err != nil {
		return model.CredentialRecord{}, err
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}
	updatedAt = updatedAt.UTC()

	const query = `
		INSERT INTO credentials (
			user_id, api_key_ciphertext, api_key_nonce, api_secret_ciphertext, api_secret_nonce,
			label, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			api_key_ciphertext    = excluded.api_key_ciphertext,
			api_key_nonce         = excluded.api_key_nonce,
			api_secret_ciphertext = excluded.api_secret_ciphertext,
			api_secret_nonce      = excluded.api_secret_nonce,
			label                 = excluded.label,
			is_active             = 1,
			updated_at            = excluded.updated_at
		RETURNING created_at`

	var createdAt string
	err := r.db.Writer.QueryRowContext(ctx, query,
		rec.UserID,
		rec.APIKeyCiphertext,
		rec.APIKeyNonce,
		rec.APISecretCiphertext,
		rec.APISecretNonce,
		nullString(rec.Label),
		formatTime(updatedAt),
		formatTime(updatedAt),
	).Scan(&createdAt)
	if err != nil {
		return model.CredentialRecord{}, fmt.Errorf("upsert credentials for user %q: %w", rec.UserID, err)
	}

	saved := rec
	saved.IsActive = true
	saved.UpdatedAt = updatedAt
	saved.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return model.CredentialRecord{}, fmt.Errorf("parse created_at for user %q: %w", rec.UserID, err)
	}

	return saved, nil
}

// GetActive returns the user's active credential record. It returns
// model.ErrNotConnected when no record exists or the record is inactive.
func (r *CredentialRepo) GetActive(ctx context.Context, userID string) (*model.CredentialRecord, error) {
	const query = `
		SELECT user_id, api_key_ciphertext, api_key_nonce, api_secret_ciphertext, api_secret_nonce,
		       label, is_active, created_at, updated_at
		FROM credentials
		WHERE user_id = ? AND is_active = 1`

	var (
		rec       model.CredentialRecord
		label     sql.NullString
		createdAt string
		updatedAt string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.APIKeyCiphertext,
		&rec.APIKeyNonce,
		&rec.APISecretCiphertext,
		&rec.APISecretNonce,
		&label,
		&rec.IsActive,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials for user %q: %w", userID, err)
	}

	rec.Label = label.String
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for user %q: %w", userID, err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for user %q: %w", userID, err)
	}

	return &rec, nil
}

// GetStatus reads the credential_status view, which carries no credential
// material. A user without a record is reported as not connected.
func (r *CredentialRepo) GetStatus(ctx context.Context, userID string) (model.CredentialStatus, error) {
	const query = `SELECT is_active, updated_at FROM credential_status WHERE user_id = ?`

	var (
		active    bool
		updatedAt string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(&active, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CredentialStatus{}, nil
	}
	if err != nil {
		return model.CredentialStatus{}, fmt.Errorf("get credential status for user %q: %w", userID, err)
	}

	ts, err := parseTime(updatedAt)
	if err != nil {
		return model.CredentialStatus{}, fmt.Errorf("parse updated_at for user %q: %w", userID, err)
	}

	return model.CredentialStatus{Connected: active, UpdatedAt: &ts}, nil
}

// Deactivate flips the user's record to inactive and keeps its ciphertext.
// Deactivating a user with no record is a no-op.
func (r *CredentialRepo) Deactivate(ctx context.Context, userID string) error {
	const query = `UPDATE credentials SET is_active = 0, updated_at = ? WHERE user_id = ?`

	_, err := r.db.Writer.ExecContext(ctx, query, formatTime(r.now()), userID)
	if err != nil {
		return fmt.Errorf("deactivate credentials for user %q: %w", userID, err)
	}
	return nil
}

// checkPairs rejects a record where either ciphertext/nonce pair is incomplete.
// The table's CHECK constraints enforce the same rule.
func checkPairs(rec model.CredentialRecord) error {
	if rec.UserID == "" {
		return errors.New("upsert credentials: empty user id")
	}
	if len(rec.APIKeyCiphertext) == 0 || len(rec.APIKeyNonce) == 0 {
		return fmt.Errorf("upsert credentials for user %q: incomplete api key ciphertext/nonce pair", rec.UserID)
	}
	if len(rec.APISecretCiphertext) == 0 || len(rec.APISecretNonce) == 0 {
		return fmt.Errorf("upsert credentials for user %q: incomplete api secret ciphertext/nonce pair", rec.UserID)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
