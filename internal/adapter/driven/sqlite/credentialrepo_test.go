package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
)

func sealedRecord(userID, tag string) model.CredentialRecord {
	return model.CredentialRecord{
		UserID:              userID,
		APIKeyCiphertext:    []byte("key-ct-" + tag),
		APIKeyNonce:         []byte("key-nonce-" + tag),
		APISecretCiphertext: []byte("secret-ct-" + tag),
		APISecretNonce:      []byte("secret-nonce-" + tag),
		Label:               "label " + tag,
	}
}

func TestCredentialRepo_UpsertAndGetActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	saved, err := repo.Upsert(ctx, sealedRecord("user-1", "a"))
	require.NoError(t, err)
	assert.True(t, saved.IsActive)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := repo.GetActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, []byte("key-ct-a"), got.APIKeyCiphertext)
	assert.Equal(t, []byte("key-nonce-a"), got.APIKeyNonce)
	assert.Equal(t, []byte("secret-ct-a"), got.APISecretCiphertext)
	assert.Equal(t, []byte("secret-nonce-a"), got.APISecretNonce)
	assert.Equal(t, "label a", got.Label)
	assert.True(t, got.IsActive)
}

func TestCredentialRepo_GetActiveMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)

	got, err := repo.GetActive(context.Background(), "nobody")
	require.ErrorIs(t, err, model.ErrNotConnected)
	assert.Nil(t, got)
}

func TestCredentialRepo_UpsertReplacesByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, sealedRecord("user-1", "k1"))
	require.NoError(t, err)

	second := sealedRecord("user-1", "k2")
	second.UpdatedAt = first.UpdatedAt.Add(time.Minute)
	_, err = repo.Upsert(ctx, second)
	require.NoError(t, err)

	var count int
	err = db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials WHERE user_id = ?`, "user-1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "exactly one record per user")

	got, err := repo.GetActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("key-ct-k2"), got.APIKeyCiphertext)
	assert.Equal(t, []byte("secret-nonce-k2"), got.APISecretNonce)
	assert.Equal(t, first.CreatedAt, got.CreatedAt, "created_at survives replacement")
	assert.True(t, got.UpdatedAt.After(first.UpdatedAt))
}

func TestCredentialRepo_UpsertEmptyLabelStoredAsNull(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	rec := sealedRecord("user-1", "a")
	rec.Label = ""
	_, err := repo.Upsert(ctx, rec)
	require.NoError(t, err)

	var isNull bool
	err = db.Reader.QueryRowContext(ctx, `SELECT label IS NULL FROM credentials WHERE user_id = ?`, "user-1").Scan(&isNull)
	require.NoError(t, err)
	assert.True(t, isNull)
}

func TestCredentialRepo_UpsertRejectsIncompletePair(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *model.CredentialRecord)
	}{
		{name: "missing key nonce", mutate: func(r *model.CredentialRecord) { r.APIKeyNonce = nil }},
		{name: "missing key ciphertext", mutate: func(r *model.CredentialRecord) { r.APIKeyCiphertext = nil }},
		{name: "missing secret nonce", mutate: func(r *model.CredentialRecord) { r.APISecretNonce = []byte{} }},
		{name: "missing secret ciphertext", mutate: func(r *model.CredentialRecord) { r.APISecretCiphertext = nil }},
		{name: "missing user id", mutate: func(r *model.CredentialRecord) { r.UserID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sealedRecord("user-1", "a")
			tt.mutate(&rec)

			_, err := repo.Upsert(ctx, rec)
			require.Error(t, err)
		})
	}

	_, err := repo.GetActive(ctx, "user-1")
	assert.ErrorIs(t, err, model.ErrNotConnected, "no partial record may be written")
}

func TestCredentialRepo_CheckConstraintRejectsHalfPair(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Writer.ExecContext(ctx, `
		INSERT INTO credentials (user_id, api_key_ciphertext, api_key_nonce, api_secret_ciphertext, api_secret_nonce, is_active, created_at, updated_at)
		VALUES ('user-1', X'01', X'', X'02', X'03', 1, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHECK constraint")
}

func TestCredentialRepo_Status(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	status, err := repo.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Nil(t, status.UpdatedAt)

	rec := sealedRecord("user-1", "a")
	rec.UpdatedAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	_, err = repo.Upsert(ctx, rec)
	require.NoError(t, err)

	status, err = repo.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, status.Connected)
	require.NotNil(t, status.UpdatedAt)
	assert.Equal(t, rec.UpdatedAt, *status.UpdatedAt)
}

func TestCredentialRepo_StatusViewHasNoCredentialColumns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rows, err := db.Reader.QueryContext(ctx, `SELECT name FROM pragma_table_info('credential_status')`)
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())

	assert.ElementsMatch(t, []string{"user_id", "is_active", "updated_at"}, columns)
}

func TestCredentialRepo_DeactivateIsSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, sealedRecord("user-1", "a"))
	require.NoError(t, err)

	require.NoError(t, repo.Deactivate(ctx, "user-1"))

	_, err = repo.GetActive(ctx, "user-1")
	require.ErrorIs(t, err, model.ErrNotConnected)

	status, err := repo.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, status.Connected)

	var ciphertext []byte
	err = db.Reader.QueryRowContext(ctx, `SELECT api_key_ciphertext FROM credentials WHERE user_id = ?`, "user-1").Scan(&ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("key-ct-a"), ciphertext, "ciphertext is retained")

	// Reconnecting reactivates the same row.
	_, err = repo.Upsert(ctx, sealedRecord("user-1", "b"))
	require.NoError(t, err)
	got, err := repo.GetActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("key-ct-b"), got.APIKeyCiphertext)
}

func TestCredentialRepo_DeactivateMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)

	err := repo.Deactivate(context.Background(), "nobody")
	assert.NoError(t, err, "deactivating a missing record should not error")
}

func TestCredentialRepo_UsersAreIsolated(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, sealedRecord("user-1", "a"))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, sealedRecord("user-2", "b"))
	require.NoError(t, err)

	require.NoError(t, repo.Deactivate(ctx, "user-1"))

	got, err := repo.GetActive(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, []byte("key-ct-b"), got.APIKeyCiphertext)
}

func TestCredentialRepo_ConcurrentUpsertsNeverTear(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Upsert(ctx, sealedRecord("user-1", fmt.Sprintf("w%02d", i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetActive(ctx, "user-1")
	require.NoError(t, err)

	// Every column must come from the same writer.
	tag := string(got.APIKeyCiphertext[len("key-ct-"):])
	assert.Equal(t, []byte("key-nonce-"+tag), got.APIKeyNonce)
	assert.Equal(t, []byte("secret-ct-"+tag), got.APISecretCiphertext)
	assert.Equal(t, []byte("secret-nonce-"+tag), got.APISecretNonce)
	assert.Equal(t, "label "+tag, got.Label)
}
