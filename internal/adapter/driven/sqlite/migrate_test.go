package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	version, err := RunMigrations(db.Writer)

	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestRunMigrations_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	for _, name := range []string{"credentials", "trades", "credential_status"} {
		var count int
		err := db.Reader.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE name = ? AND type IN ('table', 'view')`, name,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, name)
	}
}
