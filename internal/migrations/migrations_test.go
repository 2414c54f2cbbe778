package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(postgresMigrations, "postgres")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestLedgerCreditsIdempotencyIndex(t *testing.T) {
	body, err := fs.ReadFile(postgresMigrations, "postgres/000003_create_ledger_credits.up.sql")
	require.NoError(t, err)

	sql := string(body)
	assert.Contains(t, sql, "CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_credits_idempotency_key")
	assert.Contains(t, sql, "WHERE idempotency_key IS NOT NULL")
}

func TestClickHouseStatements(t *testing.T) {
	statements, err := ClickHouseStatements()
	require.NoError(t, err)
	require.Len(t, statements, 1)
	assert.True(t, strings.HasPrefix(statements[0], "CREATE TABLE IF NOT EXISTS usage_debits"))
}
