package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "bureau.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func initAll(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, NewAccountRepository(db).Init(ctx))
	require.NoError(t, NewContactRepository(db).Init(ctx))
	require.NoError(t, NewProjectRepository(db).Init(ctx))
	// Init is idempotent
	require.NoError(t, NewProjectRepository(db).Init(ctx))
}
