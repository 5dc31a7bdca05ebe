package test_utils

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/billsforynab/bills/internal/config"
	"github.com/billsforynab/bills/internal/database"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // Import the SQLite driver
)

// StorePath returns a fresh database file location inside the test's temp dir.
// A file is used instead of :memory: because every pooled connection would otherwise see its own database.
func StorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "bills.sqlite")
}

// SetupTestDB creates a new SQLite database migrated to the latest schema version
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.Store{Path: StorePath(t)})
	require.NoError(t, err, "failed to open test database")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// SetupTestDBAtVersion creates a new SQLite database migrated only up to the given schema version
func SetupTestDBAtVersion(t *testing.T, path string, version uint) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() {
		db.Close()
	})

	require.NoError(t, database.MigrateTo(db, version), "failed to apply migrations up to %d", version)

	return db
}
