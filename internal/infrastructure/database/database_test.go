package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("creates nested directory and file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "mazerunner.db")

		db, err := Open(context.Background(), Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck // Test cleanup

		assert.FileExists(t, dbPath)
		assert.Equal(t, dbPath, db.Path())
	})

	t.Run("in memory", func(t *testing.T) {
		db, err := Open(context.Background(), Config{Path: InMemoryPath, WALMode: true, BusyTimeout: 1})
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck // Test cleanup

		ctx := context.Background()
		_, err = db.ExecContext(ctx, "CREATE TABLE kept (id INTEGER)")
		require.NoError(t, err)

		// The table must survive across statements on the single connection.
		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kept").Scan(&n))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Open(ctx, Config{Path: InMemoryPath})
		assert.Error(t, err)
	})
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, db.HealthCheck(ctx))
}

func TestClose(t *testing.T) {
	db, err := Open(context.Background(), Config{Path: InMemoryPath})
	require.NoError(t, err)

	assert.NoError(t, db.Close())

	db.DB = nil
	assert.NoError(t, db.Close(), "Close on a nil DB")
}

func TestBeginTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "CREATE TABLE tx_test (id INTEGER PRIMARY KEY, value TEXT)")
	require.NoError(t, err)

	for _, commit := range []bool{true, false} {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx, "INSERT INTO tx_test (value) VALUES (?)", commit)
		require.NoError(t, err)
		if commit {
			require.NoError(t, tx.Commit())
		} else {
			require.NoError(t, tx.Rollback())
		}
	}

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tx_test").Scan(&count))
	assert.Equal(t, 1, count, "only the committed insert")
}

func TestExecContext_MissingTable(t *testing.T) {
	db := openTestDB(t)

	_, err := db.ExecContext(context.Background(), "INSERT INTO missing_table VALUES (1)")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	db := openTestDB(t)

	assert.Equal(t, 1, db.Stats().MaxOpenConnections, "SQLite single writer")
}

// openTestDB creates a temporary file database closed at test end.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
