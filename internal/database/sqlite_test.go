package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/omnibot/internal/logger"
)

func openTestDB(t *testing.T) Database {
	t.Helper()
	db, err := Open(":memory:", logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrationsCreateTables(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"kv", "tasks"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err)
		assert.Equal(t, table, name)
	}
}

func TestPurgeExpiredKeys(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	_, err := db.Exec("INSERT INTO kv (key, data, expires_at) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?)",
		"expired", []byte("a"), now.Add(-time.Minute).UnixNano(),
		"alive", []byte("b"), now.Add(time.Hour).UnixNano(),
		"forever", []byte("c"), 0,
	)
	require.NoError(t, err)

	removed, err := db.PurgeExpiredKeys(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM kv").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestPurgeOldTasks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(`
		INSERT INTO tasks (command, update_data, status, next_attempt, created_at) VALUES
		('ask', '{}', 'complete', CURRENT_TIMESTAMP, datetime('now', '-2 days')),
		('ask', '{}', 'failed', CURRENT_TIMESTAMP, datetime('now', '-2 days')),
		('ask', '{}', 'pending', CURRENT_TIMESTAMP, datetime('now', '-2 days')),
		('ask', '{}', 'complete', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`)
	require.NoError(t, err)

	removed, err := db.PurgeOldTasks(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}
