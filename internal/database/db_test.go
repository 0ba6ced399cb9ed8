package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, profile Profile) *DB {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Profile: profile,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := New(Config{Path: path, Name: "test"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.profile)
	assert.True(t, filepath.IsAbs(db.Path()))
	_, err = os.Stat(filepath.Dir(db.Path()))
	assert.NoError(t, err)
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t, ProfileStandard)

	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestBackupTo(t *testing.T) {
	db := newTestDB(t, ProfileStandard)
	_, err := db.Conn().Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)
	_, err = db.Conn().Exec("INSERT INTO t (v) VALUES ('hello')")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, db.WALCheckpoint("TRUNCATE"))
	require.NoError(t, db.BackupTo(dest))

	// The snapshot is a standalone, readable database.
	snapshot, err := sql.Open("sqlite", dest)
	require.NoError(t, err)
	defer snapshot.Close()

	var v string
	require.NoError(t, snapshot.QueryRow("SELECT v FROM t WHERE id = 1").Scan(&v))
	assert.Equal(t, "hello", v)
}

func TestBackupTo_RefusesExistingDestination(t *testing.T) {
	db := newTestDB(t, ProfileStandard)

	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0o644))

	err := db.BackupTo(dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t, ProfileCache)
	_, err := db.Conn().Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}
