package reliability

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/odyssey/internal/database"
)

func newBackupTestDB(t *testing.T, name string) *database.DB {
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), name+".db"),
		Name: name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Conn().Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)
	_, err = db.Conn().Exec("INSERT INTO t (v) VALUES ('x')")
	require.NoError(t, err)

	return db
}

func TestDatabaseNames_AllocationsFirst(t *testing.T) {
	svc := NewBackupService(map[string]*database.DB{
		"cache":       newBackupTestDB(t, "cache"),
		"allocations": newBackupTestDB(t, "allocations"),
	}, zerolog.Nop())

	names := svc.DatabaseNames()
	require.Len(t, names, 2)
	assert.Equal(t, "allocations", names[0])
	assert.Equal(t, "cache", names[1])
}

func TestBackupDatabase(t *testing.T) {
	svc := NewBackupService(map[string]*database.DB{
		"allocations": newBackupTestDB(t, "allocations"),
	}, zerolog.Nop())

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, svc.BackupDatabase("allocations", dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestBackupDatabase_OverwritesStaleSnapshot(t *testing.T) {
	svc := NewBackupService(map[string]*database.DB{
		"allocations": newBackupTestDB(t, "allocations"),
	}, zerolog.Nop())

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, os.WriteFile(dest, []byte("stale partial snapshot"), 0o644))

	require.NoError(t, svc.BackupDatabase("allocations", dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(100), "snapshot should be a real database file")
}

func TestBackupDatabase_UnknownName(t *testing.T) {
	svc := NewBackupService(map[string]*database.DB{}, zerolog.Nop())

	err := svc.BackupDatabase("nope", filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database")
}

func TestCreateArchive_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.db"), []byte("database a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), []byte(`{"ok":true}`), 0o644))

	archivePath := filepath.Join(dir, "backup.tar.gz")
	require.NoError(t, createArchive(archivePath, dir, []string{"a.db", "meta.json"}))

	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	contents := map[string]string{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[header.Name] = string(data)
	}

	assert.Equal(t, map[string]string{
		"a.db":      "database a",
		"meta.json": `{"ok":true}`,
	}, contents)
}

func TestChecksumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	sum, err := checksumFile(path)
	require.NoError(t, err)
	// sha256("hello")
	assert.Equal(t, "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)

	sum2, err := checksumFile(path)
	require.NoError(t, err)
	assert.Equal(t, sum, sum2)
}
