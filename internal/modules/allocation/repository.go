package allocation

import (
	"crypto/sha256"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Required source table columns. Header names match the published CSV.
const (
	columnName   = "Name"
	columnWallet = "Wallet"
	columnDrop   = "Odyssey Drop"
	columnShards = "wShards"
)

// ImportInfo describes the table version currently held in the database.
type ImportInfo struct {
	ImportID    string    `json:"import_id"`
	Fingerprint string    `json:"fingerprint"`
	SourcePath  string    `json:"source_path"`
	RecordCount int       `json:"record_count"`
	ImportedAt  time.Time `json:"imported_at"`
}

// Repository handles allocation table persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new allocation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "allocation").Logger(),
	}
}

// Migrate creates the allocation tables if they do not exist
func (r *Repository) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS allocations (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		wallet TEXT NOT NULL,
		wallet_key TEXT NOT NULL,
		drop_amount REAL NOT NULL,
		shard_count REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_allocations_wallet_key ON allocations(wallet_key);
	CREATE TABLE IF NOT EXISTS table_imports (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		import_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		source_path TEXT NOT NULL,
		record_count INTEGER NOT NULL,
		imported_at INTEGER NOT NULL
	);`

	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate allocation schema: %w", err)
	}

	return nil
}

// CurrentImport returns the import metadata for the stored table, or nil
// when no table has been imported yet.
func (r *Repository) CurrentImport() (*ImportInfo, error) {
	row := r.db.QueryRow(`
		SELECT import_id, fingerprint, source_path, record_count, imported_at
		FROM table_imports WHERE id = 1`)

	var info ImportInfo
	var importedAt int64
	err := row.Scan(&info.ImportID, &info.Fingerprint, &info.SourcePath, &info.RecordCount, &importedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read current import: %w", err)
	}

	info.ImportedAt = time.Unix(importedAt, 0).UTC()
	return &info, nil
}

// ListRecords returns the full table in its fixed order.
func (r *Repository) ListRecords() ([]AllocationRecord, error) {
	rows, err := r.db.Query(`
		SELECT name, wallet, wallet_key, drop_amount, shard_count
		FROM allocations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var records []AllocationRecord
	for rows.Next() {
		var rec AllocationRecord
		if err := rows.Scan(&rec.Name, &rec.WalletAddress, &rec.WalletKey, &rec.DropAmount, &rec.ShardCount); err != nil {
			return nil, fmt.Errorf("failed to scan allocation record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}

	return records, nil
}

// FingerprintFile computes the sha256 fingerprint identifying a source
// table file. A changed file yields a new fingerprint, which invalidates
// the cached index (the table's identity, not its path, keys the cache).
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", newDataLoadError(path, "table not readable", err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", newDataLoadError(path, "failed to fingerprint table", err)
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// ImportCSV parses the source table and atomically replaces the stored
// allocations with its contents. The whole import aborts on any malformed
// row, leaving the previously stored table untouched.
func (r *Repository) ImportCSV(path string) (*ImportInfo, error) {
	fingerprint, err := FingerprintFile(path)
	if err != nil {
		return nil, err
	}

	records, err := parseCSV(path)
	if err != nil {
		return nil, err
	}

	info := &ImportInfo{
		ImportID:    uuid.NewString(),
		Fingerprint: fingerprint,
		SourcePath:  path,
		RecordCount: len(records),
		ImportedAt:  time.Now().UTC(),
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec("DELETE FROM allocations"); err != nil {
		return nil, fmt.Errorf("failed to clear allocations: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO allocations (position, name, wallet, wallet_key, drop_amount, shard_count)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare allocation insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.Exec(i, rec.Name, rec.WalletAddress, rec.WalletKey, rec.DropAmount, rec.ShardCount); err != nil {
			return nil, fmt.Errorf("failed to insert allocation record %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO table_imports (id, import_id, fingerprint, source_path, record_count, imported_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			import_id = excluded.import_id,
			fingerprint = excluded.fingerprint,
			source_path = excluded.source_path,
			record_count = excluded.record_count,
			imported_at = excluded.imported_at`,
		info.ImportID, info.Fingerprint, info.SourcePath, info.RecordCount, info.ImportedAt.Unix()); err != nil {
		return nil, fmt.Errorf("failed to record import metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	r.log.Info().
		Str("import_id", info.ImportID).
		Str("fingerprint", info.Fingerprint).
		Int("records", info.RecordCount).
		Msg("Allocation table imported")

	return info, nil
}

// parseCSV reads the source table into ordered records, deriving each
// record's wallet key. Any structural problem aborts the parse with a
// DataLoadError.
func parseCSV(path string) ([]AllocationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newDataLoadError(path, "table not readable", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, newDataLoadError(path, "missing header row", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{columnName, columnWallet, columnDrop, columnShards} {
		if _, ok := cols[required]; !ok {
			return nil, newDataLoadError(path, fmt.Sprintf("missing required column %q", required), nil)
		}
	}

	var records []AllocationRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, newDataLoadError(path, fmt.Sprintf("malformed row at line %d", line), err)
		}

		wallet := strings.TrimSpace(row[cols[columnWallet]])
		dropAmount, err := parseNumeric(row[cols[columnDrop]])
		if err != nil {
			return nil, newDataLoadError(path, fmt.Sprintf("non-numeric %q value at line %d", columnDrop, line), err)
		}
		shardCount, err := parseNumeric(row[cols[columnShards]])
		if err != nil {
			return nil, newDataLoadError(path, fmt.Sprintf("non-numeric %q value at line %d", columnShards, line), err)
		}

		records = append(records, AllocationRecord{
			Name:          strings.TrimSpace(row[cols[columnName]]),
			WalletAddress: wallet,
			WalletKey:     NormalizeWallet(wallet),
			DropAmount:    dropAmount,
			ShardCount:    shardCount,
		})
	}

	return records, nil
}

// parseNumeric accepts plain or thousands-separated numbers.
func parseNumeric(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(cleaned, 64)
}
