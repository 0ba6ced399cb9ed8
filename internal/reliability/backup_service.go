package reliability

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/aristath/odyssey/internal/database"
)

// BackupService produces consistent local snapshots of the service
// databases via VACUUM INTO.
type BackupService struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewBackupService creates a backup service over the given databases,
// keyed by backup name.
func NewBackupService(databases map[string]*database.DB, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// DatabaseNames lists the databases included in backups, in stable order.
func (s *BackupService) DatabaseNames() []string {
	// allocations first: it is the one that matters for restores
	names := make([]string, 0, len(s.databases))
	if _, ok := s.databases["allocations"]; ok {
		names = append(names, "allocations")
	}
	for name := range s.databases {
		if name != "allocations" {
			names = append(names, name)
		}
	}
	return names
}

// BackupDatabase snapshots one database to destPath. A WAL checkpoint runs
// first so the snapshot contains everything committed.
func (s *BackupService) BackupDatabase(name, destPath string) error {
	db, ok := s.databases[name]
	if !ok {
		return fmt.Errorf("unknown database %q", name)
	}

	if err := db.WALCheckpoint("TRUNCATE"); err != nil {
		s.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint before backup failed")
	}

	// VACUUM INTO refuses to overwrite; clear any stale partial snapshot.
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear stale backup file: %w", err)
	}

	if err := db.BackupTo(destPath); err != nil {
		return fmt.Errorf("failed to back up %s: %w", name, err)
	}

	return nil
}
