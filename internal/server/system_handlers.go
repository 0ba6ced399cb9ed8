package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/odyssey/internal/database"
	"github.com/aristath/odyssey/internal/modules/allocation"
	"github.com/aristath/odyssey/internal/reliability"
)

// SystemHandlers handles system monitoring and operations endpoints
type SystemHandlers struct {
	log           zerolog.Logger
	dataDir       string
	startupTime   time.Time
	allocationsDB *database.DB
	cacheDB       *database.DB
	allocService  *allocation.Service
	r2Backup      *reliability.R2BackupService // nil when backups are not configured
	retentionDays int
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	allocationsDB *database.DB,
	cacheDB *database.DB,
	allocService *allocation.Service,
	r2Backup *reliability.R2BackupService,
	retentionDays int,
) *SystemHandlers {
	return &SystemHandlers{
		log:           log.With().Str("handler", "system").Logger(),
		dataDir:       dataDir,
		startupTime:   time.Now(),
		allocationsDB: allocationsDB,
		cacheDB:       cacheDB,
		allocService:  allocService,
		r2Backup:      r2Backup,
		retentionDays: retentionDays,
	}
}

// HandleSystemStatus returns service uptime, host load, and the loaded
// table version.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	status := map[string]interface{}{
		"status":         "running",
		"uptime_seconds": int64(time.Since(h.startupTime).Seconds()),
		"cpu_percent":    cpuPercent,
		"memory_percent": memPercent,
		"backups":        h.r2Backup != nil,
	}

	if info, err := h.allocService.CurrentImport(); err == nil && info != nil {
		status["table"] = info
	}

	h.writeJSON(w, http.StatusOK, status)
}

// HandleDatabaseStats returns size and page statistics for both databases.
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{}

	for _, db := range []*database.DB{h.allocationsDB, h.cacheDB} {
		dbStats, err := db.GetStats()
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		stats[db.Name()] = dbStats
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// HandleDiskUsage returns the size of the data directory.
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data_dir":      h.dataDir,
		"size_mb":       h.getDirSize(h.dataDir),
		"databases_dir": filepath.Dir(h.allocationsDB.Path()),
	})
}

// HandleTriggerBackup creates and uploads a backup on demand.
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.r2Backup == nil {
		h.writeError(w, http.StatusServiceUnavailable, "R2 backups are not configured")
		return
	}

	var fingerprint, importID string
	if info, err := h.allocService.CurrentImport(); err == nil && info != nil {
		fingerprint = info.Fingerprint
		importID = info.ImportID
	}

	if err := h.r2Backup.CreateAndUploadBackup(r.Context(), fingerprint, importID); err != nil {
		h.log.Error().Err(err).Msg("On-demand backup failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.r2Backup.RotateOldBackups(r.Context(), h.retentionDays); err != nil {
		h.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "backup completed"})
}

// HandleListBackups lists backups stored in R2.
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.r2Backup == nil {
		h.writeError(w, http.StatusServiceUnavailable, "R2 backups are not configured")
		return
	}

	backups, err := h.r2Backup.ListBackups(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"backups": backups})
}

// getSystemStats returns current CPU and memory usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	var cpuPercent, memPercent float64

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		cpuPercent = percents[0]
	}

	if memStat, err := mem.VirtualMemory(); err == nil {
		memPercent = memStat.UsedPercent
	}

	return cpuPercent, memPercent
}

// getDirSize returns the total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var size int64
	_ = filepath.Walk(dirPath, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})

	return float64(size) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
