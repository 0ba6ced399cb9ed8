// Package main is the entry point for the Odyssey airdrop allocation
// checker. The service imports a precomputed allocation table, builds a
// normalized wallet lookup index over it, and serves search, distribution
// chart, and analytics endpoints.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aristath/odyssey/internal/config"
	"github.com/aristath/odyssey/internal/database"
	"github.com/aristath/odyssey/internal/modules/allocation"
	"github.com/aristath/odyssey/internal/modules/analytics"
	"github.com/aristath/odyssey/internal/modules/charts"
	"github.com/aristath/odyssey/internal/reliability"
	"github.com/aristath/odyssey/internal/server"
	"github.com/aristath/odyssey/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Odyssey airdrop checker")

	// Open databases: allocations holds the imported table, cache holds
	// rebuildable index snapshots.
	allocationsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "allocations.db"),
		Profile: database.ProfileStandard,
		Name:    "allocations",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open allocations database")
	}
	defer allocationsDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	// Wire the allocation service and load the table. A data-load failure
	// is fatal to session start: no index, no chart, no search.
	allocRepo := allocation.NewRepository(allocationsDB.Conn(), log)
	if err := allocRepo.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate allocations database")
	}

	indexCache, err := allocation.NewIndexCache(cacheDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize index cache")
	}

	allocService := allocation.NewService(allocRepo, indexCache, log)
	if err := allocService.Refresh(cfg.TablePath); err != nil {
		var loadErr *allocation.DataLoadError
		if errors.As(err, &loadErr) {
			log.Fatal().Err(err).Str("table", cfg.TablePath).Msg("Allocation table could not be loaded")
		}
		log.Fatal().Err(err).Msg("Failed to build allocation index")
	}

	analyticsService := analytics.NewService(allocService, log)
	chartBuilder := charts.NewBuilder(log)

	// R2 backups are optional; the service runs fine without them.
	var r2BackupService *reliability.R2BackupService
	var backupCron *cron.Cron
	if cfg.Backup.Enabled() {
		r2Client, err := reliability.NewR2Client(
			cfg.Backup.AccountID,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			cfg.Backup.BucketName,
			log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create R2 client")
		}

		backupService := reliability.NewBackupService(map[string]*database.DB{
			"allocations": allocationsDB,
			"cache":       cacheDB,
		}, log)
		r2BackupService = reliability.NewR2BackupService(r2Client, backupService, cfg.DataDir, log)

		backupCron = cron.New()
		_, err = backupCron.AddFunc(cfg.Backup.Schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			var fingerprint, importID string
			if info, err := allocService.CurrentImport(); err == nil && info != nil {
				fingerprint = info.Fingerprint
				importID = info.ImportID
			}

			if err := r2BackupService.CreateAndUploadBackup(ctx, fingerprint, importID); err != nil {
				log.Error().Err(err).Msg("Scheduled backup failed")
				return
			}
			if err := r2BackupService.RotateOldBackups(ctx, cfg.Backup.RetentionDays); err != nil {
				log.Error().Err(err).Msg("Backup rotation failed")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Backup.Schedule).Msg("Invalid backup schedule")
		}

		backupCron.Start()
		log.Info().Str("schedule", cfg.Backup.Schedule).Msg("Scheduled R2 backups enabled")
	} else {
		log.Info().Msg("R2 backups not configured, running without cloud backups")
	}

	srv := server.New(server.Config{
		Port:              cfg.Port,
		Log:               log,
		Config:            cfg,
		DevMode:           cfg.DevMode,
		AllocationsDB:     allocationsDB,
		CacheDB:           cacheDB,
		AllocationService: allocService,
		AnalyticsService:  analyticsService,
		ChartBuilder:      chartBuilder,
		R2BackupService:   r2BackupService,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	if backupCron != nil {
		cronCtx := backupCron.Stop()
		// Let an in-flight backup finish before closing the databases
		select {
		case <-cronCtx.Done():
		case <-time.After(30 * time.Second):
			log.Warn().Msg("Timed out waiting for scheduled jobs to finish")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
