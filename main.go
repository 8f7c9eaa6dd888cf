package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/homenest/estate/config"
	"github.com/homenest/estate/routes"
	"github.com/homenest/estate/services"
	"github.com/homenest/estate/storage"
	"github.com/homenest/estate/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase()

	store, err := newStorageProvider(cfg)
	if err != nil {
		utils.Logger.Fatal("storage provider init failed", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}

	tracker := services.NewStorageHistoryTracker(db, store)
	tasks := services.NewTaskRunner(utils.Logger, time.Duration(cfg.SnapshotTimeoutSec)*time.Second)

	r := routes.SetupRouter(routes.Deps{
		DB:      db,
		Store:   store,
		Views:   services.NewViewService(db),
		Tracker: tracker,
		Tasks:   tasks,
	})

	drainTasks := func(ctx context.Context) {
		if err := tasks.Wait(ctx); err != nil {
			utils.Logger.Warn("background tasks still running at shutdown", zap.Error(err))
		}
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, drainTasks); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func newStorageProvider(cfg config.AppConfig) (storage.Provider, error) {
	switch cfg.StorageDriver {
	case "ftp":
		p, err := storage.NewFTPProvider(storage.FTPConfig{
			Host:     cfg.FTPHost,
			Port:     cfg.FTPPort,
			User:     cfg.FTPUser,
			Password: cfg.FTPPassword,
			Root:     cfg.FTPRoot,
			BaseURL:  cfg.PublicBaseURL,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		p, err := storage.NewLocalProvider(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}
