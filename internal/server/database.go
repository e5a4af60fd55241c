package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	repo "github.com/joseph-ayodele/regatta-tracker/internal/repository"
)

// ConnectDB opens the audit database described by cfg and creates the job
// table when it is missing.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	db, err := repo.Open(ctx, repo.ConfigFrom(cfg), logger)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx, db, logger); err != nil {
		repo.Close(db, logger)
		return nil, err
	}
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	if logger == nil {
		logger = slog.Default()
	}
	err := repo.HealthCheck(ctx, db, timeout, logger)
	if err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	return nil
}

// DBHealth adapts PingDB for the /healthz route.
func DBHealth(db *repo.DB, logger *slog.Logger, timeout time.Duration) HealthFunc {
	return func(ctx context.Context) error { return PingDB(ctx, db, logger, timeout) }
}

// CloseDB closes the database connections gracefully
func CloseDB(db *repo.DB, logger *slog.Logger) {
	repo.Close(db, logger)
}
