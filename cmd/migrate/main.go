package main

import (
	"github.com/trogers1052/stock-warehouse/internal/config"
	"github.com/trogers1052/stock-warehouse/internal/database"
	"github.com/trogers1052/stock-warehouse/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("Failed to load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.New(cfg.Database.ConnectionString(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		db.Close()
		logger.WithError(err).Fatal("Migration failed")
	}
	logger.Info("Migrations completed successfully")
}
