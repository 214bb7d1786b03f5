package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trogers1052/stock-warehouse/internal/app"
	"github.com/trogers1052/stock-warehouse/internal/config"
	"github.com/trogers1052/stock-warehouse/internal/logging"
	"github.com/trogers1052/stock-warehouse/internal/models"
)

func main() {
	dateFlag := flag.String("date", "", "run date (YYYY-MM-DD); defaults to yesterday in RUN_TIMEZONE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("Failed to load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	date := cfg.Pipeline.DefaultRunDate(time.Now())
	if *dateFlag != "" {
		date, err = models.ParseDate(*dateFlag)
		if err != nil {
			logger.WithError(err).Fatal("Invalid -date")
		}
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialise pipeline")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	_, err = a.Runner.Run(ctx, date)
	stop()
	a.Close()
	if err != nil {
		os.Exit(1)
	}
}
