package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trogers1052/stock-warehouse/internal/api"
	"github.com/trogers1052/stock-warehouse/internal/app"
	"github.com/trogers1052/stock-warehouse/internal/config"
	"github.com/trogers1052/stock-warehouse/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("Failed to load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialise warehouse")
	}
	defer a.Close()

	handler := api.NewHandler(a.DB, a.Runner, logger.WithField("component", "api"))
	srv := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           api.SetupRoutes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
}
