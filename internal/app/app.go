// Package app wires configuration into a ready pipeline runner.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-warehouse/internal/bronze"
	"github.com/trogers1052/stock-warehouse/internal/config"
	"github.com/trogers1052/stock-warehouse/internal/database"
	"github.com/trogers1052/stock-warehouse/internal/kafka"
	"github.com/trogers1052/stock-warehouse/internal/pipeline"
	"github.com/trogers1052/stock-warehouse/internal/runlock"
	"github.com/trogers1052/stock-warehouse/internal/staging"
)

// App holds the long-lived collaborators of a process
type App struct {
	DB     *database.DB
	Runner *pipeline.Runner

	closers []func() error
	log     logrus.FieldLogger
}

// New connects to the warehouse and, when configured, Redis and Kafka
func New(cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{log: log}

	db, err := database.New(cfg.Database.ConnectionString(), log.WithField("component", "warehouse"))
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	store, err := staging.NewStore(cfg.Staging.Dir, log.WithField("component", "staging"))
	if err != nil {
		a.Close()
		return nil, err
	}

	collector := bronze.NewCollector(
		bronze.NewAlphaVantageClient(sourceConfig(cfg.Sources.AlphaVantage)),
		bronze.NewFinnhubClient(sourceConfig(cfg.Sources.Finnhub)),
		log.WithField("component", "bronze"),
	)

	var opts []pipeline.Option
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			client.Close()
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, client.Close)
		opts = append(opts, pipeline.WithRedisLock(runlock.New(client, cfg.Pipeline.LockTTL)))
		log.WithField("addr", cfg.Redis.Addr).Info("Run lock enabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, producer.Close)
		opts = append(opts, pipeline.WithPublisher(producer))
		log.WithField("topic", cfg.Kafka.Topic).Info("Run events enabled")
	}

	a.Runner = pipeline.NewRunner(
		pipeline.Config{Symbols: cfg.Pipeline.Symbols, Timeout: cfg.Pipeline.RunTimeout},
		collector, store, db,
		log.WithField("component", "pipeline"),
		opts...,
	)
	return a, nil
}

// Close releases connections in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("Error during shutdown")
		}
	}
	a.closers = nil
}

func sourceConfig(s config.SourceConfig) bronze.ClientConfig {
	return bronze.ClientConfig{
		BaseURL:           s.BaseURL,
		APIKey:            s.APIKey,
		RequestsPerMinute: s.RequestsPerMinute,
		Timeout:           s.Timeout,
	}
}
