package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"AAPL", "MSFT", "AMZN", "GOOGL", "TSLA"}, cfg.Pipeline.Symbols)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.RunTimeout)
	assert.Equal(t, 5, cfg.Sources.AlphaVantage.RequestsPerMinute)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STOCK_SYMBOLS", " NVDA, META ,,")
	t.Setenv("RUN_TIMEOUT", "90s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("FINNHUB_RPM", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"NVDA", "META"}, cfg.Pipeline.Symbols)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.RunTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 60, cfg.Sources.Finnhub.RequestsPerMinute)
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	t.Setenv("STOCK_SYMBOLS", " , ")
	_, err := Load()
	assert.ErrorContains(t, err, "STOCK_SYMBOLS")

	t.Setenv("STOCK_SYMBOLS", "AAPL")
	t.Setenv("RUN_TIMEZONE", "Mars/Olympus_Mons")
	_, err = Load()
	assert.ErrorContains(t, err, "RUN_TIMEZONE")
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "w", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/w?sslmode=disable", d.ConnectionString())
}

func TestDefaultRunDate(t *testing.T) {
	p := PipelineConfig{Timezone: "America/Argentina/Buenos_Aires"}

	// 01:00 UTC on the 16th is still the 15th in Buenos Aires (UTC-3)
	now := time.Date(2024, 1, 16, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC), p.DefaultRunDate(now))
}
