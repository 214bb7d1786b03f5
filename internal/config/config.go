package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Staging  StagingConfig
	Sources  SourcesConfig
	Pipeline PipelineConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration. Empty Brokers disables run events.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RedisConfig holds the run lock store. Empty Addr disables locking.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StagingConfig holds the columnar staging directory
type StagingConfig struct {
	Dir string
}

// SourceConfig holds one upstream API
type SourceConfig struct {
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
}

// SourcesConfig holds the price and profile upstreams
type SourcesConfig struct {
	AlphaVantage SourceConfig
	Finnhub      SourceConfig
}

// PipelineConfig holds run settings
type PipelineConfig struct {
	Symbols    []string
	RunTimeout time.Duration
	LockTTL    time.Duration
	Timezone   string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables, after loading a
// .env file when one is present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "stockwarehouse"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "warehouse-runs"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Staging: StagingConfig{
			Dir: getEnv("STAGING_DIR", "data/staging"),
		},
		Sources: SourcesConfig{
			AlphaVantage: SourceConfig{
				APIKey:            getEnv("API_KEY_ALPHA", ""),
				BaseURL:           getEnv("ALPHA_VANTAGE_URL", "https://www.alphavantage.co"),
				RequestsPerMinute: getEnvInt("ALPHA_VANTAGE_RPM", 5),
				Timeout:           getEnvDuration("ALPHA_VANTAGE_TIMEOUT", 15*time.Second),
			},
			Finnhub: SourceConfig{
				APIKey:            getEnv("API_KEY_FINNHUB", ""),
				BaseURL:           getEnv("FINNHUB_URL", "https://finnhub.io"),
				RequestsPerMinute: getEnvInt("FINNHUB_RPM", 60),
				Timeout:           getEnvDuration("FINNHUB_TIMEOUT", 15*time.Second),
			},
		},
		Pipeline: PipelineConfig{
			Symbols:    getEnvList("STOCK_SYMBOLS", []string{"AAPL", "MSFT", "AMZN", "GOOGL", "TSLA"}),
			RunTimeout: getEnvDuration("RUN_TIMEOUT", 10*time.Minute),
			LockTTL:    getEnvDuration("RUN_LOCK_TTL", 15*time.Minute),
			Timezone:   getEnv("RUN_TIMEZONE", "America/Argentina/Buenos_Aires"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would make every run fail
func (c *Config) Validate() error {
	if len(c.Pipeline.Symbols) == 0 {
		return fmt.Errorf("STOCK_SYMBOLS must list at least one symbol")
	}
	if c.Staging.Dir == "" {
		return fmt.Errorf("STAGING_DIR is required")
	}
	if c.Pipeline.RunTimeout <= 0 {
		return fmt.Errorf("RUN_TIMEOUT must be positive")
	}
	if c.Redis.Addr != "" && c.Pipeline.LockTTL <= 0 {
		return fmt.Errorf("RUN_LOCK_TTL must be positive when REDIS_ADDR is set")
	}
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("invalid RUN_TIMEZONE %q: %w", c.Pipeline.Timezone, err)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// DefaultRunDate is yesterday in the configured timezone
func (p *PipelineConfig) DefaultRunDate(now time.Time) time.Time {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
