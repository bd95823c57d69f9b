package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Provider  ProviderConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	// Driver selects the store backend: "postgres" or "sqlite".
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

type ProviderConfig struct {
	BaseURL                 string
	Timeout                 time.Duration
	IncludeDetailedCategory bool
	MaxSyncPages            int
}

type SchedulerConfig struct {
	Enabled       bool
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	providerTimeout, err := time.ParseDuration(getEnv("PROVIDER_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_TIMEOUT: %w", err)
	}
	maxSyncPages, err := strconv.Atoi(getEnv("PROVIDER_MAX_SYNC_PAGES", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_MAX_SYNC_PAGES: %w", err)
	}

	schedulerWorkers, err := strconv.Atoi(getEnv("SCHEDULER_WORKERS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_WORKERS: %w", err)
	}
	schedulerJobDelay, err := time.ParseDuration(getEnv("SCHEDULER_JOB_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_JOB_DELAY: %w", err)
	}
	schedulerQueueSize, err := strconv.Atoi(getEnv("SCHEDULER_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_QUEUE_SIZE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       dbPort,
			User:       getEnv("DB_USER", "ledgerlink"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "ledgerlink"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "ledgerlink.db"),
		},
		Provider: ProviderConfig{
			BaseURL:                 getEnv("PROVIDER_BASE_URL", ""),
			Timeout:                 providerTimeout,
			IncludeDetailedCategory: getBoolEnv("PROVIDER_INCLUDE_DETAILED_CATEGORY", true),
			MaxSyncPages:            maxSyncPages,
		},
		Scheduler: SchedulerConfig{
			Enabled:       getBoolEnv("SCHEDULER_ENABLED", true),
			ScheduleTimes: strings.Split(getEnv("SCHEDULER_TIMES", "05:00,12:00,20:00"), ","),
			WorkerCount:   schedulerWorkers,
			JobDelay:      schedulerJobDelay,
			QueueSize:     schedulerQueueSize,
			RunOnStartup:  getBoolEnv("SCHEDULER_RUN_ON_STARTUP", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("TELEMETRY_ENABLED", false),
			ServiceName:  getEnv("TELEMETRY_SERVICE_NAME", "ledgerlink"),
			Environment:  getEnv("TELEMETRY_ENVIRONMENT", "dev"),
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
	}

	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q (expected postgres or sqlite)", cfg.Database.Driver)
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
