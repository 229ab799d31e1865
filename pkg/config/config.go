package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// OMDb metadata source configuration
	OMDb OMDbConfig `mapstructure:"omdb"`

	// Ingest configuration
	Ingest IngestConfig `mapstructure:"ingest"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
	MinRequests      uint32  `mapstructure:"min_requests"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
	// DbURL is a mysql://, postgres:// or sqlite:// URL; empty disables SQL telemetry.
	DbURL string `mapstructure:"db_url"`
	// StatsInterval is the graph stats sampling period in seconds; 0 disables it.
	StatsInterval int `mapstructure:"stats_interval"`
	// StatsBatchSize is the number of points buffered per parquet file.
	StatsBatchSize int `mapstructure:"stats_batch_size"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver            string `mapstructure:"driver"` // neo4j, memgraph, memory
	URI               string `mapstructure:"uri"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	UniqueConstraints bool   `mapstructure:"unique_constraints"`
	ConnectTimeout    int    `mapstructure:"connect_timeout"` // in seconds
	MaxPoolSize       int    `mapstructure:"max_pool_size"`
}

// OMDbConfig holds the metadata source configuration
type OMDbConfig struct {
	APIKey    string      `mapstructure:"api_key"`
	BaseURL   string      `mapstructure:"base_url"`
	Timeout   int         `mapstructure:"timeout"` // in seconds
	CachePath string      `mapstructure:"cache_path"`
	CacheURL  string      `mapstructure:"cache_url"` // redis://...; overrides cache_path
	CacheTTL  int         `mapstructure:"cache_ttl"` // in hours; 0 disables caching
	Retry     RetryConfig `mapstructure:"retry"`
}

// RetryConfig holds retry configuration for outbound requests
type RetryConfig struct {
	MaxRetries   int     `mapstructure:"max_retries"`
	InitialDelay int     `mapstructure:"initial_delay"` // in milliseconds
	MaxDelay     int     `mapstructure:"max_delay"`     // in milliseconds
	Multiplier   float64 `mapstructure:"multiplier"`
}

// IngestConfig holds batch ingestion configuration
type IngestConfig struct {
	Workers  int    `mapstructure:"workers"`
	LockFile string `mapstructure:"lock_file"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Database.Driver) {
	case "neo4j", "memgraph":
		if c.Database.URI == "" {
			errs = append(errs, errors.New("database.uri is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of neo4j, memgraph, memory", c.Database.Driver))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Ingest.Workers < 1 {
		errs = append(errs, errors.New("ingest.workers must be at least 1"))
	}
	if c.CircuitBreaker.Enabled && (c.CircuitBreaker.ReadyToTripRatio <= 0 || c.CircuitBreaker.ReadyToTripRatio > 1) {
		errs = append(errs, errors.New("circuit_breaker.ready_to_trip_ratio must be in (0, 1]"))
	}
	if c.Alert.Enabled && (c.Alert.SMTPHost == "" || len(c.Alert.To) == 0) {
		errs = append(errs, errors.New("alert.smtp_host and alert.to are required when alerts are enabled"))
	}

	return errors.Join(errs...)
}

// ConnectTimeoutDuration returns the database connect timeout as a duration.
func (d DatabaseConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(d.ConnectTimeout) * time.Second
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	// Database defaults
	viper.SetDefault("database.driver", "neo4j")
	viper.SetDefault("database.uri", "bolt://localhost:7687")
	viper.SetDefault("database.username", "neo4j")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.database", "")
	viper.SetDefault("database.unique_constraints", false)
	viper.SetDefault("database.connect_timeout", 10)
	viper.SetDefault("database.max_pool_size", 0)

	// OMDb defaults
	viper.SetDefault("omdb.base_url", "https://www.omdbapi.com/")
	viper.SetDefault("omdb.timeout", 15)
	viper.SetDefault("omdb.cache_ttl", 24*7)
	viper.SetDefault("omdb.retry.max_retries", 3)
	viper.SetDefault("omdb.retry.initial_delay", 500)
	viper.SetDefault("omdb.retry.max_delay", 10000)
	viper.SetDefault("omdb.retry.multiplier", 2.0)

	// Ingest defaults
	viper.SetDefault("ingest.workers", 4)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
	viper.SetDefault("circuit_breaker.min_requests", 5)

	// Alert defaults
	viper.SetDefault("alert.enabled", false)
	viper.SetDefault("alert.smtp_port", 587)

	// Telemetry defaults
	viper.SetDefault("telemetry.stats_interval", 0)
	viper.SetDefault("telemetry.stats_batch_size", 100)

	home, err := os.UserHomeDir()
	if err == nil {
		base := filepath.Join(home, ".mediagraph")
		viper.SetDefault("telemetry.parquet_path", filepath.Join(base, "telemetry"))
		viper.SetDefault("omdb.cache_path", filepath.Join(base, "cache"))
		viper.SetDefault("ingest.lock_file", filepath.Join(base, "ingest.lock"))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Database credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Database.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Database.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Database.Password = pass
	}

	// Generic database settings
	if dbDriver := os.Getenv("DB_DRIVER"); dbDriver != "" {
		config.Database.Driver = dbDriver
	}
	if dbURI := os.Getenv("DB_URI"); dbURI != "" {
		config.Database.URI = dbURI
	}

	// Metadata source
	if key := os.Getenv("OMDB_API_KEY"); key != "" {
		config.OMDb.APIKey = key
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		config.OMDb.CacheURL = url
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		viper.Set("server.port", port)
		config.Server.Port = viper.GetInt("server.port")
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
	if url := os.Getenv("TELEMETRY_DB_URL"); url != "" {
		config.Telemetry.DbURL = url
	}
}
