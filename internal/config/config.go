package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source kinds
const (
	SourceAPI      = "api"
	SourcePostgres = "postgres"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// ProphetConfig holds the upstream Prophet API configuration
type ProphetConfig struct {
	// SourceKind selects where data is read from: "api" or "postgres"
	SourceKind  string        `yaml:"source_kind"`
	APIURL      string        `yaml:"api_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// PostgresConfig holds the Prophet database connection
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
	// Migrate creates the Prophet tables on startup when they are missing
	Migrate bool `yaml:"migrate"`
}

// RedisConfig holds Redis connection configuration. An empty URL keeps
// sessions in memory.
type RedisConfig struct {
	URL        string        `yaml:"url"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// LiveConfig holds websocket feed configuration
type LiveConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// DashboardConfig holds presentation settings
type DashboardConfig struct {
	StartingBankroll float64 `yaml:"starting_bankroll"`
}

// RetryConfig holds the retry policy of upstream fetches
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Prophet   ProphetConfig   `yaml:"prophet"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Live      LiveConfig      `yaml:"live"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Retry     RetryConfig     `yaml:"retry"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8090",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			CORSOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Prophet: ProphetConfig{
			SourceKind:  SourceAPI,
			APIURL:      "http://localhost:5195",
			HTTPTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			SessionTTL: 24 * time.Hour,
		},
		Live: LiveConfig{
			RefreshInterval: 60 * time.Second,
		},
		Dashboard: DashboardConfig{
			StartingBankroll: 10000.0,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file and finally the environment. An empty path skips YAML.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[Config] Warning: could not read .env: %v", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields with any environment variables that are set
func (c *Config) ApplyEnv() {
	c.Server.Addr = getEnv("DASHBOARD_ADDR", c.Server.Addr)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	c.Prophet.SourceKind = strings.ToLower(getEnv("SOURCE_KIND", c.Prophet.SourceKind))
	c.Prophet.APIURL = getEnv("PROPHET_API_URL", c.Prophet.APIURL)
	c.Prophet.HTTPTimeout = getEnvDuration("PROPHET_HTTP_TIMEOUT", c.Prophet.HTTPTimeout)

	c.Postgres.DSN = getEnv("PROPHET_DSN", c.Postgres.DSN)
	c.Postgres.Migrate = getEnvBool("PROPHET_MIGRATE", c.Postgres.Migrate)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Redis.SessionTTL = getEnvDuration("SESSION_TTL", c.Redis.SessionTTL)

	c.Live.RefreshInterval = getEnvDuration("LIVE_REFRESH_INTERVAL", c.Live.RefreshInterval)

	c.Dashboard.StartingBankroll = getEnvFloat("STARTING_BANKROLL", c.Dashboard.StartingBankroll)

	c.Retry.MaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", c.Retry.MaxAttempts)
	c.Retry.InitialDelay = getEnvDuration("RETRY_INITIAL_DELAY", c.Retry.InitialDelay)
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	switch c.Prophet.SourceKind {
	case SourceAPI:
		if c.Prophet.APIURL == "" {
			return fmt.Errorf("prophet api url is required for source %q", SourceAPI)
		}
	case SourcePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("PROPHET_DSN is required for source %q", SourcePostgres)
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Prophet.SourceKind)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Dashboard.StartingBankroll <= 0 {
		return fmt.Errorf("starting bankroll must be positive, got %.2f", c.Dashboard.StartingBankroll)
	}
	if c.Live.RefreshInterval <= 0 {
		return fmt.Errorf("live refresh interval must be positive")
	}
	if c.Prophet.HTTPTimeout <= 0 {
		return fmt.Errorf("prophet http timeout must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("[Config] Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
		log.Printf("[Config] Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return strings.EqualFold(value, "true") || value == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("[Config] Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
