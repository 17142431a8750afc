package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DBDriver    string `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"program"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"test"`
	DBName     string `envconfig:"DB_NAME" default:"courts"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`

	DBConnectRetries    int           `envconfig:"DB_CONNECT_RETRIES" default:"10"`
	DBConnectRetryDelay time.Duration `envconfig:"DB_CONNECT_RETRY_DELAY" default:"5s"`

	Port            string        `envconfig:"PORT" default:"5000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	BreakerMaxFailures int           `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerTimeout     time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
	BreakerWindow      time.Duration `envconfig:"BREAKER_WINDOW" default:"60s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT must be between 1 and 65535, got: %q", c.Port))
	}
	switch c.DBDriver {
	case "postgres":
	case "sqlite":
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL must name the database file when DB_DRIVER is sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER must be postgres or sqlite, got: %q", c.DBDriver))
	}
	if c.DatabaseURL == "" && (c.DBHost == "" || c.DBName == "") {
		problems = append(problems, "either DATABASE_URL or DB_HOST and DB_NAME must be set")
	}
	if c.DBMaxOpenConns <= 0 {
		problems = append(problems, fmt.Sprintf("DB_MAX_OPEN_CONNS must be positive, got: %d", c.DBMaxOpenConns))
	}
	if c.DBMaxIdleConns < 0 {
		problems = append(problems, fmt.Sprintf("DB_MAX_IDLE_CONNS cannot be negative, got: %d", c.DBMaxIdleConns))
	}
	if c.DBConnectRetries < 1 {
		problems = append(problems, fmt.Sprintf("DB_CONNECT_RETRIES must be at least 1, got: %d", c.DBConnectRetries))
	}
	if c.ShutdownTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("SHUTDOWN_TIMEOUT must be positive, got: %s", c.ShutdownTimeout))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be json or console, got: %q", c.LogFormat))
	}
	if c.BreakerMaxFailures < 0 {
		problems = append(problems, fmt.Sprintf("BREAKER_MAX_FAILURES cannot be negative, got: %d", c.BreakerMaxFailures))
	}
	if c.BreakerMaxFailures > 0 && (c.BreakerTimeout <= 0 || c.BreakerWindow <= 0) {
		problems = append(problems, "BREAKER_TIMEOUT and BREAKER_WINDOW must be positive when the breaker is enabled")
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(problems, "; "))
	}
	return nil
}

// DSN prefers DATABASE_URL and otherwise builds a keyword/value DSN from DB_*.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// RedactedDSN is safe to log.
func (c Config) RedactedDSN() string {
	if c.DatabaseURL != "" {
		u, err := url.Parse(c.DatabaseURL)
		if err != nil || u.Host == "" {
			return "<database url>"
		}
		return u.Redacted()
	}
	return fmt.Sprintf("%s@%s:%s/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

func (c Config) Addr() string {
	return ":" + c.Port
}
