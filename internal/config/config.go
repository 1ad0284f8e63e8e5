package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const devJWTSecret = "fallback-secret-key-for-dev-only"

// Config holds application configuration
type Config struct {
	// Application
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Port     string `envconfig:"PORT" default:"8080"`

	// Database
	DBHost             string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort             int           `envconfig:"DB_PORT" default:"5432"`
	DBUser             string        `envconfig:"DB_USER" default:"wykonczymy"`
	DBPassword         string        `envconfig:"DB_PASSWORD" default:"wykonczymy"`
	DBName             string        `envconfig:"DB_NAME" default:"wykonczymy"`
	DBSSLMode          string        `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxOpenConns     int           `envconfig:"DB_MAX_OPEN_CONNS" default:"50"`
	DBMaxIdleConns     int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBStatementTimeout time.Duration `envconfig:"DB_STATEMENT_TIMEOUT" default:"15s"`
	MigrationsPath     string        `envconfig:"MIGRATIONS_PATH" default:"file://migrations"`

	// JWT
	JWTSecret       string        `envconfig:"JWT_SECRET" default:"fallback-secret-key-for-dev-only"`
	AccessTokenTTL  time.Duration `envconfig:"JWT_ACCESS_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"JWT_REFRESH_TTL" default:"168h"`

	// Login lockout
	MaxFailedLogins int           `envconfig:"MAX_FAILED_LOGINS" default:"5"`
	LockoutDuration time.Duration `envconfig:"LOCKOUT_DURATION" default:"15m"`

	// Redis is optional; without it invalidation events are only logged and
	// the reconciliation lock is process-local.
	RedisAddr           string        `envconfig:"REDIS_ADDR"`
	RedisPassword       string        `envconfig:"REDIS_PASSWORD"`
	RedisDB             int           `envconfig:"REDIS_DB" default:"0"`
	InvalidationChannel string        `envconfig:"INVALIDATION_CHANNEL" default:"wykonczymy:invalidate"`
	ReconcileLockTTL    time.Duration `envconfig:"RECONCILE_LOCK_TTL" default:"5m"`

	// OperatorAPIKey guards /ops endpoints. Empty disables them.
	OperatorAPIKey string `envconfig:"OPERATOR_API_KEY"`
}

var (
	appConfig *Config
	mu        sync.Mutex
)

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.Lock()
	appConfig = &cfg
	mu.Unlock()
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed in production")
	}
	if c.DBMaxOpenConns <= 0 || c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		return fmt.Errorf("invalid DB_MAX_IDLE_CONNS/DB_MAX_OPEN_CONNS")
	}
	if c.DBStatementTimeout < 0 {
		return fmt.Errorf("DB_STATEMENT_TIMEOUT must not be negative")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.MaxFailedLogins <= 0 {
		return fmt.Errorf("MAX_FAILED_LOGINS must be > 0")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DSN returns the key/value connection string for the gorm postgres driver.
// statement_timeout is passed through as a runtime parameter on every
// pooled connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s statement_timeout=%d",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBStatementTimeout.Milliseconds())
}

// MigrationURL returns the URL form golang-migrate expects.
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Get returns the application configuration, loading it on first use.
func Get() *Config {
	mu.Lock()
	cfg := appConfig
	mu.Unlock()
	if cfg != nil {
		return cfg
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

// Set installs cfg as the process configuration. Used by tests and tools
// that build a Config by hand.
func Set(cfg *Config) {
	mu.Lock()
	appConfig = cfg
	mu.Unlock()
}
