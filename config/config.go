// Package config loads service configuration from the environment.
//
// An optional .env file is read first (github.com/joho/godotenv), then the
// tagged structs below are populated with github.com/caarlos0/env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// bcrypt cost bounds. Below 10 is too cheap; above 14 makes a single login
// take long enough to starve the request pool.
const (
	MinBcryptCost = 10
	MaxBcryptCost = 14
)

// Config is the root configuration for the service and the sitectl CLI.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Database  DatabaseConfig
	Redis     RedisConfig `envPrefix:"REDIS_"`
	Session   SessionConfig
	Auth      AuthConfig
	Content   ContentConfig
	Shutdown  ShutdownConfig
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name    string `env:"SERVICE_NAME"    envDefault:"cms-service"`
	Version string `env:"SERVICE_VERSION" envDefault:"dev"`
	Env     string `env:"ENV"             envDefault:"development"`
	Port    string `env:"PORT"            envDefault:"8080"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// TracingConfig controls the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled    bool    `env:"TRACING_ENABLED"             envDefault:"false"`
	Endpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate float64 `env:"OTEL_SAMPLE_RATE"            envDefault:"1.0"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled  bool   `env:"PROFILING_ENABLED"  envDefault:"false"`
	Endpoint string `env:"PYROSCOPE_ENDPOINT" envDefault:"http://localhost:4040"`
}

// DatabaseConfig contains PostgreSQL settings and the primary store backend.
type DatabaseConfig struct {
	// Backend selects where users and sessions live: postgres or memory.
	Backend      string        `env:"STORE_BACKEND"      envDefault:"postgres"`
	URL          string        `env:"DATABASE_URL"`
	Host         string        `env:"DB_HOST"            envDefault:"localhost"`
	Port         int           `env:"DB_PORT"            envDefault:"5432"`
	User         string        `env:"DB_USER"            envDefault:"cms"`
	Password     string        `env:"DB_PASSWORD"        envDefault:"cms"`
	Name         string        `env:"DB_NAME"            envDefault:"cms"`
	SSLMode      string        `env:"DB_SSL_MODE"        envDefault:"disable"`
	MaxConns     int32         `env:"DB_MAX_CONNS"       envDefault:"10"`
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT"   envDefault:"3s"`
	Migrate      bool          `env:"DB_MIGRATE_ON_START" envDefault:"true"`
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the parts.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig is used when SESSION_BACKEND=redis.
type RedisConfig struct {
	Addr      string `env:"ADDR"       envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"   envDefault:""`
	DB        int    `env:"DB"         envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"session:"`
}

// SessionConfig controls session issuance, cookies and the expiry sweep.
type SessionConfig struct {
	// Backend overrides the session store; empty means "same as STORE_BACKEND".
	Backend       string        `env:"SESSION_BACKEND"`
	TTL           time.Duration `env:"SESSION_TTL"            envDefault:"24h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`
	SweepTimeout  time.Duration `env:"SESSION_SWEEP_TIMEOUT"  envDefault:"30s"`
	PruneOnLogin  bool          `env:"SESSION_PRUNE_ON_LOGIN" envDefault:"false"`
	CookieSecure  bool          `env:"SESSION_COOKIE_SECURE"  envDefault:"false"`
}

// SessionBackend resolves the effective session backend.
func (c *Config) SessionBackend() string {
	if c.Session.Backend == "" {
		return c.Database.Backend
	}
	return c.Session.Backend
}

// AuthConfig controls credential hashing.
type AuthConfig struct {
	BcryptCost  int           `env:"BCRYPT_COST"       envDefault:"10"`
	HashTimeout time.Duration `env:"AUTH_HASH_TIMEOUT" envDefault:"5s"`
}

// ContentConfig points the content sync at a GitHub repository.
type ContentConfig struct {
	GitHubToken string `env:"GITHUB_TOKEN"`
	Owner       string `env:"GITHUB_OWNER"`
	Repo        string `env:"GITHUB_REPO"`
	Branch      string `env:"GITHUB_BRANCH"`
	BasePath    string `env:"CONTENT_BASE_PATH"  envDefault:"content"`
	LocalRoot   string `env:"CONTENT_LOCAL_ROOT" envDefault:"src"`
}

// Validate reports whether the content sync settings are usable.
func (c ContentConfig) Validate() error {
	var errs []error
	if c.GitHubToken == "" {
		errs = append(errs, errors.New("GITHUB_TOKEN is required"))
	}
	if c.Owner == "" {
		errs = append(errs, errors.New("GITHUB_OWNER is required"))
	}
	if c.Repo == "" {
		errs = append(errs, errors.New("GITHUB_REPO is required"))
	}
	return errors.Join(errs...)
}

// ShutdownConfig controls graceful shutdown.
type ShutdownConfig struct {
	Timeout             time.Duration `env:"SHUTDOWN_TIMEOUT"      envDefault:"10s"`
	ReadinessDrainDelay time.Duration `env:"READINESS_DRAIN_DELAY" envDefault:"0s"`
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Database.Backend = strings.ToLower(strings.TrimSpace(cfg.Database.Backend))
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	return &cfg, nil
}

// Validate checks invariants that env parsing cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Service.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be within [0,1], got %v", c.Tracing.SampleRate))
	}

	switch c.Database.Backend {
	case BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", c.Database.Backend))
	}
	switch c.Session.Backend {
	case "", BackendPostgres, BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be postgres, redis or memory, got %q", c.Session.Backend))
	}
	if c.Database.Backend == BackendMemory && c.Session.Backend != "" && c.Session.Backend != BackendMemory {
		errs = append(errs, errors.New("SESSION_BACKEND must be memory when STORE_BACKEND=memory"))
	}
	if c.Database.Backend == BackendPostgres && c.Session.Backend == BackendMemory {
		errs = append(errs, errors.New("SESSION_BACKEND=memory requires STORE_BACKEND=memory"))
	}
	if c.Database.QueryTimeout <= 0 {
		errs = append(errs, errors.New("DB_QUERY_TIMEOUT must be positive"))
	}

	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Session.SweepInterval < time.Minute {
		errs = append(errs, fmt.Errorf("SESSION_SWEEP_INTERVAL must be at least 1m, got %s", c.Session.SweepInterval))
	}
	if c.Session.SweepTimeout <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_TIMEOUT must be positive"))
	}

	if c.Auth.BcryptCost < MinBcryptCost || c.Auth.BcryptCost > MaxBcryptCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d,%d], got %d",
			MinBcryptCost, MaxBcryptCost, c.Auth.BcryptCost))
	}
	if c.Auth.HashTimeout <= 0 {
		errs = append(errs, errors.New("AUTH_HASH_TIMEOUT must be positive"))
	}

	if c.Shutdown.Timeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.Shutdown.ReadinessDrainDelay < 0 {
		errs = append(errs, errors.New("READINESS_DRAIN_DELAY must not be negative"))
	}

	return errors.Join(errs...)
}

// GetShutdownTimeoutDuration returns the graceful shutdown budget.
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	return c.Shutdown.Timeout
}

// GetReadinessDrainDelayDuration returns how long /ready reports 503 before
// the HTTP server stops accepting connections.
func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	return c.Shutdown.ReadinessDrainDelay
}
