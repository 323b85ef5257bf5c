package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_BACKEND", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cms-service", cfg.Service.Name)
	assert.Equal(t, "8080", cfg.Service.Port)
	assert.Equal(t, BackendPostgres, cfg.Database.Backend)
	assert.Equal(t, BackendPostgres, cfg.SessionBackend())
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, time.Hour, cfg.Session.SweepInterval)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 5*time.Second, cfg.Auth.HashTimeout)
	assert.Equal(t, 3*time.Second, cfg.Database.QueryTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", " Memory ")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("REDIS_ADDR", "redis:6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Database.Backend)
	assert.Equal(t, BackendMemory, cfg.SessionBackend())
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	require.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5433/n?sslmode=disable", c.DSN())

	c.URL = "postgres://override"
	assert.Equal(t, "postgres://override", c.DSN())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Service:  ServiceConfig{Port: "8080"},
			Logging:  LoggingConfig{Level: "info"},
			Tracing:  TracingConfig{SampleRate: 1},
			Database: DatabaseConfig{Backend: BackendPostgres, QueryTimeout: time.Second},
			Session: SessionConfig{
				TTL:           24 * time.Hour,
				SweepInterval: time.Hour,
				SweepTimeout:  time.Second,
			},
			Auth:     AuthConfig{BcryptCost: 10, HashTimeout: time.Second},
			Shutdown: ShutdownConfig{Timeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "redis sessions", mutate: func(c *Config) { c.Session.Backend = BackendRedis }},
		{name: "missing port", mutate: func(c *Config) { c.Service.Port = "" }, wantErr: "PORT"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "LOG_LEVEL"},
		{name: "sample rate", mutate: func(c *Config) { c.Tracing.SampleRate = 1.5 }, wantErr: "OTEL_SAMPLE_RATE"},
		{name: "unknown backend", mutate: func(c *Config) { c.Database.Backend = "mysql" }, wantErr: "STORE_BACKEND"},
		{name: "unknown session backend", mutate: func(c *Config) { c.Session.Backend = "etcd" }, wantErr: "SESSION_BACKEND"},
		{
			name: "memory users with redis sessions",
			mutate: func(c *Config) {
				c.Database.Backend = BackendMemory
				c.Session.Backend = BackendRedis
			},
			wantErr: "SESSION_BACKEND must be memory",
		},
		{name: "cheap bcrypt", mutate: func(c *Config) { c.Auth.BcryptCost = 4 }, wantErr: "BCRYPT_COST"},
		{name: "expensive bcrypt", mutate: func(c *Config) { c.Auth.BcryptCost = 20 }, wantErr: "BCRYPT_COST"},
		{name: "no hash timeout", mutate: func(c *Config) { c.Auth.HashTimeout = 0 }, wantErr: "AUTH_HASH_TIMEOUT"},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: "SESSION_TTL"},
		{name: "tight sweep", mutate: func(c *Config) { c.Session.SweepInterval = time.Second }, wantErr: "SESSION_SWEEP_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestContentConfig_Validate(t *testing.T) {
	err := ContentConfig{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
	assert.Contains(t, err.Error(), "GITHUB_OWNER")
	assert.Contains(t, err.Error(), "GITHUB_REPO")

	require.NoError(t, ContentConfig{GitHubToken: "t", Owner: "o", Repo: "r"}.Validate())
}
