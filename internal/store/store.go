// Package store opens the user and session repositories selected by
// configuration and owns their underlying connections.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/cms-service/config"
	"github.com/duynhne/cms-service/internal/core"
	"github.com/duynhne/cms-service/internal/core/domain"
	"github.com/duynhne/cms-service/internal/core/repository"
)

// Stores bundles the repositories handed to the logic layer.
type Stores struct {
	Users    domain.UserRepository
	Sessions domain.SessionRepository

	pool  *pgxpool.Pool
	redis *redis.Client
}

// Open connects the configured backends. The caller must Close the result.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}
	timeout := repository.WithQueryTimeout(cfg.Database.QueryTimeout)

	switch cfg.Database.Backend {
	case config.BackendMemory:
		mem := repository.NewMemoryStore()
		s.Users = mem.Users()
		s.Sessions = mem.Sessions()
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		return s, nil
	case config.BackendPostgres:
		pool, err := core.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.pool = pool
		s.Users = repository.NewUserRepository(pool, timeout)
		log.Info().Msg("Database connection pool established")
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Database.Backend)
	}

	switch cfg.SessionBackend() {
	case config.BackendPostgres:
		s.Sessions = repository.NewSessionRepository(s.pool, timeout)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			s.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		s.redis = client
		s.Sessions = repository.NewRedisSessionRepository(client, s.Users, cfg.Redis.KeyPrefix, timeout)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis session store connected")
	default:
		s.Close()
		return nil, fmt.Errorf("session backend %q is not available with store backend %q",
			cfg.SessionBackend(), cfg.Database.Backend)
	}
	return s, nil
}

// Close releases every connection Open acquired.
func (s *Stores) Close() error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		s.redis = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return errors.Join(errs...)
}
