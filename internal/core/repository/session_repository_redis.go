package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duynhne/cms-service/internal/core/domain"
)

// redisSession is the JSON payload stored under prefix+id.
type redisSession struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisSessionRepository implements domain.SessionRepository on Redis.
// Keys carry a TTL matching the session expiry; the owner record is read
// from the user repository so identity always reflects the user store.
type RedisSessionRepository struct {
	client redis.UniversalClient
	users  domain.UserRepository
	prefix string
	opts   options
}

// NewRedisSessionRepository creates a Redis-backed session repository.
func NewRedisSessionRepository(client redis.UniversalClient, users domain.UserRepository, prefix string, opts ...Option) *RedisSessionRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisSessionRepository{client: client, users: users, prefix: prefix, opts: newOptions(opts)}
}

func (r *RedisSessionRepository) key(id string) string { return r.prefix + id }

// Create stores the session with a TTL equal to its remaining lifetime,
// measured against the repository clock.
func (r *RedisSessionRepository) Create(ctx context.Context, sess domain.Session) error {
	if sess.ID == "" || sess.UserID == "" {
		return errors.New("session: missing id or user_id")
	}
	ttl, err := sessionTTL(sess.ExpiresAt, r.opts.now())
	if err != nil {
		return err
	}

	data, err := json.Marshal(redisSession{UserID: sess.UserID, ExpiresAt: sess.ExpiresAt})
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	ok, err := r.client.SetNX(ctx, r.key(sess.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return fmt.Errorf("session: duplicate id %q", sess.ID)
	}
	return nil
}

// sessionTTL is the key lifetime for a session expiring at expiresAt.
func sessionTTL(expiresAt, now time.Time) (time.Duration, error) {
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return 0, errors.New("session: expires_at must be in the future")
	}
	return ttl, nil
}

func (r *RedisSessionRepository) load(ctx context.Context, id string) (*redisSession, error) {
	val, err := r.client.Get(ctx, r.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var s redisSession
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return &s, nil
}

// GetValid returns (nil, nil) for unknown or expired sessions, and for
// sessions whose owner no longer exists.
func (r *RedisSessionRepository) GetValid(ctx context.Context, id string, now time.Time) (*domain.SessionRow, error) {
	if id == "" {
		return nil, nil
	}
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	s, err := r.load(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	if !now.Before(s.ExpiresAt) {
		return nil, nil
	}

	user, err := r.users.GetByID(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session owner: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	return &domain.SessionRow{SessionID: id, ExpiresAt: s.ExpiresAt, User: user.Public()}, nil
}

// Delete removes the key; missing keys are fine.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()
	return r.client.Del(ctx, r.key(id)).Err()
}

// DeleteExpired scans the prefix and removes entries whose expiry has
// passed but whose TTL has not fired yet (clock skew between hosts).
func (r *RedisSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.opts.withCallerDeadline(ctx)
	defer cancel()

	var deleted int64
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := key[len(r.prefix):]
		s, err := r.load(ctx, id)
		if err != nil {
			return deleted, err
		}
		if s == nil || now.Before(s.ExpiresAt) {
			continue
		}
		n, err := r.client.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis del: %w", err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan: %w", err)
	}
	return deleted, nil
}
