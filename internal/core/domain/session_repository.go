package domain

import (
	"context"
	"time"
)

// Session is a persisted session record.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// Valid reports whether the session is still usable at now.
// The boundary is exclusive: a session is dead at exactly ExpiresAt.
func (s Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// SessionRow represents a session joined with its owner user,
// returned by session lookup queries.
type SessionRow struct {
	SessionID string
	ExpiresAt time.Time
	User      User
}

// SessionRepository defines the data-access contract for session operations.
// Implementations live in internal/core/repository (Core layer).
type SessionRepository interface {
	// Create inserts a new session.
	Create(ctx context.Context, sess Session) error

	// GetValid looks up the session by id and joins it with its owner.
	// Returns (nil, nil) when the id does not match any session or the
	// session has expired at now.
	GetValid(ctx context.Context, id string, now time.Time) (*SessionRow, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every session with expires_at <= now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
