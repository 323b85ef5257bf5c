package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/duynhne/cms-service/internal/core/domain"
)

// MemoryStore keeps users and sessions in process memory. It backs
// STORE_BACKEND=memory for local development and the package tests of the
// logic and web layers. Uniqueness and the session join are enforced under
// one mutex, so it gives the same guarantees as the SQL store on a single
// node.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.UserRow
	byEmail  map[string]string
	sessions map[string]domain.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.UserRow),
		byEmail:  make(map[string]string),
		sessions: make(map[string]domain.Session),
	}
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() *MemoryUserRepository { return &MemoryUserRepository{s: s} }

// Sessions returns the session repository view of the store.
func (s *MemoryStore) Sessions() *MemorySessionRepository { return &MemorySessionRepository{s: s} }

// MemoryUserRepository implements domain.UserRepository on a MemoryStore.
type MemoryUserRepository struct{ s *MemoryStore }

// Create inserts the user unless the email is taken.
func (r *MemoryUserRepository) Create(_ context.Context, row domain.UserRow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.byEmail[row.Email]; ok {
		return fmt.Errorf("insert user: %w", domain.ErrDuplicateEmail)
	}
	if _, ok := r.s.users[row.ID]; ok {
		return fmt.Errorf("insert user: duplicate id %q", row.ID)
	}
	r.s.users[row.ID] = row
	r.s.byEmail[row.Email] = row.ID
	return nil
}

// GetByEmail returns (nil, nil) when no user matches.
func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.UserRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, nil
	}
	row := r.s.users[id]
	return &row, nil
}

// GetByID returns (nil, nil) when no user matches.
func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.UserRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

// List returns users ordered by email, without password hashes.
func (r *MemoryUserRepository) List(_ context.Context, limit, offset int) ([]domain.UserRow, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	r.s.mu.RLock()
	out := make([]domain.UserRow, 0, len(r.s.users))
	for _, u := range r.s.users {
		u.PasswordHash = ""
		out = append(out, u)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemorySessionRepository implements domain.SessionRepository on a MemoryStore.
type MemorySessionRepository struct{ s *MemoryStore }

// Create inserts the session. The owner must exist.
func (r *MemorySessionRepository) Create(_ context.Context, sess domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[sess.UserID]; !ok {
		return fmt.Errorf("insert session: unknown user %q", sess.UserID)
	}
	if _, ok := r.s.sessions[sess.ID]; ok {
		return fmt.Errorf("insert session: duplicate id %q", sess.ID)
	}
	r.s.sessions[sess.ID] = sess
	return nil
}

// GetValid returns (nil, nil) for unknown or expired sessions.
func (r *MemorySessionRepository) GetValid(_ context.Context, id string, now time.Time) (*domain.SessionRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.sessions[id]
	if !ok || !sess.Valid(now) {
		return nil, nil
	}
	user, ok := r.s.users[sess.UserID]
	if !ok {
		return nil, nil
	}
	return &domain.SessionRow{SessionID: sess.ID, ExpiresAt: sess.ExpiresAt, User: user.Public()}, nil
}

// Delete is a no-op for unknown ids.
func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

// DeleteExpired removes sessions with ExpiresAt <= now.
func (r *MemorySessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, sess := range r.s.sessions {
		if !sess.Valid(now) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}
