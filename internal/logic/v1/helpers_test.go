package v1

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/duynhne/cms-service/internal/core/domain"
	"github.com/duynhne/cms-service/internal/core/repository"
)

const testPassword = "Password1!"

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store    *repository.MemoryStore
	creds    *CredentialStore
	auth     *AuthService
	clock    *fakeClock
	sessions domain.SessionRepository
}

func newTestEnv(opts ...ServiceOption) *testEnv {
	store := repository.NewMemoryStore()
	clock := newFakeClock()
	creds := NewCredentialStore(store.Users(), 0)
	opts = append([]ServiceOption{WithClock(clock.Now)}, opts...)
	return &testEnv{
		store:    store,
		creds:    creds,
		auth:     NewAuthService(creds, store.Sessions(), opts...),
		clock:    clock,
		sessions: store.Sessions(),
	}
}

// mockSessionRepository lets tests inject store failures.
type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Create(ctx context.Context, sess domain.Session) error {
	return m.Called(ctx, sess).Error(0)
}

func (m *mockSessionRepository) GetValid(ctx context.Context, id string, now time.Time) (*domain.SessionRow, error) {
	args := m.Called(ctx, id, now)
	row, _ := args.Get(0).(*domain.SessionRow)
	return row, args.Error(1)
}

func (m *mockSessionRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
