package v1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/cms-service/internal/core/domain"
	"github.com/duynhne/cms-service/middleware"
)

// CredentialStore owns user records and password verification. Plaintext
// passwords enter here and leave only as bcrypt digests.
type CredentialStore struct {
	users       domain.UserRepository
	cost        int
	hashTimeout time.Duration
}

// DefaultHashTimeout bounds a single bcrypt hash or comparison.
const DefaultHashTimeout = 5 * time.Second

// CredentialOption configures a CredentialStore.
type CredentialOption func(*CredentialStore)

// WithHashTimeout overrides DefaultHashTimeout. Non-positive values are ignored.
func WithHashTimeout(d time.Duration) CredentialOption {
	return func(s *CredentialStore) {
		if d > 0 {
			s.hashTimeout = d
		}
	}
}

// NewCredentialStore creates a CredentialStore. Costs below
// bcrypt.DefaultCost are raised to it.
func NewCredentialStore(users domain.UserRepository, cost int, opts ...CredentialOption) *CredentialStore {
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	s := &CredentialStore{users: users, cost: cost, hashTimeout: DefaultHashTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUser hashes the password and inserts a new user. An empty role
// means viewer. The returned user carries no hash.
func (s *CredentialStore) CreateUser(ctx context.Context, email, name, password string, role domain.Role) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "credentials.create_user", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if role == "" {
		role = domain.RoleViewer
	}
	if !role.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"role": "Role must be one of admin, editor, viewer"}}
	}

	hash, err := s.hash(ctx, password)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row := domain.UserRow{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, row); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, fmt.Errorf("create user %q: %w", email, ErrDuplicateEmail)
		}
		span.RecordError(err)
		return nil, storeErr("insert user", err)
	}

	user := row.Public()
	span.SetAttributes(attribute.String("user.id", user.ID))
	return &user, nil
}

// FindUserByEmail returns the stored record, hash included, or nil.
func (s *CredentialStore) FindUserByEmail(ctx context.Context, email string) (*domain.UserRow, error) {
	row, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeErr("query user by email", err)
	}
	return row, nil
}

// FindUserByID returns the stored record, hash included, or nil.
func (s *CredentialStore) FindUserByID(ctx context.Context, id string) (*domain.UserRow, error) {
	row, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("query user by id", err)
	}
	return row, nil
}

// ListUsers returns user projections ordered by email.
func (s *CredentialStore) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	out := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Public())
	}
	return out, nil
}

// VerifyPassword compares password against the stored hash.
func (s *CredentialStore) VerifyPassword(ctx context.Context, row *domain.UserRow, password string) error {
	err := s.runBounded(ctx, func() error {
		return bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("compare password: %w", err)
	}
}

func (s *CredentialStore) hash(ctx context.Context, password string) (string, error) {
	var digest []byte
	err := s.runBounded(ctx, func() error {
		var err error
		digest, err = bcrypt.GenerateFromPassword([]byte(password), s.cost)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// runBounded runs a CPU-bound step and stops waiting for it after
// hashTimeout or once ctx is done. bcrypt cannot be interrupted, so the
// goroutine finishes on its own.
func (s *CredentialStore) runBounded(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.hashTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
