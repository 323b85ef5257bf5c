package v1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/cms-service/internal/core/domain"
	"github.com/duynhne/cms-service/middleware"
	pkgzerolog "github.com/duynhne/cms-service/pkg/logger/zerolog"
)

// DefaultSessionTTL is the absolute lifetime of a session.
const DefaultSessionTTL = 24 * time.Hour

// AuthService implements authentication business rules.
// It depends on the credential store and a session repository (injected via
// constructor) and MUST NOT access the database or SQL directly. It keeps no
// per-caller state: every call resolves identity from the stores.
type AuthService struct {
	creds        *CredentialStore
	sessions     domain.SessionRepository
	ttl          time.Duration
	pruneOnLogin bool
	now          func() time.Time
}

// ServiceOption configures an AuthService.
type ServiceOption func(*AuthService)

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPruneOnLogin makes a successful login also delete expired sessions.
func WithPruneOnLogin(enabled bool) ServiceOption {
	return func(s *AuthService) { s.pruneOnLogin = enabled }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuthService creates a new AuthService with the given dependencies.
func NewAuthService(creds *CredentialStore, sessions domain.SessionRepository, opts ...ServiceOption) *AuthService {
	s := &AuthService{
		creds:    creds,
		sessions: sessions,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login handles user login business logic.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := ValidateLogin(req); err != nil {
		loginAttempts.WithLabelValues(resultInvalidRequest).Inc()
		span.SetAttributes(attribute.Bool("request.valid", false))
		return nil, err
	}

	// Lookup user by email via the credential store
	row, err := s.creds.FindUserByEmail(ctx, req.Email)
	if err != nil {
		loginAttempts.WithLabelValues(resultError).Inc()
		span.RecordError(err)
		return nil, err
	}
	if row == nil {
		loginAttempts.WithLabelValues(resultUserNotFound).Inc()
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate user %q: %w", req.Email, ErrUserNotFound)
	}

	// Verify password
	if err := s.creds.VerifyPassword(ctx, row, req.Password); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		if errors.Is(err, ErrInvalidCredentials) {
			loginAttempts.WithLabelValues(resultInvalidPassword).Inc()
		} else {
			loginAttempts.WithLabelValues(resultError).Inc()
			span.RecordError(err)
		}
		return nil, fmt.Errorf("authenticate user %q: %w", req.Email, err)
	}

	sess, err := s.issueSession(ctx, row.ID)
	if err != nil {
		loginAttempts.WithLabelValues(resultError).Inc()
		span.RecordError(err)
		return nil, err
	}

	// Prune expired sessions (best-effort, don't fail login)
	if s.pruneOnLogin {
		if n, pruneErr := s.sessions.DeleteExpired(ctx, s.now()); pruneErr != nil {
			span.RecordError(fmt.Errorf("prune sessions: %w", pruneErr))
			pkgzerolog.FromContext(ctx).Warn().Err(pruneErr).Msg("Pruning expired sessions failed")
		} else if n > 0 {
			sessionsSwept.Add(float64(n))
		}
	}

	user := row.Public()
	loginAttempts.WithLabelValues(resultSuccess).Inc()
	span.SetAttributes(
		attribute.String("user.id", user.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	return &domain.AuthResponse{
		Success:   true,
		User:      user,
		SessionID: sess.ID,
	}, nil
}

// Register handles user registration business logic. It does not log the
// new user in.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := ValidateRegister(req); err != nil {
		registrations.WithLabelValues(resultInvalidRequest).Inc()
		span.SetAttributes(attribute.Bool("request.valid", false))
		return nil, err
	}

	user, err := s.creds.CreateUser(ctx, req.Email, req.Name, req.Password, domain.RoleViewer)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			registrations.WithLabelValues(resultDuplicate).Inc()
			span.SetAttributes(attribute.Bool("registration.success", false))
		} else {
			registrations.WithLabelValues(resultError).Inc()
			span.RecordError(err)
		}
		return nil, err
	}

	registrations.WithLabelValues(resultSuccess).Inc()
	span.SetAttributes(
		attribute.String("user.id", user.ID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")

	return &domain.AuthResponse{Success: true, User: *user}, nil
}

// CurrentUser resolves a session id to its owner. Unknown, empty and
// expired ids yield (nil, nil).
func (s *AuthService) CurrentUser(ctx context.Context, sessionID string) (*domain.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	ctx, span := middleware.StartSpan(ctx, "auth.current_user", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	row, err := s.sessions.GetValid(ctx, sessionID, s.now())
	if err != nil {
		span.RecordError(err)
		return nil, storeErr("query session", err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, nil
	}

	span.SetAttributes(
		attribute.String("user.id", row.User.ID),
		attribute.Bool("session.valid", true),
	)
	user := row.User
	return &user, nil
}

// Logout deletes the session. Missing sessions are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	ctx, span := middleware.StartSpan(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		span.RecordError(err)
		return storeErr("delete session", err)
	}
	return nil
}

// SessionTTL reports the lifetime given to new sessions.
func (s *AuthService) SessionTTL() time.Duration { return s.ttl }

func (s *AuthService) issueSession(ctx context.Context, userID string) (domain.Session, error) {
	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return domain.Session{}, storeErr("create session", err)
	}
	return sess, nil
}
