package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/duynhne/cms-service/internal/core/domain"
	pkgzerolog "github.com/duynhne/cms-service/pkg/logger/zerolog"
)

// SessionCookieName is the cookie carrying the session id.
const SessionCookieName = "session_id"

// Redirect targets used by SessionGate.
const (
	LoginPath = "/auth/login"
	HomePath  = "/"
)

// identityKey is the gin and context.Context key for the authenticated user.
const identityKey = "identity"

type identityCtxKey struct{}

// IdentityResolver maps a session id to its owner. A nil user with a nil
// error means the caller is anonymous.
type IdentityResolver interface {
	CurrentUser(ctx context.Context, sessionID string) (*domain.User, error)
}

// GateOption configures SessionGate.
type GateOption func(*gateConfig)

type gateConfig struct {
	bypass []string
}

// WithBypassPrefixes adds paths that skip the gate entirely. A prefix matches
// itself and anything below it as a path segment, so "/health" covers
// "/health/live" but not "/healthx".
func WithBypassPrefixes(prefixes ...string) GateOption {
	return func(c *gateConfig) { c.bypass = append(c.bypass, prefixes...) }
}

// SessionGate resolves the session cookie on every page request.
//
// Paths under /api/ pass through untouched. Anonymous callers are sent to
// /auth/login unless already under /auth/, and authenticated callers are sent
// away from /auth/ pages to /. Otherwise the identity is attached to the
// request for downstream handlers.
func SessionGate(resolver IdentityResolver, opts ...GateOption) gin.HandlerFunc {
	cfg := gateConfig{bypass: []string{"/api/"}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if cfg.skip(path) {
			c.Next()
			return
		}

		isAuthPage := strings.HasPrefix(path, "/auth/")
		logger := pkgzerolog.FromContext(c.Request.Context())

		var user *domain.User
		if sessionID, err := c.Cookie(SessionCookieName); err == nil && sessionID != "" {
			user, err = resolver.CurrentUser(c.Request.Context(), sessionID)
			if err != nil {
				logger.Error().Err(err).Str("path", path).Msg("Session lookup failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "Internal server error",
				})
				return
			}
		}

		switch {
		case user != nil && isAuthPage:
			c.Redirect(http.StatusFound, HomePath)
			c.Abort()
			return
		case user == nil && !isAuthPage:
			logger.Debug().Str("path", path).Msg("Anonymous request redirected to login")
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		if user != nil {
			c.Set(identityKey, user)
			ctx := context.WithValue(c.Request.Context(), identityCtxKey{}, user)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func (g gateConfig) skip(path string) bool {
	for _, p := range g.bypass {
		base := strings.TrimSuffix(p, "/")
		if path == base || strings.HasPrefix(path, base+"/") {
			return true
		}
	}
	return false
}

// IdentityFromContext returns the user attached by SessionGate, or nil.
func IdentityFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(identityCtxKey{}).(*domain.User)
	return user
}

// Identity returns the user attached by SessionGate, or nil.
func Identity(c *gin.Context) *domain.User {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}
