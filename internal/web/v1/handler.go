package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/cms-service/internal/core/domain"
	logicv1 "github.com/duynhne/cms-service/internal/logic/v1"
	"github.com/duynhne/cms-service/middleware"
	pkgzerolog "github.com/duynhne/cms-service/pkg/logger/zerolog"
)

// Client-facing error messages.
const (
	msgInvalidLogin   = "Invalid email or password"
	msgEmailExists    = "Email already exists"
	msgValidation     = "Validation failed"
	msgInvalidBody    = "Invalid request body"
	msgInternal       = "Internal server error"
	msgNotAuthorized  = "Not authenticated"
	msgLoginFailed    = "An error occurred during login"
	msgRegisterFailed = "An error occurred during registration"
)

// Handler groups HTTP handlers for the auth API v1.
// Dependencies are injected via the constructor, no global state.
type Handler struct {
	auth         *logicv1.AuthService
	secureCookie bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) HandlerOption {
	return func(h *Handler) { h.secureCookie = secure }
}

// NewHandler creates a new Handler with the given AuthService.
func NewHandler(auth *logicv1.AuthService, opts ...HandlerOption) *Handler {
	h := &Handler{auth: auth}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers all auth API v1 routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/register", h.Register)
	rg.POST("/auth/logout", h.Logout)
	rg.GET("/auth/me", h.GetMe)
}

// startSpan opens a web-layer span and rebinds the request to its context.
func startSpan(c *gin.Context, name string) trace.Span {
	ctx, span := middleware.StartSpan(c.Request.Context(), name, trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	c.Request = c.Request.WithContext(ctx)
	return span
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// Login handles HTTP request for user login and sets the session cookie.
func (h *Handler) Login(c *gin.Context) {
	span := startSpan(c, "http.auth.login")
	defer span.End()

	ctx := c.Request.Context()
	logger := pkgzerolog.FromContext(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		logger.Warn().Err(err).Msg("Invalid login body")
		fail(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	response, err := h.auth.Login(ctx, req)
	if err != nil {
		var vErr *logicv1.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgValidation, "fields": vErr.Fields})
		case errors.Is(err, logicv1.ErrInvalidCredentials), errors.Is(err, logicv1.ErrUserNotFound):
			// One message for both so the response does not reveal which emails exist.
			logger.Info().Err(err).Msg("Login rejected")
			fail(c, http.StatusUnauthorized, msgInvalidLogin)
		default:
			span.RecordError(err)
			logger.Error().Err(err).Msg("Login failed")
			fail(c, http.StatusInternalServerError, msgLoginFailed)
		}
		return
	}

	h.setSessionCookie(c, response.SessionID, int(h.auth.SessionTTL().Seconds()))

	logger.Info().Str("user_id", response.User.ID).Msg("Login successful")
	c.JSON(http.StatusOK, response)
}

// Register handles HTTP request for user registration. It does not log the
// new user in.
func (h *Handler) Register(c *gin.Context) {
	span := startSpan(c, "http.auth.register")
	defer span.End()

	ctx := c.Request.Context()
	logger := pkgzerolog.FromContext(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		logger.Warn().Err(err).Msg("Invalid registration body")
		fail(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	response, err := h.auth.Register(ctx, req)
	if err != nil {
		var vErr *logicv1.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgValidation, "fields": vErr.Fields})
		case errors.Is(err, logicv1.ErrDuplicateEmail):
			fail(c, http.StatusBadRequest, msgEmailExists)
		default:
			span.RecordError(err)
			logger.Error().Err(err).Msg("Registration failed")
			fail(c, http.StatusInternalServerError, msgRegisterFailed)
		}
		return
	}

	logger.Info().Str("user_id", response.User.ID).Msg("Registration successful")
	c.JSON(http.StatusCreated, response)
}

// Logout deletes the caller's session and clears the cookie. It always
// succeeds from the client's point of view.
func (h *Handler) Logout(c *gin.Context) {
	span := startSpan(c, "http.auth.logout")
	defer span.End()

	ctx := c.Request.Context()

	if sessionID, err := c.Cookie(middleware.SessionCookieName); err == nil && sessionID != "" {
		if err := h.auth.Logout(ctx, sessionID); err != nil {
			span.RecordError(err)
			pkgzerolog.FromContext(ctx).Error().Err(err).Msg("Session delete failed during logout")
		}
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetMe returns the user owning the session cookie.
// GET /api/auth/me
func (h *Handler) GetMe(c *gin.Context) {
	span := startSpan(c, "http.auth.me")
	defer span.End()

	ctx := c.Request.Context()

	sessionID, _ := c.Cookie(middleware.SessionCookieName)
	span.SetAttributes(attribute.Bool("auth.present", sessionID != ""))

	user, err := h.auth.CurrentUser(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		pkgzerolog.FromContext(ctx).Error().Err(err).Msg("Session lookup failed")
		fail(c, http.StatusInternalServerError, msgInternal)
		return
	}
	if user == nil {
		fail(c, http.StatusUnauthorized, msgNotAuthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// setSessionCookie writes session_id with HttpOnly and SameSite=Strict. A
// negative maxAge expires the cookie immediately.
func (h *Handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
