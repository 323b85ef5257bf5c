// Package v1 provides authentication business logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors that represent common authentication failures.
// These errors should be wrapped with context using fmt.Errorf("%w") when returned
// from business logic methods.
//
// Example Usage:
//
//	if user == nil {
//	    return nil, fmt.Errorf("authenticate user %q: %w", email, ErrUserNotFound)
//	}
//
//	if err := s.creds.VerifyPassword(ctx, user, password); err != nil {
//	    return nil, fmt.Errorf("authenticate user %q: %w", email, err)
//	}
//
// Error Checking (in handlers):
//
//	var vErr *logicv1.ValidationError
//	switch {
//	case errors.As(err, &vErr):
//	    c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Validation failed", "fields": vErr.Fields})
//	case errors.Is(err, logicv1.ErrInvalidCredentials), errors.Is(err, logicv1.ErrUserNotFound):
//	    c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid email or password"})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
//	}
//
// Store failures are wrapped with ErrStoreUnavailable; their detail goes to
// the log and never to the client. Expired or unknown sessions are not
// errors: CurrentUser returns a nil user.
package v1

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for authentication operations.
// These errors should be wrapped with context using fmt.Errorf("%w") when returned.
var (
	// ErrInvalidCredentials indicates the password does not match.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates no user has the given email.
	// HTTP Status: 401 Unauthorized (don't reveal user existence)
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail indicates the email is already registered.
	// HTTP Status: 400 Bad Request
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrStoreUnavailable indicates the persistence layer failed.
	// HTTP Status: 500 Internal Server Error
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError carries one message per offending request field, keyed by
// the field's JSON name.
// HTTP Status: 400 Bad Request
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// storeErr tags err as a persistence failure while keeping its detail.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
