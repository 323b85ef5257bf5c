package domain

import (
	"context"
	"errors"
)

// ErrDuplicateEmail is returned by UserRepository.Create when the store's
// unique constraint on email rejects the insert.
var ErrDuplicateEmail = errors.New("email already exists")

// UserRow represents a user record returned from the store.
// It includes the password hash so the Logic layer can verify credentials.
type UserRow struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
}

// Public strips the password hash.
func (u UserRow) Public() User {
	return User{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only, never on SQL or pgx directly.
type UserRepository interface {
	// Create inserts a new user. Uniqueness of email is enforced by the
	// store itself; a conflicting insert returns ErrDuplicateEmail.
	Create(ctx context.Context, row UserRow) error

	// GetByEmail returns the user whose email matches exactly.
	// Returns (nil, nil) when no user is found.
	GetByEmail(ctx context.Context, email string) (*UserRow, error)

	// GetByID returns the user with the given id.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id string) (*UserRow, error)

	// List returns users ordered by email.
	List(ctx context.Context, limit, offset int) ([]UserRow, error)
}
