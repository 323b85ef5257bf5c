package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/cms-service/internal/core/domain"
)

// PgxUserRepository implements domain.UserRepository using pgxpool.
type PgxUserRepository struct {
	pool *pgxpool.Pool
	opts options
}

// NewUserRepository creates a new PgxUserRepository.
func NewUserRepository(pool *pgxpool.Pool, opts ...Option) *PgxUserRepository {
	return &PgxUserRepository{pool: pool, opts: newOptions(opts)}
}

// Create inserts a new user. The users_email_unique constraint decides
// uniqueness, so two concurrent registrations cannot both succeed.
func (r *PgxUserRepository) Create(ctx context.Context, row domain.UserRow) error {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO users (id, email, name, password_hash, role) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, row.ID, row.Email, row.Name, row.PasswordHash, string(row.Role))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", domain.ErrDuplicateEmail)
		}
		return err
	}
	return nil
}

// GetByEmail returns the user matching the given email.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByEmail(ctx context.Context, email string) (*domain.UserRow, error) {
	return r.getOne(ctx, `SELECT id, email, name, password_hash, role FROM users WHERE email = $1`, email)
}

// GetByID returns the user with the given id.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByID(ctx context.Context, id string) (*domain.UserRow, error) {
	return r.getOne(ctx, `SELECT id, email, name, password_hash, role FROM users WHERE id = $1`, id)
}

func (r *PgxUserRepository) getOne(ctx context.Context, query string, arg string) (*domain.UserRow, error) {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	var (
		row  domain.UserRow
		role string
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&row.ID, &row.Email, &row.Name, &row.PasswordHash, &role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	row.Role = domain.Role(role)
	return &row, nil
}

// List returns users ordered by email.
func (r *PgxUserRepository) List(ctx context.Context, limit, offset int) ([]domain.UserRow, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	query := `SELECT id, email, name, role FROM users ORDER BY email LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserRow
	for rows.Next() {
		var (
			u    domain.UserRow
			role string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role); err != nil {
			return nil, err
		}
		u.Role = domain.Role(role)
		out = append(out, u)
	}
	return out, rows.Err()
}
