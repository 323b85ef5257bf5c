package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/cms-service/internal/core/domain"
)

// PgxSessionRepository implements domain.SessionRepository using pgxpool.
type PgxSessionRepository struct {
	pool *pgxpool.Pool
	opts options
}

// NewSessionRepository creates a new PgxSessionRepository.
func NewSessionRepository(pool *pgxpool.Pool, opts ...Option) *PgxSessionRepository {
	return &PgxSessionRepository{pool: pool, opts: newOptions(opts)}
}

// Create inserts a new session for the given user.
func (r *PgxSessionRepository) Create(ctx context.Context, sess domain.Session) error {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, query, sess.ID, sess.UserID, sess.ExpiresAt)
	return err
}

// GetValid looks up the session by id and returns the associated user data
// together with the session expiry time.
// Returns (nil, nil) when the id does not match or the session expired.
func (r *PgxSessionRepository) GetValid(ctx context.Context, id string, now time.Time) (*domain.SessionRow, error) {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT s.id, s.expires_at, u.id, u.email, u.name, u.role
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.id = $1 AND s.expires_at > $2
	`

	var (
		row  domain.SessionRow
		role string
	)
	err := r.pool.QueryRow(ctx, query, id, now).Scan(
		&row.SessionID, &row.ExpiresAt, &row.User.ID, &row.User.Email, &row.User.Name, &role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	row.User.Role = domain.Role(role)
	return &row, nil
}

// Delete removes the session with the given id, if any.
func (r *PgxSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpired removes every session with expires_at <= now inside its own
// transaction so the sweep never shares a transaction with request traffic.
func (r *PgxSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.opts.withCallerDeadline(ctx)
	defer cancel()

	var deleted int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
