package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/cms-service/internal/core/domain"
)

func newUserRow(email string) domain.UserRow {
	return domain.UserRow{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleViewer,
	}
}

// runUserContract checks the behaviour every UserRepository must share.
func runUserContract(t *testing.T, users domain.UserRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		row := newUserRow("alice@example.com")
		require.NoError(t, users.Create(ctx, row))

		got, err := users.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, row, *got)

		byID, err := users.GetByID(ctx, row.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, row.Email, byID.Email)
	})

	t.Run("email match is case sensitive", func(t *testing.T) {
		got, err := users.GetByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing user", func(t *testing.T) {
		got, err := users.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = users.GetByID(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := users.Create(ctx, newUserRow("alice@example.com"))
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("concurrent duplicate registrations", func(t *testing.T) {
		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
			dupes   int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := users.Create(ctx, newUserRow("race@example.com"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					success++
				case assert.ErrorIs(t, err, domain.ErrDuplicateEmail):
					dupes++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, success)
		assert.Equal(t, workers-1, dupes)
	})

	t.Run("list", func(t *testing.T) {
		list, err := users.List(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "alice@example.com", list[0].Email)
		assert.Equal(t, "race@example.com", list[1].Email)
		for _, u := range list {
			assert.Empty(t, u.PasswordHash)
		}
	})
}

// runSessionContract checks the behaviour every SessionRepository must share.
func runSessionContract(t *testing.T, users domain.UserRepository, sessions domain.SessionRepository) {
	t.Helper()
	ctx := context.Background()

	owner := newUserRow("owner@example.com")
	require.NoError(t, users.Create(ctx, owner))

	now := time.Now().Truncate(time.Millisecond)

	t.Run("valid strictly before expiry", func(t *testing.T) {
		sess := domain.Session{ID: uuid.NewString(), UserID: owner.ID, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, sessions.Create(ctx, sess))

		row, err := sessions.GetValid(ctx, sess.ID, sess.ExpiresAt.Add(-time.Millisecond))
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, sess.ID, row.SessionID)
		assert.Equal(t, owner.Public(), row.User)
		assert.WithinDuration(t, sess.ExpiresAt, row.ExpiresAt, time.Millisecond)

		row, err = sessions.GetValid(ctx, sess.ID, sess.ExpiresAt)
		require.NoError(t, err)
		assert.Nil(t, row, "session must be invalid at exactly expires_at")

		row, err = sessions.GetValid(ctx, sess.ID, sess.ExpiresAt.Add(time.Second))
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("unknown id", func(t *testing.T) {
		row, err := sessions.GetValid(ctx, uuid.NewString(), now)
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		sess := domain.Session{ID: uuid.NewString(), UserID: owner.ID, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, sessions.Create(ctx, sess))

		require.NoError(t, sessions.Delete(ctx, sess.ID))
		require.NoError(t, sessions.Delete(ctx, sess.ID))

		row, err := sessions.GetValid(ctx, sess.ID, now)
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("delete expired", func(t *testing.T) {
		// Both rows are created live; the sweep is evaluated at a later instant
		// so stores that reject already-expired writes still participate.
		sweepAt := now.Add(2 * time.Hour)
		stale := domain.Session{ID: uuid.NewString(), UserID: owner.ID, ExpiresAt: sweepAt.Add(-time.Second)}
		fresh := domain.Session{ID: uuid.NewString(), UserID: owner.ID, ExpiresAt: sweepAt.Add(time.Hour)}
		require.NoError(t, sessions.Create(ctx, stale))
		require.NoError(t, sessions.Create(ctx, fresh))

		n, err := sessions.DeleteExpired(ctx, sweepAt)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		row, err := sessions.GetValid(ctx, stale.ID, now)
		require.NoError(t, err)
		assert.Nil(t, row, "stale session must be gone")

		row, err = sessions.GetValid(ctx, fresh.ID, sweepAt)
		require.NoError(t, err)
		require.NotNil(t, row, "fresh session must survive the sweep")
	})
}
