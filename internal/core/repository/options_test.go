package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_WithTimeout(t *testing.T) {
	o := newOptions([]Option{WithQueryTimeout(2 * time.Second)})

	ctx, cancel := o.withTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
}

func TestOptions_WithCallerDeadline(t *testing.T) {
	o := newOptions(nil)

	t.Run("keeps a longer caller deadline", func(t *testing.T) {
		parent, cancelParent := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelParent()
		want, _ := parent.Deadline()

		ctx, cancel := o.withCallerDeadline(parent)
		defer cancel()

		got, ok := ctx.Deadline()
		require.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("falls back to the query timeout", func(t *testing.T) {
		ctx, cancel := o.withCallerDeadline(context.Background())
		defer cancel()

		got, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(DefaultQueryTimeout), got, time.Second)
	})
}

func TestSessionTTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ttl, err := sessionTTL(now.Add(24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)

	_, err = sessionTTL(now, now)
	require.Error(t, err)

	_, err = sessionTTL(now.Add(-time.Second), now)
	require.Error(t, err)
}

func TestOptions_WithClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	o := newOptions([]Option{WithClock(func() time.Time { return fixed })})
	assert.Equal(t, fixed, o.now())

	o = newOptions([]Option{WithClock(nil)})
	assert.WithinDuration(t, time.Now(), o.now(), time.Second)
}
