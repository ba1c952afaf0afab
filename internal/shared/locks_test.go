package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) *RunLock {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRunLock(client, time.Minute)
}

func TestRunLockExcludesSecondHolder(t *testing.T) {
	ctx := context.Background()
	lock := newTestLock(t)
	key := GenerationLockKey(1, 42)

	token, err := lock.Acquire(ctx, key)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = lock.Acquire(ctx, key)
	require.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Release(ctx, key, token))

	token2, err := lock.Acquire(ctx, key)
	require.NoError(t, err)
	require.NotEmpty(t, token2)
}

func TestRunLockReleaseRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	lock := newTestLock(t)
	key := GenerationLockKey(1, 7)

	token, err := lock.Acquire(ctx, key)
	require.NoError(t, err)

	// a stale token must not free the current holder's lock
	require.NoError(t, lock.Release(ctx, key, "stale"))
	_, err = lock.Acquire(ctx, key)
	require.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Release(ctx, key, token))
}

func TestNilRunLockIsNoOp(t *testing.T) {
	ctx := context.Background()
	var lock *RunLock
	token, err := lock.Acquire(ctx, "any")
	require.NoError(t, err)
	require.Empty(t, token)
	require.NoError(t, lock.Release(ctx, "any", token))
}
