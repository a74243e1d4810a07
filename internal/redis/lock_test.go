package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSlotLocker(client, 5*time.Second), client
}

func TestWithSlotLockRunsAndReleases(t *testing.T) {
	locker, client := newTestLocker(t)
	slotID := uuid.New()

	ran := false
	err := locker.WithSlotLock(context.Background(), slotID, func(ctx context.Context) error {
		ran = true
		// The key is held for the duration of the section.
		n, err := client.Exists(ctx, "lock:slot:"+slotID.String()).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	n, err := client.Exists(context.Background(), "lock:slot:"+slotID.String()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "lock should be released after the section")
}

func TestWithSlotLockMutualExclusion(t *testing.T) {
	locker, _ := newTestLocker(t)
	slotID := uuid.New()

	err := locker.WithSlotLock(context.Background(), slotID, func(ctx context.Context) error {
		// A second acquisition of the same slot while held must fail fast.
		inner := locker.WithSlotLock(ctx, slotID, func(ctx context.Context) error {
			t.Fatal("inner section must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestWithSlotLockIndependentSlots(t *testing.T) {
	locker, _ := newTestLocker(t)

	err := locker.WithSlotLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		return locker.WithSlotLock(ctx, uuid.New(), func(ctx context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}

func TestWithSlotLockPropagatesSectionError(t *testing.T) {
	locker, client := newTestLocker(t)
	slotID := uuid.New()

	sectionErr := assert.AnError
	err := locker.WithSlotLock(context.Background(), slotID, func(ctx context.Context) error {
		return sectionErr
	})
	assert.ErrorIs(t, err, sectionErr)

	// Lock is released even when the section fails.
	n, err := client.Exists(context.Background(), "lock:slot:"+slotID.String()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
