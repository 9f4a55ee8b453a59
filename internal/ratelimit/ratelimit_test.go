package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CountsWithinWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		count, err := store.Increment(ctx, "login:1.2.3.4", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Increment(ctx, "login:1.2.3.4", 15*time.Minute)
		require.NoError(t, err)
	}
	count, err := store.Increment(ctx, "login:5.6.7.8", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_WindowResets(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Increment(ctx, "login:1.2.3.4", 15*time.Minute)
		require.NoError(t, err)
	}

	// The window is anchored to the first increment, so one second past
	// its end the counter starts over.
	current = current.Add(15*time.Minute + time.Second)
	count, err := store.Increment(ctx, "login:1.2.3.4", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_SweepDropsExpiredRecords(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	_, err := store.Increment(ctx, "login:stale", time.Minute)
	require.NoError(t, err)
	_, err = store.Increment(ctx, "login:fresh", time.Hour)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	store.Sweep()

	assert.NotContains(t, store.records, "login:stale")
	assert.Contains(t, store.records, "login:fresh")
}
