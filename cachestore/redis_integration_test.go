package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestRedis starts a Redis container and returns a store connected to it.
func setupTestRedis(t *testing.T) *Redis {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() { _ = redisC.Terminate(ctx) })

	endpoint, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)

	store, err := NewRedis(RedisConfig{Addr: endpoint})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Ping(ctx))
	return store
}

func TestNewRedis_InvalidConfig(t *testing.T) {
	store, err := NewRedis(RedisConfig{})
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "addr is required")
}

func TestIntegration_Redis(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	t.Run("get set delete", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
		got, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), got)

		require.NoError(t, store.Delete(ctx, "k"))
		_, ok, err = store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ttl expires", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "ttl", []byte("v"), time.Second))
		assert.Eventually(t, func() bool {
			_, ok, err := store.Get(ctx, "ttl")
			return err == nil && !ok
		}, 5*time.Second, 100*time.Millisecond)
	})

	t.Run("compare and swap", func(t *testing.T) {
		swapped, err := store.CompareAndSwap(ctx, "cas", nil, []byte("v1"), 0)
		require.NoError(t, err)
		assert.True(t, swapped)

		swapped, err = store.CompareAndSwap(ctx, "cas", nil, []byte("v2"), 0)
		require.NoError(t, err)
		assert.False(t, swapped)

		swapped, err = store.CompareAndSwap(ctx, "cas", []byte("v1"), []byte("v2"), 0)
		require.NoError(t, err)
		assert.True(t, swapped)

		got, _, err := store.Get(ctx, "cas")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})
}
