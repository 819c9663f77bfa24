//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	store := NewRedisStore(startRedis(t))
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "p:a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "p:b", []byte("2"), time.Minute))
	require.NoError(t, store.Set(ctx, "other", []byte("3"), time.Minute))

	v, err := store.Get(ctx, "p:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	n, err := store.Invalidate(ctx, "p:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Get(ctx, "p:b")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = store.Get(ctx, "other")
	assert.NoError(t, err)
}

func TestRedisStore_Expiry(t *testing.T) {
	store := NewRedisStore(startRedis(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("x"), 100*time.Millisecond))
	time.Sleep(300 * time.Millisecond)

	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)
}
