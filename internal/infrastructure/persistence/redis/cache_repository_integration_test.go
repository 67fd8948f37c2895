//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/platewise/engine/internal/ports/outbound"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func TestCacheRepository_Redis(t *testing.T) {
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
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCacheRepository(client, "test:", zaptest.NewLogger(t))

	require.NoError(t, cache.HealthCheck(ctx))

	_, err = cache.Get(ctx, "criteria:missing")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "criteria:q", []byte(`{"protein":{"min":20}}`), time.Minute))
	got, err := cache.Get(ctx, "criteria:q")
	require.NoError(t, err)
	assert.JSONEq(t, `{"protein":{"min":20}}`, string(got))

	raw, err := client.Get(ctx, "test:criteria:q").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, raw, "keys carry the prefix")

	exists, err := cache.Exists(ctx, "criteria:q")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, cache.Delete(ctx, "criteria:q"))
	exists, err = cache.Exists(ctx, "criteria:q")
	require.NoError(t, err)
	assert.False(t, exists)
}
