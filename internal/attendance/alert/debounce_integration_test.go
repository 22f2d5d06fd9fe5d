//go:build integration

package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	platformredis "treehouse/internal/platform/redis"
)

func TestRedisDebouncer(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := platformredis.New(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	d := NewRedis(client)

	allowed, err := d.Allow(ctx, "two-deep", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Second caller inside the window loses, even from another instance.
	other := NewRedis(client)
	allowed, err = other.Allow(ctx, "two-deep", time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different key has its own window.
	allowed, err = d.Allow(ctx, "keyholder-shortfall", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
