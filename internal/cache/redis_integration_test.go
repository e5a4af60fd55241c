//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctr, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "6379")
	require.NoError(t, err)
	addr := host + ":" + port.Port()

	r, err := NewRedis(ctx, RedisConfig{Addr: addr}, nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, r.Set(ctx, RegattaKey("h", "GER 1"), []byte(`{"success":true}`), time.Minute))
	got, err := r.Get(ctx, RegattaKey("h", "GER 1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(got))
}
