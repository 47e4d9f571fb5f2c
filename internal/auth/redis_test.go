package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisRevoker needs a running Redis; set TEST_REDIS_ADDR to enable it.
func TestRedisRevoker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	r, err := NewRedisRevoker(ctx, RedisOptions{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	id := xid.New().String()

	revoked, err := r.IsRevoked(ctx, id)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, id, time.Now().Add(time.Minute)))

	revoked, err = r.IsRevoked(ctx, id)
	require.NoError(t, err)
	assert.True(t, revoked)

	t.Run("expired token is not stored", func(t *testing.T) {
		old := xid.New().String()
		require.NoError(t, r.Revoke(ctx, old, time.Now().Add(-time.Minute)))

		revoked, err := r.IsRevoked(ctx, old)
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
