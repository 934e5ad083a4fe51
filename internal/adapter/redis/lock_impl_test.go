package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/repository"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("AUDITOR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AUDITOR_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestGenerateKey(t *testing.T) {
	r := NewDomainLockRepo(nil, time.Minute, zap.NewNop())
	assert.Equal(t, r.generateKey("www.galaxus.de"), r.generateKey("galaxus.de"))
	assert.NotEqual(t, r.generateKey("otto.de"), r.generateKey("galaxus.de"))
	assert.Contains(t, r.generateKey("otto.de"), domainLockPrefix)
}

func TestDomainLock(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	r := NewDomainLockRepo(client, time.Minute, zap.NewNop())
	client.Del(ctx, r.generateKey("galaxus.de"))

	release, err := r.Acquire(ctx, "galaxus.de")
	require.NoError(t, err)

	_, err = r.Acquire(ctx, "www.galaxus.de")
	assert.ErrorIs(t, err, repository.ErrLockHeld)

	other, err := r.Acquire(ctx, "otto.de")
	require.NoError(t, err)
	other()

	release()
	release2, err := r.Acquire(ctx, "galaxus.de")
	require.NoError(t, err)
	release2()
}

func TestDomainLock_ReleaseKeepsForeignLock(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	r := NewDomainLockRepo(client, time.Minute, zap.NewNop())
	key := r.generateKey("otto.de")
	client.Del(ctx, key)

	release, err := r.Acquire(ctx, "otto.de")
	require.NoError(t, err)

	// Simulate expiry and takeover by another run.
	require.NoError(t, client.Set(ctx, key, "someone-else", time.Minute).Err())
	release()

	val, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
	client.Del(ctx, key)
}
