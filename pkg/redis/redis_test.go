package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	opts, err := Config{URL: "redis://:secret@cache:6380/2", DialTimeout: time.Second, PoolSize: 7}.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, time.Second, opts.DialTimeout)
	assert.Equal(t, 7, opts.PoolSize)

	_, err = Config{URL: "http://nope"}.Options()
	assert.ErrorContains(t, err, "parse REDIS_URL")
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Config{URL: "redis://" + mr.Addr()}.New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())

	mr.Close()
	_, err = Config{URL: "redis://" + mr.Addr(), DialTimeout: 100 * time.Millisecond}.New(context.Background())
	assert.ErrorContains(t, err, "redis ping")
}
