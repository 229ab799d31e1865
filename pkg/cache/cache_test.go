package cache

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerCacheInMemory(t *testing.T) {
	c, err := NewBadgerCache("")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get("omdb:tt0111161")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, c.Set("omdb:tt0111161", []byte(`{"Title":"The Shawshank Redemption"}`), 0))
	got, err := c.Get("omdb:tt0111161")
	require.NoError(t, err)
	assert.JSONEq(t, `{"Title":"The Shawshank Redemption"}`, string(got))

	require.NoError(t, c.Delete("omdb:tt0111161"))
	_, err = c.Get("omdb:tt0111161")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestBadgerCachePersistsOnDisk(t *testing.T) {
	dir := t.TempDir()

	c, err := NewBadgerCache(dir)
	require.NoError(t, err)
	require.NoError(t, c.Set("k", []byte("v"), time.Hour))
	require.NoError(t, c.Close())

	c, err = NewBadgerCache(dir)
	require.NoError(t, err)
	defer c.Close()
	got, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestBadgerCacheExpiry(t *testing.T) {
	c, err := NewBadgerCache("")
	require.NoError(t, err)
	defer c.Close()

	// badger TTLs have one-second resolution
	require.NoError(t, c.Set("short", []byte("v"), time.Second))
	assert.Eventually(t, func() bool {
		_, err := c.Get("short")
		return err == ErrKeyNotFound
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache("http://localhost:6379")
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestRedisCacheUnreachable(t *testing.T) {
	// port 1 is never a redis server
	_, err := NewRedisCache("redis://127.0.0.1:1/0")
	assert.ErrorContains(t, err, "redis ping")
}

func TestRedisCacheLive(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	c, err := NewRedisCache(url)
	require.NoError(t, err)
	defer c.Close()

	key := "test:" + t.Name()
	require.NoError(t, c.Set(key, []byte("v"), time.Minute))
	got, err := c.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(key))
	_, err = c.Get(key)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestOpenSelectsBackend(t *testing.T) {
	c, err := Open("", "")
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &BadgerCache{}, c)

	_, err = Open("", "redis://127.0.0.1:1/0")
	assert.Error(t, err)
}
