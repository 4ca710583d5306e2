package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type entry struct {
	Title string `json:"title"`
}

func TestInMemoryCache_SetGetDelete(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []entry{{Title: "a"}}, 0))

	var got []entry
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []entry{{Title: "a"}}, got)

	require.NoError(t, c.Delete(ctx, "k"))
	hit, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit, "tras Delete debe ser un miss")
}

func TestInMemoryCache_ExpiredEntriesAreMisses(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Stop()
	current := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Title: "a"}, time.Second))
	current = current.Add(2 * time.Second)

	var got entry
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	c.evictExpired()
	c.mu.RLock()
	assert.Empty(t, c.store)
	c.mu.RUnlock()
}

func TestInMemoryCache_StopIsIdempotent(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Hour)
	c.Stop()
	assert.NotPanics(t, c.Stop)
}

type failingCache struct {
	deleted chan string
}

func (f *failingCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (f *failingCache) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	return errors.New("boom")
}

func (f *failingCache) Delete(ctx context.Context, key string) error {
	f.deleted <- key
	return errors.New("boom")
}

func TestHelpers_LogFailuresWithoutPropagating(t *testing.T) {
	f := &failingCache{deleted: make(chan string, 1)}

	assert.NotPanics(t, func() {
		SetWithTimeout(context.Background(), f, "k", entry{}, time.Second, zap.NewNop())
	})
	AsyncCacheDelete(f, "k", zap.NewNop())

	select {
	case key := <-f.deleted:
		assert.Equal(t, "k", key)
	case <-time.After(time.Second):
		t.Fatal("AsyncCacheDelete no llamó a Delete")
	}

	// nil cache no hace nada
	SetWithTimeout(context.Background(), nil, "k", entry{}, time.Second, zap.NewNop())
	AsyncCacheDelete(nil, "k", zap.NewNop())
}
