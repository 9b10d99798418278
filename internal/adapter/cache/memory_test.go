package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, clockwork.NewFakeClock())

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), got)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewMemory(10, clock)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))

	clock.Advance(59 * time.Minute)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok, "entry should survive until the TTL elapses")

	clock.Advance(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok, "entry should expire exactly at the TTL")
	assert.Equal(t, 0, c.Len())
}

func TestMemory_SetRefreshesExpiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewMemory(10, clock)

	require.NoError(t, c.Set(ctx, "k", []byte("old"), time.Hour))
	clock.Advance(50 * time.Minute)
	require.NoError(t, c.Set(ctx, "k", []byte("new"), time.Hour))
	clock.Advance(50 * time.Minute)

	got, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("new"), got)
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, clockwork.NewFakeClock())

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))

	// Touch "a" so "b" becomes the eviction candidate.
	_, _, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestMemory_SingleEntry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(1, clockwork.NewFakeClock())

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))

	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "b")
	assert.True(t, ok)
}
