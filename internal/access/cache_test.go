package access

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAdminStatusCacheTTL(t *testing.T) {
	now := time.Now()
	cache := NewAdminStatusCache(5 * time.Minute)
	cache.now = func() time.Time { return now }

	userID := uuid.New()
	cache.Set(userID, true)

	got, ok := cache.Get(userID)
	require.True(t, ok)
	require.True(t, got)

	// Just inside the TTL the entry is still served.
	now = now.Add(5*time.Minute - time.Millisecond)
	got, ok = cache.Get(userID)
	require.True(t, ok)
	require.True(t, got)

	// At the TTL boundary the entry is treated as absent.
	now = now.Add(time.Millisecond)
	_, ok = cache.Get(userID)
	require.False(t, ok)
}

func TestAdminStatusCacheSingleSlot(t *testing.T) {
	cache := NewAdminStatusCache(5 * time.Minute)
	first := uuid.New()
	second := uuid.New()

	cache.Set(first, true)
	cache.Set(second, false)

	// The newer identity owns the slot; the older one misses.
	_, ok := cache.Get(first)
	require.False(t, ok)

	got, ok := cache.Get(second)
	require.True(t, ok)
	require.False(t, got)
}

func TestAdminStatusCacheMissIsNotAnError(t *testing.T) {
	cache := NewAdminStatusCache(0)
	_, ok := cache.Get(uuid.New())
	require.False(t, ok)
	require.Equal(t, DefaultAdminCacheTTL, cache.ttl)
}

func TestAdminStatusCacheReset(t *testing.T) {
	cache := NewAdminStatusCache(time.Minute)
	userID := uuid.New()
	cache.Set(userID, true)
	cache.Reset()
	_, ok := cache.Get(userID)
	require.False(t, ok)
}

func TestAdminStatusCacheNilReceiver(t *testing.T) {
	var cache *AdminStatusCache
	_, ok := cache.Get(uuid.New())
	require.False(t, ok)
	cache.Set(uuid.New(), true)
	cache.Reset()
}
