package access

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultAdminCacheTTL bounds how long a cached admin grant may be served.
const DefaultAdminCacheTTL = 5 * time.Minute

// AdminStatusCache remembers the last authoritative admin check for one user.
// It holds a single slot: each resolver instance tracks one identity at a
// time, so a newer user simply overwrites the previous entry. A miss is an
// expected outcome, never an error.
type AdminStatusCache struct {
	mu        sync.Mutex
	userID    uuid.UUID
	isAdmin   bool
	writtenAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewAdminStatusCache constructs an empty cache with the given TTL.
// A non-positive ttl falls back to DefaultAdminCacheTTL.
func NewAdminStatusCache(ttl time.Duration) *AdminStatusCache {
	if ttl <= 0 {
		ttl = DefaultAdminCacheTTL
	}
	return &AdminStatusCache{ttl: ttl, now: time.Now}
}

// Get returns the cached admin flag for userID. Entries for a different
// user, or older than the TTL, are treated as absent.
func (c *AdminStatusCache) Get(userID uuid.UUID) (bool, bool) {
	if c == nil {
		return false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writtenAt.IsZero() || c.userID != userID {
		return false, false
	}
	if c.now().Sub(c.writtenAt) >= c.ttl {
		return false, false
	}
	return c.isAdmin, true
}

// Set overwrites the slot with the authoritative result for userID.
func (c *AdminStatusCache) Set(userID uuid.UUID, isAdmin bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.isAdmin = isAdmin
	c.writtenAt = c.now()
}

// Reset clears the slot, forcing the next resolution to hit the backend.
func (c *AdminStatusCache) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writtenAt = time.Time{}
	c.userID = uuid.Nil
	c.isAdmin = false
}
