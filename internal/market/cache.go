package market

import (
	"sync"
	"time"

	"github.com/akravets/coinboard/pkg/models"
)

// Clock returns the current time. Injectable so cache tests can control
// snapshot age.
type Clock func() time.Time

// SnapshotCache holds the last fully reconciled asset snapshot in a single
// slot. It is replaced wholesale on every successful cycle; there is no
// per-key eviction. TTL policy belongs to the caller: Get reports the
// snapshot's age and the caller decides whether it is still trustworthy.
//
// The sync worker is the only writer; request paths only read. The RWMutex
// makes individual reads and writes atomic, nothing more.
type SnapshotCache struct {
	mu       sync.RWMutex
	snapshot []models.Asset
	setAt    time.Time
	now      Clock
}

// NewSnapshotCache creates an empty cache using the real clock.
func NewSnapshotCache() *SnapshotCache {
	return NewSnapshotCacheWithClock(time.Now)
}

// NewSnapshotCacheWithClock creates a cache with an injected clock.
func NewSnapshotCacheWithClock(now Clock) *SnapshotCache {
	return &SnapshotCache{now: now}
}

// Get returns the cached snapshot and its age. ok is false when nothing has
// been set since startup or the last Clear.
func (c *SnapshotCache) Get() (snapshot []models.Asset, age time.Duration, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil {
		return nil, 0, false
	}
	return c.snapshot, c.now().Sub(c.setAt), true
}

// Set replaces the snapshot and stamps it with the current time.
func (c *SnapshotCache) Set(snapshot []models.Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snapshot
	c.setAt = c.now()
}

// Clear drops the snapshot so the next read falls through to storage.
func (c *SnapshotCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	c.setAt = time.Time{}
}
