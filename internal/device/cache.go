package device

import (
	"path/filepath"
	"sync"
	"time"

	"ferrocp/pkg/cache"
)

// maxCachedVolumes bounds the device cache's memory footprint; entries
// beyond this are evicted least-recently-used first.
const maxCachedVolumes = 512

// Cache classifies paths into DeviceProfiles and caches results by
// canonical volume root. Reads take the LRU cache's own lock; on a miss the
// caller classifies under probeMu so concurrent misses for the same volume
// collapse into one probe rather than racing the platform probe.
type Cache struct {
	ttl     time.Duration
	entries *cache.LRUCache[string, cacheEntry]
	probeMu sync.Mutex
}

// NewCache creates a device cache with the given TTL. A zero or negative
// ttl falls back to the 5 minute default from spec §4.1.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: cache.NewLRUCache[string, cacheEntry](maxCachedVolumes),
	}
}

// Classify returns the DeviceProfile for path, probing and caching it on
// first use. It never fails: probe errors degrade to an Unknown profile.
func (c *Cache) Classify(path string) Profile {
	root := volumeRoot(path)

	if entry, ok := c.entries.Get(root); ok && time.Now().Before(entry.expiresAt) {
		return entry.profile
	}

	c.probeMu.Lock()
	defer c.probeMu.Unlock()

	// Re-check: another goroutine may have populated this while we waited.
	if entry, ok := c.entries.Get(root); ok && time.Now().Before(entry.expiresAt) {
		return entry.profile
	}

	profile, probeErr := probe(root)
	ttl := c.ttl
	if probeErr != nil {
		ttl = negativeTTL
	}

	c.entries.Put(root, cacheEntry{
		profile:   profile,
		expiresAt: time.Now().Add(ttl),
		negative:  probeErr != nil,
	})

	return profile
}

// Invalidate drops the cached profile covering path, forcing the next
// Classify call to re-probe.
func (c *Cache) Invalidate(path string) {
	c.entries.Remove(volumeRoot(path))
}

// MarkZeroCopyUnsupported flips the cached profile covering path to
// supports_zero_copy=false for ttl, per spec §4.3: when the kernel rejects
// a zero-copy syscall (ENOSYS/EXDEV/EINVAL), the destination profile is
// marked unsupported for the TTL rather than retried on every file. If
// nothing is cached yet for path, this is a no-op; the next Classify will
// probe fresh and may rediscover zero-copy support.
func (c *Cache) MarkZeroCopyUnsupported(path string, ttl time.Duration) {
	root := volumeRoot(path)
	entry, ok := c.entries.Get(root)
	if !ok {
		return
	}
	entry.profile.SupportsZeroCopy = false
	entry.expiresAt = time.Now().Add(ttl)
	c.entries.Put(root, entry)
}

// volumeRoot reduces path to the canonical root used as the cache key. The
// platform probe further resolves this to a device/mount identity; the
// cache itself only needs a stable, absolute key.
func volumeRoot(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
