// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package session

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/wangp/decldbg/internal/frontend"
)

// ioActionMapTTL bounds how long a stale interval from an aborted
// session lingers before eviction; the correctness check (new range
// inside old range) is structural and independent of this TTL.
const ioActionMapTTL = 10 * time.Minute

// IOActionMapCache memoizes, per session ID, the last I/O-action-map
// interval reported valid by diagnose. Keyed by session ID with a TTL
// so overlapping or aborted sessions don't leak entries indefinitely.
type IOActionMapCache struct {
	cache *ttlcache.Cache[string, frontend.IOActionMapCache]
}

// NewIOActionMapCache builds an empty cache.
func NewIOActionMapCache() *IOActionMapCache {
	c := ttlcache.New[string, frontend.IOActionMapCache](
		ttlcache.WithTTL[string, frontend.IOActionMapCache](ioActionMapTTL),
	)
	go c.Start()
	return &IOActionMapCache{cache: c}
}

// Stop halts the cache's background eviction goroutine.
func (c *IOActionMapCache) Stop() { c.cache.Stop() }

// Lookup reports whether sessionID has a cached interval that already
// covers [start, end). useOld is true iff the cached interval can be
// reused as-is.
func (c *IOActionMapCache) Lookup(sessionID string, start, end uint64) (useOld bool) {
	item := c.cache.Get(sessionID)
	if item == nil {
		return false
	}
	return item.Value().Contains(start, end)
}

// Store records the interval actually used for sessionID's most recent
// diagnose() call.
func (c *IOActionMapCache) Store(sessionID string, interval frontend.IOActionMapCache) {
	c.cache.Set(sessionID, interval, ttlcache.DefaultTTL)
}

// Evict drops sessionID's cached interval, e.g. when a session aborts.
func (c *IOActionMapCache) Evict(sessionID string) {
	c.cache.Delete(sessionID)
}
