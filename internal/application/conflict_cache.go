package application

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// conflictCache stores recently computed conflict reports to avoid repeated
// detector execution for identical probes while events remain unchanged.
type conflictCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]conflictCacheEntry
}

type conflictCacheEntry struct {
	warnings  []ConflictWarning
	expiresAt time.Time
}

func newConflictCache(ttl time.Duration, maxEntries int, now func() time.Time) *conflictCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &conflictCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]conflictCacheEntry),
	}
}

func (c *conflictCache) Get(key string) ([]ConflictWarning, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneWarnings(entry.warnings), true
}

func (c *conflictCache) Store(key string, warnings []ConflictWarning) {
	if c == nil {
		return
	}
	cloned := cloneWarnings(warnings)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = conflictCacheEntry{warnings: cloned, expiresAt: expiry}
}

func (c *conflictCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]conflictCacheEntry)
	c.mu.Unlock()
}

func (c *conflictCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *conflictCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneWarnings(warnings []ConflictWarning) []ConflictWarning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]ConflictWarning, len(warnings))
	copy(out, warnings)
	return out
}

func buildConflictCacheKey(params CheckConflictsParams) string {
	participants := make([]string, len(params.ParticipantIDs))
	copy(participants, params.ParticipantIDs)
	sort.Strings(participants)

	builder := strings.Builder{}
	builder.WriteString(params.Start.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(params.End.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(strings.Join(participants, ","))
	builder.WriteString("|")
	builder.WriteString(params.ExcludeEventID)
	return builder.String()
}
