package fields

import (
	"sync"
	"time"
)

// DefaultCacheTTL is the validity window for cached fields.
const DefaultCacheTTL = 5 * time.Minute

// allFieldsKey is the reserved cache key for the aggregate field list.
// Real tables cannot collide with it — "*" is not a valid table name.
const allFieldsKey = "*"

// cache memoizes normalized fields keyed by table name, plus one reserved
// key for the full aggregate.
//
// Validity is global, not per-entry: a single lastUpdate timestamp covers
// the whole cache, refreshed on every write. Once the window expires,
// every entry is treated as stale — including entries written moments
// before older ones expired. This mirrors the behaviour forms were built
// against; see DESIGN.md for the per-entry-TTL open question.
type cache struct {
	mu         sync.Mutex
	entries    map[string][]Field
	lastUpdate time.Time
	ttl        time.Duration
	now        func() time.Time
}

func newCache(ttl time.Duration, now func() time.Time) *cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &cache{
		entries: make(map[string][]Field),
		ttl:     ttl,
		now:     now,
	}
}

// get returns the cached fields for key, or ok=false on a miss or when the
// global validity window has expired.
func (c *cache) get(key string) ([]Field, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid() {
		return nil, false
	}
	fields, ok := c.entries[key]
	return fields, ok
}

// set stores fields under key and refreshes the global timestamp.
func (c *cache) set(key string, fields []Field) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = fields
	c.lastUpdate = c.now()
}

// invalidate clears all entries and resets the timestamp. Never fails and
// is safe to call at any time.
func (c *cache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string][]Field)
	c.lastUpdate = time.Time{}
}

// valid reports whether the global validity window is still open.
// Callers must hold c.mu.
func (c *cache) valid() bool {
	if c.lastUpdate.IsZero() {
		return false
	}
	return c.now().Sub(c.lastUpdate) < c.ttl
}
