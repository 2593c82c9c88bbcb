// Package cache holds generated forms per script primary key. Entries are
// immutable values; the cache only adds, replaces and drops them.
package cache

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/goliatone/go-scriptform/pkg/model"
)

// Entry is the cached pair of forms for one script. Both slots are always
// populated together.
type Entry struct {
	Groups  model.GroupForms
	Master  model.Form
	BuiltAt time.Time
}

// Observer receives cache events, typically to feed metrics.
type Observer interface {
	CacheHit(pk int64)
	CacheMiss(pk int64)
	CacheInvalidated(pk int64)
}

// Option customises a FormCache.
type Option func(*FormCache)

// WithObserver attaches an event observer.
func WithObserver(observer Observer) Option {
	return func(c *FormCache) {
		c.observer = observer
	}
}

// Generation identifies the invalidation state of one key. Builds record it
// before querying parameters and hand it back to StoreIf, so an entry built
// from data older than an invalidation is never stored.
type Generation struct {
	epoch uint64
	key   uint64
}

// String renders g for use in keys.
func (g Generation) String() string {
	return strconv.FormatUint(g.epoch, 10) + "." + strconv.FormatUint(g.key, 10)
}

// FormCache maps script primary keys to built forms. The zero value is not
// usable; call New. Safe for concurrent use.
type FormCache struct {
	mu       sync.RWMutex
	entries  map[int64]Entry
	gens     map[int64]uint64
	epoch    uint64
	counter  uint64
	observer Observer
}

// New creates an empty cache.
func New(options ...Option) *FormCache {
	c := &FormCache{entries: make(map[int64]Entry), gens: make(map[int64]uint64)}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Get returns the entry for pk.
func (c *FormCache) Get(pk int64) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[pk]
	c.mu.RUnlock()

	if c.observer != nil {
		if ok {
			c.observer.CacheHit(pk)
		} else {
			c.observer.CacheMiss(pk)
		}
	}
	return entry, ok
}

// Store replaces the entry for pk.
func (c *FormCache) Store(pk int64, entry Entry) {
	c.mu.Lock()
	c.entries[pk] = entry
	c.mu.Unlock()
}

// Generation returns the current generation of pk.
func (c *FormCache) Generation(pk int64) Generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Generation{epoch: c.epoch, key: c.gens[pk]}
}

// StoreIf stores entry only when pk has not been invalidated since gen was
// taken. It reports whether the entry was stored.
func (c *FormCache) StoreIf(pk int64, gen Generation, entry Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != (Generation{epoch: c.epoch, key: c.gens[pk]}) {
		return false
	}
	c.entries[pk] = entry
	return true
}

// Invalidate drops the entry for pk and reports whether one existed. Builds
// of pk already in flight will not be stored.
func (c *FormCache) Invalidate(pk int64) bool {
	c.mu.Lock()
	_, ok := c.entries[pk]
	delete(c.entries, pk)
	c.counter++
	c.gens[pk] = c.counter
	c.mu.Unlock()

	if ok && c.observer != nil {
		c.observer.CacheInvalidated(pk)
	}
	return ok
}

// Purge drops every entry and returns how many were removed. Every build in
// flight is discarded.
func (c *FormCache) Purge() int {
	c.mu.Lock()
	keys := make([]int64, 0, len(c.entries))
	for pk := range c.entries {
		keys = append(keys, pk)
	}
	c.entries = make(map[int64]Entry)
	c.gens = make(map[int64]uint64)
	c.counter++
	c.epoch = c.counter
	c.mu.Unlock()

	if c.observer != nil {
		for _, pk := range keys {
			c.observer.CacheInvalidated(pk)
		}
	}
	return len(keys)
}

// Len returns the number of cached scripts.
func (c *FormCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached primary keys in ascending order.
func (c *FormCache) Keys() []int64 {
	c.mu.RLock()
	keys := make([]int64, 0, len(c.entries))
	for pk := range c.entries {
		keys = append(keys, pk)
	}
	c.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
