package dataset

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// Cache memoizes loaded tables keyed by source identity. Repeated lookups for
// the same source never re-fetch or re-derive; a new source identity gets its
// own entry; Invalidate forces the next lookup to reload. Concurrent misses
// for one source are deduplicated into a single load.
type Cache struct {
	loader  Loader
	logger  *slog.Logger
	metrics *observability.Metrics
	lru     *lruCache

	mu       sync.Mutex
	inflight map[string]*call
}

// call tracks one in-flight load shared by concurrent waiters.
type call struct {
	done  chan struct{}
	table *Table
	err   error
}

// NewCache creates a table cache over the given loader holding at most
// maxEntries tables.
func NewCache(loader Loader, maxEntries int, logger *slog.Logger, metrics *observability.Metrics) *Cache {
	return &Cache{
		loader:   loader,
		logger:   logger,
		metrics:  metrics,
		lru:      newLRUCache(maxEntries),
		inflight: make(map[string]*call),
	}
}

// GetOrLoad returns the cached table for source, loading it on a miss.
func (c *Cache) GetOrLoad(ctx context.Context, source string) (*Table, error) {
	if table, ok := c.lru.get(source); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return table, nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	c.mu.Lock()
	// A load may have completed between the lookup above and acquiring the
	// lock; re-check so a late miss does not start a redundant load.
	if table, ok := c.lru.get(source); ok {
		c.mu.Unlock()
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return table, nil
	}
	if cl, ok := c.inflight[source]; ok {
		c.mu.Unlock()
		select {
		case <-cl.done:
			return cl.table, cl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	cl := &call{done: make(chan struct{})}
	c.inflight[source] = cl
	c.mu.Unlock()

	cl.table, cl.err = c.loader.Load(ctx, source)
	if cl.err == nil {
		c.lru.put(source, cl.table)
	}

	c.mu.Lock()
	delete(c.inflight, source)
	c.mu.Unlock()
	close(cl.done)

	return cl.table, cl.err
}

// Invalidate drops the cached table for source, if any.
func (c *Cache) Invalidate(source string) {
	if c.lru.delete(source) {
		c.logger.Info("dataset cache invalidated", "source", source)
	}
}

// lruCache is a simple thread-safe LRU cache for loaded tables.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *Table
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	c.remove(e)
	return true
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
