// Package cache is a get-or-populate TTL cache over a document store.
//
// Expiry is never stored: it is recomputed as CrawledAt+TTL on every read, so
// changing the TTL reinterprets existing entries. Expired entries are deleted
// lazily by the read that finds them. Store failures only cost the cache hit;
// they are logged and never returned.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"apart-tracker/pkg/clock"
	"apart-tracker/pkg/docstore"
	"apart-tracker/pkg/domain"
	"apart-tracker/pkg/logger"
)

// DefaultTTL is shared by the apartment-detail and new-transactions crawls.
const DefaultTTL = 3 * time.Hour

// DefaultCollection holds every namespace's entries.
const DefaultCollection = "crawl_cache"

// Key namespaces of the two crawl types.
const (
	NamespaceApartDetail     = "apart-detail"
	NamespaceNewTransactions = "new-transactions"
)

// Config holds configuration for a Cache
type Config struct {
	Collection string
	Namespace  string
	TTL        time.Duration
	Clock      clock.Clock
}

// Cache stores JSON payloads under namespaced keys.
type Cache struct {
	store      docstore.Store
	collection string
	namespace  string
	ttl        time.Duration
	clock      clock.Clock
	log        *logger.Logger
}

// New creates a cache over store.
func New(store docstore.Store, cfg Config, log *logger.Logger) *Cache {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Cache{
		store:      store,
		collection: cfg.Collection,
		namespace:  cfg.Namespace,
		ttl:        cfg.TTL,
		clock:      clock.OrSystem(cfg.Clock),
		log:        logger.OrDefault(log),
	}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) id(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + ":" + key
}

// Get decodes the payload stored under key into out and reports a hit.
// An entry is fresh while now < CrawledAt+TTL; a stale entry is deleted.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	id := c.id(key)

	var entry domain.CacheEntry
	found, err := c.store.Get(ctx, c.collection, id, &entry)
	if err != nil {
		c.log.Warn("[cache] read %s failed, treating as miss: %v", id, err)
		return false
	}
	if !found {
		return false
	}

	expiresAt := entry.CrawledAt.Add(c.ttl)
	if !c.clock.Now().Before(expiresAt) {
		c.log.Debug("[cache] %s expired at %s", id, expiresAt.Format(time.RFC3339))
		if err := c.store.Delete(ctx, c.collection, id); err != nil {
			c.log.Warn("[cache] delete of expired %s failed: %v", id, err)
		}
		return false
	}

	if err := json.Unmarshal([]byte(entry.Payload), out); err != nil {
		c.log.Warn("[cache] undecodable payload for %s: %v", id, err)
		return false
	}
	return true
}

// Put upserts payload under key with CrawledAt = now.
func (c *Cache) Put(ctx context.Context, key string, payload any) {
	id := c.id(key)

	raw, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn("[cache] encode %s failed: %v", id, err)
		return
	}

	entry := domain.CacheEntry{
		Key:       id,
		Payload:   string(raw),
		CrawledAt: c.clock.Now(),
	}
	if err := c.store.Upsert(ctx, c.collection, id, entry); err != nil {
		c.log.Warn("[cache] write %s failed, skipping: %v", id, err)
	}
}

// GetOrPopulate returns the cached value for key, or runs populate, stores its
// result and returns it. hit reports whether the value came from the cache.
// Errors from populate are returned unchanged and nothing is stored.
func GetOrPopulate[T any](ctx context.Context, c *Cache, key string, populate func(context.Context) (T, error)) (value T, hit bool, err error) {
	if c.Get(ctx, key, &value) {
		return value, true, nil
	}

	value, err = populate(ctx)
	if err != nil {
		return value, false, err
	}

	c.Put(ctx, key, value)
	return value, false, nil
}
