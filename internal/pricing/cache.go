package pricing

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dkessler/cratekeeper/internal/constants"
	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/logger"
)

// Store is the durable key-value mirror of the cache. One key holds the whole
// serialized map.
type Store interface {
	GetCache(key string) ([]byte, error)
	SetCache(key string, data []byte, ttl time.Duration) error
	DeleteCache(key string) error
}

// Source performs the remote price lookup.
type Source interface {
	PriceSuggestions(ctx context.Context, cred domain.Credential, releaseID int) (domain.MarketPrice, error)
}

// Cache is a TTL-bounded market price cache: an in-memory map keyed by
// release id, mirrored in full into the durable store after every mutation.
type Cache struct {
	store  Store
	source Source
	ttl    time.Duration
	log    *logger.Logger

	mu      sync.RWMutex
	entries map[int]domain.MarketPrice
	now     func() time.Time
}

func NewCache(store Store, source Source, log *logger.Logger) *Cache {
	return &Cache{
		store:   store,
		source:  source,
		ttl:     constants.MarketCacheTTL,
		log:     log.WithComponent("pricing"),
		entries: make(map[int]domain.MarketPrice),
		now:     time.Now,
	}
}

// Load hydrates the in-memory map from the durable store, discarding entries
// already past the TTL.
func (c *Cache) Load() error {
	data, err := c.store.GetCache(constants.MarketCacheKey)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	var stored map[int]domain.MarketPrice
	if err := json.Unmarshal(data, &stored); err != nil {
		// A corrupt snapshot is not worth failing startup over; start empty.
		c.log.Warn("Discarding unreadable price cache snapshot", "error", err)
		return nil
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, entry := range stored {
		if entry.Expired(c.ttl, now) {
			continue
		}
		c.entries[id] = entry
	}
	return nil
}

// Get is a pure read: no network, and an expired entry reads as absent.
func (c *Cache) Get(releaseID int) (domain.MarketPrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[releaseID]
	if !ok || entry.Expired(c.ttl, c.now()) {
		return domain.MarketPrice{}, false
	}
	return entry, true
}

// Fetch returns the cached entry when it is fresh and forceRefresh is false;
// otherwise it performs one remote lookup, overwrites the entry and persists
// the full snapshot.
func (c *Cache) Fetch(ctx context.Context, cred domain.Credential, releaseID int, forceRefresh bool) (domain.MarketPrice, error) {
	if !forceRefresh {
		if entry, ok := c.Get(releaseID); ok {
			return entry, nil
		}
	}

	entry, err := c.source.PriceSuggestions(ctx, cred, releaseID)
	if err != nil {
		return domain.MarketPrice{}, err
	}

	c.mu.Lock()
	c.entries[releaseID] = entry
	c.mu.Unlock()

	if err := c.persist(); err != nil {
		c.log.Warn("Failed to persist price cache", "error", err)
	}
	return entry, nil
}

// FetchBatch looks up several releases, spacing requests out to respect the
// marketplace rate limit. A failed item is skipped, not retried.
func (c *Cache) FetchBatch(ctx context.Context, cred domain.Credential, releaseIDs []int) map[int]domain.MarketPrice {
	results := make(map[int]domain.MarketPrice, len(releaseIDs))
	for i, id := range releaseIDs {
		if i > 0 {
			timer := time.NewTimer(constants.PriceFetchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return results
			case <-timer.C:
			}
		}

		entry, err := c.Fetch(ctx, cred, id, false)
		if err != nil {
			if ctx.Err() != nil {
				return results
			}
			c.log.Warn("Price lookup failed, continuing", "release_id", id, "error", err)
			continue
		}
		results[id] = entry
	}
	return results
}

// Clear empties both the in-memory map and the durable mirror.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[int]domain.MarketPrice)
	c.mu.Unlock()
	return c.store.DeleteCache(constants.MarketCacheKey)
}

// persist writes the full snapshot, never an incremental diff, so memory and
// durable storage cannot drift apart.
func (c *Cache) persist() error {
	c.mu.RLock()
	data, err := json.Marshal(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	return c.store.SetCache(constants.MarketCacheKey, data, c.ttl)
}
