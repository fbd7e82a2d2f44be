package memory

import (
	"context"
	"sync"
	"time"

	"company-quiz-service/internal/domain"
)

// ResultCache keeps result details in process until their TTL passes.
// Expired entries are dropped on read and swept on every write.
type ResultCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]cachedDetail
}

type cachedDetail struct {
	detail    domain.ResultDetail
	expiresAt time.Time
}

func NewResultCache(ttl time.Duration) *ResultCache {
	return NewResultCacheWithClock(ttl, time.Now)
}

// NewResultCacheWithClock allows deterministic expiry in tests.
func NewResultCacheWithClock(ttl time.Duration, clock func() time.Time) *ResultCache {
	return &ResultCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cachedDetail),
	}
}

func (c *ResultCache) PutDetail(_ context.Context, key domain.ResultKey, detail domain.ResultDetail) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	c.sweep(now)
	c.entries[key.String()] = cachedDetail{detail: detail, expiresAt: now.Add(c.ttl)}
	return nil
}

func (c *ResultCache) GetDetail(_ context.Context, key domain.ResultKey) (domain.ResultDetail, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key.String()]
	if !ok {
		return domain.ResultDetail{}, false, nil
	}
	if !entry.expiresAt.After(c.clock()) {
		delete(c.entries, key.String())
		return domain.ResultDetail{}, false, nil
	}
	return entry.detail, true, nil
}

// Len returns the number of stored entries, expired ones included.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) sweep(now time.Time) {
	for key, entry := range c.entries {
		if !entry.expiresAt.After(now) {
			delete(c.entries, key)
		}
	}
}
