package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"company-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// RoleLoader resolves a role name to its id in the backing store.
type RoleLoader interface {
	LoadRoleID(ctx context.Context, role domain.Role) (int64, error)
}

// RoleCache memoizes role name to id lookups with a TTL to avoid repeated DB hits.
// It holds at most maxEntries roles; when full, expired entries are evicted first
// and then an arbitrary one.
type RoleCache struct {
	loader     RoleLoader
	ttl        time.Duration
	maxEntries int
	clock      func() time.Time
	sf         singleflight.Group
	rnd        *rand.Rand

	mu    sync.RWMutex
	cache map[domain.Role]cachedRole
}

type cachedRole struct {
	id        int64
	expiresAt time.Time
}

const defaultRoleCacheSize = 64

func NewRoleCache(loader RoleLoader, ttl time.Duration) *RoleCache {
	return &RoleCache{
		loader:     loader,
		ttl:        ttl,
		maxEntries: defaultRoleCacheSize,
		clock:      time.Now,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:      make(map[domain.Role]cachedRole),
	}
}

func (r *RoleCache) RoleID(ctx context.Context, role domain.Role) (int64, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[role]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.id, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(string(role), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[role]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.id, nil
		}
		r.mu.RUnlock()

		id, err := r.loader.LoadRoleID(ctx, role)
		if err != nil {
			return int64(0), err
		}

		r.mu.Lock()
		r.evictLocked(now)
		r.cache[role] = cachedRole{id: id, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (r *RoleCache) evictLocked(now time.Time) {
	if len(r.cache) < r.maxEntries {
		return
	}
	for role, entry := range r.cache {
		if !entry.expiresAt.After(now) {
			delete(r.cache, role)
		}
	}
	for role := range r.cache {
		if len(r.cache) < r.maxEntries {
			return
		}
		delete(r.cache, role)
	}
}

func (r *RoleCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
