package redis

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"company-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RoleLoader resolves a role name to its id in the backing store.
type RoleLoader interface {
	LoadRoleID(ctx context.Context, role domain.Role) (int64, error)
}

// RoleCache shares role name to id lookups across instances through Redis and
// falls back to a loader on cache miss.
// Ids are stored as: SET company:role:{name} {id} EX ttl
type RoleCache struct {
	client *redis.Client
	loader RoleLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRoleCache(client *redis.Client, loader RoleLoader, ttl time.Duration) *RoleCache {
	return &RoleCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RoleCache) RoleID(ctx context.Context, role domain.Role) (int64, error) {
	key := r.key(role)
	if id, err := r.client.Get(ctx, key).Int64(); err == nil {
		return id, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		id, err := r.client.Get(ctx, key).Int64()
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, redis.Nil) {
			// Redis unavailable: serve from the loader without caching.
			return r.loader.LoadRoleID(ctx, role)
		}

		id, err = r.loader.LoadRoleID(ctx, role)
		if err != nil {
			return int64(0), err
		}
		_ = r.client.Set(ctx, key, id, r.ttlWithJitter()).Err()
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (r *RoleCache) key(role domain.Role) string {
	return "company:role:" + string(role)
}

func (r *RoleCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
