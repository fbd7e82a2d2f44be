package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"company-quiz-service/internal/domain"
)

func TestRoleCacheCaches(t *testing.T) {
	loader := &countingLoader{ids: map[domain.Role]int64{domain.RoleAdmin: 2}}
	cache := NewRoleCache(loader, time.Minute)

	id, err := cache.RoleID(context.Background(), domain.RoleAdmin)
	if err != nil || id != 2 {
		t.Fatalf("expected id 2, got %d (%v)", id, err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.RoleID(context.Background(), domain.RoleAdmin); err != nil {
		t.Fatalf("role id 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestRoleCacheExpiresAndBounds(t *testing.T) {
	loader := &countingLoader{ids: map[domain.Role]int64{domain.RoleOwner: 1, domain.RoleAdmin: 2, domain.RoleMember: 3}}
	cache := NewRoleCache(loader, time.Minute)
	cache.maxEntries = 2
	now := time.Now()
	cache.clock = func() time.Time { return now }

	ctx := context.Background()
	_, _ = cache.RoleID(ctx, domain.RoleOwner)
	_, _ = cache.RoleID(ctx, domain.RoleAdmin)
	_, _ = cache.RoleID(ctx, domain.RoleMember)
	if len(cache.cache) > 2 {
		t.Fatalf("expected at most 2 entries, got %d", len(cache.cache))
	}

	now = now.Add(2 * time.Minute)
	before := loader.calls
	_, _ = cache.RoleID(ctx, domain.RoleMember)
	if loader.calls != before+1 {
		t.Fatalf("expected reload after expiry")
	}
}

func TestRoleCacheDoesNotCacheErrors(t *testing.T) {
	loader := &countingLoader{ids: map[domain.Role]int64{}}
	cache := NewRoleCache(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.RoleID(context.Background(), domain.RoleOwner); !errors.Is(err, errUnknownRole) {
			t.Fatalf("expected unknown role, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected failed lookups to hit the loader, got %d", loader.calls)
	}
}

var errUnknownRole = errors.New("unknown role")

type countingLoader struct {
	ids   map[domain.Role]int64
	calls int
}

func (l *countingLoader) LoadRoleID(_ context.Context, role domain.Role) (int64, error) {
	l.calls++
	id, ok := l.ids[role]
	if !ok {
		return 0, errUnknownRole
	}
	return id, nil
}
