package redis

import (
	"context"
	"testing"
	"time"

	"company-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestResultCacheStoresWithTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewResultCache(newClient(mr), 0)
	key := domain.ResultKey{CompanyID: 1, UserID: 7, QuizID: "66f2a1b2c3d4e5f601234567", ResultID: 12}
	detail := domain.ResultDetail{
		User:    7,
		Company: 1,
		Quiz:    key.QuizID,
		Questions: map[string]domain.QuestionDetail{
			"1": {
				Question: []domain.Question{{Text: "Capital of France?", Answers: []string{"Berlin", "Paris"}, Number: 1}},
				Answer:   []int{1},
				Result:   domain.VerdictRight,
			},
		},
	}

	ctx := context.Background()
	if err := cache.PutDetail(ctx, key, detail); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("1:7:66f2a1b2c3d4e5f601234567:12") {
		t.Fatalf("expected composite key to be set")
	}
	if ttl := mr.TTL(key.String()); ttl != 172800*time.Second {
		t.Fatalf("expected 48h ttl, got %v", ttl)
	}

	got, ok, err := cache.GetDetail(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Questions["1"].Result != domain.VerdictRight || got.Questions["1"].Question[0].Text != "Capital of France?" {
		t.Fatalf("unexpected detail %+v", got)
	}

	mr.FastForward(48 * time.Hour)
	if _, ok, err := cache.GetDetail(ctx, key); ok || err != nil {
		t.Fatalf("expected silent miss after expiry, got ok=%v err=%v", ok, err)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
