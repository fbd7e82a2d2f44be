package redis

import (
	"context"
	"testing"
	"time"

	"company-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
)

func TestFeedRegistryDeliversAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	log := logrus.New()
	subscriberSide := NewFeedRegistry(newClient(mr), log)
	submitterSide := NewFeedRegistry(newClient(mr), log)
	ctx := context.Background()

	ch, cancel, err := subscriberSide.Subscribe(ctx, 42)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if got := mr.PubSubNumSub("feed:company:42")["feed:company:42"]; got != 1 {
		t.Fatalf("expected one redis subscription, got %d", got)
	}

	date := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	sent := domain.QuizResult{ID: 3, QuizID: "q", UserID: 2, CompanyID: 42, Result: 4, QuestionsOverall: 5, QuizDate: date}
	if err := submitterSide.Publish(ctx, sent); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		if got.ID != 3 || got.Result != 4 || !got.QuizDate.Equal(date) {
			t.Fatalf("unexpected result %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("result did not reach the other instance")
	}
}

func TestFeedRegistrySharesSubscriptionPerCompany(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	registry := NewFeedRegistry(newClient(mr), logrus.New())
	ctx := context.Background()

	first, cancelFirst, err := registry.Subscribe(ctx, 7)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	second, cancelSecond, err := registry.Subscribe(ctx, 7)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancelSecond()

	if got := mr.PubSubNumSub("feed:company:7")["feed:company:7"]; got != 1 {
		t.Fatalf("expected a single redis subscription, got %d", got)
	}

	cancelFirst()
	if _, open := <-first; open {
		t.Fatalf("expected cancelled channel to be closed")
	}

	if err := registry.Publish(ctx, domain.QuizResult{ID: 11, CompanyID: 7}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case got := <-second:
		if got.ID != 11 {
			t.Fatalf("expected result 11, got %d", got.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("remaining subscriber missed the result")
	}
}
