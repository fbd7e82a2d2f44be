package app

import (
	"context"
	"sync"
	"time"

	"company-quiz-service/internal/domain"
)

// FeedRegistry tracks company topics. Subscribe must register the subscriber
// and its topic atomically with respect to the cancel of another subscriber.
type FeedRegistry interface {
	Subscribe(ctx context.Context, companyID int64) (<-chan domain.QuizResult, func(), error)
	Publish(ctx context.Context, result domain.QuizResult) error
}

// ResultFeed fans new quiz results out to the subscribers of a company.
type ResultFeed struct {
	topics FeedRegistry
}

func NewResultFeed(topics FeedRegistry) *ResultFeed {
	return &ResultFeed{topics: topics}
}

// Publish delivers the result to current subscribers of its company.
func (f *ResultFeed) Publish(ctx context.Context, result domain.QuizResult) error {
	return f.topics.Publish(ctx, result)
}

// Subscribe returns a channel of results for the company.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *ResultFeed) Subscribe(ctx context.Context, companyID int64) (<-chan domain.QuizResult, func(), error) {
	return f.topics.Subscribe(ctx, companyID)
}

// Topic holds the local subscribers of one company.
type Topic struct {
	companyID   int64
	createdAt   time.Time
	mu          sync.RWMutex
	subscribers map[chan domain.QuizResult]struct{}
}

// NewTopic is exported for registries in infrastructure layers.
func NewTopic(companyID int64) *Topic {
	return &Topic{
		companyID:   companyID,
		createdAt:   time.Now(),
		subscribers: make(map[chan domain.QuizResult]struct{}),
	}
}

// IsEmpty reports whether the topic has no subscribers.
func (t *Topic) IsEmpty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subscribers) == 0
}

// Add registers a subscriber. The returned cancel closes its channel once.
func (t *Topic) Add() (<-chan domain.QuizResult, func()) {
	ch := make(chan domain.QuizResult, 8)

	t.mu.Lock()
	t.subscribers[ch] = struct{}{}
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		if _, ok := t.subscribers[ch]; ok {
			delete(t.subscribers, ch)
			close(ch)
		}
		t.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast sends the result to every subscriber without blocking.
func (t *Topic) Broadcast(result domain.QuizResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ch := range t.subscribers {
		select {
		case ch <- result:
		default:
			// full buffer: drop the oldest update
			select {
			case <-ch:
			default:
			}
			ch <- result
		}
	}
}
