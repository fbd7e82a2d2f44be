package memory

import (
	"context"
	"sync"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

// FeedRegistry is an in-process implementation of app.FeedRegistry.
type FeedRegistry struct {
	mu     sync.RWMutex
	topics map[int64]*app.Topic
}

func NewFeedRegistry() *FeedRegistry {
	return &FeedRegistry{
		topics: make(map[int64]*app.Topic),
	}
}

// Subscribe creates the company topic when needed and joins it under one lock.
func (r *FeedRegistry) Subscribe(_ context.Context, companyID int64) (<-chan domain.QuizResult, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	topic, ok := r.topics[companyID]
	if !ok {
		topic = app.NewTopic(companyID)
		r.topics[companyID] = topic
	}
	ch, leave := topic.Add()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			leave()
			if current, ok := r.topics[companyID]; ok && current == topic && topic.IsEmpty() {
				delete(r.topics, companyID)
			}
		})
	}
	return ch, cancel, nil
}

func (r *FeedRegistry) Publish(_ context.Context, result domain.QuizResult) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if topic, ok := r.topics[result.CompanyID]; ok {
		topic.Broadcast(result)
	}
	return nil
}

// Topics returns the number of companies with live subscribers.
func (r *FeedRegistry) Topics() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}
