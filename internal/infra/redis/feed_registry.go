package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// FeedRegistry delivers results through Redis pub/sub so a result submitted
// on one instance reaches websocket subscribers on every instance.
// Each instance holds one Redis subscription per company with local subscribers.
type FeedRegistry struct {
	client *redis.Client
	log    logrus.FieldLogger

	mu    sync.Mutex
	feeds map[int64]*companyFeed
}

type companyFeed struct {
	topic  *app.Topic
	pubsub *redis.PubSub
}

func NewFeedRegistry(client *redis.Client, log logrus.FieldLogger) *FeedRegistry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FeedRegistry{
		client: client,
		log:    log,
		feeds:  make(map[int64]*companyFeed),
	}
}

// Subscribe joins the local company topic. The first local subscriber opens the
// Redis subscription and waits for its confirmation.
func (r *FeedRegistry) Subscribe(ctx context.Context, companyID int64) (<-chan domain.QuizResult, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	feed, ok := r.feeds[companyID]
	if !ok {
		pubsub := r.client.Subscribe(ctx, channelName(companyID))
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, nil, fmt.Errorf("subscribe %s: %w", channelName(companyID), err)
		}
		feed = &companyFeed{
			topic:  app.NewTopic(companyID),
			pubsub: pubsub,
		}
		r.feeds[companyID] = feed
		go r.relay(feed)
	}
	ch, leave := feed.topic.Add()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			leave()
			if current, ok := r.feeds[companyID]; ok && current == feed && feed.topic.IsEmpty() {
				delete(r.feeds, companyID)
				if err := feed.pubsub.Close(); err != nil {
					r.log.WithError(err).WithField("company_id", companyID).Warn("close result subscription")
				}
			}
		})
	}
	return ch, cancel, nil
}

// Publish sends the result to the company channel. Local subscribers receive it
// through their own Redis subscription.
func (r *FeedRegistry) Publish(ctx context.Context, result domain.QuizResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, channelName(result.CompanyID), payload).Err(); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

func (r *FeedRegistry) relay(feed *companyFeed) {
	for msg := range feed.pubsub.Channel() {
		var result domain.QuizResult
		if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
			r.log.WithError(err).WithField("channel", msg.Channel).Warn("decode feed message")
			continue
		}
		feed.topic.Broadcast(result)
	}
}

func channelName(companyID int64) string {
	return "feed:company:" + strconv.FormatInt(companyID, 10)
}
