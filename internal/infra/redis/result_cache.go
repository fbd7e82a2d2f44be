package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"company-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultDetailTTL is how long a result detail stays exportable.
const DefaultDetailTTL = 48 * time.Hour

// ResultCache stores result details as JSON strings:
// SET {company_id}:{user_id}:{quiz_id}:{result_id} <json> EX 172800
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultDetailTTL
	}
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) PutDetail(ctx context.Context, key domain.ResultKey, detail domain.ResultDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal result detail: %w", err)
	}
	return c.client.Set(ctx, key.String(), data, c.ttl).Err()
}

func (c *ResultCache) GetDetail(ctx context.Context, key domain.ResultKey) (domain.ResultDetail, bool, error) {
	raw, err := c.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ResultDetail{}, false, nil
	}
	if err != nil {
		return domain.ResultDetail{}, false, err
	}
	var detail domain.ResultDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return domain.ResultDetail{}, false, fmt.Errorf("unmarshal result detail: %w", err)
	}
	return detail, true, nil
}
