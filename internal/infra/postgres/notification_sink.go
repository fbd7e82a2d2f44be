package postgres

import (
	"context"
	"fmt"

	"company-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// NotificationStore writes notification rows in a single batch.
type NotificationStore struct {
	pool *pgxpool.Pool
}

func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

func (s *NotificationStore) Notify(ctx context.Context, notifications []domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(
			`INSERT INTO notification (title, content, user_id, company_id) VALUES ($1, $2, $3, $4)`,
			n.Title, n.Content, n.UserID, n.CompanyID,
		)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range notifications {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}
