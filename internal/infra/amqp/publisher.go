package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"company-quiz-service/internal/domain"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	DefaultExchange = "quiz.events"
	// RoutingKeyNotification is used for every notification published.
	RoutingKeyNotification = "notification.created"
)

// notificationEvent is the message body consumed by the notification subsystem.
type notificationEvent struct {
	EventType string `json:"event_type"`
	UserID    int64  `json:"user_id"`
	CompanyID int64  `json:"company_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher sends notifications to a topic exchange. A publisher built with an
// empty URI is disabled and drops everything.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewPublisher(uri, exchange string, log logrus.FieldLogger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "amqp")
	if uri == "" {
		log.Warn("rabbitmq uri is empty, notification publishing is disabled")
		return &Publisher{exchange: exchange, log: log, now: time.Now}, nil
	}

	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	log.WithField("exchange", exchange).Info("notification publisher ready")

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
		log:      log,
		now:      time.Now,
	}, nil
}

// Enabled reports whether messages are actually sent.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

func (p *Publisher) Notify(ctx context.Context, notifications []domain.Notification) error {
	if !p.enabled {
		p.log.WithField("count", len(notifications)).Debug("publishing disabled, skipping notifications")
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range notifications {
		msg, err := p.message(n)
		if err != nil {
			return err
		}
		if err := p.channel.PublishWithContext(ctx, p.exchange, RoutingKeyNotification, false, false, msg); err != nil {
			return fmt.Errorf("publish notification: %w", err)
		}
	}
	return nil
}

func (p *Publisher) message(n domain.Notification) (amqp091.Publishing, error) {
	now := p.now()
	body, err := json.Marshal(notificationEvent{
		EventType: RoutingKeyNotification,
		UserID:    n.UserID,
		CompanyID: n.CompanyID,
		Title:     n.Title,
		Content:   n.Content,
		Timestamp: now.Unix(),
	})
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal notification: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    now,
		Body:         body,
		Headers: amqp091.Table{
			"event_type": RoutingKeyNotification,
			"user_id":    strconv.FormatInt(n.UserID, 10),
			"company_id": strconv.FormatInt(n.CompanyID, 10),
		},
	}, nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.WithError(err).Warn("close rabbitmq channel")
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
