package memory

import (
	"context"
	"sync"

	"company-quiz-service/internal/domain"
)

// Outbox records notifications instead of delivering them. Err, when set, is
// returned from every Notify call.
type Outbox struct {
	mu   sync.Mutex
	sent []domain.Notification
	Err  error
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Notify(_ context.Context, notifications []domain.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.sent = append(o.sent, notifications...)
	return nil
}

// Sent returns a copy of the recorded notifications.
func (o *Outbox) Sent() []domain.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Notification(nil), o.sent...)
}
