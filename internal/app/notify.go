package app

import (
	"context"
	"errors"

	"company-quiz-service/internal/domain"
)

// FanoutSink delivers to every sink and joins their errors. Each sink is tried
// even when an earlier one fails.
type FanoutSink []NotificationSink

func (f FanoutSink) Notify(ctx context.Context, notifications []domain.Notification) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, notifications); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
