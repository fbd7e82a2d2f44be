package app_test

import (
	"context"
	"errors"
	"testing"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/infra/memory"
)

func TestFanoutSinkTriesEverySink(t *testing.T) {
	broken := memory.NewOutbox()
	broken.Err = errors.New("down")
	healthy := memory.NewOutbox()

	err := app.FanoutSink{broken, nil, healthy}.Notify(context.Background(), []domain.Notification{{UserID: 1}})
	if err == nil || !errors.Is(err, broken.Err) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(healthy.Sent()) != 1 {
		t.Fatalf("healthy sink must still receive the notification")
	}
}
