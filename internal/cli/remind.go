package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/config"
	"company-quiz-service/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRemindCmd sends repeat reminders for quizzes with a frequency. Without an
// interval it runs once; with one it keeps running until interrupted.
func NewRemindCmd(configPath *string) *cobra.Command {
	var interval string
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Notify users whose repeating quizzes are due",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReminders(cmd.Context(), *configPath, interval)
		},
	}
	cmd.Flags().StringVar(&interval, "interval", "", "repeat every interval, e.g. 24h (overrides reminders.interval)")
	return cmd
}

func runReminders(ctx context.Context, configPath, intervalFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	raw := cfg.Reminders.Interval
	if intervalFlag != "" {
		raw = intervalFlag
	}
	interval := config.TTLDuration(raw, 0)

	deps, cleanup, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()
	service := app.NewQuizService(deps)

	if interval <= 0 {
		_, err := service.SendReminders(ctx)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return remindEvery(ctx, service, interval, log)
}

func remindEvery(ctx context.Context, service *app.QuizService, interval time.Duration, log logrus.FieldLogger) error {
	log.WithField("interval", interval.String()).Info("starting quiz reminders")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := service.SendReminders(ctx); err != nil {
			log.WithError(err).Error("send quiz reminders")
		}
		select {
		case <-ctx.Done():
			log.Info("stopping quiz reminders")
			return nil
		case <-ticker.C:
		}
	}
}
