package app

import (
	"context"
	"fmt"
	"sort"

	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/metrics"
	"github.com/sirupsen/logrus"
)

// SendReminders notifies every user whose last attempt at a repeating quiz is
// at least the quiz frequency old. It returns the number of reminders sent.
func (s *QuizService) SendReminders(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, fmt.Errorf("notification sink not configured")
	}
	attempts, err := s.results.LastAttempts(ctx)
	if err != nil {
		return 0, err
	}
	if len(attempts) == 0 {
		return 0, nil
	}

	schedules, err := s.quizzes.QuizSchedules(ctx, quizIDs(attempts))
	if err != nil {
		return 0, err
	}
	byID := make(map[string]domain.QuizSchedule, len(schedules))
	for _, schedule := range schedules {
		byID[schedule.ID] = schedule
	}

	now := s.now()
	var due []domain.Notification
	for _, attempt := range attempts {
		schedule, ok := byID[attempt.QuizID]
		if !ok {
			continue
		}
		next, repeats := schedule.DueAt(attempt.LastAttempt)
		if !repeats || next.After(now) {
			continue
		}
		due = append(due, reminderFor(attempt, schedule))
	}

	log := s.log.WithFields(logrus.Fields{"attempts": len(attempts), "due": len(due)})
	if len(due) == 0 {
		log.Debug("no quiz reminders due")
		return 0, nil
	}
	if err := s.notifier.Notify(ctx, due); err != nil {
		return 0, fmt.Errorf("send quiz reminders: %w", err)
	}
	metrics.RemindersSent.Add(float64(len(due)))
	log.Info("quiz reminders sent")
	return len(due), nil
}

func reminderFor(attempt domain.LastAttempt, schedule domain.QuizSchedule) domain.Notification {
	return domain.Notification{
		UserID:    attempt.UserID,
		CompanyID: attempt.CompanyID,
		Title:     "Time to repeat the quiz",
		Content:   fmt.Sprintf("You took %q a while ago. Time to repeat it", schedule.Name),
	}
}

func quizIDs(attempts []domain.LastAttempt) []string {
	seen := make(map[string]struct{}, len(attempts))
	for _, attempt := range attempts {
		seen[attempt.QuizID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
