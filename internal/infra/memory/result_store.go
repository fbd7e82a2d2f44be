package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"company-quiz-service/internal/domain"
)

// ResultStore keeps result rows in insertion order with auto-increment ids.
type ResultStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []domain.QuizResult
	clock  func() time.Time
}

func NewResultStore() *ResultStore {
	return &ResultStore{nextID: 1, clock: time.Now}
}

func (s *ResultStore) CreateResult(_ context.Context, result *domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ID = s.nextID
	s.nextID++
	if result.QuizDate.IsZero() {
		result.QuizDate = s.clock().UTC()
	}
	s.rows = append(s.rows, *result)
	return nil
}

func (s *ResultStore) FindResults(_ context.Context, filter domain.ResultFilter) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QuizResult
	for _, row := range s.rows {
		if matches(row, filter) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *ResultStore) SumResults(ctx context.Context, filter domain.ResultFilter) (int64, int64, error) {
	rows, _ := s.FindResults(ctx, filter)
	var correct, overall int64
	for _, row := range rows {
		correct += int64(row.Result)
		overall += int64(row.QuestionsOverall)
	}
	return correct, overall, nil
}

// LastAttempts returns the latest quiz_date per (user, quiz, company),
// ordered by user, quiz and company.
func (s *ResultStore) LastAttempts(_ context.Context) ([]domain.LastAttempt, error) {
	type group struct {
		userID    int64
		quizID    string
		companyID int64
	}
	s.mu.RLock()
	latest := make(map[group]time.Time)
	for _, row := range s.rows {
		key := group{row.UserID, row.QuizID, row.CompanyID}
		if last, ok := latest[key]; !ok || row.QuizDate.After(last) {
			latest[key] = row.QuizDate
		}
	}
	s.mu.RUnlock()

	out := make([]domain.LastAttempt, 0, len(latest))
	for key, last := range latest {
		out = append(out, domain.LastAttempt{
			UserID:      key.userID,
			CompanyID:   key.companyID,
			QuizID:      key.quizID,
			LastAttempt: last,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.QuizID != b.QuizID {
			return a.QuizID < b.QuizID
		}
		return a.CompanyID < b.CompanyID
	})
	return out, nil
}

func matches(row domain.QuizResult, filter domain.ResultFilter) bool {
	if filter.UserID != 0 && row.UserID != filter.UserID {
		return false
	}
	if filter.CompanyID != 0 && row.CompanyID != filter.CompanyID {
		return false
	}
	if filter.QuizID != "" && row.QuizID != filter.QuizID {
		return false
	}
	if !filter.Before.IsZero() && row.QuizDate.After(filter.Before) {
		return false
	}
	return true
}
