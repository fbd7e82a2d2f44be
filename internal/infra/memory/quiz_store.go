package memory

import (
	"context"
	"sort"
	"sync"

	"company-quiz-service/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// QuizStore is an in-process quiz store. It issues Mongo ObjectID keys so ids
// look and validate exactly like the document store's.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[string]domain.Quiz)}
}

func (s *QuizStore) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if err := validateID(quizID); err != nil {
		return domain.Quiz{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *QuizStore) GetQuizExcludingAnswers(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.CorrectAnswers = nil
	return quiz, nil
}

func (s *QuizStore) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.ID = bson.NewObjectID().Hex()
	s.mu.Lock()
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	s.mu.Unlock()
	return cloneQuiz(quiz), nil
}

func (s *QuizStore) UpdateQuiz(_ context.Context, quizID string, quiz domain.Quiz) (domain.Quiz, error) {
	if err := validateID(quizID); err != nil {
		return domain.Quiz{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz.ID = quizID
	s.quizzes[quizID] = cloneQuiz(quiz)
	return cloneQuiz(quiz), nil
}

func (s *QuizStore) DeleteQuiz(_ context.Context, quizID string) error {
	if err := validateID(quizID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *QuizStore) ListQuizzes(_ context.Context, filter domain.QuizFilter, page, perPage int) (domain.QuizPage, error) {
	matched := s.sorted(filter)
	total := int64(len(matched))

	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return domain.QuizPage{
		Documents:  matched[start:end],
		Page:       page,
		PerPage:    perPage,
		TotalPages: domain.TotalPages(total, perPage),
		TotalCount: total,
	}, nil
}

func (s *QuizStore) ListCompanyQuizzes(_ context.Context, companyID int64) ([]domain.QuizSummary, error) {
	matched := s.sorted(domain.QuizFilter{CompanyID: companyID})
	out := make([]domain.QuizSummary, 0, len(matched))
	for _, quiz := range matched {
		out = append(out, domain.QuizSummary{ID: quiz.ID, Name: quiz.Name})
	}
	return out, nil
}

// QuizSchedules returns id, name and frequency of the known quizzes among ids.
// Malformed and unknown ids are skipped.
func (s *QuizStore) QuizSchedules(_ context.Context, quizIDs []string) ([]domain.QuizSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizSchedule, 0, len(quizIDs))
	for _, id := range quizIDs {
		quiz, ok := s.quizzes[id]
		if !ok {
			continue
		}
		schedule := domain.QuizSchedule{ID: quiz.ID, Name: quiz.Name}
		if quiz.Frequency != nil {
			days := *quiz.Frequency
			schedule.Frequency = &days
		}
		out = append(out, schedule)
	}
	return out, nil
}

// sorted returns matching quizzes ordered by id, which for ObjectIDs is creation order.
func (s *QuizStore) sorted(filter domain.QuizFilter) []domain.Quiz {
	s.mu.RLock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		if filter.CompanyID != 0 && quiz.CompanyID != filter.CompanyID {
			continue
		}
		out = append(out, cloneQuiz(quiz))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func validateID(quizID string) error {
	if _, err := bson.ObjectIDFromHex(quizID); err != nil {
		return domain.ErrInvalidQuizID
	}
	return nil
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Answers = append([]string(nil), question.Answers...)
		out.Questions[i] = question
	}
	if q.CorrectAnswers != nil {
		out.CorrectAnswers = make(map[string][]int, len(q.CorrectAnswers))
		for k, v := range q.CorrectAnswers {
			out.CorrectAnswers[k] = append([]int(nil), v...)
		}
	}
	return out
}
