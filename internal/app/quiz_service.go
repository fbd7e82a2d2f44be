package app

import (
	"context"
	"fmt"
	"time"

	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/metrics"
	"github.com/sirupsen/logrus"
)

// QuizRepository is the quiz store. Implementations return
// domain.ErrInvalidQuizID for malformed ids before checking existence and
// domain.ErrQuizNotFound for well-formed ids that do not resolve.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	GetQuizExcludingAnswers(ctx context.Context, quizID string) (domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quizID string, quiz domain.Quiz) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID string) error
	ListQuizzes(ctx context.Context, filter domain.QuizFilter, page, perPage int) (domain.QuizPage, error)
	ListCompanyQuizzes(ctx context.Context, companyID int64) ([]domain.QuizSummary, error)
	// QuizSchedules returns id, name and frequency of the quizzes among ids.
	// Unknown and malformed ids are skipped.
	QuizSchedules(ctx context.Context, quizIDs []string) ([]domain.QuizSchedule, error)
}

// ResultRepository persists graded submissions.
type ResultRepository interface {
	// CreateResult inserts the row and fills in its ID and QuizDate.
	CreateResult(ctx context.Context, result *domain.QuizResult) error
	FindResults(ctx context.Context, filter domain.ResultFilter) ([]domain.QuizResult, error)
	// SumResults returns sum(result) and sum(questions_overall) over the filter.
	SumResults(ctx context.Context, filter domain.ResultFilter) (int64, int64, error)
	// LastAttempts returns the latest quiz_date per (user, quiz, company).
	LastAttempts(ctx context.Context) ([]domain.LastAttempt, error)
}

// ResultCache keeps result details for a limited time.
type ResultCache interface {
	PutDetail(ctx context.Context, key domain.ResultKey, detail domain.ResultDetail) error
	// GetDetail reports false when the entry is absent or expired.
	GetDetail(ctx context.Context, key domain.ResultKey) (domain.ResultDetail, bool, error)
}

// CompanyDirectory resolves companies, members and roles.
type CompanyDirectory interface {
	// RequireRole returns domain.ErrCompanyNotFound or domain.ErrPermissionDenied.
	RequireRole(ctx context.Context, companyID, userID int64, roles ...domain.Role) error
	Company(ctx context.Context, companyID int64) (domain.Company, error)
	MemberIDs(ctx context.Context, companyID int64) ([]int64, error)
}

// NotificationSink delivers notifications. Delivery is best effort.
type NotificationSink interface {
	Notify(ctx context.Context, notifications []domain.Notification) error
}

// Dependencies wires a QuizService. Feed, Notifier and Logger are optional.
type Dependencies struct {
	Quizzes   QuizRepository
	Results   ResultRepository
	Cache     ResultCache
	Directory CompanyDirectory
	Notifier  NotificationSink
	Feed      *ResultFeed
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

// QuizService contains the quiz and results use cases.
type QuizService struct {
	quizzes   QuizRepository
	results   ResultRepository
	cache     ResultCache
	directory CompanyDirectory
	notifier  NotificationSink
	feed      *ResultFeed
	reports   *ReportBuilder
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewQuizService(deps Dependencies) *QuizService {
	s := &QuizService{
		quizzes:   deps.Quizzes,
		results:   deps.Results,
		cache:     deps.Cache,
		directory: deps.Directory,
		notifier:  deps.Notifier,
		feed:      deps.Feed,
		log:       deps.Logger,
		now:       deps.Now,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.reports = NewReportBuilder(deps.Results, deps.Cache, s.log)
	return s
}

// ListQuizzes returns one page of all quizzes ordered by store id.
func (s *QuizService) ListQuizzes(ctx context.Context, page, perPage int) (domain.QuizPage, error) {
	if page < 1 || perPage < 1 {
		return domain.QuizPage{}, domain.ErrInvalidPage
	}
	return s.quizzes.ListQuizzes(ctx, domain.QuizFilter{}, page, perPage)
}

// ListCompanyQuizzes returns id and name of every quiz of a company.
func (s *QuizService) ListCompanyQuizzes(ctx context.Context, companyID int64) ([]domain.QuizSummary, error) {
	return s.quizzes.ListCompanyQuizzes(ctx, companyID)
}

// GetQuiz returns a quiz without its answer key.
func (s *QuizService) GetQuiz(ctx context.Context, companyID int64, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuizExcludingAnswers(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CompanyID != companyID {
		return domain.Quiz{}, domain.ErrCompanyMismatch
	}
	return quiz, nil
}

// GetQuizWithAnswers returns the full quiz to company admins.
func (s *QuizService) GetQuizWithAnswers(ctx context.Context, user domain.User, companyID int64, quizID string) (domain.Quiz, error) {
	if err := s.directory.RequireRole(ctx, companyID, user.ID, domain.AdminRoles...); err != nil {
		return domain.Quiz{}, err
	}
	return s.companyQuiz(ctx, companyID, quizID)
}

// CreateQuiz numbers the questions in submission order, stores the quiz and
// notifies every company member.
func (s *QuizService) CreateQuiz(ctx context.Context, user domain.User, companyID int64, quiz domain.Quiz) (domain.Quiz, error) {
	if err := s.directory.RequireRole(ctx, companyID, user.ID, domain.AdminRoles...); err != nil {
		return domain.Quiz{}, err
	}
	quiz.ID = ""
	quiz.CompanyID = companyID
	quiz.CreatedByUserID = user.ID
	if quiz.CreatedAt == "" {
		quiz.CreatedAt = s.now().Format(time.DateOnly)
	}
	quiz.NumberQuestions(true)
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}

	created, err := s.quizzes.CreateQuiz(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	s.log.WithFields(logrus.Fields{"quiz_id": created.ID, "company_id": companyID}).Info("quiz created")
	s.notifyQuizCreated(ctx, created)
	return created, nil
}

// UpdateQuiz replaces the quiz content. Company and author are kept from the
// stored document; questions without a number are numbered by position.
func (s *QuizService) UpdateQuiz(ctx context.Context, user domain.User, companyID int64, quizID string, quiz domain.Quiz) (domain.Quiz, error) {
	if err := s.directory.RequireRole(ctx, companyID, user.ID, domain.AdminRoles...); err != nil {
		return domain.Quiz{}, err
	}
	existing, err := s.companyQuiz(ctx, companyID, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}

	quiz.ID = existing.ID
	quiz.CompanyID = existing.CompanyID
	quiz.CreatedByUserID = existing.CreatedByUserID
	if quiz.CreatedAt == "" {
		quiz.CreatedAt = existing.CreatedAt
	}
	quiz.NumberQuestions(false)
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return s.quizzes.UpdateQuiz(ctx, quizID, quiz)
}

// DeleteQuiz removes a quiz of the company.
func (s *QuizService) DeleteQuiz(ctx context.Context, user domain.User, companyID int64, quizID string) error {
	if err := s.directory.RequireRole(ctx, companyID, user.ID, domain.AdminRoles...); err != nil {
		return err
	}
	if _, err := s.companyQuiz(ctx, companyID, quizID); err != nil {
		return err
	}
	return s.quizzes.DeleteQuiz(ctx, quizID)
}

// SubmitSolution grades a submission, stores the summary row and caches the
// per-question detail. The two writes are not atomic: a failed cache write is
// logged and the stored row is still returned.
func (s *QuizService) SubmitSolution(ctx context.Context, user domain.User, companyID int64, quizID string, submission domain.AnswerSubmission) (domain.QuizResult, error) {
	if err := s.directory.RequireRole(ctx, companyID, user.ID, domain.MemberRoles...); err != nil {
		return domain.QuizResult{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if quiz.CompanyID != companyID {
		return domain.QuizResult{}, domain.ErrCompanyMismatch
	}

	grading, err := Grade(quiz, submission)
	if err != nil {
		return domain.QuizResult{}, err
	}

	result := domain.QuizResult{
		QuizID:           quiz.ID,
		UserID:           user.ID,
		CompanyID:        companyID,
		Result:           grading.Correct,
		QuestionsOverall: grading.Total,
		QuizDate:         s.now().UTC(),
	}
	if err := s.results.CreateResult(ctx, &result); err != nil {
		return domain.QuizResult{}, fmt.Errorf("store result: %w", err)
	}
	metrics.ObserveSubmission(result.Result, result.QuestionsOverall)

	detail := domain.ResultDetail{
		User:      user.ID,
		Company:   companyID,
		Quiz:      quiz.ID,
		Questions: grading.Questions,
	}
	if err := s.cache.PutDetail(ctx, result.Key(), detail); err != nil {
		metrics.CacheWriteFailures.Inc()
		s.log.WithError(err).WithField("key", result.Key().String()).Warn("cache result detail")
	}

	if s.feed != nil {
		if err := s.feed.Publish(ctx, result); err != nil {
			s.log.WithError(err).WithField("company_id", companyID).Warn("publish result to feed")
		}
	}
	return result, nil
}

// AverageFilter narrows an average mark query. Zero values are ignored.
type AverageFilter struct {
	CompanyID int64
	// MaxDay is an inclusive upper bound on the submission time.
	MaxDay time.Time
}

// AverageMark returns sum(result)/sum(questions_overall) over the user's rows.
func (s *QuizService) AverageMark(ctx context.Context, user domain.User, filter AverageFilter) (float64, error) {
	correct, overall, err := s.results.SumResults(ctx, domain.ResultFilter{
		UserID:    user.ID,
		CompanyID: filter.CompanyID,
		Before:    filter.MaxDay,
	})
	if err != nil {
		return 0, err
	}
	if overall == 0 {
		return 0, domain.ErrNoAggregateData
	}
	return float64(correct) / float64(overall), nil
}

// UserResults returns every result row of the acting user.
func (s *QuizService) UserResults(ctx context.Context, user domain.User) ([]domain.QuizResult, error) {
	return s.results.FindResults(ctx, domain.ResultFilter{UserID: user.ID})
}

// QuizResults returns every row submitted for a quiz of the company.
func (s *QuizService) QuizResults(ctx context.Context, user domain.User, companyID int64, quizID string) ([]domain.QuizResult, error) {
	if err := s.directory.RequireRole(ctx, companyID, user.ID, domain.AdminRoles...); err != nil {
		return nil, err
	}
	if _, err := s.companyQuizNoAnswers(ctx, companyID, quizID); err != nil {
		return nil, err
	}
	return s.results.FindResults(ctx, domain.ResultFilter{CompanyID: companyID, QuizID: quizID})
}

// SubscribeResults streams new results of a company to an admin.
func (s *QuizService) SubscribeResults(ctx context.Context, user domain.User, companyID int64) (<-chan domain.QuizResult, func(), error) {
	if s.feed == nil {
		return nil, nil, fmt.Errorf("result feed not configured")
	}
	if err := s.directory.RequireRole(ctx, companyID, user.ID, domain.AdminRoles...); err != nil {
		return nil, nil, err
	}
	return s.feed.Subscribe(ctx, companyID)
}

func (s *QuizService) companyQuiz(ctx context.Context, companyID int64, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CompanyID != companyID {
		return domain.Quiz{}, domain.ErrCompanyMismatch
	}
	return quiz, nil
}

func (s *QuizService) companyQuizNoAnswers(ctx context.Context, companyID int64, quizID string) (domain.Quiz, error) {
	return s.GetQuiz(ctx, companyID, quizID)
}

func (s *QuizService) notifyQuizCreated(ctx context.Context, quiz domain.Quiz) {
	if s.notifier == nil {
		return
	}
	log := s.log.WithFields(logrus.Fields{"quiz_id": quiz.ID, "company_id": quiz.CompanyID})

	company, err := s.directory.Company(ctx, quiz.CompanyID)
	if err != nil {
		log.WithError(err).Warn("quiz notification: load company")
		return
	}
	members, err := s.directory.MemberIDs(ctx, quiz.CompanyID)
	if err != nil {
		log.WithError(err).Warn("quiz notification: load members")
		return
	}
	if len(members) == 0 {
		return
	}

	notifications := make([]domain.Notification, 0, len(members))
	for _, userID := range members {
		notifications = append(notifications, domain.Notification{
			UserID:    userID,
			CompanyID: quiz.CompanyID,
			Title:     fmt.Sprintf("New quiz created by %s", company.Name),
			Content:   fmt.Sprintf("New quiz %q was created by %s", quiz.Name, company.Name),
		})
	}
	if err := s.notifier.Notify(ctx, notifications); err != nil {
		log.WithError(err).Warn("quiz notification: deliver")
	}
}
