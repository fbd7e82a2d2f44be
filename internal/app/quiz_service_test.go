package app_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/infra/memory"
	"github.com/sirupsen/logrus"
)

var (
	admin  = domain.User{ID: 1, Username: "admin"}
	member = domain.User{ID: 2, Username: "member"}
)

type fixture struct {
	service *app.QuizService
	quizzes *memory.QuizStore
	results *memory.ResultStore
	outbox  *memory.Outbox
	now     time.Time
}

func newFixture(t *testing.T, cache app.ResultCache) *fixture {
	t.Helper()
	f := &fixture{
		quizzes: memory.NewQuizStore(),
		results: memory.NewResultStore(),
		outbox:  memory.NewOutbox(),
		now:     time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC),
	}
	if cache == nil {
		cache = memory.NewResultCache(48 * time.Hour)
	}
	dir := memory.NewDirectory()
	dir.AddCompany(domain.Company{ID: 7, Name: "Acme"})
	dir.AddMember(7, admin.ID, domain.RoleOwner)
	dir.AddMember(7, member.ID, domain.RoleMember)
	dir.AddCompany(domain.Company{ID: 8, Name: "Other"})
	dir.AddMember(8, admin.ID, domain.RoleAdmin)

	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	f.service = app.NewQuizService(app.Dependencies{
		Quizzes:   f.quizzes,
		Results:   f.results,
		Cache:     cache,
		Directory: dir,
		Notifier:  f.outbox,
		Feed:      app.NewResultFeed(memory.NewFeedRegistry()),
		Logger:    log,
		Now:       func() time.Time { return f.now },
	})
	return f
}

func sampleQuiz(n int) domain.Quiz {
	quiz := domain.Quiz{Name: "Capitals", Description: "geography", CorrectAnswers: map[string][]int{}}
	for i := 1; i <= n; i++ {
		quiz.Questions = append(quiz.Questions, domain.Question{Text: "Q", Answers: []string{"a", "b", "c"}})
		quiz.CorrectAnswers[itoa(i)] = []int{0}
	}
	return quiz
}

func itoa(i int) string {
	return string(rune('0' + i))
}

func allAnswers(n, wrong int) domain.AnswerSubmission {
	sub := domain.AnswerSubmission{Answers: map[string]domain.OptionSet{}}
	for i := 1; i <= n; i++ {
		sub.Answers[itoa(i)] = domain.OptionSet{0}
	}
	for i := 1; i <= wrong; i++ {
		sub.Answers[itoa(i)] = domain.OptionSet{2}
	}
	return sub
}

func (f *fixture) create(t *testing.T, n int) domain.Quiz {
	t.Helper()
	quiz, err := f.service.CreateQuiz(context.Background(), admin, 7, sampleQuiz(n))
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func TestCreateQuizNumbersAndNotifies(t *testing.T) {
	f := newFixture(t, nil)
	quiz := f.create(t, 3)

	if quiz.CompanyID != 7 || quiz.CreatedByUserID != admin.ID || quiz.CreatedAt != "2024-11-22" {
		t.Fatalf("unexpected ownership fields %+v", quiz)
	}
	for i, q := range quiz.Questions {
		if q.Number != i+1 {
			t.Fatalf("question %d numbered %d", i, q.Number)
		}
	}

	sent := f.outbox.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(sent))
	}
	if sent[0].Title != "New quiz created by Acme" || sent[0].Content != `New quiz "Capitals" was created by Acme` {
		t.Fatalf("unexpected notification %+v", sent[0])
	}
}

func TestCreateQuizSurvivesNotificationFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.outbox.Err = errors.New("broker down")
	if _, err := f.service.CreateQuiz(context.Background(), admin, 7, sampleQuiz(2)); err != nil {
		t.Fatalf("notification failure must not fail creation: %v", err)
	}
}

func TestCreateQuizRequiresAdmin(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.service.CreateQuiz(context.Background(), member, 7, sampleQuiz(2))
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	_, err = f.service.CreateQuiz(context.Background(), admin, 99, sampleQuiz(2))
	if !errors.Is(err, domain.ErrCompanyNotFound) {
		t.Fatalf("expected company not found, got %v", err)
	}
}

func TestCreateQuizValidates(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.service.CreateQuiz(context.Background(), admin, 7, sampleQuiz(1))
	if !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected invalid quiz, got %v", err)
	}
}

func TestUpdateQuizKeepsOwnershipAndNumbersMissing(t *testing.T) {
	f := newFixture(t, nil)
	quiz := f.create(t, 2)

	replacement := sampleQuiz(3)
	replacement.Name = "Rivers"
	replacement.Questions[0].Number = 1
	updated, err := f.service.UpdateQuiz(context.Background(), admin, 7, quiz.ID, replacement)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != quiz.ID || updated.Name != "Rivers" || updated.CompanyID != 7 || updated.CreatedAt != quiz.CreatedAt {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if updated.Questions[2].Number != 3 {
		t.Fatalf("expected missing number filled, got %+v", updated.Questions)
	}
}

func TestGetQuizHidesAnswersAndChecksCompany(t *testing.T) {
	f := newFixture(t, nil)
	quiz := f.create(t, 2)

	got, err := f.service.GetQuiz(context.Background(), 7, quiz.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CorrectAnswers != nil {
		t.Fatalf("answers leaked: %+v", got.CorrectAnswers)
	}
	if _, err := f.service.GetQuiz(context.Background(), 8, quiz.ID); !errors.Is(err, domain.ErrCompanyMismatch) {
		t.Fatalf("expected company mismatch, got %v", err)
	}
	if _, err := f.service.GetQuizWithAnswers(context.Background(), member, 7, quiz.ID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	full, err := f.service.GetQuizWithAnswers(context.Background(), admin, 7, quiz.ID)
	if err != nil || len(full.CorrectAnswers) != 2 {
		t.Fatalf("admin get: %+v %v", full, err)
	}
}

func TestDeleteQuizErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if err := f.service.DeleteQuiz(ctx, admin, 7, "nope"); !errors.Is(err, domain.ErrInvalidQuizID) {
		t.Fatalf("expected invalid id first, got %v", err)
	}
	if err := f.service.DeleteQuiz(ctx, admin, 7, "0123456789abcdef01234567"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	quiz := f.create(t, 2)
	if err := f.service.DeleteQuiz(ctx, admin, 7, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.service.DeleteQuiz(ctx, admin, 7, quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestListQuizzesPagination(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 5; i++ {
		f.create(t, 2)
	}
	page, err := f.service.ListQuizzes(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 5 || page.TotalPages != 3 || len(page.Documents) != 2 || page.Page != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if _, err := f.service.ListQuizzes(context.Background(), 0, 2); !errors.Is(err, domain.ErrInvalidPage) {
		t.Fatalf("expected invalid page, got %v", err)
	}

	summaries, err := f.service.ListCompanyQuizzes(context.Background(), 7)
	if err != nil || len(summaries) != 5 {
		t.Fatalf("company list: %d %v", len(summaries), err)
	}
}

func TestSubmitSolutionEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	quiz := f.create(t, 5)

	result, err := f.service.SubmitSolution(ctx, member, 7, quiz.ID, allAnswers(5, 1))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Result != 4 || result.QuestionsOverall != 5 || result.ID == 0 {
		t.Fatalf("unexpected row %+v", result)
	}

	avg, err := f.service.AverageMark(ctx, member, app.AverageFilter{})
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if avg != 0.8 {
		t.Fatalf("expected 0.8, got %v", avg)
	}

	csv, err := f.service.ExportOwn(ctx, member, app.FormatCSV)
	if err != nil || csv.Empty() {
		t.Fatalf("expected csv rows, got %q %v", csv.Body, err)
	}
}

func TestSubmitSolutionErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	quiz := f.create(t, 3)

	if _, err := f.service.SubmitSolution(ctx, member, 7, quiz.ID, allAnswers(2, 0)); !errors.Is(err, domain.ErrAnswerCountMismatch) {
		t.Fatalf("expected count mismatch, got %v", err)
	}
	if _, err := f.service.SubmitSolution(ctx, admin, 8, quiz.ID, allAnswers(3, 0)); !errors.Is(err, domain.ErrCompanyMismatch) {
		t.Fatalf("expected company mismatch, got %v", err)
	}
	if _, err := f.service.SubmitSolution(ctx, member, 7, "bad", allAnswers(3, 0)); !errors.Is(err, domain.ErrInvalidQuizID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
	outsider := domain.User{ID: 99}
	if _, err := f.service.SubmitSolution(ctx, outsider, 7, quiz.ID, allAnswers(3, 0)); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	rows, _ := f.results.FindResults(ctx, domain.ResultFilter{})
	if len(rows) != 0 {
		t.Fatalf("failed submissions must not store rows, got %d", len(rows))
	}
}

func TestDuplicateSubmissionsAreIndependentRows(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	quiz := f.create(t, 2)

	first, _ := f.service.SubmitSolution(ctx, member, 7, quiz.ID, allAnswers(2, 0))
	second, _ := f.service.SubmitSolution(ctx, member, 7, quiz.ID, allAnswers(2, 2))
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids")
	}
	avg, err := f.service.AverageMark(ctx, member, app.AverageFilter{CompanyID: 7})
	if err != nil || avg != 0.5 {
		t.Fatalf("expected 0.5, got %v %v", avg, err)
	}
}

type failingCache struct{}

func (failingCache) PutDetail(context.Context, domain.ResultKey, domain.ResultDetail) error {
	return errors.New("redis unavailable")
}

func (failingCache) GetDetail(context.Context, domain.ResultKey) (domain.ResultDetail, bool, error) {
	return domain.ResultDetail{}, false, nil
}

func TestSubmitSolutionSwallowsCacheFailure(t *testing.T) {
	f := newFixture(t, failingCache{})
	quiz := f.create(t, 2)

	result, err := f.service.SubmitSolution(context.Background(), member, 7, quiz.ID, allAnswers(2, 0))
	if err != nil {
		t.Fatalf("cache failure must not fail submission: %v", err)
	}
	if result.Result != 2 {
		t.Fatalf("unexpected row %+v", result)
	}
	rows, _ := f.results.FindResults(context.Background(), domain.ResultFilter{UserID: member.ID})
	if len(rows) != 1 {
		t.Fatalf("row must be committed, got %d", len(rows))
	}
}

func TestAverageMarkFilters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	quiz := f.create(t, 2)

	if _, err := f.service.AverageMark(ctx, member, app.AverageFilter{}); !errors.Is(err, domain.ErrNoAggregateData) {
		t.Fatalf("expected no data, got %v", err)
	}
	if _, err := f.service.SubmitSolution(ctx, member, 7, quiz.ID, allAnswers(2, 0)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := f.service.AverageMark(ctx, member, app.AverageFilter{MaxDay: f.now.Add(-time.Hour)})
	if !errors.Is(err, domain.ErrNoAggregateData) {
		t.Fatalf("expected rows after max day to be excluded, got %v", err)
	}
	avg, err := f.service.AverageMark(ctx, member, app.AverageFilter{MaxDay: f.now})
	if err != nil || avg != 1 {
		t.Fatalf("expected inclusive bound, got %v %v", avg, err)
	}
}

func TestExportsEmptyWhenDetailsExpired(t *testing.T) {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	clock := now
	cache := memory.NewResultCacheWithClock(48*time.Hour, func() time.Time { return clock })
	f := newFixture(t, cache)
	ctx := context.Background()
	quiz := f.create(t, 2)

	if _, err := f.service.SubmitSolution(ctx, member, 7, quiz.ID, allAnswers(2, 0)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	clock = now.Add(49 * time.Hour)

	csv, err := f.service.ExportCompany(ctx, admin, 7, app.FormatCSV)
	if err != nil || !csv.Empty() {
		t.Fatalf("expected empty csv, got %q %v", csv.Body, err)
	}
	js, err := f.service.ExportQuiz(ctx, admin, 7, quiz.ID, app.FormatJSON)
	if err != nil || !js.Empty() {
		t.Fatalf("expected empty json, got %q %v", js.Body, err)
	}
}

func TestExportGates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.service.ExportCompany(ctx, member, 7, app.FormatJSON); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if _, err := f.service.ExportCompanyUser(ctx, member, 7, member.ID, app.FormatJSON); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if _, err := f.service.QuizResults(ctx, member, 7, "0123456789abcdef01234567"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestSubscribeResultsReceivesSubmissions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	quiz := f.create(t, 2)

	if _, _, err := f.service.SubscribeResults(ctx, member, 7); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	ch, cancel, err := f.service.SubscribeResults(ctx, admin, 7)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if _, err := f.service.SubmitSolution(ctx, member, 7, quiz.ID, allAnswers(2, 1)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case got := <-ch:
		if got.UserID != member.ID || got.Result != 1 {
			t.Fatalf("unexpected feed item %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for feed item")
	}
}
