package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Role names used by the company directory.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

var (
	// AdminRoles may author quizzes and read company-wide reports.
	AdminRoles = []Role{RoleOwner, RoleAdmin}
	// MemberRoles may read and solve company quizzes.
	MemberRoles = []Role{RoleOwner, RoleAdmin, RoleMember}
)

// User is the acting identity handed over by the identity provider.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Company is the subset of company data the pipeline needs.
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Question is embedded in a quiz. Number is 1-based and unique within the quiz.
type Question struct {
	Text    string   `json:"text" bson:"text"`
	Answers []string `json:"answers" bson:"answers"`
	Number  int      `json:"number,omitempty" bson:"number,omitempty"`
}

// Quiz is the document stored in the quiz store.
type Quiz struct {
	ID              string           `json:"_id,omitempty" bson:"-"`
	Name            string           `json:"name" bson:"name"`
	Description     string           `json:"description" bson:"description"`
	Questions       []Question       `json:"questions" bson:"questions"`
	CorrectAnswers  map[string][]int `json:"correct_answers,omitempty" bson:"correct_answers,omitempty"`
	CompanyID       int64            `json:"company_id" bson:"company_id"`
	CreatedByUserID int64            `json:"created_by_user_id" bson:"created_by_user_id"`
	CreatedAt       string           `json:"created_at" bson:"created_at"`
	Frequency       *int             `json:"frequency,omitempty" bson:"frequency,omitempty"`
}

// QuizSummary is the id/name projection returned for company listings.
type QuizSummary struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// QuizPage is one page of a quiz listing.
type QuizPage struct {
	Documents  []Quiz `json:"documents"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	TotalPages int    `json:"total_pages"`
	TotalCount int64  `json:"total_count"`
}

// TotalPages returns ceil(total/perPage).
func TotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// NumberQuestions assigns 1-based numbers in list order. With overwrite set
// every question is renumbered, otherwise only questions without a number.
func (q *Quiz) NumberQuestions(overwrite bool) {
	for i := range q.Questions {
		if overwrite || q.Questions[i].Number == 0 {
			q.Questions[i].Number = i + 1
		}
	}
}

// Validate checks the structural invariants of a quiz definition.
func (q Quiz) Validate() error {
	if q.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidQuiz)
	}
	if len(q.Questions) < 2 {
		return fmt.Errorf("%w: at least 2 questions are required", ErrInvalidQuiz)
	}
	numbers := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if question.Number < 1 {
			return fmt.Errorf("%w: question %q has no number", ErrInvalidQuiz, question.Text)
		}
		if len(question.Answers) < 2 {
			return fmt.Errorf("%w: question %d needs at least 2 answers", ErrInvalidQuiz, question.Number)
		}
		key := strconv.Itoa(question.Number)
		if _, dup := numbers[key]; dup {
			return fmt.Errorf("%w: duplicate question number %d", ErrInvalidQuiz, question.Number)
		}
		numbers[key] = struct{}{}
	}
	if len(q.CorrectAnswers) != len(numbers) {
		return fmt.Errorf("%w: correct_answers must have one entry per question", ErrInvalidQuiz)
	}
	for key := range q.CorrectAnswers {
		if _, ok := numbers[key]; !ok {
			return fmt.Errorf("%w: correct_answers references unknown question %s", ErrInvalidQuiz, key)
		}
	}
	return nil
}

// QuestionsNumbered returns the questions carrying the given number.
func (q Quiz) QuestionsNumbered(number string) []Question {
	var out []Question
	for _, question := range q.Questions {
		if strconv.Itoa(question.Number) == number {
			out = append(out, question)
		}
	}
	return out
}

// OptionSet is a list of selected option indices. It decodes from either a
// JSON array or a single integer. null is rejected, also inside the array.
type OptionSet []int

var jsonNull = []byte("null")

func (o *OptionSet) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return fmt.Errorf("%w: answer must not be null", ErrInvalidSubmission)
	}
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		*o = OptionSet{single}
		return nil
	}
	var many []*int
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("%w: answer must be an integer or a list of integers", ErrInvalidSubmission)
	}
	set := make(OptionSet, 0, len(many))
	for _, option := range many {
		if option == nil {
			return fmt.Errorf("%w: answer must not contain null", ErrInvalidSubmission)
		}
		set = append(set, *option)
	}
	*o = set
	return nil
}

// AnswerSubmission maps question numbers to selected option indices.
type AnswerSubmission struct {
	Answers map[string]OptionSet `json:"answers"`
}

// QuizResult is the persisted summary of one submission.
type QuizResult struct {
	ID               int64     `json:"id"`
	QuizID           string    `json:"quiz_id"`
	UserID           int64     `json:"user_id"`
	CompanyID        int64     `json:"company_id"`
	Result           int       `json:"result"`
	QuestionsOverall int       `json:"questions_overall"`
	QuizDate         time.Time `json:"quiz_date"`
}

// Percentage is result/questions_overall*100, zero when there were no questions.
func (r QuizResult) Percentage() float64 {
	if r.QuestionsOverall == 0 {
		return 0
	}
	return float64(r.Result) / float64(r.QuestionsOverall) * 100
}

// Key returns the cache key under which the detail of this result lives.
func (r QuizResult) Key() ResultKey {
	return ResultKey{CompanyID: r.CompanyID, UserID: r.UserID, QuizID: r.QuizID, ResultID: r.ID}
}

// ResultFilter selects result rows. Zero values are ignored.
type ResultFilter struct {
	UserID    int64
	CompanyID int64
	QuizID    string
	// Before bounds quiz_date from above (inclusive) when non-zero.
	Before time.Time
}

// ResultKey identifies a cached result detail.
type ResultKey struct {
	CompanyID int64
	UserID    int64
	QuizID    string
	ResultID  int64
}

func (k ResultKey) String() string {
	return fmt.Sprintf("%d:%d:%s:%d", k.CompanyID, k.UserID, k.QuizID, k.ResultID)
}

// Verdict is the grading outcome of one question.
type Verdict string

const (
	VerdictRight Verdict = "right"
	VerdictWrong Verdict = "wrong"
)

// QuestionDetail is the per-question part of a cached result detail.
type QuestionDetail struct {
	Question []Question `json:"question"`
	Answer   []int      `json:"answer"`
	Result   Verdict    `json:"result"`
}

// ResultDetail is the breakdown of a graded submission kept in the result cache.
type ResultDetail struct {
	User      int64                     `json:"user"`
	Company   int64                     `json:"company"`
	Quiz      string                    `json:"quiz"`
	Questions map[string]QuestionDetail `json:"questions"`
}

// QuestionNumbers returns the detail keys in numeric order; non-numeric keys sort last.
func (d ResultDetail) QuestionNumbers() []string {
	keys := make([]string, 0, len(d.Questions))
	for k := range d.Questions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}

// LastAttempt is the latest submission of a user for one quiz of a company.
type LastAttempt struct {
	UserID      int64
	CompanyID   int64
	QuizID      string
	LastAttempt time.Time
}

// QuizSchedule is the repeat schedule of a quiz. Frequency is in days;
// nil or non-positive means the quiz is never repeated.
type QuizSchedule struct {
	ID        string `json:"_id" bson:"-"`
	Name      string `json:"name" bson:"name"`
	Frequency *int   `json:"frequency,omitempty" bson:"frequency,omitempty"`
}

// DueAt returns when the quiz should be repeated after the given attempt.
func (s QuizSchedule) DueAt(last time.Time) (time.Time, bool) {
	if s.Frequency == nil || *s.Frequency <= 0 {
		return time.Time{}, false
	}
	return last.Add(time.Duration(*s.Frequency) * 24 * time.Hour), true
}

// Notification is a message addressed to one company member.
type Notification struct {
	UserID    int64  `json:"user_id"`
	CompanyID int64  `json:"company_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// QuizFilter narrows a quiz listing. Zero values are ignored.
type QuizFilter struct {
	CompanyID int64
}
