package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNumberQuestions(t *testing.T) {
	quiz := Quiz{Questions: []Question{{Text: "a"}, {Text: "b", Number: 7}, {Text: "c"}}}

	quiz.NumberQuestions(false)
	got := []int{quiz.Questions[0].Number, quiz.Questions[1].Number, quiz.Questions[2].Number}
	if !reflect.DeepEqual(got, []int{1, 7, 3}) {
		t.Fatalf("expected only missing numbers filled, got %v", got)
	}

	quiz.NumberQuestions(true)
	got = []int{quiz.Questions[0].Number, quiz.Questions[1].Number, quiz.Questions[2].Number}
	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("expected sequential numbers, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	valid := Quiz{
		Name: "q",
		Questions: []Question{
			{Text: "one", Answers: []string{"a", "b"}, Number: 1},
			{Text: "two", Answers: []string{"a", "b"}, Number: 2},
		},
		CorrectAnswers: map[string][]int{"1": {0}, "2": {1}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid quiz, got %v", err)
	}

	cases := map[string]func(q *Quiz){
		"missing name":     func(q *Quiz) { q.Name = "" },
		"one option":       func(q *Quiz) { q.Questions[0].Answers = []string{"a"} },
		"duplicate number": func(q *Quiz) { q.Questions[1].Number = 1 },
		"missing answer":   func(q *Quiz) { q.CorrectAnswers = map[string][]int{"1": {0}} },
		"unknown answer":   func(q *Quiz) { q.CorrectAnswers = map[string][]int{"1": {0}, "3": {1}} },
		"single question":  func(q *Quiz) { q.Questions = q.Questions[:1]; q.CorrectAnswers = map[string][]int{"1": {0}} },
	}
	for name, mutate := range cases {
		q := valid
		q.Questions = append([]Question(nil), valid.Questions...)
		mutate(&q)
		if err := q.Validate(); !errors.Is(err, ErrInvalidQuiz) {
			t.Fatalf("%s: expected ErrInvalidQuiz, got %v", name, err)
		}
	}
}

func TestAnswerSubmissionAcceptsScalars(t *testing.T) {
	var sub AnswerSubmission
	if err := json.Unmarshal([]byte(`{"answers":{"1":2,"2":[1,3]}}`), &sub); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual([]int(sub.Answers["1"]), []int{2}) {
		t.Fatalf("expected scalar to become a list, got %v", sub.Answers["1"])
	}
	if !reflect.DeepEqual([]int(sub.Answers["2"]), []int{1, 3}) {
		t.Fatalf("expected list preserved, got %v", sub.Answers["2"])
	}

	for _, body := range []string{
		`{"answers":{"1":"x"}}`,
		`{"answers":{"1":null,"2":[1]}}`,
		`{"answers":{"1": null }}`,
		`{"answers":{"1":[1,null]}}`,
	} {
		var rejected AnswerSubmission
		err := json.Unmarshal([]byte(body), &rejected)
		if !errors.Is(err, ErrInvalidSubmission) {
			t.Fatalf("%s: expected ErrInvalidSubmission, got %v", body, err)
		}
	}
}

func TestQuizScheduleDueAt(t *testing.T) {
	last := time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC)
	days := 2
	due, ok := QuizSchedule{Frequency: &days}.DueAt(last)
	if !ok || !due.Equal(last.Add(48*time.Hour)) {
		t.Fatalf("expected due two days later, got %s %v", due, ok)
	}

	zero := 0
	for _, schedule := range []QuizSchedule{{}, {Frequency: &zero}} {
		if _, ok := schedule.DueAt(last); ok {
			t.Fatalf("expected %+v never to be due", schedule)
		}
	}
}

func TestQuestionNumbersSortNumerically(t *testing.T) {
	detail := ResultDetail{Questions: map[string]QuestionDetail{"10": {}, "2": {}, "1": {}}}
	if got := detail.QuestionNumbers(); !reflect.DeepEqual(got, []string{"1", "2", "10"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestTotalPagesAndKey(t *testing.T) {
	if TotalPages(0, 10) != 0 || TotalPages(10, 10) != 1 || TotalPages(11, 10) != 2 {
		t.Fatalf("unexpected page math")
	}
	res := QuizResult{ID: 9, QuizID: "abc", UserID: 2, CompanyID: 1, Result: 4, QuestionsOverall: 5}
	if res.Key().String() != "1:2:abc:9" {
		t.Fatalf("unexpected key %s", res.Key())
	}
	if res.Percentage() != 80 {
		t.Fatalf("expected 80%%, got %v", res.Percentage())
	}
}
