package app

import (
	"company-quiz-service/internal/domain"
)

// Grading is the outcome of grading one submission.
type Grading struct {
	Verdicts map[string]domain.Verdict
	Correct  int
	// Total is the question count of the quiz, used as the denominator.
	Total     int
	Questions map[string]domain.QuestionDetail
}

// Grade compares each submitted option set with the stored correct answers.
// Comparison is by set, so order and duplicates do not matter. It does no I/O
// and does not modify its inputs.
func Grade(quiz domain.Quiz, submission domain.AnswerSubmission) (Grading, error) {
	if len(quiz.CorrectAnswers) != len(submission.Answers) {
		return Grading{}, domain.ErrAnswerCountMismatch
	}

	g := Grading{
		Verdicts:  make(map[string]domain.Verdict, len(submission.Answers)),
		Total:     len(quiz.Questions),
		Questions: make(map[string]domain.QuestionDetail, len(submission.Answers)),
	}
	for number, answer := range submission.Answers {
		verdict := domain.VerdictWrong
		if expected, ok := quiz.CorrectAnswers[number]; ok && sameSet(expected, answer) {
			verdict = domain.VerdictRight
			g.Correct++
		}
		g.Verdicts[number] = verdict
		g.Questions[number] = domain.QuestionDetail{
			Question: quiz.QuestionsNumbered(number),
			Answer:   append([]int(nil), answer...),
			Result:   verdict,
		}
	}
	return g, nil
}

func sameSet(a, b []int) bool {
	left := toSet(a)
	right := toSet(b)
	if len(left) != len(right) {
		return false
	}
	for v := range left {
		if _, ok := right[v]; !ok {
			return false
		}
	}
	return true
}

func toSet(values []int) map[int]struct{} {
	set := make(map[int]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
