package domain

import "errors"

var (
	// ErrInvalidQuizID is returned when a quiz id is not a valid store key. It is
	// always checked before existence.
	ErrInvalidQuizID = errors.New("invalid quiz id")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrCompanyMismatch is returned when the quiz belongs to another company.
	ErrCompanyMismatch = errors.New("quiz not connected to company")
	// ErrAnswerCountMismatch is returned when a submission does not answer as
	// many questions as the quiz has.
	ErrAnswerCountMismatch = errors.New("incorrect number of answers")
	// ErrNoAggregateData is returned when there is nothing to average.
	ErrNoAggregateData = errors.New("no results to aggregate")
	// ErrInvalidQuiz indicates a quiz definition breaks its invariants.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrInvalidSubmission indicates a malformed answer body.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrInvalidPage indicates page or per_page below 1.
	ErrInvalidPage = errors.New("page and per_page must be greater than 0")

	ErrCompanyNotFound  = errors.New("company does not exist")
	ErrPermissionDenied = errors.New("you do not have permission to access this resource")
	ErrUnauthenticated  = errors.New("not authenticated")
)
