package http

import (
	"errors"
	"net/http"

	"company-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidQuizID, http.StatusBadRequest},
	{domain.ErrQuizNotFound, http.StatusNotFound},
	{domain.ErrCompanyNotFound, http.StatusNotFound},
	{domain.ErrNoAggregateData, http.StatusNotFound},
	{domain.ErrCompanyMismatch, http.StatusBadRequest},
	{domain.ErrAnswerCountMismatch, http.StatusBadRequest},
	{domain.ErrInvalidQuiz, http.StatusBadRequest},
	{domain.ErrInvalidPage, http.StatusBadRequest},
	{domain.ErrInvalidSubmission, http.StatusBadRequest},
	{domain.ErrPermissionDenied, http.StatusForbidden},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
}

func statusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// abortWithError writes {"detail": ...}. Unknown errors are hidden behind a
// generic message and attached to the context for the access log.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": msg})
}
