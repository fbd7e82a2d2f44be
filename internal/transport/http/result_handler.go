package http

import (
	"net/http"
	"strconv"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type ResultHandler struct {
	service *app.QuizService
}

func NewResultHandler(service *app.QuizService) *ResultHandler {
	return &ResultHandler{service: service}
}

type averageResponse struct {
	Average float64 `json:"average"`
}

func (h *ResultHandler) Average(c *gin.Context) {
	var filter app.AverageFilter
	if raw := c.Query("company_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid company_id")
			return
		}
		filter.CompanyID = id
	}
	if raw := c.Query("max_day"); raw != "" {
		day, err := parseMaxDay(raw)
		if err != nil {
			badRequest(c, "max_day must be YYYY-MM-DD or RFC 3339")
			return
		}
		filter.MaxDay = day
	}
	avg, err := h.service.AverageMark(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, averageResponse{Average: avg})
}

func (h *ResultHandler) Mine(c *gin.Context) {
	rows, err := h.service.UserResults(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(rows))
}

// ForQuiz needs company_id as a query parameter to check the admin role.
func (h *ResultHandler) ForQuiz(c *gin.Context) {
	companyID, err := strconv.ParseInt(c.Query("company_id"), 10, 64)
	if err != nil {
		badRequest(c, "company_id is required")
		return
	}
	rows, err := h.service.QuizResults(c.Request.Context(), currentUser(c), companyID, c.Param("quiz_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(rows))
}

// parseMaxDay accepts a date, meaning the whole day inclusive, or a timestamp.
func parseMaxDay(raw string) (time.Time, error) {
	if day, err := time.Parse(time.DateOnly, raw); err == nil {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func nonNil(rows []domain.QuizResult) []domain.QuizResult {
	if rows == nil {
		return []domain.QuizResult{}
	}
	return rows
}
