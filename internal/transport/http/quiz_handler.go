package http

import (
	"net/http"
	"strconv"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	service *app.QuizService
}

func NewQuizHandler(service *app.QuizService) *QuizHandler {
	return &QuizHandler{service: service}
}

func (h *QuizHandler) List(c *gin.Context) {
	page, err1 := strconv.Atoi(c.Query("page"))
	perPage, err2 := strconv.Atoi(c.Query("per_page"))
	if err1 != nil || err2 != nil {
		badRequest(c, "page and per_page are required integers")
		return
	}
	result, err := h.service.ListQuizzes(c.Request.Context(), page, perPage)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *QuizHandler) ListCompany(c *gin.Context) {
	companyID, ok := int64Param(c, "company_id")
	if !ok {
		return
	}
	quizzes, err := h.service.ListCompanyQuizzes(c.Request.Context(), companyID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.QuizSummary{}
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *QuizHandler) Create(c *gin.Context) {
	companyID, ok := int64Param(c, "company_id")
	if !ok {
		return
	}
	var quiz domain.Quiz
	if err := c.ShouldBindJSON(&quiz); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := h.service.CreateQuiz(c.Request.Context(), currentUser(c), companyID, quiz)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *QuizHandler) Get(c *gin.Context) {
	companyID, ok := int64Param(c, "company_id")
	if !ok {
		return
	}
	quiz, err := h.service.GetQuiz(c.Request.Context(), companyID, c.Param("quiz_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) GetWithAnswers(c *gin.Context) {
	companyID, ok := int64Param(c, "company_id")
	if !ok {
		return
	}
	quiz, err := h.service.GetQuizWithAnswers(c.Request.Context(), currentUser(c), companyID, c.Param("quiz_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) Update(c *gin.Context) {
	companyID, ok := int64Param(c, "company_id")
	if !ok {
		return
	}
	var quiz domain.Quiz
	if err := c.ShouldBindJSON(&quiz); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := h.service.UpdateQuiz(c.Request.Context(), currentUser(c), companyID, c.Param("quiz_id"), quiz)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *QuizHandler) Delete(c *gin.Context) {
	companyID, ok := int64Param(c, "company_id")
	if !ok {
		return
	}
	if err := h.service.DeleteQuiz(c.Request.Context(), currentUser(c), companyID, c.Param("quiz_id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuizHandler) Submit(c *gin.Context) {
	companyID, ok := int64Param(c, "company_id")
	if !ok {
		return
	}
	var submission domain.AnswerSubmission
	if err := c.ShouldBindJSON(&submission); err != nil {
		abortWithError(c, domain.ErrInvalidSubmission)
		return
	}
	result, err := h.service.SubmitSolution(c.Request.Context(), currentUser(c), companyID, c.Param("quiz_id"), submission)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}
