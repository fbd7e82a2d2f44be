package http

import (
	"fmt"
	"net/http"

	"company-quiz-service/internal/app"
	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	service *app.QuizService
}

func NewExportHandler(service *app.QuizService) *ExportHandler {
	return &ExportHandler{service: service}
}

func (h *ExportHandler) Own(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	report, err := h.service.ExportOwn(c.Request.Context(), currentUser(c), format)
	writeReport(c, "results", report, err)
}

func (h *ExportHandler) Company(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	companyID, ok := int64Param(c, "company_id")
	if !ok {
		return
	}
	report, err := h.service.ExportCompany(c.Request.Context(), currentUser(c), companyID, format)
	writeReport(c, fmt.Sprintf("company_%d_results", companyID), report, err)
}

func (h *ExportHandler) CompanyUser(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	companyID, ok := int64Param(c, "company_id")
	if !ok {
		return
	}
	userID, ok := int64Param(c, "user_id")
	if !ok {
		return
	}
	report, err := h.service.ExportCompanyUser(c.Request.Context(), currentUser(c), companyID, userID, format)
	writeReport(c, fmt.Sprintf("company_%d_user_%d_results", companyID, userID), report, err)
}

func (h *ExportHandler) Quiz(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	companyID, ok := int64Param(c, "company_id")
	if !ok {
		return
	}
	quizID := c.Param("quiz_id")
	report, err := h.service.ExportQuiz(c.Request.Context(), currentUser(c), companyID, quizID, format)
	writeReport(c, "quiz_"+quizID+"_results", report, err)
}

func exportFormat(c *gin.Context) (app.ExportFormat, bool) {
	format, err := app.ParseExportFormat(c.DefaultQuery("format", string(app.FormatJSON)))
	if err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return format, true
}

// writeReport sends the rendered body as an attachment. An empty report is a
// 200 with an empty body.
func writeReport(c *gin.Context, name string, report app.Report, err error) {
	if err != nil {
		abortWithError(c, err)
		return
	}
	contentType := "application/json"
	if report.Format == app.FormatCSV {
		contentType = "text/csv"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", name, report.Format))
	c.Data(http.StatusOK, contentType+"; charset=utf-8", []byte(report.Body))
}
