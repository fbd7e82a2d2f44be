package http

import (
	"net/http"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Service        *app.QuizService
	Verifier       *auth.Verifier
	Logger         logrus.FieldLogger
	AllowedOrigins []string
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Content-Length", "Authorization", "Accept", "Origin", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if allowsAny(cfg.AllowedOrigins) {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(cfg.Logger), observe())
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	quizzes := NewQuizHandler(cfg.Service)
	results := NewResultHandler(cfg.Service)
	exports := NewExportHandler(cfg.Service)
	feed := NewWSHandler(cfg.Service, cfg.Logger)

	authed := r.Group("/", authenticate(cfg.Verifier))
	{
		q := authed.Group("/quizzes")
		q.GET("", quizzes.List)
		q.GET("/:company_id", quizzes.ListCompany)
		q.POST("/:company_id", quizzes.Create)
		q.GET("/:company_id/:quiz_id", quizzes.Get)
		q.GET("/:company_id/:quiz_id/answers", quizzes.GetWithAnswers)
		q.PUT("/:company_id/:quiz_id", quizzes.Update)
		q.DELETE("/:company_id/:quiz_id", quizzes.Delete)
		q.POST("/:company_id/:quiz_id/solution", quizzes.Submit)

		res := authed.Group("/results")
		res.GET("/me", results.Mine)
		res.GET("/me/average", results.Average)
		res.GET("/quiz/:quiz_id", results.ForQuiz)

		ex := authed.Group("/exports")
		ex.GET("/me", exports.Own)
		ex.GET("/companies/:company_id", exports.Company)
		ex.GET("/companies/:company_id/users/:user_id", exports.CompanyUser)
		ex.GET("/companies/:company_id/quizzes/:quiz_id", exports.Quiz)

		authed.GET("/ws/companies/:company_id/results", feed.ServeResults)
	}
	return r
}

func allowsAny(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
