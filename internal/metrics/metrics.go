// Package metrics exposes Prometheus collectors for the grading pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Submissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_submissions_total",
		Help: "Number of graded quiz submissions",
	})

	SubmissionScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quiz_submission_score_ratio",
		Help:    "Share of correctly answered questions per submission",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	CacheWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_result_cache_write_failures_total",
		Help: "Result details that could not be cached after the row was stored",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_result_cache_misses_total",
		Help: "Result rows skipped during export because their detail expired",
	})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_reminders_sent_total",
		Help: "Repeat reminders delivered for quizzes with a frequency",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quiz_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// ObserveSubmission records one graded submission.
func ObserveSubmission(correct, total int) {
	Submissions.Inc()
	if total > 0 {
		SubmissionScore.Observe(float64(correct) / float64(total))
	}
}
