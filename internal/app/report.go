package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/metrics"
	"github.com/sirupsen/logrus"
)

// ExportFormat selects the report renderer.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// ParseExportFormat accepts "json" and "csv".
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(raw)); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// Report is a rendered export. An empty body means no cached detail matched.
type Report struct {
	Format ExportFormat
	Body   string
}

func (r Report) Empty() bool { return r.Body == "" }

var csvHeader = []string{"user", "company", "quiz", "question", "user_answer", "result"}

// ReportBuilder joins result rows with their cached details.
type ReportBuilder struct {
	results ResultRepository
	cache   ResultCache
	log     logrus.FieldLogger
}

func NewReportBuilder(results ResultRepository, cache ResultCache, log logrus.FieldLogger) *ReportBuilder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReportBuilder{results: results, cache: cache, log: log}
}

// Build renders the rows selected by filter in the given format.
func (b *ReportBuilder) Build(ctx context.Context, filter domain.ResultFilter, format ExportFormat) (Report, error) {
	switch format {
	case FormatJSON:
		body, err := b.JSON(ctx, filter)
		return Report{Format: format, Body: body}, err
	case FormatCSV:
		body, _, err := b.CSV(ctx, filter)
		return Report{Format: format, Body: body}, err
	}
	return Report{}, fmt.Errorf("unsupported export format %q", format)
}

// JSON concatenates every cached detail as an indented block. Rows without a
// cached detail are skipped.
func (b *ReportBuilder) JSON(ctx context.Context, filter domain.ResultFilter) (string, error) {
	details, err := b.details(ctx, filter)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, detail := range details {
		block, err := json.MarshalIndent(detail, "", "    ")
		if err != nil {
			return "", fmt.Errorf("encode detail: %w", err)
		}
		buf.Write(block)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

// CSV flattens cached details into one row per question. It reports false and
// an empty string when no row was produced.
func (b *ReportBuilder) CSV(ctx context.Context, filter domain.ResultFilter) (string, bool, error) {
	details, err := b.details(ctx, filter)
	if err != nil {
		return "", false, err
	}

	var rows [][]string
	for _, detail := range details {
		for _, number := range detail.QuestionNumbers() {
			q := detail.Questions[number]
			rows = append(rows, []string{
				strconv.FormatInt(detail.User, 10),
				strconv.FormatInt(detail.Company, 10),
				detail.Quiz,
				questionText(number, q.Question),
				joinInts(q.Answer),
				string(q.Result),
			})
		}
	}
	if len(rows) == 0 {
		return "", false, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", false, err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", false, err
	}
	return buf.String(), true, nil
}

func (b *ReportBuilder) details(ctx context.Context, filter domain.ResultFilter) ([]domain.ResultDetail, error) {
	rows, err := b.results.FindResults(ctx, filter)
	if err != nil {
		return nil, err
	}
	details := make([]domain.ResultDetail, 0, len(rows))
	for _, row := range rows {
		detail, ok, err := b.cache.GetDetail(ctx, row.Key())
		if err != nil {
			return nil, fmt.Errorf("read result detail %s: %w", row.Key(), err)
		}
		if !ok {
			metrics.CacheMisses.Inc()
			b.log.WithField("key", row.Key().String()).Debug("result detail expired")
			continue
		}
		details = append(details, detail)
	}
	return details, nil
}

func questionText(number string, questions []domain.Question) string {
	if len(questions) == 0 {
		return number
	}
	texts := make([]string, 0, len(questions))
	for _, q := range questions {
		texts = append(texts, q.Text)
	}
	return strings.Join(texts, "; ")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
