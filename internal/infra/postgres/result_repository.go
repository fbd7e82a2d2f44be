package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"company-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenBun opens a bun handle over pgdriver for the given DSN.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type quizResultRow struct {
	bun.BaseModel `bun:"table:quiz_result,alias:qr"`

	ID               int64     `bun:"id,pk,autoincrement"`
	QuizID           string    `bun:"quiz_id,notnull"`
	UserID           int64     `bun:"user_id,notnull"`
	CompanyID        int64     `bun:"company_id,notnull"`
	Result           int       `bun:"result,notnull"`
	QuestionsOverall int       `bun:"questions_overall,notnull"`
	QuizDate         time.Time `bun:"quiz_date,notnull,default:current_timestamp"`
}

func (r quizResultRow) toDomain() domain.QuizResult {
	return domain.QuizResult{
		ID:               r.ID,
		QuizID:           r.QuizID,
		UserID:           r.UserID,
		CompanyID:        r.CompanyID,
		Result:           r.Result,
		QuestionsOverall: r.QuestionsOverall,
		QuizDate:         r.QuizDate,
	}
}

// ResultRepository stores one quiz_result row per submission.
type ResultRepository struct {
	db *bun.DB
}

func NewResultRepository(db *bun.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) CreateResult(ctx context.Context, result *domain.QuizResult) error {
	row := &quizResultRow{
		QuizID:           result.QuizID,
		UserID:           result.UserID,
		CompanyID:        result.CompanyID,
		Result:           result.Result,
		QuestionsOverall: result.QuestionsOverall,
		QuizDate:         result.QuizDate,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("id, quiz_date").Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	result.ID = row.ID
	result.QuizDate = row.QuizDate
	return nil
}

// FindResults returns matching rows in id order.
func (r *ResultRepository) FindResults(ctx context.Context, filter domain.ResultFilter) ([]domain.QuizResult, error) {
	var rows []quizResultRow
	q := r.db.NewSelect().Model(&rows).OrderExpr("qr.id ASC")
	applyFilter(q, filter)
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select quiz results: %w", err)
	}
	out := make([]domain.QuizResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ResultRepository) SumResults(ctx context.Context, filter domain.ResultFilter) (int64, int64, error) {
	var correct, overall int64
	if err := sumQuery(r.db, filter).Scan(ctx, &correct, &overall); err != nil {
		return 0, 0, fmt.Errorf("sum quiz results: %w", err)
	}
	return correct, overall, nil
}

type lastAttemptRow struct {
	UserID      int64     `bun:"user_id"`
	QuizID      string    `bun:"quiz_id"`
	CompanyID   int64     `bun:"company_id"`
	LastAttempt time.Time `bun:"last_attempt"`
}

// LastAttempts returns max(quiz_date) per (user, quiz, company).
func (r *ResultRepository) LastAttempts(ctx context.Context) ([]domain.LastAttempt, error) {
	var rows []lastAttemptRow
	if err := lastAttemptsQuery(r.db).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("select last attempts: %w", err)
	}
	out := make([]domain.LastAttempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.LastAttempt{
			UserID:      row.UserID,
			CompanyID:   row.CompanyID,
			QuizID:      row.QuizID,
			LastAttempt: row.LastAttempt,
		})
	}
	return out, nil
}

func sumQuery(db bun.IDB, filter domain.ResultFilter) *bun.SelectQuery {
	q := db.NewSelect().
		Model((*quizResultRow)(nil)).
		ColumnExpr("COALESCE(SUM(qr.result), 0)").
		ColumnExpr("COALESCE(SUM(qr.questions_overall), 0)")
	applyFilter(q, filter)
	return q
}

func lastAttemptsQuery(db bun.IDB) *bun.SelectQuery {
	return db.NewSelect().
		Model((*quizResultRow)(nil)).
		ColumnExpr("qr.user_id, qr.quiz_id, qr.company_id").
		ColumnExpr("MAX(qr.quiz_date) AS last_attempt").
		GroupExpr("qr.user_id, qr.quiz_id, qr.company_id").
		OrderExpr("qr.user_id, qr.quiz_id, qr.company_id")
}

func applyFilter(q *bun.SelectQuery, filter domain.ResultFilter) {
	if filter.UserID != 0 {
		q.Where("qr.user_id = ?", filter.UserID)
	}
	if filter.CompanyID != 0 {
		q.Where("qr.company_id = ?", filter.CompanyID)
	}
	if filter.QuizID != "" {
		q.Where("qr.quiz_id = ?", filter.QuizID)
	}
	if !filter.Before.IsZero() {
		q.Where("qr.quiz_date <= ?", filter.Before)
	}
}
