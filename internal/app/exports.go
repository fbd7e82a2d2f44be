package app

import (
	"context"

	"company-quiz-service/internal/domain"
)

// ExportOwn renders every result of the acting user.
func (s *QuizService) ExportOwn(ctx context.Context, user domain.User, format ExportFormat) (Report, error) {
	return s.reports.Build(ctx, domain.ResultFilter{UserID: user.ID}, format)
}

// ExportCompany renders every result submitted in a company.
func (s *QuizService) ExportCompany(ctx context.Context, user domain.User, companyID int64, format ExportFormat) (Report, error) {
	if err := s.directory.RequireRole(ctx, companyID, user.ID, domain.AdminRoles...); err != nil {
		return Report{}, err
	}
	return s.reports.Build(ctx, domain.ResultFilter{CompanyID: companyID}, format)
}

// ExportCompanyUser renders the results of one user within a company.
func (s *QuizService) ExportCompanyUser(ctx context.Context, user domain.User, companyID, userID int64, format ExportFormat) (Report, error) {
	if err := s.directory.RequireRole(ctx, companyID, user.ID, domain.AdminRoles...); err != nil {
		return Report{}, err
	}
	return s.reports.Build(ctx, domain.ResultFilter{CompanyID: companyID, UserID: userID}, format)
}

// ExportQuiz renders every result of one company quiz.
func (s *QuizService) ExportQuiz(ctx context.Context, user domain.User, companyID int64, quizID string, format ExportFormat) (Report, error) {
	if err := s.directory.RequireRole(ctx, companyID, user.ID, domain.AdminRoles...); err != nil {
		return Report{}, err
	}
	if _, err := s.companyQuizNoAnswers(ctx, companyID, quizID); err != nil {
		return Report{}, err
	}
	return s.reports.Build(ctx, domain.ResultFilter{CompanyID: companyID, QuizID: quizID}, format)
}
