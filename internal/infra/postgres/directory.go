package postgres

import (
	"context"
	"errors"
	"fmt"

	"company-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// RoleResolver maps role names to company_role ids.
type RoleResolver interface {
	RoleID(ctx context.Context, role domain.Role) (int64, error)
}

// Directory reads companies and memberships owned by the membership subsystem.
type Directory struct {
	pool  *pgxpool.Pool
	roles RoleResolver
}

func NewDirectory(pool *pgxpool.Pool, roles RoleResolver) *Directory {
	return &Directory{pool: pool, roles: roles}
}

func (d *Directory) RequireRole(ctx context.Context, companyID, userID int64, roles ...domain.Role) error {
	if _, err := d.Company(ctx, companyID); err != nil {
		return err
	}
	ids := make([]int64, 0, len(roles))
	for _, role := range roles {
		id, err := d.roles.RoleID(ctx, role)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	var found bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM company_member WHERE company_id=$1 AND user_id=$2 AND role = ANY($3))`,
		companyID, userID, ids,
	).Scan(&found)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !found {
		return domain.ErrPermissionDenied
	}
	return nil
}

func (d *Directory) Company(ctx context.Context, companyID int64) (domain.Company, error) {
	company := domain.Company{ID: companyID}
	err := d.pool.QueryRow(ctx, `SELECT name FROM company WHERE id=$1`, companyID).Scan(&company.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Company{}, domain.ErrCompanyNotFound
	}
	if err != nil {
		return domain.Company{}, fmt.Errorf("load company: %w", err)
	}
	return company, nil
}

func (d *Directory) MemberIDs(ctx context.Context, companyID int64) ([]int64, error) {
	rows, err := d.pool.Query(ctx, `SELECT user_id FROM company_member WHERE company_id=$1 ORDER BY user_id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RoleLoader loads role ids from company_role.
type RoleLoader struct {
	pool *pgxpool.Pool
}

func NewRoleLoader(pool *pgxpool.Pool) *RoleLoader {
	return &RoleLoader{pool: pool}
}

func (l *RoleLoader) LoadRoleID(ctx context.Context, role domain.Role) (int64, error) {
	var id int64
	err := l.pool.QueryRow(ctx, `SELECT id FROM company_role WHERE name=$1`, string(role)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("load role %s: %w", role, err)
	}
	return id, nil
}
