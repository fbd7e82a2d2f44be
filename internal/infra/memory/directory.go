package memory

import (
	"context"
	"sort"
	"sync"

	"company-quiz-service/internal/domain"
)

// Directory is an in-memory company directory for tests and local runs.
type Directory struct {
	mu        sync.RWMutex
	companies map[int64]domain.Company
	members   map[int64]map[int64]domain.Role
}

func NewDirectory() *Directory {
	return &Directory{
		companies: make(map[int64]domain.Company),
		members:   make(map[int64]map[int64]domain.Role),
	}
}

// AddCompany registers a company.
func (d *Directory) AddCompany(company domain.Company) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.companies[company.ID] = company
	if _, ok := d.members[company.ID]; !ok {
		d.members[company.ID] = make(map[int64]domain.Role)
	}
}

// AddMember sets the role of a user in a company.
func (d *Directory) AddMember(companyID, userID int64, role domain.Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.members[companyID]; !ok {
		d.members[companyID] = make(map[int64]domain.Role)
	}
	d.members[companyID][userID] = role
}

func (d *Directory) RequireRole(_ context.Context, companyID, userID int64, roles ...domain.Role) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.companies[companyID]; !ok {
		return domain.ErrCompanyNotFound
	}
	role, ok := d.members[companyID][userID]
	if !ok {
		return domain.ErrPermissionDenied
	}
	for _, allowed := range roles {
		if role == allowed {
			return nil
		}
	}
	return domain.ErrPermissionDenied
}

func (d *Directory) Company(_ context.Context, companyID int64) (domain.Company, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	company, ok := d.companies[companyID]
	if !ok {
		return domain.Company{}, domain.ErrCompanyNotFound
	}
	return company, nil
}

func (d *Directory) MemberIDs(_ context.Context, companyID int64) ([]int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]int64, 0, len(d.members[companyID]))
	for id := range d.members[companyID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
