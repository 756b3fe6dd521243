package school

import (
	"context"

	"github.com/trezcool/shule/core"
)

var (
	ErrNotFound   = core.NewNotFoundError("school")
	ErrCodeExists = core.NewConflictError("code", "a school with this code already exists")
)

type Repository interface {
	CreateSchool(ctx context.Context, sch School, exec ...core.DBExecutor) (School, error)
	QuerySchools(ctx context.Context, filter QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]School, error)
	GetSchool(ctx context.Context, id string, exec ...core.DBExecutor) (School, error)
	UpdateSchool(ctx context.Context, sch School, exec ...core.DBExecutor) (School, error)
	DeleteSchool(ctx context.Context, id, deletedBy string, exec ...core.DBExecutor) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	now := core.NowFunc()
	return svc.repo.CreateSchool(ctx, School{
		Name:      ns.Name,
		Code:      ns.Code,
		Address:   ns.Address,
		Phone:     ns.Phone,
		Email:     ns.Email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, opts core.ListOptions) ([]School, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QuerySchools(ctx, filter, opts)
}

func (svc *Service) Get(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchool(ctx, id)
}

func (svc *Service) Update(ctx context.Context, sch School, us UpdateSchool) (School, error) {
	if us.Name != "" {
		sch.Name = us.Name
	}
	if us.Code != "" {
		sch.Code = us.Code
	}
	if us.Address != "" {
		sch.Address = us.Address
	}
	if us.Phone != "" {
		sch.Phone = us.Phone
	}
	if us.Email != "" {
		sch.Email = us.Email
	}
	if us.IsActive != nil {
		sch.IsActive = *us.IsActive
	}
	sch.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateSchool(ctx, sch)
}

func (svc *Service) Delete(ctx context.Context, id, deletedBy string) error {
	return svc.repo.DeleteSchool(ctx, id, deletedBy)
}
