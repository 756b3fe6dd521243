package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/export"
)

type Repository interface {
	CreateLog(ctx context.Context, log Log, exec ...core.DBExecutor) (Log, error)
	QueryLogs(ctx context.Context, filter QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]Log, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Record(ctx context.Context, log Log) (Log, error) {
	if log.Status == "" {
		log.Status = StatusSuccess
	}
	if log.Details == nil {
		log.Details = core.JSONMap{}
	}
	log.CreatedAt = core.NowFunc()
	return svc.repo.CreateLog(ctx, log)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, opts core.ListOptions) ([]Log, error) {
	filter.Module = strings.ToLower(core.CleanString(filter.Module))
	filter.Action = strings.ToUpper(core.CleanString(filter.Action))
	filter.Status = strings.ToUpper(core.CleanString(filter.Status))
	if opts.Ordering == "" {
		opts.Ordering = "-created_at"
	}
	return svc.repo.QueryLogs(ctx, filter, opts)
}

// ExportTable renders the audit trail as an export.Table.
func (svc *Service) ExportTable(ctx context.Context, filter QueryFilter) (export.Table, error) {
	logs, err := svc.Query(ctx, filter, core.ListOptions{})
	if err != nil {
		return export.Table{}, err
	}
	tbl := export.Table{
		Title:   "Audit Trail",
		Columns: []string{"Date", "User", "Module", "Action", "Status", "IP Address", "Details"},
	}
	for _, l := range logs {
		var details []string
		for k, v := range l.Details {
			details = append(details, fmt.Sprintf("%s=%v", k, v))
		}
		tbl.Rows = append(tbl.Rows, []string{
			l.CreatedAt.Format("2006-01-02 15:04:05"), l.UserName.String, l.Module, l.Action, l.Status, l.IPAddress,
			strings.Join(details, " "),
		})
	}
	return tbl, nil
}
