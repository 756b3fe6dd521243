package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/export"
)

const (
	orderingParam = "ordering"
	limitParam    = "limit"
	offsetParam   = "offset"
	formatParam   = "format"
)

// bindListOptions reads ?ordering=field,-field&limit=N&offset=N.
// Unknown ordering fields are ignored by the repositories.
func bindListOptions(ctx echo.Context) (core.ListOptions, error) {
	var opts core.ListOptions
	err := echo.QueryParamsBinder(ctx).
		String(orderingParam, &opts.Ordering).
		Int(limitParam, &opts.Pagination.Limit).
		Int(offsetParam, &opts.Pagination.Offset).
		BindError()
	if err != nil {
		return core.ListOptions{}, err
	}
	if opts.Pagination.Limit < 0 || opts.Pagination.Offset < 0 {
		return core.ListOptions{}, core.NewValidationError(nil, core.FieldError{Field: limitParam, Error: "must not be negative"})
	}
	return opts, nil
}

// optionalBool binds a query param into a *bool, leaving it nil when absent.
func optionalBool(param string, dest **bool) func(values []string) []error {
	return func(values []string) []error {
		b, err := strconv.ParseBool(values[0])
		if err != nil {
			return []error{echo.NewBindingError(param, values, "invalid boolean", err)}
		}
		*dest = &b
		return nil
	}
}

// flexibleTime binds a query param given either as RFC 3339 or as YYYY-MM-DD (UTC midnight).
func flexibleTime(param string, dest *time.Time) func(values []string) []error {
	return func(values []string) []error {
		if t, err := time.Parse(time.RFC3339, values[0]); err == nil {
			*dest = t
			return nil
		}
		d, err := core.ParseDate(values[0])
		if err != nil {
			return []error{echo.NewBindingError(param, values, "invalid time", err)}
		}
		*dest = d.Time
		return nil
	}
}

func bindBody(ctx echo.Context, dest interface{}, name string) error {
	if err := ctx.Bind(dest); err != nil {
		return errors.Wrapf(err, "binding to %s", name)
	}
	return nil
}

func reqCtx(ctx echo.Context) context.Context {
	return ctx.Request().Context()
}

// listResponse never sends a JSON null for an empty list.
func listResponse[T any](ctx echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return ctx.JSON(http.StatusOK, items)
}

// exportResponse renders tbl in the requested ?format & audits the export.
func exportResponse(ctx echo.Context, tbl export.Table, name string) error {
	format := ctx.QueryParam(formatParam)
	file, err := export.Render(tbl, format, name)
	if err != nil {
		return err
	}
	setAudit(ctx, audit.ActionExport, core.JSONMap{"format": file.Mime, "rows": len(tbl.Rows)})
	return ctx.JSON(http.StatusOK, file)
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)
