package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/fee"
	"github.com/trezcool/shule/core/user"
)

func (s *server) registerFeeAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	readers := requireRoles(user.RoleAdmin, user.RoleParent, user.RoleStudent)

	fg := v1.Group("/fees", append(auth, s.tenantMiddleware(true), s.auditMiddleware("fees"))...)
	fg.GET("/structures", s.queryFeeStructures, readers)
	fg.GET("/structures/:id", s.retrieveFeeStructure, readers)
	fg.GET("/structures/:id/history", s.feeStructureHistory, readers)
	fg.POST("/structures", s.createFeeStructure, adminMiddleware())
	fg.POST("/structures/:id/revise", s.reviseFeeStructure, adminMiddleware())
	fg.DELETE("/structures/:id", s.destroyFeeStructure, adminMiddleware())

	fg.GET("/payments", s.queryFeePayments, readers)
	fg.GET("/payments/export", s.exportFeePayments, adminMiddleware())
	fg.GET("/payments/:id", s.retrieveFeePayment, readers)
	fg.POST("/payments", s.recordFeePayment, adminMiddleware())
	fg.GET("/balance/:id", s.feeBalance, readers)
}

// Structures

func (s *server) createFeeStructure(ctx echo.Context) error {
	var data fee.NewStructure
	if err := bindBody(ctx, &data, "NewStructure"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	usr, _ := getContextUser(ctx)
	fs, err := s.opts.FeeSvc.CreateStructure(reqCtx(ctx), getContextSchool(ctx), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating fee structure")
	}
	return ctx.JSON(http.StatusCreated, fs)
}

func (s *server) queryFeeStructures(ctx echo.Context) error {
	filter := fee.StructureFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("class_id", &filter.ClassID).
		String("status", &filter.Status).
		String("search", &filter.Search).
		String("root_id", &filter.RootID).
		BindError()
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	structures, err := s.opts.FeeSvc.QueryStructures(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying fee structures")
	}
	return listResponse(ctx, structures)
}

func (s *server) retrieveFeeStructure(ctx echo.Context) error {
	fs, err := s.opts.FeeSvc.GetStructure(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting fee structure")
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (s *server) feeStructureHistory(ctx echo.Context) error {
	fs, err := s.opts.FeeSvc.GetStructure(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting fee structure")
	}
	versions, err := s.opts.FeeSvc.History(reqCtx(ctx), fs)
	if err != nil {
		return errors.Wrap(err, "querying fee structure history")
	}
	return listResponse(ctx, versions)
}

func (s *server) reviseFeeStructure(ctx echo.Context) error {
	fs, err := s.opts.FeeSvc.GetStructure(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting fee structure")
	}
	var data fee.ReviseStructure
	if err = bindBody(ctx, &data, "ReviseStructure"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}
	setAudit(ctx, audit.ActionRevise, core.JSONMap{"version": fs.Version})

	usr, _ := getContextUser(ctx)
	revised, err := s.opts.FeeSvc.Revise(reqCtx(ctx), fs, usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "revising fee structure")
	}
	return ctx.JSON(http.StatusCreated, revised)
}

func (s *server) destroyFeeStructure(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.FeeSvc.DeleteStructure(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting fee structure")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Payments

func (s *server) recordFeePayment(ctx echo.Context) error {
	var data fee.NewPayment
	if err := bindBody(ctx, &data, "NewPayment"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	usr, _ := getContextUser(ctx)
	pmt, err := s.opts.FeeSvc.RecordPayment(reqCtx(ctx), getContextSchool(ctx), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

// bindPaymentFilter reads the payment filters. Parents & students must ask for a ?student_id they can see.
func (s *server) bindPaymentFilter(ctx echo.Context) (fee.PaymentFilter, error) {
	filter := fee.PaymentFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("student_id", &filter.StudentID).
		String("fee_structure_id", &filter.FeeStructureID).
		String("method", &filter.Method).
		BindUnmarshaler("from", &filter.From).
		BindUnmarshaler("to", &filter.To).
		BindError()
	if err != nil {
		return filter, err
	}

	if usr, _ := getContextUser(ctx); !usr.IsAdmin() {
		if filter.StudentID == "" {
			return filter, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "this field is required"})
		}
		if _, err = s.getVisibleStudent(ctx, filter.StudentID); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

func (s *server) queryFeePayments(ctx echo.Context) error {
	filter, err := s.bindPaymentFilter(ctx)
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	payments, err := s.opts.FeeSvc.QueryPayments(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return listResponse(ctx, payments)
}

func (s *server) exportFeePayments(ctx echo.Context) error {
	filter, err := s.bindPaymentFilter(ctx)
	if err != nil {
		return err
	}
	tbl, err := s.opts.FeeSvc.ExportPayments(reqCtx(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "exporting payments")
	}
	return exportResponse(ctx, tbl, "payments")
}

func (s *server) retrieveFeePayment(ctx echo.Context) error {
	pmt, err := s.opts.FeeSvc.GetPayment(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payment")
	}
	if usr, _ := getContextUser(ctx); !usr.IsAdmin() {
		if _, err = s.getVisibleStudent(ctx, pmt.StudentID); err != nil {
			return err
		}
	}
	return ctx.JSON(http.StatusOK, pmt)
}

// feeBalance reports what the :id student owes.
func (s *server) feeBalance(ctx echo.Context) error {
	std, err := s.getVisibleStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	bal, err := s.opts.FeeSvc.Balance(reqCtx(ctx), std.SchoolID, std.ID)
	if err != nil {
		return errors.Wrap(err, "computing balance")
	}
	return ctx.JSON(http.StatusOK, bal)
}
