package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/payroll"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func TestService_lifecycle(t *testing.T) {
	c, _ := testutil.NewContainer(t)
	sch := testutil.CreateSchool(t, c, "Umoja", "UMOJA")
	testutil.CreateSession(t, c, sch.ID, "2024-2025", "2024-09-02", "2025-06-30")
	cook := testutil.CreateStaff(t, c, sch.ID, "", "EMP001", "Cook", 200_000)
	admin := testutil.CreateUser(t, c.DB, sch.ID, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	// sqlite has a single connection: a service reading through the pool while the run's
	// transaction holds it would block until this deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := c.AttendanceSvc.MarkStaff(ctx, sch.ID, admin.ID, attendance.MarkStaff{
		Date:    core.MustParseDate("2024-09-03"),
		Records: []attendance.StaffMarkItem{{StaffID: cook.ID, Status: attendance.StaffAbsent}},
	})
	require.NoError(t, err)

	run, err := c.PayrollSvc.Generate(ctx, sch.ID, admin.ID, payroll.GenerateRun{Month: "2024-09"})
	require.NoError(t, err)
	assert.Equal(t, 25, run.WorkingDays)
	require.Len(t, run.Payslips, 1)
	assert.Equal(t, int64(8_000), run.Payslips[0].LossOfPay)

	stale := run
	run, err = c.PayrollSvc.Regenerate(ctx, stale, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(192_000), run.TotalNet)

	_, err = c.PayrollSvc.Finalize(ctx, stale, admin.ID)
	require.NoError(t, err)

	t.Run("Stale drafts cannot change a finalized run", func(t *testing.T) {
		_, err := c.PayrollSvc.Regenerate(ctx, stale, admin.ID)
		assert.EqualError(t, err, "finalized payroll runs cannot be changed")
		_, err = c.PayrollSvc.Finalize(ctx, stale, admin.ID)
		assert.EqualError(t, err, "finalized payroll runs cannot be changed")
		assert.EqualError(t, c.PayrollSvc.Delete(ctx, stale), "finalized payroll runs cannot be changed")

		got, err := c.PayrollSvc.Get(ctx, sch.ID, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, payroll.StatusFinalized, got.Status)
		assert.Len(t, got.Payslips, 1)
	})

	t.Run("Delete", func(t *testing.T) {
		draft, err := c.PayrollSvc.Generate(ctx, sch.ID, admin.ID, payroll.GenerateRun{Month: "2024-10"})
		require.NoError(t, err)
		require.NoError(t, c.PayrollSvc.Delete(ctx, draft))

		_, err = c.PayrollSvc.Get(ctx, sch.ID, draft.ID)
		assert.Equal(t, payroll.ErrNotFound, err)
		payslips, err := c.PayrollSvc.StaffPayslips(ctx, sch.ID, cook.ID)
		require.NoError(t, err)
		assert.Len(t, payslips, 1, "only the finalized run's payslip is left")
	})
}
