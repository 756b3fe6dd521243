package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/staff"
)

func TestComputePayslip(t *testing.T) {
	stf := staff.Staff{ID: "s1", Name: "Jane", EmployeeNo: "E01", MonthlySalary: 200000, Allowances: 20000, Deductions: 10000}

	tests := []struct {
		name        string
		workingDays int
		unpaid      float64
		wantLOP     int64
		wantNet     int64
		wantPaid    float64
	}{
		{name: "full attendance", workingDays: 22, unpaid: 0, wantLOP: 0, wantNet: 210000, wantPaid: 22},
		{name: "two absences", workingDays: 22, unpaid: 2, wantLOP: 20000, wantNet: 190000, wantPaid: 20},
		{name: "half day", workingDays: 20, unpaid: .5, wantLOP: 5500, wantNet: 204500, wantPaid: 19.5},
		{name: "no working days", workingDays: 0, unpaid: 3, wantLOP: 0, wantNet: 210000, wantPaid: 0},
		{name: "absent all month", workingDays: 20, unpaid: 25, wantLOP: 220000, wantNet: 0, wantPaid: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := computePayslip(stf, tt.workingDays, tt.unpaid)
			assert.Equal(t, int64(220000), ps.Gross)
			assert.Equal(t, tt.wantLOP, ps.LossOfPay)
			assert.Equal(t, tt.wantNet, ps.Net)
			assert.Equal(t, tt.wantPaid, ps.PaidDays)
		})
	}
}

func TestMonthRange(t *testing.T) {
	from, to, err := monthRange("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", from.String())
	assert.Equal(t, "2024-02-29", to.String())

	_, _, err = monthRange("2024-13")
	assert.Equal(t, errInvalidMonth, err)
}
