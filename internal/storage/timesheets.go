// internal/storage/timesheets.go
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/smbworks/erp-backend/internal/core"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/domain"
)

var timesheets = &table[domain.Timesheet]{
	name:        "timesheets",
	key:         "ts_id",
	autoKey:     true,
	columns:     []string{"ts_id", "emp_id", "ts_date", "order_id", "operation_no", "hours", "notes"},
	writable:    set("emp_id", "ts_date", "order_id", "operation_no", "hours", "notes"),
	filterable:  set("emp_id", "order_id"),
	defaultSort: "ts_id",
	scan: func(r dal.Row) domain.Timesheet {
		return domain.Timesheet{
			TsID:        r.Int64("ts_id"),
			EmpID:       r.String("emp_id"),
			TsDate:      r.Time("ts_date"),
			OrderID:     r.NullString("order_id"),
			OperationNo: r.NullInt64("operation_no"),
			Hours:       r.Float64("hours"),
			Notes:       r.NullString("notes"),
		}
	},
}

// CreateTimesheet books hours. The id is assigned by the database.
func CreateTimesheet(ctx context.Context, q dal.Querier, ts domain.Timesheet) (*domain.Timesheet, error) {
	if ts.EmpID == "" {
		return nil, fmt.Errorf("%w: timesheets require emp_id", ErrInvalidField)
	}
	var f fields
	f.add("emp_id", ts.EmpID)
	optional(&f, "ts_date", ts.TsDate)
	optional(&f, "order_id", ts.OrderID)
	optional(&f, "operation_no", ts.OperationNo)
	f.add("hours", ts.Hours)
	optional(&f, "notes", ts.Notes)
	return timesheets.insert(ctx, q, f)
}

// ListTimesheets lists bookings, optionally restricted to a date range (inclusive).
func ListTimesheets(ctx context.Context, q dal.Querier, opts *core.ListQueryOptions, filters map[string]string, from, to *time.Time) ([]domain.Timesheet, error) {
	var extra []condition
	if from != nil {
		extra = append(extra, condition{sql: "ts_date >= %s", arg: *from})
	}
	if to != nil {
		extra = append(extra, condition{sql: "ts_date <= %s", arg: *to})
	}
	return timesheets.list(ctx, q, opts, filters, extra...)
}

func GetTimesheet(ctx context.Context, q dal.Querier, id int64) (*domain.Timesheet, error) {
	return timesheets.get(ctx, q, id)
}

// TimesheetFields is a partial update of a booking.
type TimesheetFields struct {
	EmpID       *string
	TsDate      *time.Time
	OrderID     *string
	OperationNo *int64
	Hours       *float64
	Notes       *string
}

func UpdateTimesheet(ctx context.Context, q dal.Querier, id int64, ts TimesheetFields) (*domain.Timesheet, error) {
	var f fields
	optional(&f, "emp_id", ts.EmpID)
	optional(&f, "ts_date", ts.TsDate)
	optional(&f, "order_id", ts.OrderID)
	optional(&f, "operation_no", ts.OperationNo)
	optional(&f, "hours", ts.Hours)
	optional(&f, "notes", ts.Notes)
	return timesheets.update(ctx, q, id, f)
}

func DeleteTimesheet(ctx context.Context, q dal.Querier, id int64) error {
	return timesheets.delete(ctx, q, id)
}
