// internal/storage/employees.go
package storage

import (
	"context"

	"github.com/smbworks/erp-backend/internal/core"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/domain"
)

var employees = &table[domain.Employee]{
	name:        "employees",
	key:         "emp_id",
	columns:     []string{"emp_id", "name", "role", "hourly_rate"},
	writable:    set("name", "role", "hourly_rate"),
	filterable:  set("name", "role"),
	defaultSort: "emp_id",
	scan: func(r dal.Row) domain.Employee {
		return domain.Employee{
			EmpID:      r.String("emp_id"),
			Name:       r.String("name"),
			Role:       r.NullString("role"),
			HourlyRate: r.Float64("hourly_rate"),
		}
	},
}

type EmployeeFields struct {
	Name       *string
	Role       *string
	HourlyRate *float64
}

func (e EmployeeFields) fields() fields {
	var f fields
	optional(&f, "name", e.Name)
	optional(&f, "role", e.Role)
	optional(&f, "hourly_rate", e.HourlyRate)
	return f
}

func ListEmployees(ctx context.Context, q dal.Querier, opts *core.ListQueryOptions, filters map[string]string) ([]domain.Employee, error) {
	return employees.list(ctx, q, opts, filters)
}

func GetEmployee(ctx context.Context, q dal.Querier, id string) (*domain.Employee, error) {
	return employees.get(ctx, q, id)
}

func CreateEmployee(ctx context.Context, q dal.Querier, id string, e EmployeeFields) (*domain.Employee, error) {
	return employees.insert(ctx, q, keyed("emp_id", id, e.fields()))
}

func UpdateEmployee(ctx context.Context, q dal.Querier, id string, e EmployeeFields) (*domain.Employee, error) {
	return employees.update(ctx, q, id, e.fields())
}

func DeleteEmployee(ctx context.Context, q dal.Querier, id string) error {
	return employees.delete(ctx, q, id)
}
