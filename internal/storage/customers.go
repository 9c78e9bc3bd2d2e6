// internal/storage/customers.go
package storage

import (
	"context"

	"github.com/smbworks/erp-backend/internal/core"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/domain"
)

var customers = &table[domain.Customer]{
	name:        "customers",
	key:         "customer_id",
	columns:     []string{"customer_id", "name", "nip", "address", "email", "contact_person", "payment_terms_days", "active"},
	writable:    set("name", "nip", "address", "email", "contact_person", "payment_terms_days", "active"),
	filterable:  set("name", "nip", "email"),
	defaultSort: "customer_id",
	scan: func(r dal.Row) domain.Customer {
		return domain.Customer{
			CustomerID:       r.String("customer_id"),
			Name:             r.String("name"),
			NIP:              r.NullString("nip"),
			Address:          r.NullString("address"),
			Email:            r.NullString("email"),
			ContactPerson:    r.NullString("contact_person"),
			PaymentTermsDays: r.Int64("payment_terms_days"),
			Active:           r.Bool("active"),
		}
	},
}

// CustomerFields carries the columns of a create or partial update. Nil
// fields are left out.
type CustomerFields struct {
	Name             *string
	NIP              *string
	Address          *string
	Email            *string
	ContactPerson    *string
	PaymentTermsDays *int64
	Active           *bool
}

func (c CustomerFields) fields() fields {
	var f fields
	optional(&f, "name", c.Name)
	optional(&f, "nip", c.NIP)
	optional(&f, "address", c.Address)
	optional(&f, "email", c.Email)
	optional(&f, "contact_person", c.ContactPerson)
	optional(&f, "payment_terms_days", c.PaymentTermsDays)
	optional(&f, "active", c.Active)
	return f
}

func ListCustomers(ctx context.Context, q dal.Querier, opts *core.ListQueryOptions, filters map[string]string) ([]domain.Customer, error) {
	return customers.list(ctx, q, opts, filters)
}

func GetCustomer(ctx context.Context, q dal.Querier, id string) (*domain.Customer, error) {
	return customers.get(ctx, q, id)
}

// CreateCustomer inserts a customer. An existing id yields ErrConflict.
func CreateCustomer(ctx context.Context, q dal.Querier, id string, c CustomerFields) (*domain.Customer, error) {
	return customers.insert(ctx, q, keyed("customer_id", id, c.fields()))
}

func UpdateCustomer(ctx context.Context, q dal.Querier, id string, c CustomerFields) (*domain.Customer, error) {
	return customers.update(ctx, q, id, c.fields())
}

func DeleteCustomer(ctx context.Context, q dal.Querier, id string) error {
	return customers.delete(ctx, q, id)
}
