// internal/storage/orders.go
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/smbworks/erp-backend/internal/core"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/domain"
)

var orders = &table[domain.Order]{
	name:        "orders",
	key:         "order_id",
	columns:     []string{"order_id", "order_date", "customer_id", "status", "due_date", "contact_person"},
	writable:    set("order_date", "customer_id", "status", "due_date", "contact_person"),
	filterable:  set("customer_id", "status"),
	defaultSort: "order_id",
	scan: func(r dal.Row) domain.Order {
		return domain.Order{
			OrderID:       r.String("order_id"),
			OrderDate:     r.Time("order_date"),
			CustomerID:    r.String("customer_id"),
			Status:        r.String("status"),
			DueDate:       r.Time("due_date"),
			ContactPerson: r.NullString("contact_person"),
		}
	},
}

type OrderFields struct {
	OrderDate     *time.Time
	CustomerID    *string
	Status        *string
	DueDate       *time.Time
	ContactPerson *string
}

func (o OrderFields) fields() fields {
	var f fields
	optional(&f, "order_date", o.OrderDate)
	optional(&f, "customer_id", o.CustomerID)
	optional(&f, "status", o.Status)
	optional(&f, "due_date", o.DueDate)
	optional(&f, "contact_person", o.ContactPerson)
	return f
}

func ListOrders(ctx context.Context, q dal.Querier, opts *core.ListQueryOptions, filters map[string]string) ([]domain.Order, error) {
	return orders.list(ctx, q, opts, filters)
}

// GetOrder returns the order with its lines.
func GetOrder(ctx context.Context, q dal.Querier, id string) (*domain.Order, error) {
	order, err := orders.get(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if order.Lines, err = ListOrderLines(ctx, q, id); err != nil {
		return nil, err
	}
	return order, nil
}

// CreateOrder inserts an order. A repeated order id is skipped and reported as ErrConflict.
func CreateOrder(ctx context.Context, q dal.Querier, id string, o OrderFields) (*domain.Order, error) {
	if o.CustomerID == nil {
		return nil, fmt.Errorf("%w: orders require customer_id", ErrInvalidField)
	}
	return orders.insert(ctx, q, keyed("order_id", id, o.fields()))
}

func UpdateOrder(ctx context.Context, q dal.Querier, id string, o OrderFields) (*domain.Order, error) {
	return orders.update(ctx, q, id, o.fields())
}

// DeleteOrder removes an order; its lines go with it.
func DeleteOrder(ctx context.Context, q dal.Querier, id string) error {
	return orders.delete(ctx, q, id)
}

// --- Order lines ---

const orderLineColumns = "order_id, line_no, product_id, qty, unit_price, discount_pct, graphic_id"

var insertOrderLine = dal.Statement{
	SQL: `INSERT INTO order_lines (order_id, line_no, product_id, qty, unit_price, discount_pct, graphic_id)
		VALUES (%s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT (order_id, line_no) DO NOTHING
		RETURNING ` + orderLineColumns,
	Target: &dal.Target{Table: "order_lines", Op: dal.OpInsert, Keys: []dal.Key{
		{Column: "order_id", Param: 0},
		{Column: "line_no", Param: 1},
	}},
}

var deleteOrderLine = dal.Statement{
	SQL: "DELETE FROM order_lines WHERE order_id = %s AND line_no = %s RETURNING order_id",
	Target: &dal.Target{Table: "order_lines", Op: dal.OpDelete, Keys: []dal.Key{
		{Column: "order_id", Param: 0},
		{Column: "line_no", Param: 1},
	}},
}

func scanOrderLine(r dal.Row) domain.OrderLine {
	return domain.OrderLine{
		OrderID:     r.String("order_id"),
		LineNo:      r.Int64("line_no"),
		ProductID:   r.String("product_id"),
		Qty:         r.Float64("qty"),
		UnitPrice:   r.Float64("unit_price"),
		DiscountPct: r.Float64("discount_pct"),
		GraphicID:   r.NullString("graphic_id"),
	}
}

// CreateOrderLine adds a line to an order. A taken line number yields ErrConflict.
func CreateOrderLine(ctx context.Context, q dal.Querier, line domain.OrderLine) (*domain.OrderLine, error) {
	rows, err := q.Execute(ctx, insertOrderLine, true,
		line.OrderID, line.LineNo, line.ProductID, line.Qty, line.UnitPrice, line.DiscountPct, line.GraphicID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrInvalidReference
		}
		customLog.Warnf("Storage: Failed to insert line %d of order %s: %v", line.LineNo, line.OrderID, err)
		return nil, fmt.Errorf("database error during order line creation: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrConflict
	}
	created := scanOrderLine(rows[0])
	return &created, nil
}

func ListOrderLines(ctx context.Context, q dal.Querier, orderID string) ([]domain.OrderLine, error) {
	rows, err := q.FetchAll(ctx, "SELECT "+orderLineColumns+" FROM order_lines WHERE order_id = %s ORDER BY line_no", orderID)
	if err != nil {
		return nil, fmt.Errorf("database error listing order lines: %w", err)
	}
	lines := make([]domain.OrderLine, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, scanOrderLine(r))
	}
	return lines, nil
}

func DeleteOrderLine(ctx context.Context, q dal.Querier, orderID string, lineNo int64) error {
	rows, err := q.Execute(ctx, deleteOrderLine, true, orderID, lineNo)
	if err != nil {
		return fmt.Errorf("database error deleting order line: %w", err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

// OrderTotal is the net and gross value of an order's lines.
type OrderTotal struct {
	OrderID string  `json:"order_id"`
	Net     float64 `json:"net"`
	Gross   float64 `json:"gross"`
}

// GetOrderTotal sums the order's lines after discount, grossed up by each
// product's VAT rate. Discounts are fractions, VAT rates percentages.
func GetOrderTotal(ctx context.Context, q dal.Querier, orderID string) (*OrderTotal, error) {
	if _, err := orders.get(ctx, q, orderID); err != nil {
		return nil, err
	}
	row, err := q.FetchOne(ctx, `SELECT
			COALESCE(SUM(l.qty * l.unit_price * (1 - l.discount_pct)), 0) AS net,
			COALESCE(SUM(l.qty * l.unit_price * (1 - l.discount_pct) * (1 + p.vat_rate / 100)), 0) AS gross
		FROM order_lines l JOIN products p ON p.product_id = l.product_id
		WHERE l.order_id = %s`, orderID)
	if err != nil {
		return nil, fmt.Errorf("database error totalling order: %w", err)
	}
	return &OrderTotal{OrderID: orderID, Net: row.Float64("net"), Gross: row.Float64("gross")}, nil
}
