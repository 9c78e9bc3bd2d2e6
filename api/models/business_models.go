// api/models/business_models.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Date accepts "2006-01-02" or an RFC 3339 timestamp in JSON bodies.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
}

// TimePtr returns nil for an absent date.
func (d *Date) TimePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// Create requests carry the key and the required columns; update requests
// reuse the same shape with every field optional.

type CustomerRequest struct {
	CustomerID       string  `json:"customer_id" binding:"omitempty,max=64"`
	Name             *string `json:"name" binding:"omitempty,min=1,max=200"`
	NIP              *string `json:"nip" binding:"omitempty,max=32"`
	Address          *string `json:"address"`
	Email            *string `json:"email" binding:"omitempty,email"`
	ContactPerson    *string `json:"contact_person"`
	PaymentTermsDays *int64  `json:"payment_terms_days" binding:"omitempty,gte=0,lte=365"`
	Active           *bool   `json:"active"`
}

type ProductRequest struct {
	ProductID string   `json:"product_id" binding:"omitempty,max=64"`
	Name      *string  `json:"name" binding:"omitempty,min=1,max=200"`
	Unit      *string  `json:"unit" binding:"omitempty,max=16"`
	StdCost   *float64 `json:"std_cost" binding:"omitempty,gte=0"`
	Price     *float64 `json:"price" binding:"omitempty,gte=0"`
	VATRate   *float64 `json:"vat_rate" binding:"omitempty,gte=0,lte=100"`
	MakeOrBuy *string  `json:"make_or_buy" binding:"omitempty,oneof=Make Buy"`
}

type EmployeeRequest struct {
	EmpID      string   `json:"emp_id" binding:"omitempty,max=64"`
	Name       *string  `json:"name" binding:"omitempty,min=1,max=200"`
	Role       *string  `json:"role" binding:"omitempty,max=100"`
	HourlyRate *float64 `json:"hourly_rate" binding:"omitempty,gte=0"`
}

type OrderRequest struct {
	OrderID       string  `json:"order_id" binding:"omitempty,max=64"`
	OrderDate     *Date   `json:"order_date"`
	CustomerID    *string `json:"customer_id" binding:"omitempty,min=1"`
	Status        *string `json:"status" binding:"omitempty,oneof=New Planned InProd Done Invoiced"`
	DueDate       *Date   `json:"due_date"`
	ContactPerson *string `json:"contact_person"`
}

type OrderLineRequest struct {
	OrderID     string   `json:"order_id" binding:"required"`
	LineNo      int64    `json:"line_no" binding:"required,gte=1"`
	ProductID   string   `json:"product_id" binding:"required"`
	Qty         float64  `json:"qty" binding:"required,gt=0"`
	UnitPrice   float64  `json:"unit_price" binding:"gte=0"`
	DiscountPct *float64 `json:"discount_pct" binding:"omitempty,gte=0,lte=0.9"`
	GraphicID   *string  `json:"graphic_id"`
}

type TimesheetRequest struct {
	EmpID       *string  `json:"emp_id" binding:"omitempty,min=1"`
	TsDate      *Date    `json:"ts_date"`
	OrderID     *string  `json:"order_id"`
	OperationNo *int64   `json:"operation_no" binding:"omitempty,gte=0"`
	Hours       *float64 `json:"hours" binding:"omitempty,gte=0,lte=24"`
	Notes       *string  `json:"notes"`
}

type InventoryRequest struct {
	TxnID     string   `json:"txn_id" binding:"omitempty,max=64"`
	TxnDate   *Date    `json:"txn_date"`
	ProductID *string  `json:"product_id" binding:"omitempty,min=1"`
	QtyChange *float64 `json:"qty_change"`
	Reason    *string  `json:"reason" binding:"omitempty,oneof=PO WO Sale Adjust Adjustment"`
	Lot       *string  `json:"lot"`
	Location  *string  `json:"location"`
}
