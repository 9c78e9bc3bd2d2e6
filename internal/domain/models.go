// internal/domain/models.go
package domain

import "time"

// User is an account able to sign in to the API.
type User struct {
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	CompanyID        *string   `json:"company_id"`
	PasswordHash     string    `json:"-"`
	IsAdmin          bool      `json:"is_admin"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	SubscriptionPlan string    `json:"subscription_plan"`
}

// AdminAuditEntry records an administrative action on users.
type AdminAuditEntry struct {
	ID        int64          `json:"audit_id"`
	EventType string         `json:"event_type"`
	Actor     string         `json:"event_by,omitempty"`
	EventTime *time.Time     `json:"event_time,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type Customer struct {
	CustomerID       string  `json:"customer_id"`
	Name             string  `json:"name"`
	NIP              *string `json:"nip"`
	Address          *string `json:"address"`
	Email            *string `json:"email"`
	ContactPerson    *string `json:"contact_person"`
	PaymentTermsDays int64   `json:"payment_terms_days"`
	Active           bool    `json:"active"`
}

type Product struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	StdCost   float64 `json:"std_cost"`
	Price     float64 `json:"price"`
	VATRate   float64 `json:"vat_rate"`
	MakeOrBuy string  `json:"make_or_buy"`
}

type Employee struct {
	EmpID      string  `json:"emp_id"`
	Name       string  `json:"name"`
	Role       *string `json:"role"`
	HourlyRate float64 `json:"hourly_rate"`
}

type Order struct {
	OrderID       string      `json:"order_id"`
	OrderDate     *time.Time  `json:"order_date"`
	CustomerID    string      `json:"customer_id"`
	Status        string      `json:"status"`
	DueDate       *time.Time  `json:"due_date"`
	ContactPerson *string     `json:"contact_person"`
	Lines         []OrderLine `json:"lines,omitempty"`
}

// OrderLine is one product on an order. DiscountPct is a fraction, 0.1 for 10%.
type OrderLine struct {
	OrderID     string  `json:"order_id"`
	LineNo      int64   `json:"line_no"`
	ProductID   string  `json:"product_id"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	DiscountPct float64 `json:"discount_pct"`
	GraphicID   *string `json:"graphic_id"`
}

// Timesheet is hours an employee booked, optionally against an order operation.
type Timesheet struct {
	TsID        int64      `json:"ts_id"`
	EmpID       string     `json:"emp_id"`
	TsDate      *time.Time `json:"ts_date"`
	OrderID     *string    `json:"order_id"`
	OperationNo *int64     `json:"operation_no"`
	Hours       float64    `json:"hours"`
	Notes       *string    `json:"notes"`
}

// InventoryTxn is one stock movement. Positive quantities are receipts.
type InventoryTxn struct {
	TxnID     string     `json:"txn_id"`
	TxnDate   *time.Time `json:"txn_date"`
	ProductID string     `json:"product_id"`
	QtyChange float64    `json:"qty_change"`
	Reason    string     `json:"reason"`
	Lot       *string    `json:"lot"`
	Location  *string    `json:"location"`
}

// StockLevel is the summed inventory movements of a product.
type StockLevel struct {
	ProductID string  `json:"product_id"`
	OnHand    float64 `json:"on_hand"`
}
