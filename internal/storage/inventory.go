// internal/storage/inventory.go
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smbworks/erp-backend/internal/core"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/domain"
)

var inventory = &table[domain.InventoryTxn]{
	name:        "inventory",
	key:         "txn_id",
	columns:     []string{"txn_id", "txn_date", "product_id", "qty_change", "reason", "lot", "location"},
	writable:    set("txn_date", "product_id", "qty_change", "reason", "lot", "location"),
	filterable:  set("product_id", "reason", "lot", "location"),
	defaultSort: "txn_date",
	scan: func(r dal.Row) domain.InventoryTxn {
		return domain.InventoryTxn{
			TxnID:     r.String("txn_id"),
			TxnDate:   r.Time("txn_date"),
			ProductID: r.String("product_id"),
			QtyChange: r.Float64("qty_change"),
			Reason:    r.String("reason"),
			Lot:       r.NullString("lot"),
			Location:  r.NullString("location"),
		}
	},
}

// CreateInventoryTxn records a stock movement, generating its id when none is given.
func CreateInventoryTxn(ctx context.Context, q dal.Querier, txn domain.InventoryTxn) (*domain.InventoryTxn, error) {
	if txn.ProductID == "" || txn.Reason == "" {
		return nil, fmt.Errorf("%w: inventory transactions require product_id and reason", ErrInvalidField)
	}
	if txn.TxnID == "" {
		txn.TxnID = "TX-" + uuid.NewString()
	}

	var f fields
	f.add("txn_id", txn.TxnID)
	optional(&f, "txn_date", txn.TxnDate)
	f.add("product_id", txn.ProductID)
	f.add("qty_change", txn.QtyChange)
	f.add("reason", txn.Reason)
	optional(&f, "lot", txn.Lot)
	optional(&f, "location", txn.Location)
	return inventory.insert(ctx, q, f)
}

func ListInventory(ctx context.Context, q dal.Querier, opts *core.ListQueryOptions, filters map[string]string) ([]domain.InventoryTxn, error) {
	return inventory.list(ctx, q, opts, filters)
}

func GetInventoryTxn(ctx context.Context, q dal.Querier, id string) (*domain.InventoryTxn, error) {
	return inventory.get(ctx, q, id)
}

// InventoryFields is a partial update of a stock movement.
type InventoryFields struct {
	TxnDate   *time.Time
	ProductID *string
	QtyChange *float64
	Reason    *string
	Lot       *string
	Location  *string
}

func UpdateInventoryTxn(ctx context.Context, q dal.Querier, id string, in InventoryFields) (*domain.InventoryTxn, error) {
	var f fields
	optional(&f, "txn_date", in.TxnDate)
	optional(&f, "product_id", in.ProductID)
	optional(&f, "qty_change", in.QtyChange)
	optional(&f, "reason", in.Reason)
	optional(&f, "lot", in.Lot)
	optional(&f, "location", in.Location)
	return inventory.update(ctx, q, id, f)
}

func DeleteInventoryTxn(ctx context.Context, q dal.Querier, id string) error {
	return inventory.delete(ctx, q, id)
}

// StockOnHand sums movements per product. An empty productID covers every product.
func StockOnHand(ctx context.Context, q dal.Querier, productID string) ([]domain.StockLevel, error) {
	query := "SELECT product_id, SUM(qty_change) AS on_hand FROM inventory"
	var args []any
	if productID != "" {
		query += " WHERE product_id = %s"
		args = append(args, productID)
	}
	query += " GROUP BY product_id ORDER BY product_id"

	rows, err := q.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database error summing stock: %w", err)
	}
	levels := make([]domain.StockLevel, 0, len(rows))
	for _, r := range rows {
		levels = append(levels, domain.StockLevel{ProductID: r.String("product_id"), OnHand: r.Float64("on_hand")})
	}
	return levels, nil
}
