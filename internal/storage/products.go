// internal/storage/products.go
package storage

import (
	"context"

	"github.com/smbworks/erp-backend/internal/core"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/domain"
)

var products = &table[domain.Product]{
	name:        "products",
	key:         "product_id",
	columns:     []string{"product_id", "name", "unit", "std_cost", "price", "vat_rate", "make_or_buy"},
	writable:    set("name", "unit", "std_cost", "price", "vat_rate", "make_or_buy"),
	filterable:  set("name", "unit", "make_or_buy"),
	defaultSort: "product_id",
	scan: func(r dal.Row) domain.Product {
		return domain.Product{
			ProductID: r.String("product_id"),
			Name:      r.String("name"),
			Unit:      r.String("unit"),
			StdCost:   r.Float64("std_cost"),
			Price:     r.Float64("price"),
			VATRate:   r.Float64("vat_rate"),
			MakeOrBuy: r.String("make_or_buy"),
		}
	},
}

type ProductFields struct {
	Name      *string
	Unit      *string
	StdCost   *float64
	Price     *float64
	VATRate   *float64
	MakeOrBuy *string
}

func (p ProductFields) fields() fields {
	var f fields
	optional(&f, "name", p.Name)
	optional(&f, "unit", p.Unit)
	optional(&f, "std_cost", p.StdCost)
	optional(&f, "price", p.Price)
	optional(&f, "vat_rate", p.VATRate)
	optional(&f, "make_or_buy", p.MakeOrBuy)
	return f
}

func ListProducts(ctx context.Context, q dal.Querier, opts *core.ListQueryOptions, filters map[string]string) ([]domain.Product, error) {
	return products.list(ctx, q, opts, filters)
}

func GetProduct(ctx context.Context, q dal.Querier, id string) (*domain.Product, error) {
	return products.get(ctx, q, id)
}

func CreateProduct(ctx context.Context, q dal.Querier, id string, p ProductFields) (*domain.Product, error) {
	return products.insert(ctx, q, keyed("product_id", id, p.fields()))
}

func UpdateProduct(ctx context.Context, q dal.Querier, id string, p ProductFields) (*domain.Product, error) {
	return products.update(ctx, q, id, p.fields())
}

func DeleteProduct(ctx context.Context, q dal.Querier, id string) error {
	return products.delete(ctx, q, id)
}
