package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/otel"
)

type Product struct {
	ID          uuid.UUID       `json:"id"`
	CategoryID  uuid.UUID       `json:"categoryId"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Sku         string          `json:"sku,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Stock       int32           `json:"stock"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// FindProductsParams narrows the active catalog. Query matches name or
// description case-insensitively.
type FindProductsParams struct {
	CategoryID uuid.UUID
	Query      string
}

func (q *Queries) FindProductById(c context.Context, id uuid.UUID) (Product, error) {
	c, span := otel.Tracer.Start(c, "Queries FindProductById")
	defer span.End()

	row, err := q.tables.SelectOne(c, backend.Query{
		Table:   TableProducts,
		Filters: []backend.Filter{backend.Eq("id", id)},
	})
	if err != nil {
		otel.RecordError(err, span)
		return Product{}, err
	}
	return productFromRow(row)
}

func (q *Queries) FindProducts(c context.Context, p FindProductsParams) ([]Product, error) {
	c, span := otel.Tracer.Start(c, "Queries FindProducts")
	defer span.End()

	filters := []backend.Filter{backend.Eq("is_active", true)}
	if p.CategoryID != uuid.Nil {
		filters = append(filters, backend.Eq("category_id", p.CategoryID))
	}
	if p.Query != "" {
		pattern := backend.Contains(p.Query)
		filters = append(filters, backend.AnyOf(
			backend.ILike("name", pattern),
			backend.ILike("description", pattern),
		))
	}
	rows, err := q.tables.Select(c, backend.Query{
		Table:   TableProducts,
		Filters: filters,
		OrderBy: "name",
	})
	if err != nil {
		otel.RecordError(err, span)
		return nil, err
	}
	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		product, err := productFromRow(row)
		if err != nil {
			otel.RecordError(err, span)
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

func productFromRow(row backend.Row) (Product, error) {
	id, err := toUUID(row["id"])
	if err != nil {
		return Product{}, fmt.Errorf("failed mapping product id with error=%w", err)
	}
	categoryID, err := toUUID(row["category_id"])
	if err != nil {
		return Product{}, fmt.Errorf("failed mapping product category_id with error=%w", err)
	}
	isActive := true
	if v, ok := row["is_active"]; ok && v != nil {
		isActive = toBool(v)
	}
	return Product{
		ID:          id,
		CategoryID:  categoryID,
		Name:        toString(row["name"]),
		Description: toString(row["description"]),
		Sku:         toString(row["sku"]),
		Price:       toDecimal(row["price"]),
		ImageURL:    firstString(row, "image_url", "image"),
		Stock:       toInt32(firstValue(row, "stock_quantity", "stock")),
		IsActive:    isActive,
		CreatedAt:   toTime(row["created_at"]),
	}, nil
}
