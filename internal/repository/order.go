package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/domain"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
)

type CreateOrderParams struct {
	UserID          uuid.UUID
	IdempotencyKey  uuid.UUID
	Status          domain.OrderStatus
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress domain.ShippingAddress
	BillingAddress  domain.ShippingAddress
	Totals          domain.Totals
	Currency        string
	PaymentMethod   domain.PaymentMethod
	PaymentStatus   string
	ShippingMethod  domain.DeliveryMethod
	Notes           string
	Source          string
}

func (p CreateOrderParams) args() map[string]any {
	args := map[string]any{
		"p_user_id":         p.UserID,
		"p_idempotency_key": p.IdempotencyKey,
		"p_status":          string(p.Status),
		"p_customer_name":   p.CustomerName,
		"p_customer_email":  p.CustomerEmail,
		"p_customer_phone":  p.CustomerPhone,
		"p_subtotal":        numeric(p.Totals.Subtotal),
		"p_tax":             numeric(p.Totals.Tax),
		"p_shipping_cost":   numeric(p.Totals.ShippingCost),
		"p_discount":        numeric(p.Totals.Discount),
		"p_total_amount":    numeric(p.Totals.Total),
		"p_currency":        p.Currency,
		"p_payment_method":  string(p.PaymentMethod),
		"p_payment_status":  p.PaymentStatus,
		"p_shipping_method": string(p.ShippingMethod),
		"p_notes":           p.Notes,
		"p_source":          p.Source,
	}
	for k, v := range flattenAddress("shipping", p.ShippingAddress) {
		args[k] = v
	}
	for k, v := range flattenAddress("billing", p.BillingAddress) {
		args[k] = v
	}
	return args
}

// CreateOrder returns the id of the order created for p.IdempotencyKey. Calling
// it again with the same key returns the same id.
func (q *Queries) CreateOrder(c context.Context, p CreateOrderParams) (uuid.UUID, error) {
	c, span := otel.Tracer.Start(c, "Queries CreateOrder")
	defer span.End()

	result, err := q.procedures.Call(c, backend.ProcedureCreateOrder, p.args())
	if err != nil {
		otel.RecordError(err, span)
		return uuid.Nil, err
	}
	id, err := toUUID(result)
	if err != nil {
		err = fmt.Errorf("failed reading order id with error=%w", err)
		otel.RecordError(err, span)
		return uuid.Nil, err
	}
	return id, nil
}

type AddOrderItemParams struct {
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
}

func (q *Queries) AddOrderItem(c context.Context, p AddOrderItemParams) (uuid.UUID, error) {
	c, span := otel.Tracer.Start(c, "Queries AddOrderItem")
	defer span.End()

	result, err := q.procedures.Call(c, backend.ProcedureAddOrderItem, map[string]any{
		"p_order_id":     p.OrderID,
		"p_product_id":   p.ProductID,
		"p_product_name": p.ProductName,
		"p_quantity":     p.Quantity,
		"p_unit_price":   numeric(p.UnitPrice),
		"p_tax_rate":     numeric(p.TaxRate),
		"p_subtotal":     numeric(p.Subtotal),
		"p_discount":     numeric(decimal.Zero),
	})
	if err != nil {
		otel.RecordError(err, span)
		return uuid.Nil, err
	}
	return toUUID(result)
}

func (q *Queries) CancelOrder(c context.Context, orderID uuid.UUID, reason string) error {
	c, span := otel.Tracer.Start(c, "Queries CancelOrder")
	defer span.End()

	_, err := q.procedures.Call(c, backend.ProcedureCancelOrder, map[string]any{
		"p_order_id": orderID,
		"p_reason":   reason,
	})
	if err != nil {
		otel.RecordError(err, span)
		return err
	}
	return nil
}

type FindOrderByIdParams struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) FindOrderById(c context.Context, p FindOrderByIdParams) (domain.Order, error) {
	c, span := otel.Tracer.Start(c, "Queries FindOrderById")
	defer span.End()

	row, err := q.tables.SelectOne(c, backend.Query{
		Table:   TableOrders,
		Filters: []backend.Filter{backend.Eq("id", p.OrderID), backend.Eq("user_id", p.UserID)},
	})
	if err != nil {
		otel.RecordError(err, span)
		return domain.Order{}, err
	}
	return orderFromRow(row)
}

func (q *Queries) FindOrdersByUserId(c context.Context, userID uuid.UUID) ([]domain.Order, error) {
	c, span := otel.Tracer.Start(c, "Queries FindOrdersByUserId")
	defer span.End()

	rows, err := q.tables.Select(c, backend.Query{
		Table:   TableOrders,
		Filters: []backend.Filter{backend.Eq("user_id", userID)},
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		otel.RecordError(err, span)
		return nil, err
	}
	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		order, err := orderFromRow(row)
		if err != nil {
			otel.RecordError(err, span)
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (q *Queries) FindOrderItemsByOrderId(c context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	c, span := otel.Tracer.Start(c, "Queries FindOrderItemsByOrderId")
	defer span.End()

	rows, err := q.tables.Select(c, backend.Query{
		Table:   TableOrderItems,
		Filters: []backend.Filter{backend.Eq("order_id", orderID)},
		OrderBy: "created_at",
	})
	if err != nil {
		otel.RecordError(err, span)
		return nil, err
	}
	items := make([]domain.OrderItem, 0, len(rows))
	for _, row := range rows {
		item, err := orderItemFromRow(row)
		if err != nil {
			otel.RecordError(err, span)
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func orderFromRow(row backend.Row) (domain.Order, error) {
	id, err := toUUID(row["id"])
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed mapping order id with error=%w", err)
	}
	if id == uuid.Nil {
		return domain.Order{}, fmt.Errorf("failed mapping order with error=%w", inErrors.ErrNotFound)
	}
	userID, err := toUUID(row["user_id"])
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed mapping order user_id with error=%w", err)
	}
	currency := toString(row["currency"])
	if currency == "" {
		currency = "EUR"
	}
	return domain.Order{
		ID:              id,
		UserID:          userID,
		Status:          domain.OrderStatus(toString(row["status"])),
		CustomerName:    toString(row["customer_name"]),
		CustomerEmail:   toString(row["customer_email"]),
		CustomerPhone:   toString(row["customer_phone"]),
		ShippingAddress: NormalizeShippingAddress(row),
		Totals: domain.Totals{
			Subtotal:     toDecimal(row["subtotal"]),
			Tax:          toDecimal(firstValue(row, "tax", "tax_amount")),
			ShippingCost: toDecimal(row["shipping_cost"]),
			Discount:     toDecimal(firstValue(row, "discount", "discount_amount")),
			Total:        toDecimal(row["total_amount"]),
		},
		Currency:       currency,
		PaymentMethod:  domain.PaymentMethod(toString(row["payment_method"])),
		PaymentStatus:  toString(row["payment_status"]),
		ShippingMethod: domain.DeliveryMethod(toString(row["shipping_method"])),
		Notes:          toString(row["notes"]),
		Source:         toString(row["source"]),
		CreatedAt:      toTime(row["created_at"]),
	}, nil
}

func orderItemFromRow(row backend.Row) (domain.OrderItem, error) {
	id, err := toUUID(row["id"])
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("failed mapping order item id with error=%w", err)
	}
	orderID, err := toUUID(row["order_id"])
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("failed mapping order item order_id with error=%w", err)
	}
	productID, err := toUUID(row["product_id"])
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("failed mapping order item product_id with error=%w", err)
	}
	return domain.OrderItem{
		ID:          id,
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: toString(row["product_name"]),
		ProductSku:  toString(row["product_sku"]),
		VariantName: toString(row["variant_name"]),
		Quantity:    toInt32(row["quantity"]),
		UnitPrice:   toDecimal(firstValue(row, "unit_price", "price_per_unit")),
		Discount:    toDecimal(row["discount"]),
		TaxRate:     toDecimal(row["tax_rate"]),
		Subtotal:    toDecimal(firstValue(row, "subtotal", "total_price")),
	}, nil
}

// firstValue returns the value of the first key present and non-nil.
func firstValue(row backend.Row, keys ...string) any {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
