package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCanceled       OrderStatus = "canceled"
)

type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentPaypal         PaymentMethod = "paypal"
	PaymentKlarna         PaymentMethod = "klarna"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// InitialStatus is the status an order is created with. Cash on delivery is
// paid at the door so it waits for payment explicitly.
func (p PaymentMethod) InitialStatus() OrderStatus {
	if p == PaymentCashOnDelivery {
		return OrderStatusPendingPayment
	}
	return OrderStatusPending
}

func (p PaymentMethod) Label() string {
	switch p {
	case PaymentCreditCard:
		return "Kreditkarte"
	case PaymentPaypal:
		return "PayPal"
	case PaymentKlarna:
		return "Klarna"
	case PaymentCashOnDelivery:
		return "Nachnahme"
	default:
		return string(p)
	}
}

type DeliveryMethod string

const (
	DeliveryShipping DeliveryMethod = "shipping"
	DeliveryPickup   DeliveryMethod = "pickup"
)

type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}

// NewTotals derives tax and total. Total is always
// subtotal + tax + shippingCost - discount.
func NewTotals(subtotal, shippingCost, taxRate decimal.Decimal) Totals {
	tax := subtotal.Mul(taxRate).Round(2)
	discount := decimal.Zero
	return Totals{
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shippingCost,
		Discount:     discount,
		Total:        subtotal.Add(tax).Add(shippingCost).Sub(discount),
	}
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"orderId"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSku  string          `json:"productSku,omitempty"`
	VariantName string          `json:"variantName,omitempty"`
	ImageRef    string          `json:"imageRef,omitempty"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	Status          OrderStatus     `json:"status"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerPhone   string          `json:"customerPhone"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Totals          Totals          `json:"totals"`
	Currency        string          `json:"currency"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	ShippingMethod  DeliveryMethod  `json:"shippingMethod"`
	Notes           string          `json:"notes,omitempty"`
	Source          string          `json:"source"`
	CreatedAt       time.Time       `json:"createdAt"`
	Items           []OrderItem     `json:"items,omitempty"`
}
