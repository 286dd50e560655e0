package response

import (
	"time"

	"github.com/google/uuid"

	"github.com/Alturino/mallofhookah/internal/domain"
)

type Redirect struct {
	To           string `json:"to"`
	AfterSeconds int    `json:"afterSeconds"`
}

// Confirmation is the receipt shown after an order was placed.
type Confirmation struct {
	OrderID         uuid.UUID              `json:"orderId"`
	UserID          uuid.UUID              `json:"userId"`
	Status          domain.OrderStatus     `json:"status"`
	CreatedAt       time.Time              `json:"createdAt"`
	CustomerName    string                 `json:"customerName"`
	CustomerEmail   string                 `json:"customerEmail"`
	Items           []domain.OrderItem     `json:"items"`
	Totals          domain.Totals          `json:"totals"`
	Currency        string                 `json:"currency"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
	DeliveryMethod  domain.DeliveryMethod  `json:"deliveryMethod"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	Redirect        Redirect               `json:"redirect"`
}

type Order struct {
	ID             uuid.UUID             `json:"id"`
	Status         domain.OrderStatus    `json:"status"`
	Totals         domain.Totals         `json:"totals"`
	Currency       string                `json:"currency"`
	PaymentMethod  domain.PaymentMethod  `json:"paymentMethod"`
	DeliveryMethod domain.DeliveryMethod `json:"deliveryMethod"`
	CreatedAt      time.Time             `json:"createdAt"`
}

// RedirectHome sends the user back to the shop after a placed order.
var RedirectHome = Redirect{To: "/", AfterSeconds: 30}
