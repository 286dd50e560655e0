package response

import (
	"github.com/google/uuid"

	"github.com/Alturino/mallofhookah/internal/domain"
)

type Link struct {
	To    string `json:"to"`
	Label string `json:"label"`
}

type Checkout struct {
	ID              uuid.UUID              `json:"id"`
	Step            string                 `json:"step"`
	DeliveryMethod  domain.DeliveryMethod  `json:"deliveryMethod"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod,omitempty"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	IsProcessing    bool                   `json:"isProcessing"`
	LastError       string                 `json:"lastError,omitempty"`
	EmptyCart       bool                   `json:"emptyCart"`
	Exit            *Link                  `json:"exit,omitempty"`
	Cart            Cart                   `json:"cart"`
	Totals          domain.Totals          `json:"totals"`
}
