package response

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int32           `json:"quantity"`
	ImageRef  string          `json:"imageRef,omitempty"`
}

type Cart struct {
	Items      []CartItem      `json:"items"`
	TotalItems int32           `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}
