package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/mallofhookah/pkg/response"
)

// Item is one cart line. ID identifies the line, not the product.
type Item struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int32           `json:"quantity"`
	ImageRef  string          `json:"imageRef,omitempty"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

func (i Item) Response() response.CartItem {
	return response.CartItem{
		ID:        i.ID,
		ProductID: i.ProductID,
		Name:      i.Name,
		UnitPrice: i.UnitPrice,
		Quantity:  i.Quantity,
		ImageRef:  i.ImageRef,
	}
}
