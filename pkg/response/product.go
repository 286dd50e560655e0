package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	CreatedAt   time.Time       `json:"createdAt"`
}
