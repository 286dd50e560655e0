package request

import "github.com/google/uuid"

type AddCartItem struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int32     `json:"quantity"  validate:"required,gte=1"`
}

// UpdateCartItem accepts zero or a negative quantity, which removes the line.
type UpdateCartItem struct {
	Quantity int32 `json:"quantity"`
}
