package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Alturino/mallofhookah/internal/constants"
)

// Persistence keeps cart lines between requests and across instances.
// Watch reports lines written to any cart by other writers only and blocks
// until c is done.
type Persistence interface {
	Load(c context.Context, key string) ([]Item, error)
	Save(c context.Context, key string, items []Item) error
	Watch(c context.Context, fn func(key string, items []Item)) error
}

func StoreKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", constants.CART_STORE_NAME, userID.String())
}

// storeKeyPattern matches the key of every cart.
func storeKeyPattern() string {
	return constants.CART_STORE_NAME + ":*"
}
