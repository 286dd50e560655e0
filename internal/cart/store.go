// Package cart holds the user's pending purchase selection. A Store is the
// single source of truth for one cart and persists itself on every change.
package cart

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/pkg/response"
)

type Store struct {
	mu          sync.Mutex
	key         string
	items       []Item
	persistence Persistence
}

// NewStore loads the cart saved under key. A failed load starts from an
// empty cart.
func NewStore(c context.Context, key string, persistence Persistence) *Store {
	c, span := otel.Tracer.Start(c, "cart NewStore")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "cart NewStore").
		Str(constants.KEY_CACHE_KEY, key).
		Logger()

	s := &Store{key: key, items: []Item{}, persistence: persistence}

	logger = logger.With().Str(constants.KEY_PROCESS, "loading cart").Logger()
	logger.Info().Msg("loading cart")
	items, err := persistence.Load(c, key)
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return s
	}
	s.items = items
	logger.Info().Int(constants.KEY_CART_ITEMS, len(items)).Msg("loaded cart")
	return s
}

// AddItem merges item into the line with the same product or appends a new
// line. Quantities below one are ignored.
func (s *Store) AddItem(c context.Context, item Item) {
	if item.Quantity < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.items, func(it Item) bool { return it.ProductID == item.ProductID })
	if i >= 0 {
		s.items[i].Quantity += item.Quantity
	} else {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		s.items = append(s.items, item)
	}
	s.save(c)
}

func (s *Store) RemoveItem(c context.Context, lineID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(c, lineID)
}

func (s *Store) remove(c context.Context, lineID uuid.UUID) {
	i := slices.IndexFunc(s.items, func(it Item) bool { return it.ID == lineID })
	if i < 0 {
		return
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.save(c)
}

// UpdateQuantity removes the line when quantity <= 0.
func (s *Store) UpdateQuantity(c context.Context, lineID uuid.UUID, quantity int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.remove(c, lineID)
		return
	}
	i := slices.IndexFunc(s.items, func(it Item) bool { return it.ID == lineID })
	if i < 0 {
		return
	}
	s.items[i].Quantity = quantity
	s.save(c)
}

func (s *Store) ClearCart(c context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []Item{}
	s.save(c)
}

func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

func (s *Store) TotalItems() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalItems(s.items)
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPrice(s.items)
}

func totalItems(items []Item) int32 {
	total := int32(0)
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

func totalPrice(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Response derives both totals from the same snapshot of lines.
func (s *Store) Response() response.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := response.Cart{
		Items:      make([]response.CartItem, 0, len(s.items)),
		TotalItems: totalItems(s.items),
		TotalPrice: totalPrice(s.items),
	}
	for _, item := range s.items {
		cart.Items = append(cart.Items, item.Response())
	}
	return cart
}

// replace takes lines written elsewhere. It does not save them back.
func (s *Store) replace(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if items == nil {
		items = []Item{}
	}
	s.items = items
}

// save must be called with mu held. Errors are logged and dropped.
func (s *Store) save(c context.Context) {
	c, span := otel.Tracer.Start(c, "Store save")
	defer span.End()

	if err := s.persistence.Save(c, s.key, slices.Clone(s.items)); err != nil {
		err = fmt.Errorf("failed saving cart key=%s with error=%w", s.key, err)
		otel.RecordError(err, span)
		zerolog.Ctx(c).Error().
			Str(constants.KEY_TAG, "Store save").
			Err(err).
			Msg(err.Error())
	}
}
