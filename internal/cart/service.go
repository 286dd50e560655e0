package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/internal/repository"
	"github.com/Alturino/mallofhookah/pkg/request"
	"github.com/Alturino/mallofhookah/pkg/response"
)

type ProductFinder interface {
	FindProductById(c context.Context, id uuid.UUID) (repository.Product, error)
}

type entry struct {
	store    *Store
	lastUsed time.Time
}

var openStores = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "storefront_open_cart_stores",
	Help: "Carts currently held in memory by this instance.",
})

const defaultIdleTTL = 30 * time.Minute

// CartService keeps the carts of active users in memory. A cart is dropped
// after idleTTL without use or when its user signs out, and is loaded again on
// the next access. Open carts follow saves made by other instances through
// Listen.
type CartService struct {
	mu          sync.Mutex
	entries     map[string]*entry
	persistence Persistence
	products    ProductFinder
	idleTTL     time.Duration
	now         func() time.Time
}

func NewCartService(persistence Persistence, products ProductFinder, idleTTL time.Duration) *CartService {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	return &CartService{
		entries:     map[string]*entry{},
		persistence: persistence,
		products:    products,
		idleTTL:     idleTTL,
		now:         time.Now,
	}
}

func (svc *CartService) lookup(key string) (*Store, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	e, ok := svc.entries[key]
	if !ok {
		return nil, false
	}
	e.lastUsed = svc.now()
	return e.store, true
}

// Store returns the user's cart, loading it on first use. The load runs
// without holding the service lock, a store opened concurrently for the same
// user wins over this one.
func (svc *CartService) Store(c context.Context, userID uuid.UUID) *Store {
	key := StoreKey(userID)
	if store, ok := svc.lookup(key); ok {
		return store
	}

	c, span := otel.Tracer.Start(c, "CartService Store")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Store").
		Str(constants.KEY_USER_ID, userID.String()).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "opening cart").Logger()
	logger.Info().Msg("opening cart")
	store := NewStore(c, key, svc.persistence)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if e, ok := svc.entries[key]; ok {
		e.lastUsed = svc.now()
		logger.Info().Msg("cart was opened concurrently")
		return e.store
	}
	svc.entries[key] = &entry{store: store, lastUsed: svc.now()}
	openStores.Set(float64(len(svc.entries)))
	logger.Info().Int(constants.KEY_CART_STORES, len(svc.entries)).Msg("opened cart")
	return store
}

func (svc *CartService) FindCart(c context.Context, userID uuid.UUID) response.Cart {
	return svc.Store(c, userID).Response()
}

// AddProduct adds a catalog product. Name and price always come from the
// catalog.
func (svc *CartService) AddProduct(c context.Context, userID uuid.UUID, param request.AddCartItem) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService AddProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService AddProduct").
		Str(constants.KEY_USER_ID, userID.String()).
		Str(constants.KEY_PRODUCT_ID, param.ProductID.String()).
		Int32(constants.KEY_QUANTITY, param.Quantity).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product").Logger()
	logger.Info().Msg("finding product")
	product, err := svc.products.FindProductById(c, param.ProductID)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	if !product.IsActive {
		err = fmt.Errorf("failed adding product id=%s with error=%w", product.ID.String(), inErrors.ErrProductUnavailable)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("found product")

	logger = logger.With().Str(constants.KEY_PROCESS, "adding item to cart").Logger()
	logger.Info().Msg("adding item to cart")
	store := svc.Store(c, userID)
	store.AddItem(logger.WithContext(c), Item{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  param.Quantity,
		ImageRef:  product.ImageURL,
	})
	logger.Info().Msg("added item to cart")
	return store.Response(), nil
}

func (svc *CartService) UpdateItem(c context.Context, userID uuid.UUID, itemID uuid.UUID, param request.UpdateCartItem) response.Cart {
	c, span := otel.Tracer.Start(c, "CartService UpdateItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService UpdateItem").
		Str(constants.KEY_PROCESS, "updating cart item quantity").
		Str(constants.KEY_USER_ID, userID.String()).
		Str(constants.KEY_CART_ITEM_ID, itemID.String()).
		Int32(constants.KEY_QUANTITY, param.Quantity).
		Logger()

	logger.Info().Msg("updating cart item quantity")
	store := svc.Store(c, userID)
	store.UpdateQuantity(logger.WithContext(c), itemID, param.Quantity)
	logger.Info().Msg("updated cart item quantity")
	return store.Response()
}

func (svc *CartService) RemoveItem(c context.Context, userID uuid.UUID, itemID uuid.UUID) response.Cart {
	c, span := otel.Tracer.Start(c, "CartService RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService RemoveItem").
		Str(constants.KEY_PROCESS, "removing cart item").
		Str(constants.KEY_USER_ID, userID.String()).
		Str(constants.KEY_CART_ITEM_ID, itemID.String()).
		Logger()

	logger.Info().Msg("removing cart item")
	store := svc.Store(c, userID)
	store.RemoveItem(logger.WithContext(c), itemID)
	logger.Info().Msg("removed cart item")
	return store.Response()
}

func (svc *CartService) ClearCart(c context.Context, userID uuid.UUID) response.Cart {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService ClearCart").
		Str(constants.KEY_PROCESS, "clearing cart").
		Str(constants.KEY_USER_ID, userID.String()).
		Logger()

	logger.Info().Msg("clearing cart")
	store := svc.Store(c, userID)
	store.ClearCart(logger.WithContext(c))
	logger.Info().Msg("cleared cart")
	return store.Response()
}

// Evict drops the user's cart from memory. Saved lines stay in persistence.
func (svc *CartService) Evict(userID uuid.UUID) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	delete(svc.entries, StoreKey(userID))
	openStores.Set(float64(len(svc.entries)))
}

// evictIdle drops every cart unused since before now minus idleTTL and
// returns how many were dropped.
func (svc *CartService) evictIdle(now time.Time) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	evicted := 0
	for key, e := range svc.entries {
		if now.Sub(e.lastUsed) >= svc.idleTTL {
			delete(svc.entries, key)
			evicted++
		}
	}
	openStores.Set(float64(len(svc.entries)))
	return evicted
}

// OpenStores reports how many carts are held in memory.
func (svc *CartService) OpenStores() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.entries)
}

// replaceRemote hands lines saved elsewhere to the open cart under key.
// Carts that are not open are skipped, they load fresh lines on next use.
func (svc *CartService) replaceRemote(key string, items []Item) {
	svc.mu.Lock()
	e, ok := svc.entries[key]
	svc.mu.Unlock()
	if !ok {
		return
	}
	e.store.replace(items)
}
