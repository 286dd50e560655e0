package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/domain"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/internal/repository"
	"github.com/Alturino/mallofhookah/pkg/response"
)

const (
	defaultConfirmationTTL = time.Hour
	emailGuardTTL          = 30 * 24 * time.Hour
	confirmationSubject    = "Ihre Bestellung bei Mall of Hookah"
)

type ProductFinder interface {
	FindProductById(c context.Context, id uuid.UUID) (repository.Product, error)
}

type OrderService struct {
	queries         *repository.Queries
	cache           *redis.Client
	products        ProductFinder
	sender          Sender
	from            string
	confirmationTTL time.Duration
}

func NewOrderService(
	queries *repository.Queries,
	cache *redis.Client,
	products ProductFinder,
	sender Sender,
	from string,
	confirmationTTL time.Duration,
) *OrderService {
	if confirmationTTL <= 0 {
		confirmationTTL = defaultConfirmationTTL
	}
	return &OrderService{
		queries:         queries,
		cache:           cache,
		products:        products,
		sender:          sender,
		from:            from,
		confirmationTTL: confirmationTTL,
	}
}

func confirmationKey(orderID uuid.UUID) string {
	return fmt.Sprintf(constants.KEY_CACHE_CONFIRMATION, orderID.String())
}

func emailGuardKey(orderID uuid.UUID) string {
	return fmt.Sprintf(constants.KEY_CACHE_EMAIL_SENT, orderID.String())
}

// SaveConfirmation keeps the receipt built at submission so the confirmation
// page renders without going back to the database.
func (svc *OrderService) SaveConfirmation(c context.Context, confirmation response.Confirmation) error {
	c, span := otel.Tracer.Start(c, "OrderService SaveConfirmation")
	defer span.End()

	key := confirmationKey(confirmation.OrderID)
	data, err := json.Marshal(confirmation)
	if err != nil {
		err = fmt.Errorf("failed marshaling confirmation with error=%w", err)
		otel.RecordError(err, span)
		return err
	}
	if err := svc.cache.Set(c, key, data, svc.confirmationTTL).Err(); err != nil {
		err = fmt.Errorf("failed setting key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		return err
	}
	return nil
}

func (svc *OrderService) cachedConfirmation(c context.Context, orderID uuid.UUID) (response.Confirmation, error) {
	key := confirmationKey(orderID)
	data, err := svc.cache.Get(c, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return response.Confirmation{}, inErrors.ErrCacheMiss
	}
	if err != nil {
		return response.Confirmation{}, fmt.Errorf("failed getting key=%s with error=%w", key, err)
	}
	confirmation := response.Confirmation{}
	if err := json.Unmarshal(data, &confirmation); err != nil {
		return response.Confirmation{}, fmt.Errorf("failed unmarshaling key=%s with error=%w", key, err)
	}
	return confirmation, nil
}

// FindConfirmation returns the receipt of one of the user's orders. The first
// successful lookup also sends the confirmation email, failures there are only
// logged.
func (svc *OrderService) FindConfirmation(c context.Context, userID, orderID uuid.UUID) (response.Confirmation, error) {
	c, span := otel.Tracer.Start(c, "OrderService FindConfirmation")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "OrderService FindConfirmation").
		Str(constants.KEY_USER_ID, userID.String()).
		Str(constants.KEY_ORDER_ID, orderID.String()).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "finding confirmation in cache").Logger()
	logger.Info().Msg("finding confirmation in cache")
	confirmation, err := svc.cachedConfirmation(c, orderID)
	switch {
	case err == nil && confirmation.UserID == userID:
		logger.Info().Msg("found confirmation in cache")
	default:
		if err != nil && !errors.Is(err, inErrors.ErrCacheMiss) {
			logger.Error().Err(err).Msg(err.Error())
		}
		logger = logger.With().Str(constants.KEY_PROCESS, "finding order").Logger()
		logger.Info().Msg("finding order")
		confirmation, err = svc.loadConfirmation(c, userID, orderID)
		if err != nil {
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Confirmation{}, err
		}
		logger.Info().Msg("found order")
	}

	svc.sendConfirmationEmail(logger.WithContext(c), confirmation)
	return confirmation, nil
}

func (svc *OrderService) loadConfirmation(c context.Context, userID, orderID uuid.UUID) (response.Confirmation, error) {
	order, err := svc.queries.FindOrderById(c, repository.FindOrderByIdParams{UserID: userID, OrderID: orderID})
	if err != nil {
		return response.Confirmation{}, fmt.Errorf("failed finding order id=%s with error=%w", orderID.String(), err)
	}
	items, err := svc.queries.FindOrderItemsByOrderId(c, orderID)
	if err != nil {
		return response.Confirmation{}, fmt.Errorf("failed finding items of order id=%s with error=%w", orderID.String(), err)
	}
	return toConfirmation(order, items), nil
}

func toConfirmation(order domain.Order, items []domain.OrderItem) response.Confirmation {
	return response.Confirmation{
		OrderID:         order.ID,
		UserID:          order.UserID,
		Status:          order.Status,
		CreatedAt:       order.CreatedAt,
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		Items:           items,
		Totals:          order.Totals,
		Currency:        order.Currency,
		PaymentMethod:   order.PaymentMethod,
		DeliveryMethod:  order.ShippingMethod,
		ShippingAddress: order.ShippingAddress,
		Redirect:        response.RedirectHome,
	}
}

// sendConfirmationEmail sends at most one email per order across instances.
// The guard is released when sending fails so a later lookup retries.
func (svc *OrderService) sendConfirmationEmail(c context.Context, confirmation response.Confirmation) {
	c, span := otel.Tracer.Start(c, "OrderService sendConfirmationEmail")
	defer span.End()

	key := emailGuardKey(confirmation.OrderID)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "OrderService sendConfirmationEmail").
		Str(constants.KEY_CACHE_KEY, key).
		Logger()

	if confirmation.CustomerEmail == "" {
		logger.Info().Msg("order has no customer email, skipping")
		return
	}
	if confirmation.Status == domain.OrderStatusCanceled {
		logger.Info().Msg("order is canceled, skipping")
		return
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "claiming email").Logger()
	logger.Info().Msg("claiming email")
	claimed, err := svc.cache.SetNX(c, key, time.Now().Format(time.RFC3339), emailGuardTTL).Result()
	if err != nil {
		err = fmt.Errorf("failed claiming email with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	if !claimed {
		logger.Info().Msg("email already sent")
		return
	}
	logger.Info().Msg("claimed email")

	release := func() {
		if err := svc.cache.Del(context.WithoutCancel(c), key).Err(); err != nil {
			logger.Error().Err(err).Msg(err.Error())
		}
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "enriching order items").Logger()
	logger.Info().Msg("enriching order items")
	confirmation.Items = svc.enrich(c, confirmation.Items)
	logger.Info().Msg("enriched order items")

	logger = logger.With().Str(constants.KEY_PROCESS, "rendering email").Logger()
	logger.Info().Msg("rendering email")
	content, err := RenderConfirmation(confirmation)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		release()
		return
	}
	logger.Info().Msg("rendered email")

	logger = logger.With().Str(constants.KEY_PROCESS, "sending email").Logger()
	logger.Info().Msg("sending email")
	err = svc.sender.Send(c, Email{
		UserID:    confirmation.UserID,
		OrderID:   confirmation.OrderID,
		From:      svc.from,
		Recipient: confirmation.CustomerEmail,
		Subject:   confirmationSubject,
		Content:   content,
	})
	if err != nil {
		err = fmt.Errorf("failed sending email with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		release()
		return
	}
	logger.Info().Msg("sent email")
}

// enrich fills names missing on stored items from the catalog.
func (svc *OrderService) enrich(c context.Context, items []domain.OrderItem) []domain.OrderItem {
	enriched := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if item.ProductName == "" || item.ImageRef == "" {
			product, err := svc.products.FindProductById(c, item.ProductID)
			if err == nil {
				if item.ProductName == "" {
					item.ProductName = product.Name
				}
				if item.ImageRef == "" {
					item.ImageRef = product.ImageURL
				}
			} else {
				zerolog.Ctx(c).Warn().Err(err).Str(constants.KEY_PRODUCT_ID, item.ProductID.String()).Msg("failed enriching order item")
			}
		}
		enriched = append(enriched, item)
	}
	return enriched
}

func (svc *OrderService) FindOrders(c context.Context, userID uuid.UUID) ([]response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderService FindOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "OrderService FindOrders").
		Str(constants.KEY_PROCESS, "finding orders").
		Str(constants.KEY_USER_ID, userID.String()).
		Logger()

	logger.Info().Msg("finding orders")
	orders, err := svc.queries.FindOrdersByUserId(c, userID)
	if err != nil {
		err = fmt.Errorf("failed finding orders with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(constants.KEY_ORDERS, len(orders)).Msg("found orders")

	result := make([]response.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, response.Order{
			ID:             o.ID,
			Status:         o.Status,
			Totals:         o.Totals,
			Currency:       o.Currency,
			PaymentMethod:  o.PaymentMethod,
			DeliveryMethod: o.ShippingMethod,
			CreatedAt:      o.CreatedAt,
		})
	}
	return result, nil
}
