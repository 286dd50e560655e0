package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/cart"
	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/domain"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/internal/repository"
	"github.com/Alturino/mallofhookah/pkg/response"
)

const (
	defaultCompensationTimeout = 10 * time.Second
	orderSource                = "web"
	paymentStatusPending       = "pending"
)

var submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_order_submissions_total",
	Help: "Order submissions by result.",
}, []string{"result"})

type OrderWriter interface {
	CreateOrder(c context.Context, p repository.CreateOrderParams) (uuid.UUID, error)
	AddOrderItem(c context.Context, p repository.AddOrderItemParams) (uuid.UUID, error)
	CancelOrder(c context.Context, orderID uuid.UUID, reason string) error
}

type Submission struct {
	IdempotencyKey  uuid.UUID
	Items           []cart.Item
	DeliveryMethod  domain.DeliveryMethod
	PaymentMethod   domain.PaymentMethod
	ShippingAddress domain.ShippingAddress
}

// PartialOrderError reports an order whose header was written but whose items
// were not all added. The header has been canceled unless CompensationErr is
// set.
type PartialOrderError struct {
	OrderID         uuid.UUID
	Added           int
	Missing         []cart.Item
	Cause           error
	CompensationErr error
}

func (e *PartialOrderError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("%s, order %s needs manual review", inErrors.ErrPartialOrder.Error(), e.OrderID)
	}
	return fmt.Sprintf("%s, order %s was canceled", inErrors.ErrPartialOrder.Error(), e.OrderID)
}

func (e *PartialOrderError) Unwrap() []error {
	return []error{inErrors.ErrPartialOrder, e.Cause}
}

type Submitter struct {
	identity            backend.IdentityProvider
	orders              OrderWriter
	pricing             Pricing
	compensationTimeout time.Duration
}

func NewSubmitter(identity backend.IdentityProvider, orders OrderWriter, pricing Pricing, compensationTimeout time.Duration) *Submitter {
	if compensationTimeout <= 0 {
		compensationTimeout = defaultCompensationTimeout
	}
	return &Submitter{
		identity:            identity,
		orders:              orders,
		pricing:             pricing,
		compensationTimeout: compensationTimeout,
	}
}

func customerName(session backend.Session, address domain.ShippingAddress) string {
	if name := address.FullName(); name != "" {
		return name
	}
	if name := strings.TrimSpace(session.Profile["full_name"]); name != "" {
		return name
	}
	local, _, _ := strings.Cut(session.Email, "@")
	return local
}

// Submit writes the order header and then its items one by one. When an item
// cannot be added the header is canceled and a *PartialOrderError returned.
func (s *Submitter) Submit(c context.Context, sub Submission) (response.Confirmation, error) {
	c, span := otel.Tracer.Start(c, "Submitter Submit")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Submitter Submit").
		Str(constants.KEY_IDEMPOTENCY_KEY, sub.IdempotencyKey.String()).
		Str(constants.KEY_DELIVERY_METHOD, string(sub.DeliveryMethod)).
		Str(constants.KEY_PAYMENT_METHOD, string(sub.PaymentMethod)).
		Int(constants.KEY_CART_ITEMS, len(sub.Items)).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "resolving identity").Logger()
	logger.Info().Msg("resolving identity")
	session, ok := s.identity.CurrentSession(c)
	if !ok || session.UserID == uuid.Nil {
		err := fmt.Errorf("failed resolving identity with error=%w", inErrors.ErrUnauthenticated)
		submissions.WithLabelValues("unauthenticated").Inc()
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	logger = logger.With().Str(constants.KEY_USER_ID, session.UserID.String()).Logger()
	logger.Info().Msg("resolved identity")

	logger = logger.With().Str(constants.KEY_PROCESS, "computing totals").Logger()
	logger.Info().Msg("computing totals")
	totals := s.pricing.Totals(sub.Items, sub.DeliveryMethod, sub.ShippingAddress.PostalCode)
	logger = logger.With().
		Str(constants.KEY_SUBTOTAL, totals.Subtotal.StringFixed(2)).
		Str(constants.KEY_SHIPPING_COST, totals.ShippingCost.StringFixed(2)).
		Str(constants.KEY_TOTAL, totals.Total.StringFixed(2)).
		Logger()
	logger.Info().Msg("computed totals")

	status := sub.PaymentMethod.InitialStatus()
	params := repository.CreateOrderParams{
		UserID:          session.UserID,
		IdempotencyKey:  sub.IdempotencyKey,
		Status:          status,
		CustomerName:    customerName(session, sub.ShippingAddress),
		CustomerEmail:   session.Email,
		CustomerPhone:   sub.ShippingAddress.Phone,
		ShippingAddress: sub.ShippingAddress,
		BillingAddress:  sub.ShippingAddress,
		Totals:          totals,
		Currency:        s.pricing.Currency,
		PaymentMethod:   sub.PaymentMethod,
		PaymentStatus:   paymentStatusPending,
		ShippingMethod:  sub.DeliveryMethod,
		Source:          orderSource,
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "creating order").Logger()
	logger.Info().Msg("creating order")
	orderID, err := s.orders.CreateOrder(c, params)
	if err != nil {
		message := err.Error()
		var remote *backend.RemoteError
		if errors.As(err, &remote) {
			message = remote.Message
		}
		err = fmt.Errorf("%w: %s", inErrors.ErrCreateOrder, message)
		submissions.WithLabelValues("create_failed").Inc()
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	if orderID == uuid.Nil {
		err = fmt.Errorf("failed creating order with error=%w", inErrors.ErrMissingOrderID)
		submissions.WithLabelValues("create_failed").Inc()
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	logger = logger.With().Str(constants.KEY_ORDER_ID, orderID.String()).Logger()
	logger.Info().Msg("created order")

	items := make([]domain.OrderItem, 0, len(sub.Items))
	for i, line := range sub.Items {
		lg := logger.With().
			Str(constants.KEY_PROCESS, "adding order item").
			Str(constants.KEY_PRODUCT_ID, line.ProductID.String()).
			Int32(constants.KEY_QUANTITY, line.Quantity).
			Logger()

		if err := c.Err(); err != nil {
			return response.Confirmation{}, s.compensate(c, orderID, i, sub.Items[i:], err)
		}

		lg.Info().Msg("adding order item")
		item := domain.OrderItem{
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: line.Name,
			ImageRef:    line.ImageRef,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TaxRate:     s.pricing.TaxRate,
			Subtotal:    line.Subtotal(),
		}
		itemID, err := s.orders.AddOrderItem(c, repository.AddOrderItemParams{
			OrderID:     orderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
			Subtotal:    item.Subtotal,
		})
		if err != nil {
			lg.Error().Err(err).Msg(err.Error())
			return response.Confirmation{}, s.compensate(c, orderID, i, sub.Items[i:], err)
		}
		item.ID = itemID
		items = append(items, item)
		lg.Info().Msg("added order item")
	}

	submissions.WithLabelValues("success").Inc()
	logger.Info().Msg("submitted order")
	return response.Confirmation{
		OrderID:         orderID,
		UserID:          session.UserID,
		Status:          status,
		CreatedAt:       time.Now(),
		CustomerName:    params.CustomerName,
		CustomerEmail:   params.CustomerEmail,
		Items:           items,
		Totals:          totals,
		Currency:        params.Currency,
		PaymentMethod:   sub.PaymentMethod,
		DeliveryMethod:  sub.DeliveryMethod,
		ShippingAddress: sub.ShippingAddress,
		Redirect:        response.RedirectHome,
	}, nil
}

// compensate cancels the header. It runs detached from c so an aborted request
// still cleans up.
func (s *Submitter) compensate(c context.Context, orderID uuid.UUID, added int, missing []cart.Item, cause error) error {
	c, span := otel.Tracer.Start(c, "Submitter compensate")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Submitter compensate").
		Str(constants.KEY_PROCESS, "canceling order").
		Str(constants.KEY_ORDER_ID, orderID.String()).
		Int("added", added).
		Int("missing", len(missing)).
		Logger()

	partial := &PartialOrderError{OrderID: orderID, Added: added, Missing: missing, Cause: cause}

	c, cancel := context.WithTimeout(context.WithoutCancel(c), s.compensationTimeout)
	defer cancel()

	logger.Info().Msg("canceling order")
	reason := fmt.Sprintf("canceled by checkout: %d of %d items could not be added", len(missing), added+len(missing))
	if err := s.orders.CancelOrder(c, orderID, reason); err != nil {
		partial.CompensationErr = fmt.Errorf("failed canceling order with error=%w", err)
		submissions.WithLabelValues("compensation_failed").Inc()
		otel.RecordError(partial, span)
		logger.Error().Err(partial.CompensationErr).Msg(partial.CompensationErr.Error())
		return partial
	}
	submissions.WithLabelValues("compensated").Inc()
	otel.RecordError(partial, span)
	logger.Info().Msg("canceled order")
	return partial
}
