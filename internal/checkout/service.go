package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/cart"
	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/pkg/request"
	"github.com/Alturino/mallofhookah/pkg/response"
)

var ExitToProducts = response.Link{To: "/products", Label: "Weiter einkaufen"}

type CartProvider interface {
	Store(c context.Context, userID uuid.UUID) *cart.Store
}

type ConfirmationSaver interface {
	SaveConfirmation(c context.Context, confirmation response.Confirmation) error
}

type session struct {
	mu             sync.Mutex
	id             uuid.UUID
	userID         uuid.UUID
	machine        *Machine
	idempotencyKey uuid.UUID
	cancel         context.CancelFunc
}

// CheckoutService holds the open checkouts of this instance. A checkout lives
// from Start until its order is placed or it is abandoned.
type CheckoutService struct {
	mu            sync.Mutex
	sessions      map[uuid.UUID]*session
	carts         CartProvider
	identity      backend.IdentityProvider
	submitter     *Submitter
	confirmations ConfirmationSaver
	pricing       Pricing
}

func NewCheckoutService(
	carts CartProvider,
	identity backend.IdentityProvider,
	submitter *Submitter,
	confirmations ConfirmationSaver,
	pricing Pricing,
) *CheckoutService {
	return &CheckoutService{
		sessions:      map[uuid.UUID]*session{},
		carts:         carts,
		identity:      identity,
		submitter:     submitter,
		confirmations: confirmations,
		pricing:       pricing,
	}
}

func (svc *CheckoutService) find(userID, checkoutID uuid.UUID) (*session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	s, ok := svc.sessions[checkoutID]
	if !ok || s.userID != userID {
		return nil, fmt.Errorf("failed finding checkout id=%s with error=%w", checkoutID.String(), inErrors.ErrCheckoutNotFound)
	}
	return s, nil
}

func (svc *CheckoutService) discard(checkoutID uuid.UUID) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	delete(svc.sessions, checkoutID)
}

// view must be called with s.mu held.
func (svc *CheckoutService) view(s *session, store *cart.Store) response.Checkout {
	state := s.machine.State()
	items := store.Items()
	view := response.Checkout{
		ID:              s.id,
		Step:            state.Step.String(),
		DeliveryMethod:  state.DeliveryMethod,
		PaymentMethod:   state.PaymentMethod,
		ShippingAddress: state.ShippingAddress,
		IsProcessing:    state.IsProcessing,
		LastError:       state.LastError,
		Cart:            store.Response(),
		Totals:          svc.pricing.Totals(items, state.DeliveryMethod, state.ShippingAddress.PostalCode),
	}
	if len(items) == 0 && !state.IsProcessing {
		exit := ExitToProducts
		view.EmptyCart = true
		view.Exit = &exit
	}
	return view
}

// Start opens a checkout prefilled from the user's stored profile.
func (svc *CheckoutService) Start(c context.Context, userID uuid.UUID) (response.Checkout, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService Start")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutService Start").
		Str(constants.KEY_USER_ID, userID.String()).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "refreshing session").Logger()
	logger.Info().Msg("refreshing session")
	identity, err := svc.identity.RefreshSession(c)
	if errors.Is(err, inErrors.ErrUnauthenticated) {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed refreshing session, prefilling from token")
	}
	if identity.UserID != userID {
		err = fmt.Errorf("failed starting checkout with error=%w", inErrors.ErrUnauthenticated)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}
	logger.Info().Msg("refreshed session")

	s := &session{
		id:             uuid.New(),
		userID:         userID,
		machine:        NewMachine(identity),
		idempotencyKey: uuid.New(),
	}
	svc.mu.Lock()
	svc.sessions[s.id] = s
	svc.mu.Unlock()
	logger.Info().Str(constants.KEY_CHECKOUT_ID, s.id.String()).Msg("started checkout")

	s.mu.Lock()
	defer s.mu.Unlock()
	return svc.view(s, svc.carts.Store(c, userID)), nil
}

func (svc *CheckoutService) View(c context.Context, userID, checkoutID uuid.UUID) (response.Checkout, error) {
	s, err := svc.find(userID, checkoutID)
	if err != nil {
		return response.Checkout{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return svc.view(s, svc.carts.Store(c, userID)), nil
}

// transition applies fn unless the cart is empty.
func (svc *CheckoutService) transition(
	c context.Context,
	tag string,
	userID, checkoutID uuid.UUID,
	fn func(m *Machine) error,
) (response.Checkout, error) {
	c, span := otel.Tracer.Start(c, tag)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, tag).
		Str(constants.KEY_USER_ID, userID.String()).
		Str(constants.KEY_CHECKOUT_ID, checkoutID.String()).
		Logger()

	s, err := svc.find(userID, checkoutID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store := svc.carts.Store(c, userID)
	logger = logger.With().Str(constants.KEY_CHECKOUT_STEP, s.machine.State().Step.String()).Logger()
	if store.TotalItems() == 0 {
		err = fmt.Errorf("failed %s with error=%w", tag, inErrors.ErrEmptyCart)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return svc.view(s, store), err
	}
	if err := fn(s.machine); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return svc.view(s, store), err
	}
	logger.Info().Str("nextStep", s.machine.State().Step.String()).Msg("moved checkout")
	return svc.view(s, store), nil
}

func (svc *CheckoutService) SubmitShipping(c context.Context, userID, checkoutID uuid.UUID, req request.Shipping) (response.Checkout, error) {
	return svc.transition(c, "CheckoutService SubmitShipping", userID, checkoutID, func(m *Machine) error {
		return m.SubmitShipping(c, req)
	})
}

func (svc *CheckoutService) SubmitPayment(c context.Context, userID, checkoutID uuid.UUID, req request.Payment) (response.Checkout, error) {
	return svc.transition(c, "CheckoutService SubmitPayment", userID, checkoutID, func(m *Machine) error {
		return m.SubmitPayment(c, req)
	})
}

func (svc *CheckoutService) Back(c context.Context, userID, checkoutID uuid.UUID) (response.Checkout, error) {
	return svc.transition(c, "CheckoutService Back", userID, checkoutID, func(m *Machine) error {
		return m.Back()
	})
}

// PlaceOrder submits the reviewed checkout. Only one submission per checkout
// runs at a time. A canceled order rotates the idempotency key so the next
// attempt creates a fresh order.
func (svc *CheckoutService) PlaceOrder(c context.Context, userID, checkoutID uuid.UUID) (response.Confirmation, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService PlaceOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutService PlaceOrder").
		Str(constants.KEY_USER_ID, userID.String()).
		Str(constants.KEY_CHECKOUT_ID, checkoutID.String()).
		Logger()

	s, err := svc.find(userID, checkoutID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "beginning submission").Logger()
	logger.Info().Msg("beginning submission")
	store := svc.carts.Store(c, userID)
	s.mu.Lock()
	items := store.Items()
	if len(items) == 0 {
		s.mu.Unlock()
		err = fmt.Errorf("failed placing order with error=%w", inErrors.ErrEmptyCart)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	if err := s.machine.BeginSubmission(); err != nil {
		s.mu.Unlock()
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	c, cancel := context.WithCancel(c)
	defer cancel()
	s.cancel = cancel
	state := s.machine.State()
	sub := Submission{
		IdempotencyKey:  s.idempotencyKey,
		Items:           items,
		DeliveryMethod:  state.DeliveryMethod,
		PaymentMethod:   state.PaymentMethod,
		ShippingAddress: state.ShippingAddress,
	}
	s.mu.Unlock()
	logger.Info().Msg("began submission")

	logger = logger.With().Str(constants.KEY_PROCESS, "submitting order").Logger()
	logger.Info().Msg("submitting order")
	confirmation, err := svc.submitter.Submit(logger.WithContext(c), sub)

	s.mu.Lock()
	s.cancel = nil
	s.machine.EndSubmission(err)
	if err != nil {
		if errors.Is(err, inErrors.ErrPartialOrder) {
			s.idempotencyKey = uuid.New()
		}
		s.mu.Unlock()
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	s.mu.Unlock()
	logger = logger.With().Str(constants.KEY_ORDER_ID, confirmation.OrderID.String()).Logger()
	logger.Info().Msg("submitted order")

	logger = logger.With().Str(constants.KEY_PROCESS, "clearing cart").Logger()
	logger.Info().Msg("clearing cart")
	store.ClearCart(logger.WithContext(context.WithoutCancel(c)))
	logger.Info().Msg("cleared cart")

	logger = logger.With().Str(constants.KEY_PROCESS, "saving confirmation").Logger()
	logger.Info().Msg("saving confirmation")
	if err := svc.confirmations.SaveConfirmation(context.WithoutCancel(c), confirmation); err != nil {
		logger.Error().Err(err).Msg(err.Error())
	} else {
		logger.Info().Msg("saved confirmation")
	}

	svc.discard(checkoutID)
	return confirmation, nil
}

// Abandon drops the checkout and aborts a submission in flight.
func (svc *CheckoutService) Abandon(c context.Context, userID, checkoutID uuid.UUID) error {
	c, span := otel.Tracer.Start(c, "CheckoutService Abandon")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutService Abandon").
		Str(constants.KEY_USER_ID, userID.String()).
		Str(constants.KEY_CHECKOUT_ID, checkoutID.String()).
		Logger()

	s, err := svc.find(userID, checkoutID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	s.mu.Lock()
	if s.cancel != nil {
		logger.Info().Msg("canceling submission in flight")
		s.cancel()
	}
	s.mu.Unlock()
	svc.discard(checkoutID)
	logger.Info().Msg("abandoned checkout")
	return nil
}
