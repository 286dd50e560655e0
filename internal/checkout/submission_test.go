package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/backend/backendtest"
	"github.com/Alturino/mallofhookah/internal/cart"
	"github.com/Alturino/mallofhookah/internal/domain"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/repository"
)

func setupSubmitter(t *testing.T) (*Submitter, *backendtest.Fake, *repository.Queries, backend.Session) {
	t.Helper()
	fake := backendtest.NewFake()
	queries := repository.New(fake, fake)
	session := backend.Session{UserID: uuid.New(), Email: "mia@example.de"}
	submitter := NewSubmitter(mockIdentity{session: session, ok: true}, queries, DefaultPricing(), 0)
	return submitter, fake, queries, session
}

func oneLine() []cart.Item {
	return []cart.Item{{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Name:      "P1",
		UnitPrice: decimal.RequireFromString("20.00"),
		Quantity:  2,
	}}
}

func twoLines() []cart.Item {
	return append(oneLine(), cart.Item{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Name:      "P2",
		UnitPrice: decimal.RequireFromString("5.00"),
		Quantity:  1,
	})
}

func shippingTo(postalCode string) domain.ShippingAddress {
	return domain.ShippingAddress{
		FirstName:    "Mia",
		LastName:     "Schulz",
		AddressLine1: "Lindenhofstraße 3",
		City:         "Bremen",
		PostalCode:   postalCode,
		CountryCode:  "DE",
		Phone:        "0421 123456",
	}
}

func TestSubmitScenarios(t *testing.T) {
	tests := []struct {
		name           string
		method         domain.DeliveryMethod
		payment        domain.PaymentMethod
		address        domain.ShippingAddress
		expectedStatus domain.OrderStatus
		expectedShip   string
		expectedTax    string
		expectedTotal  string
	}{
		{
			name:           "given pickup with cash on delivery should ship free and wait for payment",
			method:         domain.DeliveryPickup,
			payment:        domain.PaymentCashOnDelivery,
			address:        domain.StoreAddress(shippingTo("")),
			expectedStatus: domain.OrderStatusPendingPayment,
			expectedShip:   "0",
			expectedTax:    "7.60",
			expectedTotal:  "47.60",
		},
		{
			name:           "given shipping inside close radius above lower threshold should ship free",
			method:         domain.DeliveryShipping,
			payment:        domain.PaymentPaypal,
			address:        shippingTo("28237"),
			expectedStatus: domain.OrderStatusPending,
			expectedShip:   "0",
			expectedTax:    "7.60",
			expectedTotal:  "47.60",
		},
		{
			name:           "given shipping outside every radius below upper threshold should pay standard fee",
			method:         domain.DeliveryShipping,
			payment:        domain.PaymentKlarna,
			address:        shippingTo("10115"),
			expectedStatus: domain.OrderStatusPending,
			expectedShip:   "5.99",
			expectedTax:    "7.60",
			expectedTotal:  "53.59",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			submitter, fake, queries, session := setupSubmitter(t)
			c := context.Background()

			confirmation, err := submitter.Submit(c, Submission{
				IdempotencyKey:  uuid.New(),
				Items:           oneLine(),
				DeliveryMethod:  test.method,
				PaymentMethod:   test.payment,
				ShippingAddress: test.address,
			})
			require.NoError(t, err)

			totals := confirmation.Totals
			assert.True(t, decimal.RequireFromString("40.00").Equal(totals.Subtotal))
			assert.True(t, decimal.RequireFromString(test.expectedShip).Equal(totals.ShippingCost), totals.ShippingCost.String())
			assert.True(t, decimal.RequireFromString(test.expectedTax).Equal(totals.Tax), totals.Tax.String())
			assert.True(t, decimal.RequireFromString(test.expectedTotal).Equal(totals.Total), totals.Total.String())
			assert.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.Tax).Add(totals.ShippingCost).Sub(totals.Discount)))
			assert.Equal(t, "/", confirmation.Redirect.To)
			assert.Equal(t, 30, confirmation.Redirect.AfterSeconds)

			assert.Equal(t, 1, fake.Calls(backend.ProcedureCreateOrder))
			order, err := queries.FindOrderById(c, repository.FindOrderByIdParams{UserID: session.UserID, OrderID: confirmation.OrderID})
			require.NoError(t, err)
			assert.Equal(t, test.expectedStatus, order.Status)
			assert.True(t, order.Totals.Total.Equal(totals.Total))
			assert.Equal(t, "Mia Schulz", order.CustomerName)

			items, err := queries.FindOrderItemsByOrderId(c, confirmation.OrderID)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.True(t, decimal.RequireFromString("40.00").Equal(items[0].Subtotal))
			assert.Equal(t, int32(2), items[0].Quantity)
		})
	}
}

func TestSubmitUnauthenticated(t *testing.T) {
	fake := backendtest.NewFake()
	submitter := NewSubmitter(mockIdentity{}, repository.New(fake, fake), DefaultPricing(), 0)

	_, err := submitter.Submit(context.Background(), Submission{
		IdempotencyKey: uuid.New(),
		Items:          oneLine(),
		DeliveryMethod: domain.DeliveryPickup,
		PaymentMethod:  domain.PaymentPaypal,
	})

	assert.ErrorIs(t, err, inErrors.ErrUnauthenticated)
	assert.Equal(t, 0, fake.Calls(backend.ProcedureCreateOrder))
	assert.Empty(t, fake.Rows(repository.TableOrders))
}

func TestSubmitCreateOrderFailure(t *testing.T) {
	submitter, fake, _, _ := setupSubmitter(t)
	fake.OnProcedure(backend.ProcedureCreateOrder, func(c context.Context, call int, args map[string]any) error {
		return &backend.RemoteError{Code: "42501", Message: "new row violates row-level security policy"}
	})

	_, err := submitter.Submit(context.Background(), Submission{
		IdempotencyKey:  uuid.New(),
		Items:           oneLine(),
		DeliveryMethod:  domain.DeliveryShipping,
		PaymentMethod:   domain.PaymentPaypal,
		ShippingAddress: shippingTo("28237"),
	})

	assert.ErrorIs(t, err, inErrors.ErrCreateOrder)
	assert.Contains(t, err.Error(), "new row violates row-level security policy")
	assert.Equal(t, 0, fake.Calls(backend.ProcedureAddOrderItem))
}

func TestSubmitMissingOrderID(t *testing.T) {
	writer := &mockOrderWriter{}
	submitter := NewSubmitter(mockIdentity{session: backend.Session{UserID: uuid.New()}, ok: true}, writer, DefaultPricing(), 0)

	_, err := submitter.Submit(context.Background(), Submission{
		IdempotencyKey: uuid.New(),
		Items:          oneLine(),
		DeliveryMethod: domain.DeliveryPickup,
		PaymentMethod:  domain.PaymentPaypal,
	})

	assert.ErrorIs(t, err, inErrors.ErrMissingOrderID)
	assert.Equal(t, 0, writer.Added)
}

func TestSubmitPartialFailureCancelsOrder(t *testing.T) {
	submitter, fake, queries, session := setupSubmitter(t)
	fake.OnProcedure(backend.ProcedureAddOrderItem, func(c context.Context, call int, args map[string]any) error {
		if call == 2 {
			return &backend.RemoteError{Code: "23514", Message: "quantity exceeds stock"}
		}
		return nil
	})
	c := context.Background()

	_, err := submitter.Submit(c, Submission{
		IdempotencyKey:  uuid.New(),
		Items:           twoLines(),
		DeliveryMethod:  domain.DeliveryShipping,
		PaymentMethod:   domain.PaymentPaypal,
		ShippingAddress: shippingTo("28237"),
	})

	require.ErrorIs(t, err, inErrors.ErrPartialOrder)
	var partial *PartialOrderError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Added)
	require.Len(t, partial.Missing, 1)
	assert.Equal(t, "P2", partial.Missing[0].Name)
	assert.NoError(t, partial.CompensationErr)

	order, err := queries.FindOrderById(c, repository.FindOrderByIdParams{UserID: session.UserID, OrderID: partial.OrderID})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, order.Status)
	assert.NotEmpty(t, order.Notes)

	items, err := queries.FindOrderItemsByOrderId(c, partial.OrderID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSubmitCompensationFailure(t *testing.T) {
	submitter, fake, queries, session := setupSubmitter(t)
	fake.OnProcedure(backend.ProcedureAddOrderItem, func(c context.Context, call int, args map[string]any) error {
		return errors.New("connection reset")
	})
	fake.OnProcedure(backend.ProcedureCancelOrder, func(c context.Context, call int, args map[string]any) error {
		return errors.New("connection reset")
	})
	c := context.Background()

	_, err := submitter.Submit(c, Submission{
		IdempotencyKey: uuid.New(),
		Items:          oneLine(),
		DeliveryMethod: domain.DeliveryPickup,
		PaymentMethod:  domain.PaymentPaypal,
	})

	var partial *PartialOrderError
	require.ErrorAs(t, err, &partial)
	assert.Error(t, partial.CompensationErr)
	assert.Contains(t, err.Error(), "manual review")

	order, err := queries.FindOrderById(c, repository.FindOrderByIdParams{UserID: session.UserID, OrderID: partial.OrderID})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
}

func TestSubmitCanceledContextCompensates(t *testing.T) {
	submitter, fake, queries, session := setupSubmitter(t)
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake.OnProcedure(backend.ProcedureAddOrderItem, func(_ context.Context, call int, args map[string]any) error {
		cancel()
		return nil
	})

	_, err := submitter.Submit(c, Submission{
		IdempotencyKey: uuid.New(),
		Items:          twoLines(),
		DeliveryMethod: domain.DeliveryPickup,
		PaymentMethod:  domain.PaymentPaypal,
	})

	require.ErrorIs(t, err, inErrors.ErrPartialOrder)
	assert.ErrorIs(t, err, context.Canceled)
	var partial *PartialOrderError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, fake.Calls(backend.ProcedureAddOrderItem))

	order, err := queries.FindOrderById(context.Background(), repository.FindOrderByIdParams{UserID: session.UserID, OrderID: partial.OrderID})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, order.Status)
}

func TestSubmitReusesOrderForSameIdempotencyKey(t *testing.T) {
	submitter, fake, _, session := setupSubmitter(t)
	key := uuid.New()
	existing := uuid.New()
	fake.Seed(repository.TableOrders, backend.Row{
		"id":              existing,
		"user_id":         session.UserID,
		"idempotency_key": key,
		"status":          "pending",
	})

	confirmation, err := submitter.Submit(context.Background(), Submission{
		IdempotencyKey: key,
		Items:          oneLine(),
		DeliveryMethod: domain.DeliveryPickup,
		PaymentMethod:  domain.PaymentPaypal,
	})

	require.NoError(t, err)
	assert.Equal(t, existing, confirmation.OrderID)
	assert.Len(t, fake.Rows(repository.TableOrders), 1)
}
