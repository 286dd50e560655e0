package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/mallofhookah/internal/auth"
	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/backend/backendtest"
	"github.com/Alturino/mallofhookah/internal/cart"
	"github.com/Alturino/mallofhookah/internal/checkout"
	inHttp "github.com/Alturino/mallofhookah/internal/http"
	"github.com/Alturino/mallofhookah/internal/middleware"
	"github.com/Alturino/mallofhookah/internal/order"
	"github.com/Alturino/mallofhookah/internal/product"
	"github.com/Alturino/mallofhookah/internal/repository"
)

const testSecret = "controller-secret"

type storefront struct {
	router  *mux.Router
	fake    *backendtest.Fake
	carts   *cart.CartService
	session backend.Session
	token   string
}

func setupStorefront(t *testing.T) storefront {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fake := backendtest.NewFake()
	queries := repository.New(fake, fake)
	identity := auth.NewProvider(queries, client)
	pricing := checkout.DefaultPricing()
	products := product.NewProductService(queries, client)
	carts := cart.NewCartService(cart.NewMemoryPersistence(), products, time.Hour)
	orders := order.NewOrderService(queries, client, products, order.NewLogSender(queries), "shop@example.de", time.Hour)
	checkoutService := checkout.NewCheckoutService(
		carts,
		identity,
		checkout.NewSubmitter(identity, queries, pricing, time.Second),
		orders,
		pricing,
	)

	router := mux.NewRouter()
	authenticate := middleware.Auth(testSecret)
	AttachAuthController(router, authenticate, auth.NewService(queries, client, testSecret, time.Hour))
	AttachCheckoutController(router, authenticate, checkoutService)

	session := backend.Session{UserID: uuid.New(), Email: "mia@example.de"}
	token, _, err := auth.IssueToken(session, testSecret, time.Hour, time.Now())
	require.NoError(t, err)

	return storefront{router: router, fake: fake, carts: carts, session: session, token: token}
}

type envelope struct {
	Status     string                 `json:"status"`
	StatusCode int                    `json:"statusCode"`
	Message    string                 `json:"message"`
	Data       map[string]interface{} `json:"data"`
}

func (s storefront) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reader).Encode(body))
	}
	r := httptest.NewRequest(method, path, &reader)
	if s.token != "" {
		r.Header.Set(inHttp.KEY_HEADER_AUTHORIZATION, "Bearer "+s.token)
	}
	w := httptest.NewRecorder()

	s.router.ServeHTTP(w, r)

	e := envelope{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	return w.Code, e
}

func (s storefront) fillCart() {
	c := context.Background()
	store := s.carts.Store(c, s.session.UserID)
	store.AddItem(c, cart.Item{ProductID: uuid.New(), Name: "Aladin Alux", UnitPrice: decimal.RequireFromString("20.00"), Quantity: 2})
	store.AddItem(c, cart.Item{ProductID: uuid.New(), Name: "Kohle 1kg", UnitPrice: decimal.RequireFromString("5.00"), Quantity: 1})
}

// reviewed walks a new checkout to the review step and returns its id.
func (s storefront) reviewed(t *testing.T) string {
	t.Helper()
	s.fillCart()

	code, body := s.do(t, http.MethodPost, "/checkout", nil)
	require.Equal(t, http.StatusCreated, code, body.Message)
	id := body.Data["checkout"].(map[string]interface{})["id"].(string)

	code, body = s.do(t, http.MethodPost, "/checkout/"+id+"/shipping", map[string]string{
		"deliveryMethod": "shipping",
		"firstName":      "Mia",
		"lastName":       "Schulz",
		"addressLine1":   "Lindenhofstraße 3",
		"city":           "Bremen",
		"postalCode":     "28237",
		"countryCode":    "DE",
		"phone":          "0421 123456",
	})
	require.Equal(t, http.StatusOK, code, body.Message)

	code, body = s.do(t, http.MethodPost, "/checkout/"+id+"/payment", map[string]string{"paymentMethod": "paypal"})
	require.Equal(t, http.StatusOK, code, body.Message)
	return id
}

func (s storefront) onlyOrderID(t *testing.T) string {
	t.Helper()
	orders := s.fake.Rows(repository.TableOrders)
	require.Len(t, orders, 1)
	return orders[0]["id"].(uuid.UUID).String()
}

func TestPlaceOrder(t *testing.T) {
	tests := []struct {
		name     string
		hooks    map[string]backendtest.Hook
		expected int
		check    func(t *testing.T, s storefront, body envelope)
	}{
		{
			name:     "given reviewed checkout should place order and clear cart",
			expected: http.StatusCreated,
			check: func(t *testing.T, s storefront, body envelope) {
				confirmation := body.Data["confirmation"].(map[string]interface{})
				assert.Equal(t, s.onlyOrderID(t), confirmation["orderId"])
				assert.Equal(t, int32(0), s.carts.Store(context.Background(), s.session.UserID).TotalItems())
			},
		},
		{
			name: "given create order failure should pass the remote message through",
			hooks: map[string]backendtest.Hook{
				backend.ProcedureCreateOrder: func(c context.Context, call int, args map[string]any) error {
					return &backend.RemoteError{Code: "42501", Message: "new row violates row-level security policy"}
				},
			},
			expected: http.StatusBadGateway,
			check: func(t *testing.T, s storefront, body envelope) {
				assert.Contains(t, body.Message, "new row violates row-level security policy")
				assert.Nil(t, body.Data)
				assert.Equal(t, int32(3), s.carts.Store(context.Background(), s.session.UserID).TotalItems())
			},
		},
		{
			name: "given second item failing should cancel order and report it",
			hooks: map[string]backendtest.Hook{
				backend.ProcedureAddOrderItem: func(c context.Context, call int, args map[string]any) error {
					if call == 2 {
						return &backend.RemoteError{Code: "23514", Message: "quantity exceeds stock"}
					}
					return nil
				},
			},
			expected: http.StatusBadGateway,
			check: func(t *testing.T, s storefront, body envelope) {
				assert.Equal(t, s.onlyOrderID(t), body.Data["orderId"])
				assert.Equal(t, false, body.Data["needsReview"])
				assert.Contains(t, body.Message, "was canceled")
				assert.Equal(t, "canceled", s.fake.Rows(repository.TableOrders)[0]["status"])
			},
		},
		{
			name: "given cancel failing too should flag the order for review",
			hooks: map[string]backendtest.Hook{
				backend.ProcedureAddOrderItem: func(c context.Context, call int, args map[string]any) error {
					return errors.New("connection reset")
				},
				backend.ProcedureCancelOrder: func(c context.Context, call int, args map[string]any) error {
					return errors.New("connection reset")
				},
			},
			expected: http.StatusBadGateway,
			check: func(t *testing.T, s storefront, body envelope) {
				assert.Equal(t, s.onlyOrderID(t), body.Data["orderId"])
				assert.Equal(t, true, body.Data["needsReview"])
				assert.Contains(t, body.Message, "manual review")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupStorefront(t)
			for name, hook := range tt.hooks {
				s.fake.OnProcedure(name, hook)
			}
			id := s.reviewed(t)

			code, body := s.do(t, http.MethodPost, "/checkout/"+id+"/place-order", nil)

			assert.Equal(t, tt.expected, code, body.Message)
			assert.Equal(t, tt.expected, body.StatusCode)
			tt.check(t, s, body)
		})
	}
}

func TestCheckoutErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(t *testing.T, s *storefront) string
		method   string
		path     string
		body     any
		expected int
	}{
		{
			name:     "missing token",
			prepare:  func(t *testing.T, s *storefront) string { s.token = ""; return "" },
			method:   http.MethodPost,
			path:     "/checkout",
			expected: http.StatusUnauthorized,
		},
		{
			name: "shipping with empty cart",
			prepare: func(t *testing.T, s *storefront) string {
				_, body := s.do(t, http.MethodPost, "/checkout", nil)
				require.Equal(t, true, body.Data["checkout"].(map[string]interface{})["emptyCart"])
				return body.Data["checkout"].(map[string]interface{})["id"].(string)
			},
			method: http.MethodPost,
			path:   "/checkout/%s/shipping",
			body: map[string]string{
				"deliveryMethod": "pickup",
			},
			expected: http.StatusConflict,
		},
		{
			name:     "unknown checkout",
			prepare:  func(t *testing.T, s *storefront) string { return uuid.NewString() },
			method:   http.MethodGet,
			path:     "/checkout/%s",
			expected: http.StatusNotFound,
		},
		{
			name: "placing order before review",
			prepare: func(t *testing.T, s *storefront) string {
				s.fillCart()
				_, body := s.do(t, http.MethodPost, "/checkout", nil)
				return body.Data["checkout"].(map[string]interface{})["id"].(string)
			},
			method:   http.MethodPost,
			path:     "/checkout/%s/place-order",
			expected: http.StatusConflict,
		},
		{
			name: "invalid shipping form",
			prepare: func(t *testing.T, s *storefront) string {
				s.fillCart()
				_, body := s.do(t, http.MethodPost, "/checkout", nil)
				return body.Data["checkout"].(map[string]interface{})["id"].(string)
			},
			method:   http.MethodPost,
			path:     "/checkout/%s/shipping",
			body:     map[string]string{"deliveryMethod": "shipping", "firstName": "Mia"},
			expected: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupStorefront(t)
			id := tt.prepare(t, &s)
			path := tt.path
			if id != "" {
				path = fmt.Sprintf(tt.path, id)
			}

			code, body := s.do(t, tt.method, path, tt.body)

			assert.Equal(t, tt.expected, code, body.Message)
			assert.Equal(t, "failed", body.Status)
		})
	}
}
