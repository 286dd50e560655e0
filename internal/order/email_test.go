package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/mallofhookah/internal/domain"
	"github.com/Alturino/mallofhookah/pkg/response"
)

type recordingSender struct{ emails []Email }

func (s *recordingSender) Send(c context.Context, email Email) error {
	s.emails = append(s.emails, email)
	return nil
}

func TestGreetingName(t *testing.T) {
	tests := []struct {
		name     string
		full     string
		first    string
		last     string
		email    string
		expected string
	}{
		{name: "given full name should use it", full: "Mia Schulz", first: "X", email: "m@example.de", expected: "Mia Schulz"},
		{name: "given first and last name should join them", first: "Mia", last: "Schulz", email: "m@example.de", expected: "Mia Schulz"},
		{name: "given only email should use local part", email: "mia.s@example.de", expected: "mia.s"},
		{name: "given nothing should greet customer", expected: "Kunde"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, GreetingName(test.full, test.first, test.last, test.email))
		})
	}
}

func TestRenderConfirmation(t *testing.T) {
	confirmation := response.Confirmation{
		OrderID:        uuid.New(),
		CustomerName:   "Mia <b>Schulz</b>",
		PaymentMethod:  domain.PaymentCashOnDelivery,
		DeliveryMethod: domain.DeliveryPickup,
		Items: []domain.OrderItem{{
			ProductName: "Aladin Alux",
			Quantity:    2,
			UnitPrice:   decimal.NewFromInt(20),
			Subtotal:    decimal.NewFromInt(40),
		}},
		Totals: domain.NewTotals(decimal.NewFromInt(40), decimal.Zero, decimal.RequireFromString("0.19")),
	}

	content, err := RenderConfirmation(confirmation)

	require.NoError(t, err)
	assert.Contains(t, content, confirmation.OrderID.String())
	assert.Contains(t, content, "Nachnahme")
	assert.Contains(t, content, "Abholung im Geschäft")
	assert.Contains(t, content, "Aladin Alux")
	assert.Contains(t, content, "47.60 €")
	assert.Contains(t, content, "Mia &lt;b&gt;Schulz&lt;/b&gt;")
	assert.NotContains(t, content, "Lieferadresse")
}

func TestWebhookSender(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := Email{}
		if err := json.NewDecoder(r.Body).Decode(&email); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()
	fallback := &recordingSender{}
	sender := NewWebhookSender(server.URL, time.Second, fallback)

	err := sender.Send(context.Background(), Email{OrderID: uuid.New(), Recipient: "mia@example.de"})

	require.NoError(t, err)
	assert.Equal(t, int32(1), received.Load())
	assert.Empty(t, fallback.emails)
}

func TestWebhookSenderFallsBackAndTrips(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	fallback := &recordingSender{}
	sender := NewWebhookSender(server.URL, time.Second, fallback)

	for i := 0; i < 5; i++ {
		require.NoError(t, sender.Send(context.Background(), Email{OrderID: uuid.New()}))
	}

	assert.Len(t, fallback.emails, 5)
	assert.Equal(t, int32(3), received.Load())
}
