package order

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/domain"
	inHttp "github.com/Alturino/mallofhookah/internal/http"
	"github.com/Alturino/mallofhookah/internal/log"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/internal/repository"
	"github.com/Alturino/mallofhookah/pkg/response"
)

const (
	EmailTypeOrderConfirmation = "order_confirmation"
	emailStatusSent            = "sent"
	defaultGreeting            = "Kunde"
)

//go:embed templates/confirmation.html
var templates embed.FS

var confirmationTemplate = template.Must(template.ParseFS(templates, "templates/confirmation.html"))

type Email struct {
	UserID    uuid.UUID `json:"userId"`
	OrderID   uuid.UUID `json:"orderId"`
	From      string    `json:"from"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
}

type Sender interface {
	Send(c context.Context, email Email) error
}

type emailLine struct {
	Name      string
	Quantity  int32
	UnitPrice string
	Subtotal  string
}

type emailData struct {
	OrderID        uuid.UUID
	Greeting       string
	Items          []emailLine
	Subtotal       string
	Tax            string
	Shipping       string
	Total          string
	PaymentMethod  string
	DeliveryMethod string
	Address        *domain.ShippingAddress
}

// GreetingName picks how the customer is addressed: the full name, then first
// and last name, then the local part of the email.
func GreetingName(fullName, firstName, lastName, email string) string {
	if name := strings.TrimSpace(fullName); name != "" {
		return name
	}
	if name := strings.TrimSpace(firstName + " " + lastName); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(email, "@"); strings.TrimSpace(local) != "" {
		return local
	}
	return defaultGreeting
}

func deliveryLabel(method domain.DeliveryMethod) string {
	if method == domain.DeliveryPickup {
		return "Abholung im Geschäft"
	}
	return "Versand"
}

func RenderConfirmation(confirmation response.Confirmation) (string, error) {
	data := emailData{
		OrderID: confirmation.OrderID,
		Greeting: GreetingName(
			confirmation.CustomerName,
			confirmation.ShippingAddress.FirstName,
			confirmation.ShippingAddress.LastName,
			confirmation.CustomerEmail,
		),
		Items:          make([]emailLine, 0, len(confirmation.Items)),
		Subtotal:       confirmation.Totals.Subtotal.StringFixed(2),
		Tax:            confirmation.Totals.Tax.StringFixed(2),
		Shipping:       confirmation.Totals.ShippingCost.StringFixed(2),
		Total:          confirmation.Totals.Total.StringFixed(2),
		PaymentMethod:  confirmation.PaymentMethod.Label(),
		DeliveryMethod: deliveryLabel(confirmation.DeliveryMethod),
	}
	for _, item := range confirmation.Items {
		name := item.ProductName
		if name == "" {
			name = "Unbekanntes Produkt"
		}
		data.Items = append(data.Items, emailLine{
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal.StringFixed(2),
		})
	}
	if confirmation.DeliveryMethod == domain.DeliveryShipping {
		address := confirmation.ShippingAddress
		data.Address = &address
	}

	buf := bytes.Buffer{}
	if err := confirmationTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed rendering confirmation email with error=%w", err)
	}
	return buf.String(), nil
}

// LogSender records the email in email_logs instead of delivering it.
type LogSender struct {
	queries *repository.Queries
}

func NewLogSender(queries *repository.Queries) *LogSender {
	return &LogSender{queries: queries}
}

func (s *LogSender) Send(c context.Context, email Email) error {
	c, span := otel.Tracer.Start(c, "LogSender Send")
	defer span.End()

	_, err := s.queries.InsertEmailLog(c, repository.InsertEmailLogParams{
		UserID:    email.UserID,
		OrderID:   email.OrderID,
		EmailType: EmailTypeOrderConfirmation,
		Recipient: email.Recipient,
		Subject:   email.Subject,
		Content:   email.Content,
		Status:    emailStatusSent,
		SentAt:    time.Now(),
	})
	if err != nil {
		err = fmt.Errorf("failed inserting email log with error=%w", err)
		otel.RecordError(err, span)
		return err
	}
	return nil
}

// WebhookSender posts emails to a mail relay. While the relay is failing the
// breaker stays open and emails go to fallback.
type WebhookSender struct {
	url      string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[struct{}]
	fallback Sender
}

func NewWebhookSender(url string, timeout time.Duration, fallback Sender) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "email-webhook",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		fallback: fallback,
	}
}

func (s *WebhookSender) Send(c context.Context, email Email) error {
	c, span := otel.Tracer.Start(c, "WebhookSender Send")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "WebhookSender Send").
		Str(constants.KEY_ORDER_ID, email.OrderID.String()).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "posting email").Logger()
	logger.Info().Msg("posting email")
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(c, email)
	})
	if err == nil {
		logger.Info().Msg("posted email")
		return nil
	}
	err = fmt.Errorf("failed posting email with error=%w", err)
	otel.RecordError(err, span)
	logger.Error().Err(err).Msg(err.Error())
	if s.fallback == nil {
		return err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "falling back").Logger()
	logger.Info().Msg("falling back")
	return s.fallback.Send(c, email)
}

func (s *WebhookSender) post(c context.Context, email Email) error {
	body, err := json.Marshal(email)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(c, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set(inHttp.KEY_HEADER_CONTENT_TYPE, inHttp.VALUE_HEADER_APP_JSON)
	req.Header.Set(inHttp.KEY_HEADER_REQUEST_ID, log.RequestIDFromContext(c))
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("mail relay answered statusCode=%d", resp.StatusCode)
	}
	return nil
}
