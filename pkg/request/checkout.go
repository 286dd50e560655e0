package request

import (
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/domain"
)

// Shipping is the form of the shipping step. Address fields are only required
// when the order is delivered.
type Shipping struct {
	DeliveryMethod domain.DeliveryMethod `json:"deliveryMethod" validate:"required,oneof=shipping pickup"`
	FirstName      string                `json:"firstName"      validate:"required_if=DeliveryMethod shipping"`
	LastName       string                `json:"lastName"       validate:"required_if=DeliveryMethod shipping"`
	AddressLine1   string                `json:"addressLine1"   validate:"required_if=DeliveryMethod shipping"`
	AddressLine2   string                `json:"addressLine2"`
	City           string                `json:"city"           validate:"required_if=DeliveryMethod shipping"`
	State          string                `json:"state"`
	PostalCode     string                `json:"postalCode"     validate:"required_if=DeliveryMethod shipping"`
	CountryCode    string                `json:"countryCode"    validate:"required_if=DeliveryMethod shipping"`
	Phone          string                `json:"phone"          validate:"required_if=DeliveryMethod shipping"`
}

func (s Shipping) Address() domain.ShippingAddress {
	return domain.ShippingAddress{
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		AddressLine1: s.AddressLine1,
		AddressLine2: s.AddressLine2,
		City:         s.City,
		State:        s.State,
		PostalCode:   s.PostalCode,
		CountryCode:  s.CountryCode,
		Phone:        s.Phone,
	}
}

// Payment is the form of the payment step. Card fields are checked for
// presence and then dropped, they are never stored or forwarded.
type Payment struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" validate:"required,oneof=credit_card paypal klarna cash_on_delivery"`
	CardNumber    Secret               `json:"cardNumber"    validate:"required_if=PaymentMethod credit_card"`
	CardName      string               `json:"cardName"      validate:"required_if=PaymentMethod credit_card"`
	CardExpiry    string               `json:"cardExpiry"    validate:"required_if=PaymentMethod credit_card"`
	CardCvc       Secret               `json:"cardCvc"       validate:"required_if=PaymentMethod credit_card"`
}

func (p Payment) MarshalZerologObject(e *zerolog.Event) {
	e.Str("paymentMethod", string(p.PaymentMethod)).Bool("cardProvided", p.CardNumber != "")
}
