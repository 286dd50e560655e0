package domain

import "strings"

const DefaultCountryCode = "DE"

type ShippingAddress struct {
	FirstName    string `json:"firstName"    validate:"required"`
	LastName     string `json:"lastName"     validate:"required"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"         validate:"required"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode"   validate:"required"`
	CountryCode  string `json:"countryCode"  validate:"required"`
	Phone        string `json:"phone"        validate:"required"`
}

func (a ShippingAddress) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// StoreAddress is where pickup orders are collected. The customer's name and
// phone are kept so the order still identifies who picks it up.
func StoreAddress(customer ShippingAddress) ShippingAddress {
	return ShippingAddress{
		FirstName:    customer.FirstName,
		LastName:     customer.LastName,
		AddressLine1: "Gröpelinger Heerstraße 214A",
		City:         "Bremen",
		PostalCode:   "28237",
		CountryCode:  DefaultCountryCode,
		Phone:        customer.Phone,
	}
}
