package repository

import (
	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/domain"
)

// NormalizeShippingAddress reads the shipping address of an order row. Rows
// written by the current schema carry flattened shipping_* columns, older rows
// carry a shipping_address object with camelCase keys. Flattened values win
// and the legacy object fills whatever they leave blank.
func NormalizeShippingAddress(row backend.Row) domain.ShippingAddress {
	flatFirst, flatLast := firstString(row, "shipping_first_name"), firstString(row, "shipping_last_name")
	if flatFirst == "" && flatLast == "" {
		flatFirst, flatLast = splitName(firstString(row, "shipping_name"))
	}
	flat := domain.ShippingAddress{
		FirstName:    flatFirst,
		LastName:     flatLast,
		AddressLine1: firstString(row, "shipping_street", "shipping_address_line1"),
		AddressLine2: firstString(row, "shipping_apartment", "shipping_address_line2"),
		City:         firstString(row, "shipping_city"),
		State:        firstString(row, "shipping_state"),
		PostalCode:   firstString(row, "shipping_postal_code", "shipping_zip"),
		CountryCode:  firstString(row, "shipping_country"),
		Phone:        firstString(row, "shipping_phone"),
	}

	legacy := domain.ShippingAddress{}
	if obj := toObject(row["shipping_address"]); obj != nil {
		first, last := firstString(obj, "firstName", "first_name"), firstString(obj, "lastName", "last_name")
		if first == "" && last == "" {
			first, last = splitName(firstString(obj, "name", "fullName"))
		}
		legacy = domain.ShippingAddress{
			FirstName:    first,
			LastName:     last,
			AddressLine1: firstString(obj, "address1", "street", "addressLine1"),
			AddressLine2: firstString(obj, "address2", "apartment", "addressLine2"),
			City:         firstString(obj, "city"),
			State:        firstString(obj, "state"),
			PostalCode:   firstString(obj, "postalCode", "postal_code", "zip"),
			CountryCode:  firstString(obj, "country", "countryCode"),
			Phone:        firstString(obj, "phone"),
		}
	}

	customerFirst, customerLast := splitName(firstString(row, "customer_name"))
	return domain.ShippingAddress{
		FirstName:    pick(flat.FirstName, legacy.FirstName, customerFirst),
		LastName:     pick(flat.LastName, legacy.LastName, customerLast),
		AddressLine1: pick(flat.AddressLine1, legacy.AddressLine1),
		AddressLine2: pick(flat.AddressLine2, legacy.AddressLine2),
		City:         pick(flat.City, legacy.City),
		State:        pick(flat.State, legacy.State),
		PostalCode:   pick(flat.PostalCode, legacy.PostalCode),
		CountryCode:  pick(flat.CountryCode, legacy.CountryCode, domain.DefaultCountryCode),
		Phone:        pick(flat.Phone, legacy.Phone, firstString(row, "customer_phone")),
	}
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// flattenAddress spells an address as procedure arguments, e.g. p_shipping_street.
func flattenAddress(prefix string, a domain.ShippingAddress) map[string]any {
	return map[string]any{
		"p_" + prefix + "_name":        a.FullName(),
		"p_" + prefix + "_street":      a.AddressLine1,
		"p_" + prefix + "_apartment":   a.AddressLine2,
		"p_" + prefix + "_city":        a.City,
		"p_" + prefix + "_state":       a.State,
		"p_" + prefix + "_postal_code": a.PostalCode,
		"p_" + prefix + "_country":     a.CountryCode,
		"p_" + prefix + "_phone":       a.Phone,
	}
}
