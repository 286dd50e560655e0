package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/Alturino/mallofhookah/internal/cart"
	"github.com/Alturino/mallofhookah/internal/config"
	"github.com/Alturino/mallofhookah/internal/domain"
	"github.com/Alturino/mallofhookah/internal/shipping"
)

const defaultTaxRate = "0.19"

type Pricing struct {
	Policy   shipping.Policy
	TaxRate  decimal.Decimal
	Currency string
}

func DefaultPricing() Pricing {
	return Pricing{
		Policy:   shipping.DefaultPolicy(),
		TaxRate:  decimal.RequireFromString(defaultTaxRate),
		Currency: "EUR",
	}
}

func PricingFromConfig(cfg config.Checkout) Pricing {
	pricing := DefaultPricing()
	pricing.Policy = shipping.PolicyFromConfig(cfg)
	if cfg.TaxRate > 0 {
		pricing.TaxRate = decimal.NewFromFloat(cfg.TaxRate)
	}
	if cfg.Currency != "" {
		pricing.Currency = cfg.Currency
	}
	return pricing
}

// Totals is recomputed on every call, shipping follows the current address
// and delivery method.
func (p Pricing) Totals(items []cart.Item, method domain.DeliveryMethod, postalCode string) domain.Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	return domain.NewTotals(subtotal, p.Policy.Fee(subtotal, method, postalCode), p.TaxRate)
}
