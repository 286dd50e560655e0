// Package shipping prices delivery. Fees depend on the subtotal, the delivery
// method and how far the destination postal code is from the store.
package shipping

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Alturino/mallofhookah/internal/config"
	"github.com/Alturino/mallofhookah/internal/domain"
)

var (
	closeRadius = []string{"28237", "28239", "28719", "28717", "28755", "28197"}

	extendedRadius = []string{
		"28195", "28199", "28203", "28205", "28207", "28209", "28211", "28213", "28215",
		"28217", "28219", "28259", "28307", "28325", "28327", "28329", "28355", "28357",
		"28359", "28717", "28719", "28755", "28757", "28759", "28790", "28816", "28832",
	}
)

type Policy struct {
	StandardFee                 decimal.Decimal
	NationwideFreeThreshold     decimal.Decimal
	CloseRadiusFreeThreshold    decimal.Decimal
	ExtendedRadiusFreeThreshold decimal.Decimal
	CloseRadius                 map[string]struct{}
	ExtendedRadius              map[string]struct{}
}

func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[strings.TrimSpace(code)] = struct{}{}
	}
	return set
}

func DefaultPolicy() Policy {
	return Policy{
		StandardFee:                 decimal.RequireFromString("5.99"),
		NationwideFreeThreshold:     decimal.NewFromInt(49),
		CloseRadiusFreeThreshold:    decimal.NewFromInt(39),
		ExtendedRadiusFreeThreshold: decimal.NewFromInt(49),
		CloseRadius:                 toSet(closeRadius),
		ExtendedRadius:              toSet(extendedRadius),
	}
}

// PolicyFromConfig overlays configured values on DefaultPolicy. Zero values
// keep the default.
func PolicyFromConfig(cfg config.Checkout) Policy {
	policy := DefaultPolicy()
	if cfg.StandardFee > 0 {
		policy.StandardFee = decimal.NewFromFloat(cfg.StandardFee)
	}
	if cfg.NationwideFreeThreshold > 0 {
		policy.NationwideFreeThreshold = decimal.NewFromFloat(cfg.NationwideFreeThreshold)
	}
	if cfg.CloseRadiusFreeThreshold > 0 {
		policy.CloseRadiusFreeThreshold = decimal.NewFromFloat(cfg.CloseRadiusFreeThreshold)
	}
	if cfg.ExtendedRadiusFreeThreshold > 0 {
		policy.ExtendedRadiusFreeThreshold = decimal.NewFromFloat(cfg.ExtendedRadiusFreeThreshold)
	}
	if len(cfg.CloseRadius) > 0 {
		policy.CloseRadius = toSet(cfg.CloseRadius)
	}
	if len(cfg.ExtendedRadius) > 0 {
		policy.ExtendedRadius = toSet(cfg.ExtendedRadius)
	}
	return policy
}

// Fee returns the shipping cost. Rules are checked in order and the first
// match wins:
//
//  1. pickup is free
//  2. subtotal >= NationwideFreeThreshold is free everywhere
//  3. subtotal >= CloseRadiusFreeThreshold is free inside CloseRadius
//  4. subtotal >= ExtendedRadiusFreeThreshold is free inside ExtendedRadius
//  5. everything else pays StandardFee
//
// With the default thresholds rule 4 never matches because rule 2 already
// covers the same subtotal. It only takes effect once ExtendedRadiusFreeThreshold
// is configured below NationwideFreeThreshold.
func (p Policy) Fee(subtotal decimal.Decimal, method domain.DeliveryMethod, postalCode string) decimal.Decimal {
	if method == domain.DeliveryPickup {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(p.NationwideFreeThreshold) {
		return decimal.Zero
	}
	code := strings.TrimSpace(postalCode)
	if _, ok := p.CloseRadius[code]; ok && subtotal.GreaterThanOrEqual(p.CloseRadiusFreeThreshold) {
		return decimal.Zero
	}
	if _, ok := p.ExtendedRadius[code]; ok && subtotal.GreaterThanOrEqual(p.ExtendedRadiusFreeThreshold) {
		return decimal.Zero
	}
	return p.StandardFee
}
