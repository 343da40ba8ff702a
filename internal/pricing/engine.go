// Package pricing derives monetary breakdowns from cart items. Everything
// here is pure: the same items and config always give the same breakdown.
package pricing

import (
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/shopspring/decimal"
)

// Compute returns the breakdown for items priced at their Price field.
// Shipping is charged only when there is at least one item. Tax is
// rounded half-up to whole units; the total is the exact sum of the parts.
func Compute(items []domain.CartItem, cfg domain.PricingConfig) domain.PriceBreakdown {
	unit := cfg.ShippingFee.Currency

	subtotal := domain.NewMoney(0, unit)
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	shipping := domain.NewMoney(0, unit)
	if len(items) > 0 {
		shipping = cfg.ShippingFee
	}

	tax := domain.NewMoney(Tax(subtotal.Amount, cfg.TaxRate), unit)

	return domain.PriceBreakdown{
		Subtotal:    subtotal,
		Tax:         tax,
		ShippingFee: shipping,
		Total:       subtotal.Add(tax).Add(shipping),
	}
}

// Tax computes round_half_up(amount * rate). Amounts are never negative,
// so decimal's half-away-from-zero rounding is half-up here.
func Tax(amount int64, rate decimal.Decimal) int64 {
	if rate.IsZero() || amount == 0 {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}
