package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultShippingFee is the flat storefront shipping fee in rupiah.
const DefaultShippingFee int64 = 15000

var DefaultPOSTaxRate = decimal.RequireFromString("0.10")

type PricingConfig struct {
	TaxRate     decimal.Decimal
	ShippingFee Money
}

func StorefrontPricing(unit currency.Unit, shippingFee int64) PricingConfig {
	return PricingConfig{
		TaxRate:     decimal.Zero,
		ShippingFee: NewMoney(shippingFee, unit),
	}
}

func POSPricing(unit currency.Unit, taxRate decimal.Decimal) PricingConfig {
	return PricingConfig{
		TaxRate:     taxRate,
		ShippingFee: NewMoney(0, unit),
	}
}

func (c PricingConfig) Validate() error {
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate %s out of [0,1]: %w", c.TaxRate, ErrInvalidPricing)
	}
	if c.ShippingFee.IsNegative() {
		return fmt.Errorf("shipping fee %d is negative: %w", c.ShippingFee.Amount, ErrInvalidPricing)
	}
	return nil
}

// PriceBreakdown is derived from a cart on every read and never stored
// except frozen inside a Receipt.
type PriceBreakdown struct {
	Subtotal    Money
	Tax         Money
	ShippingFee Money
	Total       Money
}
