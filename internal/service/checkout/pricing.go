package checkout

import (
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

var (
	FreeShippingThreshold = decimal.NewFromInt(999)
	StandardShippingFee   = decimal.NewFromInt(99)
)

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

func ShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return StandardShippingFee
}

// Price computes the order totals. The discount never exceeds the subtotal.
func Price(subtotal decimal.Decimal, promo *domain.PromoCode, currency string, now time.Time) Totals {
	discount := decimal.Zero
	if promo != nil {
		discount = promo.Discount(subtotal, now)
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}
	shipping := ShippingFee(subtotal)
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    subtotal.Sub(discount).Add(shipping),
		Currency: currency,
	}
}
