// Package pricing holds the money arithmetic shared by checkout, payment and
// order creation. All sums are done in decimal and converted to float64 only
// at the edges.
package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// PromoWelcome20 takes 20% off the subtotal
	PromoWelcome20 = "WELCOME20"
)

var (
	DeliveryFee  = decimal.NewFromInt(30)
	TaxRate      = decimal.RequireFromString("0.05")
	promoPercent = map[string]decimal.Decimal{
		PromoWelcome20: decimal.RequireFromString("0.20"),
	}
	hundred = decimal.NewFromInt(100)
)

// ErrUnknownPromo is returned for promo codes that are not recognised
var ErrUnknownPromo = errors.New("unknown promo code")

// Line is a priced quantity of one menu item
type Line struct {
	UnitPrice float64
	Quantity  int
}

// Totals is the breakdown persisted on an order.
// Total == Subtotal + DeliveryFee + Tax - Discount.
type Totals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	PromoCode   string
}

// NormalizePromo canonicalises a user supplied promo code
func NormalizePromo(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Compute prices lines with the fixed delivery fee and tax rate. An empty
// promo means no discount; an unrecognised one is an error.
func Compute(lines []Line, promo string) (Totals, error) {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	discount := decimal.Zero
	promo = NormalizePromo(promo)
	if promo != "" {
		pct, ok := promoPercent[promo]
		if !ok {
			return Totals{}, ErrUnknownPromo
		}
		discount = subtotal.Mul(pct)
	}

	tax := subtotal.Mul(TaxRate)
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: DeliveryFee,
		Tax:         tax,
		Discount:    discount,
		Total:       subtotal.Add(DeliveryFee).Add(tax).Sub(discount),
		PromoCode:   promo,
	}, nil
}

// MinorUnits converts an amount to integer cents, round(amount × 100)
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// Float returns d as float64 for storage and JSON
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
