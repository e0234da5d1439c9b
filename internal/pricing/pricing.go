// Package pricing turns line-item inputs into line totals and quote totals.
//
// Every derived amount is rounded to 2 decimal places, half away from zero.
// Line totals are rounded first and the subtotal is the sum of the rounded
// line totals, so subtotal == Σ lineTotal holds exactly.
package pricing

import (
	"go-sales-crm/internal/apperr"

	"github.com/shopspring/decimal"
)

const places = 2

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Line is one priced entry.
type Line struct {
	Quantity        int
	UnitPrice       float64
	DiscountPercent float64
}

// Adjustments are the quote-level amounts applied on top of the subtotal.
type Adjustments struct {
	TaxRate        float64 // percent of subtotal
	DiscountAmount float64
	ShippingAmount float64
}

// Totals is the result of Calculate. LineTotals is aligned with the input lines.
type Totals struct {
	LineTotals     []float64
	Subtotal       float64
	DiscountAmount float64
	TaxAmount      float64
	ShippingAmount float64
	Total          float64
}

// Round applies the package rounding policy.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(places)
}

// RoundFloat rounds a float amount with the package policy.
func RoundFloat(v float64) float64 {
	return Round(decimal.NewFromFloat(v)).InexactFloat64()
}

// LineTotal is quantity * unitPrice * (1 - discountPercent/100), rounded.
func LineTotal(l Line) decimal.Decimal {
	factor := one.Sub(decimal.NewFromFloat(l.DiscountPercent).Div(hundred))
	return Round(decimal.NewFromInt(int64(l.Quantity)).
		Mul(decimal.NewFromFloat(l.UnitPrice)).
		Mul(factor))
}

// ValidateLine checks the inputs of one line. n is the 1-based line number used in messages.
func ValidateLine(n int, l Line) error {
	if l.Quantity <= 0 {
		return apperr.Validation("Line %d: quantity must be greater than zero", n)
	}
	if l.UnitPrice < 0 {
		return apperr.Validation("Line %d: unit price cannot be negative", n)
	}
	if l.DiscountPercent < 0 || l.DiscountPercent > 100 {
		return apperr.Validation("Line %d: discount percent must be between 0 and 100", n)
	}
	return nil
}

// Calculate validates the lines and adjustments and computes every total.
func Calculate(lines []Line, adj Adjustments) (Totals, error) {
	if adj.TaxRate < 0 || adj.TaxRate > 100 {
		return Totals{}, apperr.Validation("Tax rate must be between 0 and 100")
	}
	if adj.DiscountAmount < 0 {
		return Totals{}, apperr.Validation("Discount amount cannot be negative")
	}
	if adj.ShippingAmount < 0 {
		return Totals{}, apperr.Validation("Shipping amount cannot be negative")
	}

	out := Totals{LineTotals: make([]float64, len(lines))}
	subtotal := decimal.Zero
	for i, l := range lines {
		if err := ValidateLine(i+1, l); err != nil {
			return Totals{}, err
		}
		lt := LineTotal(l)
		out.LineTotals[i] = lt.InexactFloat64()
		subtotal = subtotal.Add(lt)
	}

	discount := Round(decimal.NewFromFloat(adj.DiscountAmount))
	shipping := Round(decimal.NewFromFloat(adj.ShippingAmount))
	tax := Tax(subtotal, adj.TaxRate)

	out.Subtotal = subtotal.InexactFloat64()
	out.DiscountAmount = discount.InexactFloat64()
	out.TaxAmount = tax.InexactFloat64()
	out.ShippingAmount = shipping.InexactFloat64()
	out.Total = Round(subtotal.Sub(discount).Add(tax).Add(shipping)).InexactFloat64()
	return out, nil
}

// Tax is subtotal * rate/100, rounded.
func Tax(subtotal decimal.Decimal, ratePercent float64) decimal.Decimal {
	return Round(subtotal.Mul(decimal.NewFromFloat(ratePercent)).Div(hundred))
}
