package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidTaxRate = errors.New("invalid_tax_rate")

// Breakdown is a tax-inclusive total split into its taxable base and tax.
// Base + Tax always equals Total.
type Breakdown struct {
	Base  decimal.Decimal `json:"base"`
	Tax   decimal.Decimal `json:"tax"`
	Total decimal.Decimal `json:"total"`
	Rate  decimal.Decimal `json:"rate"`
}

// SplitTax extracts the tax included in total at rate.
// Rounding happens only here, to two places, and the tax absorbs the
// rounding remainder.
func SplitTax(total, rate decimal.Decimal) (Breakdown, error) {
	if rate.IsNegative() {
		return Breakdown{}, ErrInvalidTaxRate
	}

	total = total.Round(2)
	if rate.IsZero() {
		return Breakdown{Base: total, Tax: decimal.Zero, Total: total, Rate: rate}, nil
	}

	base := total.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
	tax := total.Sub(base).Round(2)

	return Breakdown{
		Base:  base,
		Tax:   tax,
		Total: total,
		Rate:  rate,
	}, nil
}

// RatePercent renders the rate as a percentage label, e.g. "18%".
func (b Breakdown) RatePercent() string {
	return b.Rate.Mul(decimal.NewFromInt(100)).Round(2).String() + "%"
}
