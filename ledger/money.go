package ledger

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency of every amount in the plan.
const Currency = money.USD

// FormatUSD renders an amount for display, e.g. "$1,234.50".
// Fractions beyond cents are rounded half away from zero.
func FormatUSD(d decimal.Decimal) string {
	cur := money.GetCurrency(Currency)
	places := int32(cur.Fraction)
	return cur.Formatter().Format(d.Round(places).Shift(places).IntPart())
}
