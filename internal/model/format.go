package model

import "github.com/shopspring/decimal"

// FormatUSD renders a money amount the way the dashboard cards display it: "$120.50", "-$3.10".
func FormatUSD(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
