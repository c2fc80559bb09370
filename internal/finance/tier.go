// Package finance derives GST, room hire, support-fee tiers and profit for
// cleaned lesson events.
package finance

import (
	"strings"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/shopspring/decimal"
)

// Tiers is the number of support-fee tiers.
const Tiers = 7

type band struct {
	below decimal.Decimal
	fee   decimal.Decimal
}

// bands are checked in order; a net fee below a band's limit falls in it.
// The last tier has no upper limit.
var bands = [Tiers - 1]band{
	{below: decimal.RequireFromString("11.51"), fee: decimal.RequireFromString("1.80")},
	{below: decimal.RequireFromString("13.51"), fee: decimal.RequireFromString("2.20")},
	{below: decimal.RequireFromString("15.51"), fee: decimal.RequireFromString("2.60")},
	{below: decimal.RequireFromString("17.51"), fee: decimal.RequireFromString("3.00")},
	{below: decimal.RequireFromString("20.51"), fee: decimal.RequireFromString("3.30")},
	{below: decimal.RequireFromString("26.51"), fee: decimal.RequireFromString("3.60")},
}

var topFee = decimal.RequireFromString("4.00")

// TierOf returns the support-fee tier (1-7) for a net lesson fee.
func TierOf(net decimal.Decimal) int {
	for i, b := range bands {
		if net.LessThan(b.below) {
			return i + 1
		}
	}
	return Tiers
}

// FeeOf returns the support fee owed for a net lesson fee.
func FeeOf(net decimal.Decimal) decimal.Decimal {
	return TierFee(TierOf(net))
}

// TierFee returns the fixed fee of a tier. Tiers outside 1-7 cost nothing.
func TierFee(tier int) decimal.Decimal {
	switch {
	case tier >= 1 && tier < Tiers:
		return bands[tier-1].fee
	case tier == Tiers:
		return topFee
	default:
		return decimal.Zero
	}
}

// ClassifyFee parses a textual net fee such as "$18.40" and classifies it.
// Non-numeric input fails with *common.InvalidFeeInputError.
func ClassifyFee(raw string) (int, decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")

	net, err := decimal.NewFromString(s)
	if err != nil {
		return 0, decimal.Zero, &common.InvalidFeeInputError{Value: raw}
	}

	tier := TierOf(net)
	return tier, TierFee(tier), nil
}
