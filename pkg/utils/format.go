// Package utils provides formatting helpers for regulatory figures.
package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FormatPercent formats a fraction as a percentage with two decimals.
// e.g., 0.0327 → "3.27%", 1 → "100.00%". Rounds half away from zero.
func FormatPercent(fraction float64) string {
	return FormatPercentPlaces(fraction, 2)
}

// FormatPercentPlaces formats a fraction as a percentage with the given decimals.
func FormatPercentPlaces(fraction float64, places int32) string {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(fraction).Mul(hundred).StringFixed(places) + "%"
}

// Round rounds x to the given number of decimal places, half away from zero.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
