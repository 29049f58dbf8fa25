package calc

import (
	"math"
	"strconv"
)

// Placeholder is rendered for values that have no numeric representation.
const Placeholder = "-"

// DefaultDecimals is the fractional precision used by Format.
const DefaultDecimals = 4

// scientificThreshold is the magnitude below which nonzero values switch to
// scientific notation.
const scientificThreshold = 1e-4

// Format renders v with the default precision. Every summary sentence and
// every exported value goes through this formatter, so the rounding and the
// notation switch-over at 1e-4 are part of the engine's observable contract.
func Format(v float64) string {
	return FormatPrec(v, DefaultDecimals)
}

// FormatPrec renders v with the given number of fractional digits.
//
// NaN and infinities render as the placeholder dash. Nonzero magnitudes below
// 1e-4 use scientific notation. Everything else is rounded numerically, so
// trailing zeros are suppressed: 1.2000 renders as "1.2".
func FormatPrec(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	if v != 0 && math.Abs(v) < scientificThreshold {
		return strconv.FormatFloat(v, 'e', decimals, 64)
	}
	scale := math.Pow(10, float64(decimals))
	rounded := math.Round(v*scale) / scale
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
