// Package calc implements the numeric input discipline and the five clinical
// formulas of the calculation engine: dose/infusion, solution mass, serial
// dilution, buffer preparation, and generic unit conversion. Every calculator
// is a pure function of its inputs plus the unit registry; invalid or
// incomplete input produces no result rather than an error, so callers can
// render a live preview while the user is still typing.
package calc

import (
	"math"
	"strconv"
	"strings"
)

// FilterKeystroke strips every character that is not a digit or decimal point
// and collapses any decimal point beyond the first, keeping the input buffer
// syntactically parseable on every keystroke. Filtering already-filtered text
// returns the same text.
func FilterKeystroke(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	seenDot := false
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseNumber normalizes a comma decimal separator to a period and parses the
// result as a float. The boolean reports whether the text held a finite
// number; empty or unparsable input reports false.
func ParseNumber(text string) (float64, bool) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseOrZero collapses a parse miss to 0. Downstream formulas treat zero and
// negative inputs as an incomplete calculation, so the miss never surfaces as
// an error.
func ParseOrZero(text string) float64 {
	v, ok := ParseNumber(text)
	if !ok {
		return 0
	}
	return v
}
