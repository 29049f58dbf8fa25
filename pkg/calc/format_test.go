package calc_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"vetcalc/pkg/calc"
)

// TestFormatPlaceholder renders non-numbers as the dash placeholder.
func TestFormatPlaceholder(t *testing.T) {
	require.Equal(t, calc.Placeholder, calc.Format(math.NaN()))
	require.Equal(t, calc.Placeholder, calc.Format(math.Inf(1)))
	require.Equal(t, calc.Placeholder, calc.Format(math.Inf(-1)))
}

// TestFormatScientificSwitch verifies the notation switch-over at 1e-4.
func TestFormatScientificSwitch(t *testing.T) {
	require.Equal(t, "5.0000e-05", calc.Format(0.00005))
	require.Equal(t, "1.0000e-05", calc.Format(0.00001))
	require.Equal(t, "-5.0000e-05", calc.Format(-0.00005))
	// At or above the threshold plain notation applies.
	require.Equal(t, "0.0001", calc.Format(0.0001))
	require.Equal(t, "0.0002", calc.Format(0.0002))
}

// TestFormatTrailingZeros verifies numeric rounding suppresses trailing zeros.
func TestFormatTrailingZeros(t *testing.T) {
	require.Equal(t, "1.2", calc.FormatPrec(1.20000, 4))
	require.Equal(t, "50", calc.Format(50.0))
	require.Equal(t, "1.2346", calc.Format(1.23456789))
	require.Equal(t, "0", calc.Format(0))
}

// TestFormatPrecision checks explicit precision overrides.
func TestFormatPrecision(t *testing.T) {
	require.Equal(t, "1.23", calc.FormatPrec(1.23456789, 2))
	require.Equal(t, "1.2e-05", calc.FormatPrec(0.000012, 1))
}
