package calc

import (
	"math"

	"vetcalc/pkg/units"
)

// ConversionInputs are the parsed generic-conversion inputs. Family is one of
// the four general families (mass, volume, molarity, temperature).
type ConversionInputs struct {
	Value    float64
	FromUnit string
	ToUnit   string
	Family   units.Family
}

// ComputeConversion is a thin orchestration over the registry. Identical
// units short-circuit to the input value so identity conversions introduce no
// floating-point drift; the short-circuit and a zero value both report
// ok=false, since neither produces a calculation worth recording.
func ComputeConversion(r *units.Registry, in ConversionInputs) (ConversionResult, bool) {
	if in.FromUnit == in.ToUnit {
		return ConversionResult{Value: in.Value}, false
	}
	if in.Value == 0 {
		return ConversionResult{}, false
	}
	converted := r.Convert(in.Value, in.FromUnit, in.ToUnit, in.Family)
	if math.IsNaN(converted) || math.IsInf(converted, 0) {
		return ConversionResult{}, false
	}
	return ConversionResult{Value: converted}, true
}
