package units

import (
	"math"
	"sort"
)

// Registry performs conversions between units of the same family. It is
// constructed once at process start and passed by reference to every
// calculator; the unit tables are fixed after construction.
type Registry struct {
	linear      map[Family]map[string]float64
	temperature map[string]temperatureUnit
}

// NewRegistry constructs a registry holding the fixed unit tables.
func NewRegistry() *Registry {
	return &Registry{
		linear:      linearFactors(),
		temperature: temperatureUnits(),
	}
}

// Families returns the declared family identifiers in sorted order.
func (r *Registry) Families() []Family {
	out := make([]Family, 0, len(r.linear)+1)
	for f := range r.linear {
		out = append(out, f)
	}
	out = append(out, FamilyTemperature)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Units returns the unit symbols of a family in sorted order. Unknown
// families yield nil.
func (r *Registry) Units(family Family) []string {
	if family == FamilyTemperature {
		out := make([]string, 0, len(r.temperature))
		for u := range r.temperature {
			out = append(out, u)
		}
		sort.Strings(out)
		return out
	}
	table, ok := r.linear[family]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(table))
	for u := range table {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Factor returns the multiplier from unit to the family's base unit. The
// second return reports whether the family and unit are declared; temperature
// units have no linear factor and always report false.
func (r *Registry) Factor(family Family, unit string) (float64, bool) {
	table, ok := r.linear[family]
	if !ok {
		return 0, false
	}
	f, ok := table[unit]
	return f, ok
}

// Convert converts value from one unit to another within family.
//
// Unknown families return the value unchanged; this permissive no-op is part
// of the engine's contract. Unknown units within a known family yield NaN,
// which callers are expected to reject at the boundary before recording a
// result.
func (r *Registry) Convert(value float64, fromUnit, toUnit string, family Family) float64 {
	if fromUnit == toUnit {
		return value
	}
	if family == FamilyTemperature {
		return r.convertTemperature(value, fromUnit, toUnit)
	}
	table, ok := r.linear[family]
	if !ok {
		return value
	}
	from, okFrom := table[fromUnit]
	to, okTo := table[toUnit]
	if !okFrom || !okTo {
		return math.NaN()
	}
	return value * from / to
}

// convertTemperature pivots through Celsius regardless of the endpoints.
func (r *Registry) convertTemperature(value float64, fromUnit, toUnit string) float64 {
	from, okFrom := r.temperature[fromUnit]
	to, okTo := r.temperature[toUnit]
	if !okFrom || !okTo {
		return math.NaN()
	}
	return to.fromCelsius(from.toCelsius(value))
}

// Quantity pairs a value with its unit and family. Quantities are immutable;
// conversions produce a new Quantity and never cross family boundaries.
type Quantity struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Family Family  `json:"family"`
}

// In converts the quantity to the target unit using the supplied registry.
func (q Quantity) In(r *Registry, unit string) Quantity {
	return Quantity{
		Value:  r.Convert(q.Value, q.Unit, unit, q.Family),
		Unit:   unit,
		Family: q.Family,
	}
}
