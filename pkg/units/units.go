// Package units declares the fixed unit families used by the calculation
// engine and performs conversions within a family. Linear families map every
// unit to a base unit through a single multiplicative factor; the temperature
// family converts through a Celsius pivot instead.
package units

// Family identifies a group of commensurable units sharing one conversion base.
type Family string

// Supported unit families. The set is fixed; calculators reference families by
// these identifiers and never register units at runtime.
const (
	// FamilyMass covers drug masses (base unit: gram).
	FamilyMass Family = "mass"
	// FamilyVolume covers liquid volumes (base unit: liter).
	FamilyVolume Family = "volume"
	// FamilyMolarity covers solute concentrations (base unit: molar).
	FamilyMolarity Family = "molarity"
	// FamilyDoseConcentration covers stock drug concentrations (base unit: mg/mL).
	FamilyDoseConcentration Family = "dose_concentration"
	// FamilyTemperature is the non-linear family pivoting through Celsius.
	FamilyTemperature Family = "temperature"
)

// PercentWV is the weight-per-volume percent unit: 1% w/v = 1 g per 100 mL.
// Its factor to mg/mL is the fixed constant 10.
const PercentWV = "% w/v"

// linearFactors maps each linear family to its unit table. Every table holds
// exactly one unit with factor 1, the family's base unit.
func linearFactors() map[Family]map[string]float64 {
	return map[Family]map[string]float64{
		FamilyMass: {
			"kg": 1000,
			"g":  1,
			"mg": 0.001,
			"µg": 0.000001,
		},
		FamilyVolume: {
			"L":  1,
			"dL": 0.1,
			"mL": 0.001,
			"µL": 0.000001,
		},
		FamilyMolarity: {
			"M":  1,
			"mM": 0.001,
			"µM": 0.000001,
			"nM": 0.000000001,
		},
		FamilyDoseConcentration: {
			"mg/mL":   1,
			"g/L":     1,
			"µg/mL":   0.001,
			"mg/L":    0.001,
			PercentWV: 10,
		},
	}
}

// temperatureUnit holds the bidirectional mapping between a temperature unit
// and the Celsius pivot.
type temperatureUnit struct {
	toCelsius   func(float64) float64
	fromCelsius func(float64) float64
}

func temperatureUnits() map[string]temperatureUnit {
	identity := func(v float64) float64 { return v }
	return map[string]temperatureUnit{
		"C": {toCelsius: identity, fromCelsius: identity},
		"F": {
			toCelsius:   func(f float64) float64 { return (f - 32) * 5 / 9 },
			fromCelsius: func(c float64) float64 { return c*9/5 + 32 },
		},
		"K": {
			toCelsius:   func(k float64) float64 { return k - 273.15 },
			fromCelsius: func(c float64) float64 { return c + 273.15 },
		},
	}
}
