package core

import (
	"fmt"

	"vetcalc/pkg/calc"
	"vetcalc/pkg/units"
)

// Summary renders the human-readable sentence recorded alongside a computed
// result. Raw input strings are interpolated as entered; computed numbers go
// through the display formatter.
func Summary(raw map[string]string, result calc.Result) string {
	switch res := result.(type) {
	case calc.DoseResult:
		sentence := fmt.Sprintf("%s kg at %s %s/kg needs %s mg (%s mL).",
			raw[InputWeight],
			raw[InputDose],
			rawOr(raw, InputDoseUnit, "mg"),
			calc.Format(res.TotalDoseMg),
			calc.Format(res.VolumeML),
		)
		if res.HasRate {
			sentence += fmt.Sprintf(" Infuse over %s min: %s mL/h, %s drops/min.",
				raw[InputTimeMinutes],
				calc.Format(res.MLPerHour),
				calc.Format(res.DropsPerMinute),
			)
		}
		return sentence
	case calc.SolutionResult:
		return fmt.Sprintf("Dissolve %s g in %s %s for %s %s.",
			calc.Format(res.Grams),
			raw[InputVolume],
			rawOr(raw, InputVolumeUnit, "mL"),
			raw[InputConcentration],
			rawOr(raw, InputConcentrationUnit, "M"),
		)
	case calc.DilutionResult:
		return fmt.Sprintf("%s serial 1:%s dilutions from %s reach %s.",
			raw[InputSteps],
			raw[InputDilutionFactor],
			raw[InputStartConcentration],
			calc.Format(res.FinalConcentration),
		)
	case calc.BufferResult:
		return fmt.Sprintf("pH %s buffer (pKa %s): %s g acid and %s g salt in %s mL.",
			raw[InputPH],
			raw[InputPKa],
			calc.Format(res.AcidMassG),
			calc.Format(res.SaltMassG),
			raw[InputVolume],
		)
	case calc.ConversionResult:
		return fmt.Sprintf("%s %s = %s %s.",
			raw[InputValue],
			unitLabel(raw, InputFromUnit),
			calc.Format(res.Value),
			unitLabel(raw, InputToUnit),
		)
	default:
		return ""
	}
}

func rawOr(raw map[string]string, key, fallback string) string {
	if v := raw[key]; v != "" {
		return v
	}
	return fallback
}

// unitLabel prefixes temperature unit names with the degree sign for display.
func unitLabel(raw map[string]string, key string) string {
	unit := raw[key]
	if units.Family(raw[InputFamily]) == units.FamilyTemperature && (unit == "C" || unit == "F") {
		return "°" + unit
	}
	return unit
}
