package calc

import (
	"math"

	"vetcalc/pkg/units"
)

// DropFactor is the drops-per-mL delivered by a standard macro-drip
// administration set.
const DropFactor = 20

// DoseInputs are the parsed dose calculator inputs. DoseUnit belongs to the
// mass family (mg when empty) and ConcentrationUnit to the dose-concentration
// family (mg/mL when empty).
type DoseInputs struct {
	WeightKg          float64
	DosePerKg         float64
	DoseUnit          string
	Concentration     float64
	ConcentrationUnit string
	TimeMinutes       float64
}

// ComputeDose derives the total dose, the stock volume to draw up, and, when
// an infusion time is supplied, the pump and drip rates. The boolean reports
// whether the inputs were complete; weight, dose, and concentration must all
// be positive.
func ComputeDose(r *units.Registry, in DoseInputs) (DoseResult, bool) {
	if in.WeightKg <= 0 || in.DosePerKg <= 0 || in.Concentration <= 0 {
		return DoseResult{}, false
	}
	doseUnit := in.DoseUnit
	if doseUnit == "" {
		doseUnit = "mg"
	}
	concUnit := in.ConcentrationUnit
	if concUnit == "" {
		concUnit = "mg/mL"
	}
	doseMgPerKg := r.Convert(in.DosePerKg, doseUnit, "mg", units.FamilyMass)
	concMgPerML := r.Convert(in.Concentration, concUnit, "mg/mL", units.FamilyDoseConcentration)
	if math.IsNaN(doseMgPerKg) || math.IsNaN(concMgPerML) || concMgPerML <= 0 {
		return DoseResult{}, false
	}

	res := DoseResult{
		TotalDoseMg: in.WeightKg * doseMgPerKg,
	}
	res.VolumeML = res.TotalDoseMg / concMgPerML
	if in.TimeMinutes > 0 {
		res.MLPerHour = res.VolumeML / in.TimeMinutes * 60
		res.DropsPerMinute = res.VolumeML * DropFactor / in.TimeMinutes
		res.HasRate = true
	}
	return res, true
}
