package calc

import (
	"math"

	"vetcalc/pkg/units"
)

// SolutionInputs are the parsed solution-mass calculator inputs.
// ConcentrationUnit is either a molarity-family unit or the % w/v unit;
// molecular weight is required except for % w/v.
type SolutionInputs struct {
	MolecularWeight   float64
	Concentration     float64
	ConcentrationUnit string
	Volume            float64
	VolumeUnit        string
}

// ComputeSolution derives the solute mass in grams needed to prepare the
// target solution. For a % w/v concentration the molecular weight is not
// consulted: grams follow directly from the volume and the percentage.
func ComputeSolution(r *units.Registry, in SolutionInputs) (SolutionResult, bool) {
	if in.Concentration <= 0 || in.Volume <= 0 {
		return SolutionResult{}, false
	}
	volUnit := in.VolumeUnit
	if volUnit == "" {
		volUnit = "mL"
	}

	if in.ConcentrationUnit == units.PercentWV {
		volML := r.Convert(in.Volume, volUnit, "mL", units.FamilyVolume)
		if math.IsNaN(volML) {
			return SolutionResult{}, false
		}
		return SolutionResult{Grams: in.Concentration * volML / 100}, true
	}

	if in.MolecularWeight <= 0 {
		return SolutionResult{}, false
	}
	concUnit := in.ConcentrationUnit
	if concUnit == "" {
		concUnit = "M"
	}
	concMolar := r.Convert(in.Concentration, concUnit, "M", units.FamilyMolarity)
	volL := r.Convert(in.Volume, volUnit, "L", units.FamilyVolume)
	if math.IsNaN(concMolar) || math.IsNaN(volL) {
		return SolutionResult{}, false
	}
	return SolutionResult{Grams: concMolar * volL * in.MolecularWeight}, true
}
