package calc

import (
	"math"

	"vetcalc/pkg/units"
)

// BufferInputs are the parsed Henderson-Hasselbalch buffer inputs. Volume is
// in the volume family (mL when the unit is empty) and concentration in molar.
type BufferInputs struct {
	PH             float64
	PKa            float64
	AcidMW         float64
	SaltMW         float64
	VolumeML       float64
	ConcentrationM float64
}

// ComputeBuffer derives the conjugate base / weak acid ratio from the
// pH - pKa difference and splits the total buffer between the acid and salt
// masses. The ratio is well-defined for any finite pH and pKa; extreme
// differences overflow to infinity without special-casing.
func ComputeBuffer(r *units.Registry, in BufferInputs) (BufferResult, bool) {
	if in.PKa <= 0 || in.VolumeML <= 0 || in.ConcentrationM <= 0 {
		return BufferResult{}, false
	}
	if in.AcidMW <= 0 || in.SaltMW <= 0 {
		return BufferResult{}, false
	}

	ratio := math.Pow(10, in.PH-in.PKa)
	fractionSalt := ratio / (1 + ratio)
	fractionAcid := 1 / (1 + ratio)

	volL := r.Convert(in.VolumeML, "mL", "L", units.FamilyVolume)
	moles := in.ConcentrationM * volL
	return BufferResult{
		Ratio:        ratio,
		FractionAcid: fractionAcid,
		FractionSalt: fractionSalt,
		AcidMassG:    fractionAcid * moles * in.AcidMW,
		SaltMassG:    fractionSalt * moles * in.SaltMW,
	}, true
}
