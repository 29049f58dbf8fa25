package calc_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"vetcalc/pkg/calc"
	"vetcalc/pkg/units"
)

func registry() *units.Registry { return units.NewRegistry() }

// TestComputeDoseBolus covers the 10 kg / 5 mg/kg / 50 mg/mL bolus scenario:
// total dose 50 mg, volume 1 mL, no rate fields without an infusion time.
func TestComputeDoseBolus(t *testing.T) {
	res, ok := calc.ComputeDose(registry(), calc.DoseInputs{
		WeightKg:      10,
		DosePerKg:     5,
		Concentration: 50,
	})
	require.True(t, ok)
	require.InDelta(t, 50.0, res.TotalDoseMg, 1e-9)
	require.InDelta(t, 1.0, res.VolumeML, 1e-9)
	require.False(t, res.HasRate)
	require.Zero(t, res.MLPerHour)
	require.Zero(t, res.DropsPerMinute)
}

// TestComputeDoseInfusion verifies the pump and drip rates at drop factor 20.
func TestComputeDoseInfusion(t *testing.T) {
	res, ok := calc.ComputeDose(registry(), calc.DoseInputs{
		WeightKg:      20,
		DosePerKg:     2.5,
		Concentration: 10,
		TimeMinutes:   30,
	})
	require.True(t, ok)
	require.InDelta(t, 50.0, res.TotalDoseMg, 1e-9)
	require.InDelta(t, 5.0, res.VolumeML, 1e-9)
	require.True(t, res.HasRate)
	require.InDelta(t, 10.0, res.MLPerHour, 1e-9)          // 5 mL / 30 min * 60
	require.InDelta(t, 100.0/30.0, res.DropsPerMinute, 1e-9) // 5 mL * 20 / 30 min
}

// TestComputeDoseUnitNormalization converts µg/kg doses and % w/v stocks.
func TestComputeDoseUnitNormalization(t *testing.T) {
	res, ok := calc.ComputeDose(registry(), calc.DoseInputs{
		WeightKg:          4,
		DosePerKg:         500,
		DoseUnit:          "µg",
		Concentration:     1,
		ConcentrationUnit: units.PercentWV,
	})
	require.True(t, ok)
	require.InDelta(t, 2.0, res.TotalDoseMg, 1e-9) // 4 kg * 0.5 mg/kg
	require.InDelta(t, 0.2, res.VolumeML, 1e-9)    // 2 mg at 10 mg/mL
}

// TestComputeDoseIncomplete verifies that non-positive required inputs
// produce no result.
func TestComputeDoseIncomplete(t *testing.T) {
	cases := []calc.DoseInputs{
		{WeightKg: 0, DosePerKg: 5, Concentration: 50},
		{WeightKg: 10, DosePerKg: 0, Concentration: 50},
		{WeightKg: 10, DosePerKg: 5, Concentration: 0},
		{WeightKg: -1, DosePerKg: 5, Concentration: 50},
	}
	for _, in := range cases {
		_, ok := calc.ComputeDose(registry(), in)
		require.False(t, ok, "inputs %+v", in)
	}
}

// TestComputeDoseUnknownUnit verifies a registry miss is rejected rather than
// propagating NaN into a recorded result.
func TestComputeDoseUnknownUnit(t *testing.T) {
	_, ok := calc.ComputeDose(registry(), calc.DoseInputs{
		WeightKg:      10,
		DosePerKg:     5,
		DoseUnit:      "grain",
		Concentration: 50,
	})
	require.False(t, ok)
}

// TestComputeSolutionMolar covers the saline scenario: 58.44 g/mol at 1 M in
// 1000 mL weighs out 58.44 g.
func TestComputeSolutionMolar(t *testing.T) {
	res, ok := calc.ComputeSolution(registry(), calc.SolutionInputs{
		MolecularWeight:   58.44,
		Concentration:     1,
		ConcentrationUnit: "M",
		Volume:            1000,
		VolumeUnit:        "mL",
	})
	require.True(t, ok)
	require.InDelta(t, 58.44, res.Grams, 1e-9)
}

// TestComputeSolutionMillimolar checks molarity-family normalization.
func TestComputeSolutionMillimolar(t *testing.T) {
	res, ok := calc.ComputeSolution(registry(), calc.SolutionInputs{
		MolecularWeight:   100,
		Concentration:     250,
		ConcentrationUnit: "mM",
		Volume:            0.5,
		VolumeUnit:        "L",
	})
	require.True(t, ok)
	require.InDelta(t, 12.5, res.Grams, 1e-9)
}

// TestComputeSolutionPercentWV verifies the molecular-weight exception for
// % w/v concentrations.
func TestComputeSolutionPercentWV(t *testing.T) {
	res, ok := calc.ComputeSolution(registry(), calc.SolutionInputs{
		Concentration:     0.9,
		ConcentrationUnit: units.PercentWV,
		Volume:            500,
		VolumeUnit:        "mL",
	})
	require.True(t, ok)
	require.InDelta(t, 4.5, res.Grams, 1e-9)
}

// TestComputeSolutionIncomplete rejects missing molecular weight and
// non-positive values.
func TestComputeSolutionIncomplete(t *testing.T) {
	_, ok := calc.ComputeSolution(registry(), calc.SolutionInputs{
		Concentration: 1, ConcentrationUnit: "M", Volume: 1000,
	})
	require.False(t, ok, "molar concentration requires a molecular weight")

	_, ok = calc.ComputeSolution(registry(), calc.SolutionInputs{
		MolecularWeight: 58.44, Concentration: 1, Volume: 0,
	})
	require.False(t, ok)
}

// TestComputeDilutionSequence covers C0=1 M, DF=10, steps=3 producing
// [1, 0.1, 0.01, 0.001].
func TestComputeDilutionSequence(t *testing.T) {
	res, ok := calc.ComputeDilution(calc.DilutionInputs{
		StartConcentration: 1,
		DilutionFactor:     10,
		Steps:              3,
	})
	require.True(t, ok)
	require.Len(t, res.Steps, 4)
	want := []float64{1, 0.1, 0.01, 0.001}
	for i, step := range res.Steps {
		require.Equal(t, i, step.Step)
		require.InDelta(t, want[i], step.Concentration, 1e-12)
	}
	require.InDelta(t, 0.001, res.FinalConcentration, 1e-12)
}

// TestComputeDilutionInvariant checks length steps+1 and C0/DF^i per entry
// across valid inputs.
func TestComputeDilutionInvariant(t *testing.T) {
	for steps := 1; steps <= calc.MaxDilutionSteps; steps++ {
		res, ok := calc.ComputeDilution(calc.DilutionInputs{
			StartConcentration: 8,
			DilutionFactor:     2,
			Steps:              steps,
		})
		require.True(t, ok)
		require.Len(t, res.Steps, steps+1)
		for i, step := range res.Steps {
			require.InDelta(t, 8/math.Pow(2, float64(i)), step.Concentration, 1e-9)
		}
	}
}

// TestComputeDilutionBounds enforces the validity contract including the
// 10-step cap.
func TestComputeDilutionBounds(t *testing.T) {
	cases := []calc.DilutionInputs{
		{StartConcentration: 0, DilutionFactor: 10, Steps: 3},
		{StartConcentration: 1, DilutionFactor: 1, Steps: 3},
		{StartConcentration: 1, DilutionFactor: 0.5, Steps: 3},
		{StartConcentration: 1, DilutionFactor: 10, Steps: 0},
		{StartConcentration: 1, DilutionFactor: 10, Steps: 11},
	}
	for _, in := range cases {
		_, ok := calc.ComputeDilution(in)
		require.False(t, ok, "inputs %+v", in)
	}
}

// TestComputeBufferScenario covers pH 7.4 / pKa 6.86: ratio 10^0.54,
// fractions near 0.776 / 0.224.
func TestComputeBufferScenario(t *testing.T) {
	res, ok := calc.ComputeBuffer(registry(), calc.BufferInputs{
		PH:             7.4,
		PKa:            6.86,
		AcidMW:         136.09,
		SaltMW:         141.96,
		VolumeML:       1000,
		ConcentrationM: 0.1,
	})
	require.True(t, ok)
	require.InDelta(t, math.Pow(10, 0.54), res.Ratio, 1e-9)
	require.InDelta(t, 0.776, res.FractionSalt, 0.001)
	require.InDelta(t, 0.224, res.FractionAcid, 0.001)
	require.InDelta(t, res.FractionAcid*0.1*136.09, res.AcidMassG, 1e-9)
	require.InDelta(t, res.FractionSalt*0.1*141.96, res.SaltMassG, 1e-9)
}

// TestComputeBufferComplementarity asserts fractionAcid + fractionSalt == 1
// across pH on either side of pKa.
func TestComputeBufferComplementarity(t *testing.T) {
	for _, ph := range []float64{2, 4.5, 6.86, 7.4, 9, 12} {
		res, ok := calc.ComputeBuffer(registry(), calc.BufferInputs{
			PH: ph, PKa: 6.86, AcidMW: 100, SaltMW: 120, VolumeML: 250, ConcentrationM: 0.05,
		})
		require.True(t, ok)
		require.InDelta(t, 1.0, res.FractionAcid+res.FractionSalt, 1e-12, "pH %v", ph)
	}
}

// TestComputeBufferIncomplete verifies the validity contract.
func TestComputeBufferIncomplete(t *testing.T) {
	base := calc.BufferInputs{PH: 7.4, PKa: 6.86, AcidMW: 100, SaltMW: 120, VolumeML: 1000, ConcentrationM: 0.1}

	in := base
	in.PKa = 0
	_, ok := calc.ComputeBuffer(registry(), in)
	require.False(t, ok)

	in = base
	in.VolumeML = 0
	_, ok = calc.ComputeBuffer(registry(), in)
	require.False(t, ok)

	in = base
	in.AcidMW = 0
	_, ok = calc.ComputeBuffer(registry(), in)
	require.False(t, ok)
}

// TestComputeConversion verifies plain conversion plus the identity and zero
// no-op contract.
func TestComputeConversion(t *testing.T) {
	res, ok := calc.ComputeConversion(registry(), calc.ConversionInputs{
		Value: 2, FromUnit: "kg", ToUnit: "g", Family: units.FamilyMass,
	})
	require.True(t, ok)
	require.InDelta(t, 2000.0, res.Value, 1e-9)

	res, ok = calc.ComputeConversion(registry(), calc.ConversionInputs{
		Value: 5, FromUnit: "mg", ToUnit: "mg", Family: units.FamilyMass,
	})
	require.False(t, ok, "identity conversion is a no-op")
	require.Equal(t, 5.0, res.Value, "input passes through unchanged")

	_, ok = calc.ComputeConversion(registry(), calc.ConversionInputs{
		Value: 0, FromUnit: "C", ToUnit: "F", Family: units.FamilyTemperature,
	})
	require.False(t, ok, "zero value never records")

	_, ok = calc.ComputeConversion(registry(), calc.ConversionInputs{
		Value: 1, FromUnit: "furlong", ToUnit: "g", Family: units.FamilyMass,
	})
	require.False(t, ok, "registry miss is rejected at the boundary")
}

// TestCalculatorsAreDeterministic re-runs a calculator with identical inputs
// and expects bit-identical results.
func TestCalculatorsAreDeterministic(t *testing.T) {
	in := calc.DoseInputs{WeightKg: 12.5, DosePerKg: 0.3, Concentration: 2.5, TimeMinutes: 45}
	a, okA := calc.ComputeDose(registry(), in)
	b, okB := calc.ComputeDose(registry(), in)
	require.True(t, okA)
	require.True(t, okB)
	require.Equal(t, a, b)
}
