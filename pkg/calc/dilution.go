package calc

// MaxDilutionSteps caps the length of a serial dilution sequence. The cap
// bounds the calculator's output size and is part of its validity contract,
// not a tunable.
const MaxDilutionSteps = 10

// DilutionInputs are the parsed serial-dilution inputs.
type DilutionInputs struct {
	StartConcentration float64
	DilutionFactor     float64
	Steps              int
}

// ComputeDilution materializes the serial dilution sequence: step 0 carries
// the starting concentration, and each following step divides the previous
// one by the dilution factor. Valid only for a positive start, a factor
// above 1, and between 1 and MaxDilutionSteps steps.
func ComputeDilution(in DilutionInputs) (DilutionResult, bool) {
	if in.StartConcentration <= 0 || in.DilutionFactor <= 1 {
		return DilutionResult{}, false
	}
	if in.Steps <= 0 || in.Steps > MaxDilutionSteps {
		return DilutionResult{}, false
	}

	steps := make([]DilutionStep, 0, in.Steps+1)
	conc := in.StartConcentration
	steps = append(steps, DilutionStep{Step: 0, Concentration: conc})
	for i := 1; i <= in.Steps; i++ {
		conc /= in.DilutionFactor
		steps = append(steps, DilutionStep{Step: i, Concentration: conc})
	}
	return DilutionResult{
		Steps:              steps,
		FinalConcentration: steps[len(steps)-1].Concentration,
	}, true
}
