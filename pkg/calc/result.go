package calc

// Formula identifies one of the five calculators.
type Formula string

// Formula identifiers used as the record type and the result discriminator.
const (
	FormulaDose       Formula = "dose"
	FormulaSolution   Formula = "solution"
	FormulaDilution   Formula = "dilution"
	FormulaBuffer     Formula = "buffer"
	FormulaConversion Formula = "conversion"
)

// Result is the tagged union over the five formula outputs. Each variant
// carries exactly the fields its formula produces, letting the record builder
// and the formatter switch exhaustively on Kind.
type Result interface {
	Kind() Formula
}

// DoseResult holds the dose and infusion outputs. The rate fields are only
// meaningful when HasRate is set; an infusion time of zero omits them.
type DoseResult struct {
	TotalDoseMg    float64 `json:"total_dose_mg"`
	VolumeML       float64 `json:"volume_ml"`
	MLPerHour      float64 `json:"ml_per_hour,omitempty"`
	DropsPerMinute float64 `json:"drops_per_minute,omitempty"`
	HasRate        bool    `json:"has_rate"`
}

// Kind reports the dose formula.
func (DoseResult) Kind() Formula { return FormulaDose }

// SolutionResult holds the solute mass to weigh out.
type SolutionResult struct {
	Grams float64 `json:"grams"`
}

// Kind reports the solution formula.
func (SolutionResult) Kind() Formula { return FormulaSolution }

// DilutionStep is one point in a serial dilution sequence.
type DilutionStep struct {
	Step          int     `json:"step"`
	Concentration float64 `json:"concentration"`
}

// DilutionResult holds the fully materialized dilution sequence. Steps always
// has length steps+1, with step 0 carrying the starting concentration.
type DilutionResult struct {
	Steps              []DilutionStep `json:"steps"`
	FinalConcentration float64        `json:"final_concentration"`
}

// Kind reports the dilution formula.
func (DilutionResult) Kind() Formula { return FormulaDilution }

// BufferResult holds the Henderson-Hasselbalch outputs.
type BufferResult struct {
	Ratio        float64 `json:"ratio"`
	FractionAcid float64 `json:"fraction_acid"`
	FractionSalt float64 `json:"fraction_salt"`
	AcidMassG    float64 `json:"acid_mass_g"`
	SaltMassG    float64 `json:"salt_mass_g"`
}

// Kind reports the buffer formula.
func (BufferResult) Kind() Formula { return FormulaBuffer }

// ConversionResult holds a single converted value.
type ConversionResult struct {
	Value float64 `json:"value"`
}

// Kind reports the conversion formula.
func (ConversionResult) Kind() Formula { return FormulaConversion }
