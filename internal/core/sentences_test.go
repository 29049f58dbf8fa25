package core

import (
	"testing"

	"vetcalc/pkg/calc"
)

func TestSummaryTemperatureDegreeSign(t *testing.T) {
	raw := map[string]string{
		InputValue: "100", InputFromUnit: "C", InputToUnit: "F", InputFamily: "temperature",
	}
	got := Summary(raw, calc.ConversionResult{Value: 212})
	if got != "100 °C = 212 °F." {
		t.Fatalf("unexpected sentence %q", got)
	}

	raw = map[string]string{
		InputValue: "300", InputFromUnit: "K", InputToUnit: "C", InputFamily: "temperature",
	}
	got = Summary(raw, calc.ConversionResult{Value: 26.85})
	if got != "300 K = 26.85 °C." {
		t.Fatalf("kelvin must not carry a degree sign: %q", got)
	}
}

func TestSummaryBuffer(t *testing.T) {
	raw := map[string]string{
		InputPH: "7.4", InputPKa: "7.2", InputVolume: "100",
	}
	got := Summary(raw, calc.BufferResult{AcidMassG: 0.2345, SaltMassG: 0.3719})
	if got != "pH 7.4 buffer (pKa 7.2): 0.2345 g acid and 0.3719 g salt in 100 mL." {
		t.Fatalf("unexpected sentence %q", got)
	}
}

func TestSummaryUnknownResult(t *testing.T) {
	if got := Summary(nil, nil); got != "" {
		t.Fatalf("expected empty sentence, got %q", got)
	}
}
