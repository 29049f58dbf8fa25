// Package domain defines the persistent entities and storage contracts of the
// calculation toolkit: calculation records handed off to the history store and
// the animal profiles consumed by the dose calculator.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"vetcalc/pkg/calc"
)

// MaxHistoryRecords caps the calculation log. Stores evict oldest-first once
// an append would exceed the cap.
const MaxHistoryRecords = 100

// AnimalProfile describes a patient whose weight pre-fills the dose
// calculator. The calculation engine only ever reads profiles; it never
// mutates them.
type AnimalProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	WeightKg  float64   `json:"weight_kg"`
	Condition string    `json:"condition,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CalculationRecord packages one successful calculation for persistence:
// the formula name, the raw input strings exactly as the user typed them,
// the typed result, and the human-readable summary sentence. Ownership
// transfers to the history store on append.
type CalculationRecord struct {
	ID        string            `json:"id"`
	Type      calc.Formula      `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Inputs    map[string]string `json:"inputs"`
	Result    calc.Result       `json:"result"`
	Sentence  string            `json:"sentence"`
}

type recordAlias struct {
	ID        string            `json:"id"`
	Type      calc.Formula      `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Inputs    map[string]string `json:"inputs"`
	Result    json.RawMessage   `json:"result"`
	Sentence  string            `json:"sentence"`
}

// MarshalJSON serialises the record with its concrete result variant. The
// record type doubles as the variant discriminator.
func (r CalculationRecord) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if r.Result != nil {
		data, err := json.Marshal(r.Result)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(recordAlias{
		ID:        r.ID,
		Type:      r.Type,
		Timestamp: r.Timestamp,
		Inputs:    r.Inputs,
		Result:    raw,
		Sentence:  r.Sentence,
	})
}

// UnmarshalJSON hydrates the result variant matching the record type.
func (r *CalculationRecord) UnmarshalJSON(data []byte) error {
	var aux recordAlias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	result, err := decodeResult(aux.Type, aux.Result)
	if err != nil {
		return err
	}
	*r = CalculationRecord{
		ID:        aux.ID,
		Type:      aux.Type,
		Timestamp: aux.Timestamp,
		Inputs:    aux.Inputs,
		Result:    result,
		Sentence:  aux.Sentence,
	}
	return nil
}

func decodeResult(formula calc.Formula, raw json.RawMessage) (calc.Result, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch formula {
	case calc.FormulaDose:
		var v calc.DoseResult
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case calc.FormulaSolution:
		var v calc.SolutionResult
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case calc.FormulaDilution:
		var v calc.DilutionResult
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case calc.FormulaBuffer:
		var v calc.BufferResult
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case calc.FormulaConversion:
		var v calc.ConversionResult
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown formula %q", formula)
	}
}

// ErrNotFound reports a missing entity during transactional helpers.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
