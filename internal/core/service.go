// Package core wires the calculators, unit registry, and history store into
// the clinical calculation service.
package core

import (
	"context"
	"fmt"
	"time"

	"vetcalc/pkg/calc"
	"vetcalc/pkg/domain"
	"vetcalc/pkg/units"
)

// Raw input keys shared by the service and its front-ends. Values are the
// free-text strings the sanitizer parses; unit keys carry unit names.
const (
	InputWeight             = "weight"
	InputDose               = "dose"
	InputDoseUnit           = "dose_unit"
	InputConcentration      = "concentration"
	InputConcentrationUnit  = "concentration_unit"
	InputTimeMinutes        = "time_minutes"
	InputMolecularWeight    = "molecular_weight"
	InputVolume             = "volume"
	InputVolumeUnit         = "volume_unit"
	InputStartConcentration = "start_concentration"
	InputDilutionFactor     = "dilution_factor"
	InputSteps              = "steps"
	InputPH                 = "ph"
	InputPKa                = "pka"
	InputAcidMW             = "acid_mw"
	InputSaltMW             = "salt_mw"
	InputValue              = "value"
	InputFromUnit           = "from"
	InputToUnit             = "to"
	InputFamily             = "family"
)

// Service exposes the calculation operations backed by the unit registry and
// the history store.
type Service struct {
	store    domain.HistoryStore
	registry *units.Registry
	clock    Clock
	logger   Logger
	metrics  MetricsRecorder
	tracer   Tracer
	audit    AuditSink
}

type serviceOptions struct {
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditSink
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
	}
}

// ServiceOption customizes service construction.
type ServiceOption func(*serviceOptions)

// WithClock overrides the service time source.
func WithClock(c Clock) ServiceOption {
	return func(o *serviceOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(l Logger) ServiceOption {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics overrides the metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer overrides the tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithAudit overrides the audit sink.
func WithAudit(a AuditSink) ServiceOption {
	return func(o *serviceOptions) {
		if a != nil {
			o.audit = a
		}
	}
}

// NewService constructs a service backed by the supplied history store. A nil
// store disables persistence; calculations still compute.
func NewService(store domain.HistoryStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:    store,
		registry: units.NewRegistry(),
		clock:    o.clock,
		logger:   o.logger,
		metrics:  o.metrics,
		tracer:   o.tracer,
		audit:    o.audit,
	}
}

// Registry returns the unit conversion registry used by the calculators.
func (s *Service) Registry() *units.Registry { return s.registry }

func (s *Service) run(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, s.clock.Now().Sub(start))
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", operation)
	}
	return err
}

// Outcome reports one submitted calculation.
type Outcome struct {
	Result   calc.Result
	Sentence string
	// Computed is false on the incomplete-input path: missing or
	// non-positive required fields produce no result and no record.
	Computed bool
	Record   domain.CalculationRecord
	Recorded bool
	// SaveErr reports a failed history append. The computed result stands
	// and the caller may retry persistence.
	SaveErr error
}

// Submit parses the raw inputs for formula, runs the calculator, and appends
// a record to the history when the calculation is complete. Unknown formulas
// are the only error path; incomplete inputs return Computed=false.
func (s *Service) Submit(ctx context.Context, formula calc.Formula, raw map[string]string) (Outcome, error) {
	var out Outcome
	err := s.run(ctx, "submit_"+string(formula), func(ctx context.Context) error {
		result, ok, err := s.compute(formula, raw)
		if err != nil {
			return err
		}
		out.Result = result
		out.Computed = ok
		if !ok {
			return nil
		}
		out.Sentence = Summary(raw, result)
		if s.store == nil {
			return nil
		}
		saveErr := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err := tx.AppendCalculation(domain.CalculationRecord{
				Type:      formula,
				Timestamp: s.clock.Now(),
				Inputs:    cloneInputs(raw),
				Result:    result,
				Sentence:  out.Sentence,
			})
			if err != nil {
				return err
			}
			out.Record = created
			out.Recorded = true
			return nil
		})
		if saveErr != nil {
			out.SaveErr = saveErr
			out.Recorded = false
			out.Record = domain.CalculationRecord{}
			s.logger.Warn("history append failed", "formula", formula, "error", saveErr)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	if out.Recorded {
		s.audit.Record(ctx, AuditEntry{
			Action:     "calculation_recorded",
			Metadata:   map[string]any{"formula": string(formula), "record_id": out.Record.ID},
			OccurredAt: s.clock.Now(),
		})
	}
	return out, nil
}

func (s *Service) compute(formula calc.Formula, raw map[string]string) (calc.Result, bool, error) {
	switch formula {
	case calc.FormulaDose:
		res, ok := calc.ComputeDose(s.registry, calc.DoseInputs{
			WeightKg:          calc.ParseOrZero(raw[InputWeight]),
			DosePerKg:         calc.ParseOrZero(raw[InputDose]),
			DoseUnit:          raw[InputDoseUnit],
			Concentration:     calc.ParseOrZero(raw[InputConcentration]),
			ConcentrationUnit: raw[InputConcentrationUnit],
			TimeMinutes:       calc.ParseOrZero(raw[InputTimeMinutes]),
		})
		return res, ok, nil
	case calc.FormulaSolution:
		res, ok := calc.ComputeSolution(s.registry, calc.SolutionInputs{
			MolecularWeight:   calc.ParseOrZero(raw[InputMolecularWeight]),
			Concentration:     calc.ParseOrZero(raw[InputConcentration]),
			ConcentrationUnit: raw[InputConcentrationUnit],
			Volume:            calc.ParseOrZero(raw[InputVolume]),
			VolumeUnit:        raw[InputVolumeUnit],
		})
		return res, ok, nil
	case calc.FormulaDilution:
		res, ok := calc.ComputeDilution(calc.DilutionInputs{
			StartConcentration: calc.ParseOrZero(raw[InputStartConcentration]),
			DilutionFactor:     calc.ParseOrZero(raw[InputDilutionFactor]),
			Steps:              int(calc.ParseOrZero(raw[InputSteps])),
		})
		return res, ok, nil
	case calc.FormulaBuffer:
		res, ok := calc.ComputeBuffer(s.registry, calc.BufferInputs{
			PH:             calc.ParseOrZero(raw[InputPH]),
			PKa:            calc.ParseOrZero(raw[InputPKa]),
			AcidMW:         calc.ParseOrZero(raw[InputAcidMW]),
			SaltMW:         calc.ParseOrZero(raw[InputSaltMW]),
			VolumeML:       calc.ParseOrZero(raw[InputVolume]),
			ConcentrationM: calc.ParseOrZero(raw[InputConcentration]),
		})
		return res, ok, nil
	case calc.FormulaConversion:
		res, ok := calc.ComputeConversion(s.registry, calc.ConversionInputs{
			Value:    calc.ParseOrZero(raw[InputValue]),
			FromUnit: raw[InputFromUnit],
			ToUnit:   raw[InputToUnit],
			Family:   units.Family(raw[InputFamily]),
		})
		return res, ok, nil
	default:
		return nil, false, fmt.Errorf("unknown formula %q", formula)
	}
}

// History returns the calculation log oldest-first.
func (s *Service) History(ctx context.Context) ([]domain.CalculationRecord, error) {
	var records []domain.CalculationRecord
	err := s.run(ctx, "history", func(ctx context.Context) error {
		if s.store == nil {
			return fmt.Errorf("history store not configured")
		}
		return s.store.View(ctx, func(v domain.View) error {
			records = v.ListCalculations()
			return nil
		})
	})
	return records, err
}

// LatestInputs returns the raw inputs of the newest record of the given
// formula, used to pre-fill a repeated calculation.
func (s *Service) LatestInputs(ctx context.Context, formula calc.Formula) (map[string]string, bool, error) {
	var (
		inputs map[string]string
		found  bool
	)
	err := s.run(ctx, "latest_inputs", func(ctx context.Context) error {
		if s.store == nil {
			return fmt.Errorf("history store not configured")
		}
		return s.store.View(ctx, func(v domain.View) error {
			rec, ok := v.LatestCalculation(formula)
			if !ok {
				return nil
			}
			inputs = cloneInputs(rec.Inputs)
			found = true
			return nil
		})
	})
	return inputs, found, err
}

// SaveProfile creates or updates an animal profile.
func (s *Service) SaveProfile(ctx context.Context, profile domain.AnimalProfile) (domain.AnimalProfile, error) {
	var saved domain.AnimalProfile
	err := s.run(ctx, "save_profile", func(ctx context.Context) error {
		if s.store == nil {
			return fmt.Errorf("history store not configured")
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			saved, err = tx.PutProfile(profile)
			return err
		})
	})
	return saved, err
}

// DeleteProfile removes an animal profile.
func (s *Service) DeleteProfile(ctx context.Context, id string) error {
	return s.run(ctx, "delete_profile", func(ctx context.Context) error {
		if s.store == nil {
			return fmt.Errorf("history store not configured")
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteProfile(id)
		})
	})
}

// Profiles lists animal profiles sorted by name.
func (s *Service) Profiles(ctx context.Context) ([]domain.AnimalProfile, error) {
	var profiles []domain.AnimalProfile
	err := s.run(ctx, "profiles", func(ctx context.Context) error {
		if s.store == nil {
			return fmt.Errorf("history store not configured")
		}
		return s.store.View(ctx, func(v domain.View) error {
			profiles = v.ListProfiles()
			return nil
		})
	})
	return profiles, err
}

// PrefillWeight returns the profile's weight formatted for the dose
// calculator's weight input.
func (s *Service) PrefillWeight(ctx context.Context, profileID string) (string, bool, error) {
	var (
		weight string
		found  bool
	)
	err := s.run(ctx, "prefill_weight", func(ctx context.Context) error {
		if s.store == nil {
			return fmt.Errorf("history store not configured")
		}
		return s.store.View(ctx, func(v domain.View) error {
			profile, ok := v.FindProfile(profileID)
			if !ok || profile.WeightKg <= 0 {
				return nil
			}
			weight = calc.Format(profile.WeightKg)
			found = true
			return nil
		})
	})
	return weight, found, err
}

func cloneInputs(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
