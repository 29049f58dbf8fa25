// Package memory provides an in-memory implementation of the history store
// used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"vetcalc/pkg/calc"
	"vetcalc/pkg/domain"
)

var errEmptyType = errors.New("calculation record requires a formula type")

// Compile-time contract assertion ensuring memory.Store adheres to the domain
// persistence interface.
var _ domain.HistoryStore = (*Store)(nil)

type historyState struct {
	records  []domain.CalculationRecord
	profiles map[string]domain.AnimalProfile
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Records  []domain.CalculationRecord      `json:"records"`
	Profiles map[string]domain.AnimalProfile `json:"profiles"`
}

func newHistoryState() historyState {
	return historyState{
		profiles: make(map[string]domain.AnimalProfile),
	}
}

func (s historyState) clone() historyState {
	cloned := newHistoryState()
	cloned.records = make([]domain.CalculationRecord, len(s.records))
	for i, r := range s.records {
		cloned.records[i] = cloneRecord(r)
	}
	for k, v := range s.profiles {
		cloned.profiles[k] = v
	}
	return cloned
}

func cloneRecord(r domain.CalculationRecord) domain.CalculationRecord {
	cp := r
	if r.Inputs != nil {
		cp.Inputs = make(map[string]string, len(r.Inputs))
		for k, v := range r.Inputs {
			cp.Inputs[k] = v
		}
	}
	if d, ok := r.Result.(calc.DilutionResult); ok {
		d.Steps = append([]calc.DilutionStep(nil), d.Steps...)
		cp.Result = d
	}
	return cp
}

// migrateSnapshot normalizes a loaded snapshot: nil collections become empty,
// records are ordered oldest-first by timestamp, and anything beyond the
// history cap is truncated from the oldest end.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Profiles == nil {
		snapshot.Profiles = map[string]domain.AnimalProfile{}
	}
	sort.SliceStable(snapshot.Records, func(i, j int) bool {
		return snapshot.Records[i].Timestamp.Before(snapshot.Records[j].Timestamp)
	})
	if over := len(snapshot.Records) - domain.MaxHistoryRecords; over > 0 {
		snapshot.Records = append([]domain.CalculationRecord(nil), snapshot.Records[over:]...)
	}
	return snapshot
}

// Store is a mutex-guarded in-memory history store. Transactions operate on a
// cloned state that replaces the live state only on success.
type Store struct {
	mu    sync.RWMutex
	state historyState
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory history store.
func NewStore() *Store {
	return &Store{
		state: newHistoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Records:  make([]domain.CalculationRecord, len(s.state.records)),
		Profiles: make(map[string]domain.AnimalProfile, len(s.state.profiles)),
	}
	for i, r := range s.state.records {
		snap.Records[i] = cloneRecord(r)
	}
	for k, v := range s.state.profiles {
		snap.Profiles[k] = v
	}
	return snap
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot = migrateSnapshot(snapshot)
	state := newHistoryState()
	state.records = make([]domain.CalculationRecord, len(snapshot.Records))
	for i, r := range snapshot.Records {
		state.records[i] = cloneRecord(r)
	}
	for k, v := range snapshot.Profiles {
		state.profiles[k] = v
	}
	s.state = state
}

// NowFunc returns the time provider used for record and profile timestamps.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider, primarily for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

type transaction struct {
	store *Store
	state *historyState
	now   time.Time
}

// AppendCalculation adds a record to the log, assigning an ID and timestamp
// when unset, and evicts oldest records beyond the history cap.
func (tx *transaction) AppendCalculation(rec domain.CalculationRecord) (domain.CalculationRecord, error) {
	if strings.TrimSpace(string(rec.Type)) == "" {
		return domain.CalculationRecord{}, errEmptyType
	}
	if rec.ID == "" {
		rec.ID = tx.store.newID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = tx.now
	}
	rec = cloneRecord(rec)
	tx.state.records = append(tx.state.records, rec)
	if over := len(tx.state.records) - domain.MaxHistoryRecords; over > 0 {
		tx.state.records = append([]domain.CalculationRecord(nil), tx.state.records[over:]...)
	}
	return cloneRecord(rec), nil
}

// PutProfile creates or updates an animal profile.
func (tx *transaction) PutProfile(p domain.AnimalProfile) (domain.AnimalProfile, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
		p.CreatedAt = tx.now
	} else if existing, ok := tx.state.profiles[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = tx.now
	}
	p.UpdatedAt = tx.now
	tx.state.profiles[p.ID] = p
	return p, nil
}

// DeleteProfile removes a profile by ID.
func (tx *transaction) DeleteProfile(id string) error {
	if _, ok := tx.state.profiles[id]; !ok {
		return domain.ErrNotFound{Entity: "profile", ID: id}
	}
	delete(tx.state.profiles, id)
	return nil
}

type view struct {
	state *historyState
}

// ListCalculations returns the log oldest-first.
func (v view) ListCalculations() []domain.CalculationRecord {
	out := make([]domain.CalculationRecord, len(v.state.records))
	for i, r := range v.state.records {
		out[i] = cloneRecord(r)
	}
	return out
}

// ListProfiles returns profiles sorted by name then ID for deterministic
// iteration.
func (v view) ListProfiles() []domain.AnimalProfile {
	out := make([]domain.AnimalProfile, 0, len(v.state.profiles))
	for _, p := range v.state.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindProfile retrieves a profile by ID.
func (v view) FindProfile(id string) (domain.AnimalProfile, bool) {
	p, ok := v.state.profiles[id]
	return p, ok
}

// LatestCalculation returns the newest record of the given formula.
func (v view) LatestCalculation(formula calc.Formula) (domain.CalculationRecord, bool) {
	for i := len(v.state.records) - 1; i >= 0; i-- {
		if v.state.records[i].Type == formula {
			return cloneRecord(v.state.records[i]), true
		}
	}
	return domain.CalculationRecord{}, false
}

// RunInTransaction executes fn within a transactional copy of the store
// state; the copy replaces the live state only when fn succeeds.
func (s *Store) RunInTransaction(_ context.Context, fn func(domain.Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state.clone()
	tx := &transaction{store: s, state: &state, now: s.nowFn()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = state
	return nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.View) error) error {
	s.mu.RLock()
	state := s.state.clone()
	s.mu.RUnlock()
	return fn(view{state: &state})
}

// ListCalculations returns the current log oldest-first.
func (s *Store) ListCalculations() []domain.CalculationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CalculationRecord, len(s.state.records))
	for i, r := range s.state.records {
		out[i] = cloneRecord(r)
	}
	return out
}

// ListProfiles returns all profiles sorted by name then ID.
func (s *Store) ListProfiles() []domain.AnimalProfile {
	s.mu.RLock()
	state := s.state.clone()
	s.mu.RUnlock()
	return view{state: &state}.ListProfiles()
}

// GetProfile retrieves a profile by ID.
func (s *Store) GetProfile(id string) (domain.AnimalProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.profiles[id]
	return p, ok
}
