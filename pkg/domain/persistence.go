package domain

import (
	"context"

	"vetcalc/pkg/calc"
)

// Transaction exposes the mutations a history backend must support within an
// atomic scope. AppendCalculation enforces the MaxHistoryRecords cap by
// evicting oldest records first.
type Transaction interface {
	AppendCalculation(CalculationRecord) (CalculationRecord, error)
	PutProfile(AnimalProfile) (AnimalProfile, error)
	DeleteProfile(id string) error
}

// View provides read-only access to a consistent snapshot of the history
// state.
type View interface {
	ListCalculations() []CalculationRecord
	ListProfiles() []AnimalProfile
	FindProfile(id string) (AnimalProfile, bool)
	LatestCalculation(formula calc.Formula) (CalculationRecord, bool)
}

// HistoryStore is the durable collaborator the calculation engine hands
// records to. The engine never mutates stored state directly; it only submits
// whole new records through a transaction.
type HistoryStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(View) error) error
	ListCalculations() []CalculationRecord
	ListProfiles() []AnimalProfile
	GetProfile(id string) (AnimalProfile, bool)
}
