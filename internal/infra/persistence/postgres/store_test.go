package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"vetcalc/pkg/calc"
	"vetcalc/pkg/domain"
)

func TestNewStoreCreatesStateTable(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	if _, err := NewStore(""); err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	found := false
	for _, q := range conn.execs {
		if strings.Contains(q, "CREATE TABLE IF NOT EXISTS state") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected state table DDL, got %v", conn.execs)
	}
}

func TestNewStoreHydratesSnapshot(t *testing.T) {
	db, conn := newStubDB()
	records, _ := json.Marshal([]domain.CalculationRecord{{
		ID:        "rec-1",
		Type:      calc.FormulaSolution,
		Timestamp: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Result:    calc.SolutionResult{Grams: 58.44},
	}})
	profiles, _ := json.Marshal(map[string]domain.AnimalProfile{
		"p-1": {ID: "p-1", Name: "Rex", Species: "canine", WeightKg: 24.5},
	})
	conn.state[bucketRecords] = records
	conn.state[bucketProfiles] = profiles

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("ignored")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	recs := store.ListCalculations()
	if len(recs) != 1 || recs[0].ID != "rec-1" {
		t.Fatalf("expected hydrated record, got %+v", recs)
	}
	if _, ok := recs[0].Result.(calc.SolutionResult); !ok {
		t.Fatalf("expected SolutionResult, got %T", recs[0].Result)
	}
	if p, ok := store.GetProfile("p-1"); !ok || p.Name != "Rex" {
		t.Fatalf("expected hydrated profile, got %+v ok=%v", p, ok)
	}
}

func TestRunInTransactionPersistsBuckets(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AppendCalculation(domain.CalculationRecord{
			Type:   calc.FormulaDose,
			Inputs: map[string]string{"weight": "10"},
			Result: calc.DoseResult{TotalDoseMg: 50, VolumeML: 1},
		})
		return err
	}); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	var persisted []domain.CalculationRecord
	if err := json.Unmarshal(conn.state[bucketRecords], &persisted); err != nil {
		t.Fatalf("decode persisted records: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Type != calc.FormulaDose {
		t.Fatalf("expected persisted dose record, got %+v", persisted)
	}
	if _, ok := conn.state[bucketProfiles]; !ok {
		t.Fatalf("expected profiles bucket upsert")
	}
}

func TestRunInTransactionRollbackSkipsPersist(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AppendCalculation(domain.CalculationRecord{})
		return err
	})
	if err == nil {
		t.Fatalf("expected append failure")
	}
	if _, ok := conn.state[bucketRecords]; ok {
		t.Fatalf("failed transaction must not persist")
	}
}

// --- stub driver helpers ---

var stubSeq atomic.Int64

type stubDriver struct {
	conn *stubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubConn struct {
	execs []string
	state map[string][]byte
}

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{state: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *stubConn) Ping(context.Context) error { return nil }

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return stubTx{}, nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO STATE") {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected bucket and payload args, got %d", len(args))
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("bucket arg must be string, got %T", args[0].Value)
		}
		payload, ok := args[1].Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("payload arg must be bytes, got %T", args[1].Value)
		}
		c.state[bucket] = append([]byte(nil), payload...)
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(query, "FROM state") {
		return nil, fmt.Errorf("unexpected query %q", query)
	}
	rows := make([][]driver.Value, 0, len(c.state))
	for _, bucket := range []string{bucketRecords, bucketProfiles} {
		if payload, ok := c.state[bucket]; ok {
			rows = append(rows, []driver.Value{bucket, append([]byte(nil), payload...)})
		}
	}
	return &stubRows{cols: []string{"bucket", "payload"}, rows: rows}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
