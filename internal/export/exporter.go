// Package export renders the calculation history to CSV and stores the
// resulting artifacts asynchronously through the blob store.
package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"vetcalc/internal/blob"
	"vetcalc/pkg/calc"
	"vetcalc/pkg/domain"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures a stored history export.
type Artifact struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Rows        int       `json:"rows"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job tracks an export request and its resulting artifact.
type Job struct {
	ID          string       `json:"id"`
	Formula     calc.Formula `json:"formula,omitempty"`
	Status      Status       `json:"status"`
	Error       string       `json:"error,omitempty"`
	Artifact    *Artifact    `json:"artifact,omitempty"`
	RequestedBy string       `json:"requested_by"`
	Reason      string       `json:"reason,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Request represents an enqueue request for the worker.
type Request struct {
	Formula     calc.Formula // optional: restrict the export to one formula
	RequestedBy string
	Reason      string
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Status     Status         `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

const auditAction = "history_export"

// Worker executes history exports asynchronously.
type Worker struct {
	source domain.HistoryStore
	store  blob.Store
	audit  AuditLogger

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id  string
	req Request
}

// NewWorker constructs an export worker reading from source and writing
// artifacts to store.
func NewWorker(source domain.HistoryStore, store blob.Store, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		queue:  make(chan task, 32),
		jobs:   make(map[string]*Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// Enqueue schedules an export job and returns the queued snapshot.
func (w *Worker) Enqueue(ctx context.Context, req Request) (Job, error) {
	if w.source == nil {
		return Job{}, fmt.Errorf("history source not configured")
	}
	id := newID()
	now := time.Now().UTC()
	job := Job{
		ID:          id,
		Formula:     req.Formula,
		Status:      StatusQueued,
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &job
	queued := job.copy()
	w.mu.Unlock()

	if w.audit != nil {
		w.audit.Record(ctx, AuditEntry{
			ID:         newID(),
			Action:     auditAction,
			Actor:      req.RequestedBy,
			Status:     StatusQueued,
			Reason:     req.Reason,
			OccurredAt: now,
		})
	}

	select {
	case w.queue <- task{id: id, req: req}:
	default:
		return Job{}, fmt.Errorf("export queue full")
	}
	return queued, nil
}

// Get returns a snapshot of the export job.
func (w *Worker) Get(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

func (w *Worker) process(t task) {
	w.updateStatus(t.id, StatusRunning, "")

	var records []domain.CalculationRecord
	if err := w.source.View(w.ctx, func(v domain.View) error {
		records = v.ListCalculations()
		return nil
	}); err != nil {
		w.fail(t.id, fmt.Sprintf("read history: %v", err))
		return
	}
	if t.req.Formula != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Type == t.req.Formula {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	payload, err := RenderCSV(records)
	if err != nil {
		w.fail(t.id, fmt.Sprintf("render csv: %v", err))
		return
	}

	artifact := Artifact{
		Key:         fmt.Sprintf("exports/history-%s.csv", t.id),
		ContentType: "text/csv",
		SizeBytes:   int64(len(payload)),
		Rows:        len(records),
		CreatedAt:   time.Now().UTC(),
	}
	if w.store != nil {
		info, err := w.store.Put(w.ctx, artifact.Key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: artifact.ContentType,
			Metadata:    map[string]string{"rows": fmt.Sprintf("%d", len(records))},
		})
		if err != nil {
			w.fail(t.id, fmt.Sprintf("store artifact: %v", err))
			return
		}
		artifact.URL = info.URL
		if info.Size > 0 {
			artifact.SizeBytes = info.Size
		}
	}
	w.complete(t.id, artifact)
}

// RenderCSV serializes records to the export row contract: type, ISO-8601
// timestamp, JSON-encoded inputs with internal double quotes replaced by
// single quotes, JSON-encoded result, summary sentence.
func RenderCSV(records []domain.CalculationRecord) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"type", "timestamp", "inputs", "result", "sentence"}); err != nil {
		return nil, err
	}
	for _, rec := range records {
		inputs, err := json.Marshal(rec.Inputs)
		if err != nil {
			return nil, fmt.Errorf("encode inputs: %w", err)
		}
		result, err := json.Marshal(rec.Result)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		row := []string{
			string(rec.Type),
			rec.Timestamp.UTC().Format(time.RFC3339),
			strings.ReplaceAll(string(inputs), `"`, `'`),
			string(result),
			rec.Sentence,
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Worker) updateStatus(id string, status Status, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = status
		job.Error = message
		job.UpdatedAt = now
	}
	w.mu.Unlock()
	w.recordAudit(id, status, nil)
}

func (w *Worker) complete(id string, artifact Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = StatusSucceeded
		job.Error = ""
		job.Artifact = &artifact
		job.UpdatedAt = now
		job.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(id, StatusSucceeded, map[string]any{"key": artifact.Key, "rows": artifact.Rows})
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = StatusFailed
		job.Error = reason
		job.UpdatedAt = now
		job.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(id, StatusFailed, map[string]any{"error": reason})
}

func (w *Worker) recordAudit(id string, status Status, metadata map[string]any) {
	if w.audit == nil {
		return
	}
	w.mu.RLock()
	actor, reason := "", ""
	if job, ok := w.jobs[id]; ok {
		actor = job.RequestedBy
		reason = job.Reason
	}
	w.mu.RUnlock()
	w.audit.Record(w.ctx, AuditEntry{
		ID:         newID(),
		Action:     auditAction,
		Actor:      actor,
		Status:     status,
		Reason:     reason,
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	})
}

func (j Job) copy() Job {
	dup := j
	if j.Artifact != nil {
		art := *j.Artifact
		dup.Artifact = &art
	}
	return dup
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
