// Package exports materializes dashboard snapshots into the blob store on a
// background worker.
package exports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"penguindash/internal/blob"
	"penguindash/internal/dashboard"
	"penguindash/internal/filter"
	"penguindash/internal/grid"
	"penguindash/internal/observability"
	"penguindash/internal/penguins"
	"penguindash/pkg/datasetapi"
)

// Status describes the lifecycle stage of an export job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// DefaultQueueSize bounds pending jobs when no size is configured.
const DefaultQueueSize = 32

// DefaultRetention is how many finished jobs stay queryable by default.
const DefaultRetention = 256

// KeyPrefix is the blob key prefix under which artifacts are stored.
const KeyPrefix = "exports/"

const auditAction = "dashboard_export"

var (
	// ErrQueueFull is returned by Enqueue when the pending queue is at capacity.
	ErrQueueFull = errors.New("exports: queue full")

	// ErrNotFound is returned for unknown job ids or artifact names.
	ErrNotFound = errors.New("exports: not found")

	// ErrStopped is returned by Enqueue after Stop.
	ErrStopped = errors.New("exports: worker stopped")

	// ErrUnsupportedFormat is returned for format names outside datasetapi.Formats.
	ErrUnsupportedFormat = errors.New("exports: unsupported format")
)

// Artifact is one stored output of a job.
type Artifact struct {
	Name        string            `json:"name"`
	Format      datasetapi.Format `json:"format"`
	Key         string            `json:"key"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	ETag        string            `json:"etag,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Record tracks one export request and its artifacts.
type Record struct {
	ID          string              `json:"id"`
	Selection   filter.Selection    `json:"selection"`
	Grid        map[string][]string `json:"grid,omitempty"`
	Formats     []datasetapi.Format `json:"formats"`
	Status      Status              `json:"status"`
	Error       string              `json:"error,omitempty"`
	Rows        int                 `json:"rows"`
	Artifacts   []Artifact          `json:"artifacts,omitempty"`
	RequestedBy string              `json:"requested_by"`
	Reason      string              `json:"reason,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// Input is an enqueue request.
type Input struct {
	Selection   filter.Selection
	Grid        grid.Query
	Formats     []datasetapi.Format
	RequestedBy string
	Reason      string
}

// Option configures a Worker.
type Option func(*Worker)

// WithAudit sets the audit sink.
func WithAudit(a AuditLogger) Option { return func(w *Worker) { w.audit = a } }

// WithMetrics counts job transitions.
func WithMetrics(m *observability.Metrics) Option { return func(w *Worker) { w.metrics = m } }

// WithTracer wraps each job in a span.
func WithTracer(t observability.Tracer) Option { return func(w *Worker) { w.tracer = t } }

// WithQueueSize bounds the pending queue.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

// WithRetention bounds how many finished jobs are kept. The least recently
// used are forgotten first; their artifacts stay in the blob store.
func WithRetention(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.retention = n
		}
	}
}

// Worker executes exports asynchronously, one job at a time.
type Worker struct {
	dataset   *penguins.Dataset
	store     blob.Store
	audit     AuditLogger
	metrics   *observability.Metrics
	tracer    observability.Tracer
	queueSize int
	retention int

	queue    chan task
	mu       sync.RWMutex
	jobs     map[string]*Record
	finished *lru.Cache[string, *Record]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id    string
	input Input
}

// NewWorker constructs a worker that stores artifacts in store.
func NewWorker(ds *penguins.Dataset, store blob.Store, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		dataset:   ds,
		store:     store,
		tracer:    observability.NoopTracer{},
		queueSize: DefaultQueueSize,
		retention: DefaultRetention,
		jobs:      make(map[string]*Record),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.queue = make(chan task, w.queueSize)
	// lru.New only fails for a non-positive size, which WithRetention rejects.
	w.finished, _ = lru.New[string, *Record](w.retention)
	return w
}

// Start begins processing queued jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop halts the worker and waits for the in-flight job, bounded by ctx.
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

// Enqueue validates input, records a queued job and schedules it.
func (w *Worker) Enqueue(ctx context.Context, input Input) (Record, error) {
	if w.ctx.Err() != nil {
		return Record{}, ErrStopped
	}
	formats, err := normalizeFormats(input.Formats)
	if err != nil {
		return Record{}, err
	}
	input.Formats = formats
	input.Selection = filter.NewSelection(input.Selection.Species, input.Selection.MassThreshold)

	id := uuid.NewString()
	now := time.Now().UTC()
	record := &Record{
		ID:          id,
		Selection:   input.Selection,
		Grid:        input.Grid.Values(),
		Formats:     formats,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(record.Grid) == 0 {
		record.Grid = nil
	}

	w.mu.Lock()
	w.jobs[id] = record
	queued := record.copy()
	w.mu.Unlock()
	w.record(ctx, queued, nil)

	select {
	case w.queue <- task{id: id, input: input}:
	default:
		w.transition(id, StatusFailed, func(r *Record) { r.Error = ErrQueueFull.Error() })
		w.mu.Lock()
		w.finished.Remove(id)
		w.mu.Unlock()
		return Record{}, ErrQueueFull
	}
	return queued, nil
}

// Get returns a copy of the job record. Finished jobs are only found while
// they are within the retention bound.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		record, ok = w.finished.Get(id)
	}
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

// Pending returns the number of queued or running jobs.
func (w *Worker) Pending() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.jobs)
}

// Artifact returns a stored artifact of job id by name.
func (w *Worker) Artifact(ctx context.Context, id, name string) (Artifact, []byte, error) {
	record, ok := w.Get(id)
	if !ok {
		return Artifact{}, nil, fmt.Errorf("%w: export %s", ErrNotFound, id)
	}
	for _, a := range record.Artifacts {
		if a.Name != name {
			continue
		}
		_, payload, err := blob.ReadAll(ctx, w.store, a.Key)
		if errors.Is(err, blob.ErrNotFound) {
			return Artifact{}, nil, fmt.Errorf("%w: artifact %s", ErrNotFound, a.Key)
		}
		if err != nil {
			return Artifact{}, nil, err
		}
		return a, payload, nil
	}
	return Artifact{}, nil, fmt.Errorf("%w: artifact %s/%s", ErrNotFound, id, name)
}

func (w *Worker) process(t task) {
	ctx, span := w.tracer.Start(w.ctx, "export")
	err := w.run(ctx, t)
	span.End(err)
	if err != nil {
		w.transition(t.id, StatusFailed, func(r *Record) { r.Error = err.Error() })
	}
}

func (w *Worker) run(ctx context.Context, t task) error {
	w.transition(t.id, StatusRunning, nil)

	snap := dashboard.Build(w.dataset, t.input.Selection)
	table := snap.Table.Apply(t.input.Grid)
	now := time.Now().UTC()

	artifacts := make([]Artifact, 0, len(t.input.Formats))
	for _, format := range t.input.Formats {
		payload, err := Materialize(format, snap, table, t.input.Grid, now)
		if err != nil {
			return err
		}
		name := ArtifactName(format)
		key := KeyPrefix + t.id + "/" + name
		info, err := blob.PutBytes(ctx, w.store, key, payload, format.ContentType(), map[string]string{
			"export_id": t.id,
			"format":    string(format),
			"rows":      strconv.Itoa(table.Len()),
		})
		if err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
		artifacts = append(artifacts, Artifact{
			Name:        name,
			Format:      format,
			Key:         key,
			ContentType: format.ContentType(),
			SizeBytes:   int64(len(payload)),
			ETag:        info.ETag,
			CreatedAt:   now,
		})
	}

	w.transition(t.id, StatusSucceeded, func(r *Record) {
		r.Error = ""
		r.Rows = table.Len()
		r.Artifacts = artifacts
	})
	return nil
}

// transition moves job id to status, applies mutate under the lock, then
// audits and counts the change. Terminal jobs move to the retention cache.
func (w *Worker) transition(id string, status Status, mutate func(*Record)) {
	now := time.Now().UTC()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	record.Status = status
	record.UpdatedAt = now
	if mutate != nil {
		mutate(record)
	}
	if status == StatusSucceeded || status == StatusFailed {
		record.CompletedAt = &now
		delete(w.jobs, id)
		w.finished.Add(id, record)
	}
	snapshot := record.copy()
	w.mu.Unlock()

	var meta map[string]string
	if snapshot.Error != "" {
		meta = map[string]string{"error": snapshot.Error}
	}
	w.record(w.ctx, snapshot, meta)
}

func (w *Worker) record(ctx context.Context, r Record, meta map[string]string) {
	w.metrics.ExportTransition(string(r.Status))
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Action:     auditAction,
		Actor:      r.RequestedBy,
		ExportID:   r.ID,
		Status:     r.Status,
		Reason:     r.Reason,
		Metadata:   meta,
		OccurredAt: r.UpdatedAt,
	})
}

func normalizeFormats(formats []datasetapi.Format) ([]datasetapi.Format, error) {
	if len(formats) == 0 {
		return []datasetapi.Format{datasetapi.FormatJSON, datasetapi.FormatCSV}, nil
	}
	out := make([]datasetapi.Format, 0, len(formats))
	seen := make(map[datasetapi.Format]struct{}, len(formats))
	for _, raw := range formats {
		f, ok := datasetapi.ParseFormat(string(raw))
		if !ok {
			return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnsupportedFormat, raw, formatList())
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}

func formatList() string {
	names := make([]string, len(datasetapi.Formats))
	for i, f := range datasetapi.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func (r Record) copy() Record {
	dup := r
	dup.Formats = append([]datasetapi.Format(nil), r.Formats...)
	dup.Selection.Species = append([]string(nil), r.Selection.Species...)
	if r.Grid != nil {
		dup.Grid = make(map[string][]string, len(r.Grid))
		for k, v := range r.Grid {
			dup.Grid[k] = append([]string(nil), v...)
		}
	}
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		dup.CompletedAt = &at
	}
	return dup
}
