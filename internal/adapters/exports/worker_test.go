package exports_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"penguindash/internal/adapters/exports"
	"penguindash/internal/blob"
	"penguindash/internal/filter"
	"penguindash/internal/grid"
	"penguindash/internal/observability"
	"penguindash/internal/penguins"
	"penguindash/pkg/datasetapi"
)

func penguin(species, island string, mass int64, length, depth float64) penguins.Record {
	return penguins.Record{
		Species:      species,
		Island:       island,
		BillLengthMM: sql.NullFloat64{Float64: length, Valid: true},
		BillDepthMM:  sql.NullFloat64{Float64: depth, Valid: true},
		BodyMassG:    sql.NullInt64{Int64: mass, Valid: true},
	}
}

func testDataset(t *testing.T) *penguins.Dataset {
	t.Helper()
	ds, err := penguins.New([]penguins.Record{
		penguin(penguins.SpeciesAdelie, "Dream", 3000, 38.0, 18.0),
		penguin(penguins.SpeciesGentoo, "Biscoe", 5000, 48.0, 15.0),
		penguin(penguins.SpeciesAdelie, "Torgersen", 3500, 40.0, 19.0),
		penguin(penguins.SpeciesChinstrap, "Dream", 3700, 49.0, 18.5),
	}, "test")
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	return ds
}

func waitFor(t *testing.T, w *exports.Worker, id string, want exports.Status) exports.Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := w.Get(id)
		if !ok {
			t.Fatalf("export %s missing", id)
		}
		if rec.Status == want {
			return rec
		}
		if rec.Status == exports.StatusFailed && want != exports.StatusFailed {
			t.Fatalf("export failed: %s", rec.Error)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("export %s did not reach %s", id, want)
	return exports.Record{}
}

func stopWorker(t *testing.T, w *exports.Worker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestWorkerStoresArtifacts(t *testing.T) {
	store := blob.NewMemory()
	audit := &exports.MemoryAuditLog{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	tracer := observability.NewJSONTracer(nil)
	w := exports.NewWorker(testDataset(t), store,
		exports.WithAudit(audit),
		exports.WithMetrics(metrics),
		exports.WithTracer(tracer),
	)
	w.Start()
	defer stopWorker(t, w)

	queued, err := w.Enqueue(context.Background(), exports.Input{
		Selection:   filter.NewSelection([]string{penguins.SpeciesAdelie}, 6000),
		Formats:     datasetapi.Formats,
		RequestedBy: "tester",
		Reason:      "report",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued.Status != exports.StatusQueued || queued.ID == "" {
		t.Fatalf("unexpected queued record %+v", queued)
	}

	done := waitFor(t, w, queued.ID, exports.StatusSucceeded)
	if done.Rows != 2 || done.CompletedAt == nil {
		t.Fatalf("unexpected completed record %+v", done)
	}
	if len(done.Artifacts) != len(datasetapi.Formats) {
		t.Fatalf("expected %d artifacts, got %d", len(datasetapi.Formats), len(done.Artifacts))
	}

	stored, err := store.List(context.Background(), exports.KeyPrefix+queued.ID+"/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != len(datasetapi.Formats) {
		t.Fatalf("expected stored objects, got %+v", stored)
	}

	art, payload, err := w.Artifact(context.Background(), queued.ID, "table.csv")
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if art.ContentType != "text/csv" {
		t.Fatalf("unexpected content type %s", art.ContentType)
	}
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "Adelie,Dream,38,18,3000") {
		t.Fatalf("unexpected csv %q", payload)
	}

	_, payload, err = w.Artifact(context.Background(), queued.ID, "snapshot.json")
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	var doc struct {
		Count             int    `json:"count"`
		AverageBillLength string `json:"average_bill_length"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("decode json artifact: %v", err)
	}
	if doc.Count != 2 || doc.AverageBillLength != "39.0 mm" {
		t.Fatalf("unexpected json artifact %+v", doc)
	}

	_, payload, err = w.Artifact(context.Background(), queued.ID, "plot.png")
	if err != nil || !bytes.HasPrefix(payload, []byte("\x89PNG")) {
		t.Fatalf("expected png artifact, err=%v", err)
	}

	var statuses []exports.Status
	for _, e := range audit.Entries() {
		statuses = append(statuses, e.Status)
		if e.Actor != "tester" || e.ExportID != queued.ID {
			t.Fatalf("unexpected audit entry %+v", e)
		}
	}
	want := []exports.Status{exports.StatusQueued, exports.StatusRunning, exports.StatusSucceeded}
	if len(statuses) != len(want) {
		t.Fatalf("unexpected audit trail %v", statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("unexpected audit trail %v", statuses)
		}
	}
	if got := testutil.ToFloat64(metrics.ExportJobs.WithLabelValues("succeeded")); got != 1 {
		t.Fatalf("unexpected succeeded count %v", got)
	}
	if entries := tracer.Entries(); len(entries) != 1 || entries[0].Status != "success" {
		t.Fatalf("unexpected spans %+v", entries)
	}
}

func TestWorkerAppliesGridQuery(t *testing.T) {
	store := blob.NewMemory()
	w := exports.NewWorker(testDataset(t), store)
	w.Start()
	defer stopWorker(t, w)

	q, err := grid.ParseQuery(map[string][]string{"f.island": {"dream"}, "sort": {"-body_mass_g"}})
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	queued, err := w.Enqueue(context.Background(), exports.Input{
		Selection: filter.DefaultSelection(),
		Grid:      q,
		Formats:   []datasetapi.Format{datasetapi.FormatCSV},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	done := waitFor(t, w, queued.ID, exports.StatusSucceeded)
	if done.Rows != 2 || done.Grid["sort"][0] != "-body_mass_g" {
		t.Fatalf("unexpected record %+v", done)
	}
	_, payload, err := w.Artifact(context.Background(), queued.ID, "table.csv")
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "Chinstrap") || !strings.HasPrefix(lines[2], "Adelie") {
		t.Fatalf("unexpected csv %q", payload)
	}
}

func TestEnqueueDefaultsAndDedupesFormats(t *testing.T) {
	w := exports.NewWorker(testDataset(t), blob.NewMemory())
	rec, err := w.Enqueue(context.Background(), exports.Input{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(rec.Formats) != 2 || rec.Formats[0] != datasetapi.FormatJSON || rec.Formats[1] != datasetapi.FormatCSV {
		t.Fatalf("unexpected default formats %v", rec.Formats)
	}

	rec, err = w.Enqueue(context.Background(), exports.Input{Formats: []datasetapi.Format{"SVG", "svg", "png"}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(rec.Formats) != 2 || rec.Formats[0] != datasetapi.FormatSVG {
		t.Fatalf("unexpected formats %v", rec.Formats)
	}
}

func TestEnqueueRejectsUnknownFormat(t *testing.T) {
	w := exports.NewWorker(testDataset(t), blob.NewMemory())
	_, err := w.Enqueue(context.Background(), exports.Input{Formats: []datasetapi.Format{"parquet"}})
	if !errors.Is(err, exports.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	audit := &exports.MemoryAuditLog{}
	w := exports.NewWorker(testDataset(t), blob.NewMemory(), exports.WithQueueSize(1), exports.WithAudit(audit))
	if _, err := w.Enqueue(context.Background(), exports.Input{}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	_, err := w.Enqueue(context.Background(), exports.Input{})
	if !errors.Is(err, exports.ErrQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}
	entries := audit.Entries()
	last := entries[len(entries)-1]
	if last.Status != exports.StatusFailed || last.Metadata["error"] != exports.ErrQueueFull.Error() {
		t.Fatalf("unexpected audit entry %+v", last)
	}
	if _, ok := w.Get(last.ExportID); ok {
		t.Fatalf("rejected job should not be retained")
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	w := exports.NewWorker(testDataset(t), blob.NewMemory())
	w.Start()
	stopWorker(t, w)
	if _, err := w.Enqueue(context.Background(), exports.Input{}); !errors.Is(err, exports.ErrStopped) {
		t.Fatalf("expected stopped, got %v", err)
	}
}

type failingStore struct {
	blob.Store
}

func (failingStore) Put(context.Context, string, io.Reader, blob.PutOptions) (blob.Info, error) {
	return blob.Info{}, errors.New("disk full")
}

func TestWorkerFailsWhenStoreRejects(t *testing.T) {
	audit := &exports.MemoryAuditLog{}
	w := exports.NewWorker(testDataset(t), failingStore{Store: blob.NewMemory()}, exports.WithAudit(audit))
	w.Start()
	defer stopWorker(t, w)

	rec, err := w.Enqueue(context.Background(), exports.Input{Formats: []datasetapi.Format{datasetapi.FormatJSON}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	failed := waitFor(t, w, rec.ID, exports.StatusFailed)
	if !strings.Contains(failed.Error, "disk full") || failed.CompletedAt == nil {
		t.Fatalf("unexpected failed record %+v", failed)
	}
	entries := audit.Entries()
	if entries[len(entries)-1].Metadata["error"] == "" {
		t.Fatalf("expected error in audit metadata")
	}
}

func TestArtifactNotFound(t *testing.T) {
	w := exports.NewWorker(testDataset(t), blob.NewMemory())
	if _, _, err := w.Artifact(context.Background(), "missing", "table.csv"); !errors.Is(err, exports.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	rec, err := w.Enqueue(context.Background(), exports.Input{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, _, err := w.Artifact(context.Background(), rec.ID, "plot.svg"); !errors.Is(err, exports.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	w := exports.NewWorker(testDataset(t), blob.NewMemory())
	rec, err := w.Enqueue(context.Background(), exports.Input{Selection: filter.DefaultSelection()})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	got, _ := w.Get(rec.ID)
	got.Formats[0] = "mutated"
	got.Selection.Species[0] = "mutated"
	again, _ := w.Get(rec.ID)
	if again.Formats[0] != datasetapi.FormatJSON || again.Selection.Species[0] != penguins.SpeciesAdelie {
		t.Fatalf("record mutated through copy: %+v", again)
	}
}

func TestSlogAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	exports.SlogAuditLogger{Logger: logger}.Record(context.Background(), exports.AuditEntry{
		ID:       "a1",
		Action:   "dashboard_export",
		Actor:    "tester",
		ExportID: "e1",
		Status:   exports.StatusFailed,
		Metadata: map[string]string{"error": "boom"},
	})
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if line["level"] != "WARN" || line["export_id"] != "e1" || line["error"] != "boom" {
		t.Fatalf("unexpected audit log %+v", line)
	}
}

func TestMaterializeHTMLEscapes(t *testing.T) {
	ds, err := penguins.New([]penguins.Record{penguin("<b>", "Dream", 3000, 38, 18)}, "test")
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	w := exports.NewWorker(ds, blob.NewMemory())
	w.Start()
	defer stopWorker(t, w)
	rec, err := w.Enqueue(context.Background(), exports.Input{
		Selection: filter.NewSelection([]string{"<b>"}, 6000),
		Formats:   []datasetapi.Format{datasetapi.FormatHTML},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, w, rec.ID, exports.StatusSucceeded)
	_, payload, err := w.Artifact(context.Background(), rec.ID, "table.html")
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if strings.Contains(string(payload), "<td><b>") || !strings.Contains(string(payload), "&lt;b&gt;") {
		t.Fatalf("expected escaped cell, got %s", payload)
	}
	if !strings.Contains(string(payload), "Number of Penguins") {
		t.Fatalf("expected summary captions")
	}
}

func TestWorkerRetainsBoundedFinishedJobs(t *testing.T) {
	w := exports.NewWorker(testDataset(t), blob.NewMemory(), exports.WithRetention(2))
	w.Start()
	defer stopWorker(t, w)

	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := w.Enqueue(ctx, exports.Input{
			Selection: filter.DefaultSelection(),
			Formats:   []datasetapi.Format{datasetapi.FormatCSV},
		})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		waitFor(t, w, rec.ID, exports.StatusSucceeded)
		ids = append(ids, rec.ID)
	}

	if w.Pending() != 0 {
		t.Fatalf("expected no pending jobs, got %d", w.Pending())
	}
	if _, ok := w.Get(ids[0]); ok {
		t.Fatalf("expected oldest finished job to be evicted")
	}
	if _, _, err := w.Artifact(ctx, ids[0], "table.csv"); !errors.Is(err, exports.ErrNotFound) {
		t.Fatalf("expected not found for evicted job, got %v", err)
	}
	for _, id := range ids[1:] {
		if rec, ok := w.Get(id); !ok || rec.Status != exports.StatusSucceeded {
			t.Fatalf("expected job %s to be retained, got %+v", id, rec)
		}
	}
}
