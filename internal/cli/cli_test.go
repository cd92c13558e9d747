package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"penguindash/internal/config"
	"penguindash/internal/observability"
)

const fixtureCSV = `species,island,bill_length_mm,bill_depth_mm,flipper_length_mm,body_mass_g,sex,year
Adelie,Dream,38,18,180,3000,female,2007
Gentoo,Biscoe,48,15,215,5000,male,2008
Adelie,Torgersen,40,19,190,3500,male,2009
`

// workspace moves into a fresh directory holding the fixture dataset.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "penguins.csv")
	if err := os.WriteFile(path, []byte(fixtureCSV), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	c := New()
	var stdout, stderr bytes.Buffer
	c.Command().SetOut(&stdout)
	c.Command().SetErr(&stderr)
	c.Command().SetArgs(args)
	code := c.Execute()
	return stdout.String(), stderr.String(), code
}

func TestFilterText(t *testing.T) {
	source := workspace(t)
	out, errOut, code := run(t, "filter", "--source", source)
	if code != ExitSuccess {
		t.Fatalf("unexpected exit %d: %s", code, errOut)
	}
	for _, want := range []string{"Number of Penguins:", "3", "42.0 mm", "17.3 mm"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestFilterJSONWithSelectionAndRows(t *testing.T) {
	source := workspace(t)
	out, errOut, code := run(t, "filter", "--source", source, "--format", "json",
		"--species", "Adelie", "--mass", "3600", "--rows", "--sort=-body_mass_g")
	if code != ExitSuccess {
		t.Fatalf("unexpected exit %d: %s", code, errOut)
	}
	var got struct {
		Selection struct {
			Species []string `json:"species"`
			Mass    float64  `json:"mass"`
		} `json:"selection"`
		Count             int              `json:"count"`
		AverageBillLength string           `json:"average_bill_length"`
		AverageBillDepth  string           `json:"average_bill_depth"`
		Rows              []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Count != 2 || got.AverageBillLength != "39.0 mm" || got.AverageBillDepth != "18.5 mm" {
		t.Fatalf("unexpected summary %+v", got)
	}
	if len(got.Selection.Species) != 1 || got.Selection.Species[0] != "Adelie" || got.Selection.Mass != 3600 {
		t.Fatalf("unexpected selection %+v", got.Selection)
	}
	if len(got.Rows) != 2 || got.Rows[0]["island"] != "Torgersen" {
		t.Fatalf("expected rows sorted by mass descending, got %+v", got.Rows)
	}
}

func TestFilterYAMLEmptySelection(t *testing.T) {
	source := workspace(t)
	out, errOut, code := run(t, "filter", "--source", source, "--format", "yaml", "--species", "")
	if code != ExitSuccess {
		t.Fatalf("unexpected exit %d: %s", code, errOut)
	}
	var got map[string]any
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got["count"] != 0 || got["average_bill_length"] != "N/A" || got["average_bill_depth"] != "N/A" {
		t.Fatalf("unexpected empty summary %+v", got)
	}
}

func TestFilterRejectsBadInput(t *testing.T) {
	source := workspace(t)
	cases := [][]string{
		{"filter", "--source", source, "--format", "xml"},
		{"filter", "--source", source, "--where", "island"},
		{"filter", "--source", source, "--where", "colour=red"},
		{"filter", "--source", filepath.Join(filepath.Dir(source), "missing.csv")},
	}
	for _, args := range cases {
		_, errOut, code := run(t, args...)
		if code != ExitFailure {
			t.Fatalf("expected failure for %v", args)
		}
		if !strings.HasPrefix(errOut, "penguindash: ") {
			t.Fatalf("unexpected stderr %q", errOut)
		}
	}
}

func TestExportToFile(t *testing.T) {
	source := workspace(t)
	target := filepath.Join(t.TempDir(), "table.csv")
	_, errOut, code := run(t, "export", "--source", source, "--format", "csv",
		"--where", "island=dream", "--out", target, "--log-format", "text")
	if code != ExitSuccess {
		t.Fatalf("unexpected exit %d: %s", code, errOut)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "Adelie,Dream,38,18,3000") || strings.Contains(string(data), "Gentoo") {
		t.Fatalf("unexpected export:\n%s", data)
	}
	if !strings.Contains(errOut, "export written") {
		t.Fatalf("expected export log line, got %q", errOut)
	}
}

func TestExportSVGToStdout(t *testing.T) {
	source := workspace(t)
	out, errOut, code := run(t, "export", "--source", source, "--format", "svg")
	if code != ExitSuccess {
		t.Fatalf("unexpected exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "<svg") {
		t.Fatalf("expected svg document, got %q", out)
	}
	if _, _, code := run(t, "export", "--source", source, "--format", "gif"); code != ExitFailure {
		t.Fatalf("expected unknown format to fail")
	}
}

func TestVersion(t *testing.T) {
	out, _, code := run(t, "version")
	if code != ExitSuccess || !strings.HasPrefix(out, "penguindash "+Version) {
		t.Fatalf("unexpected version output %q (exit %d)", out, code)
	}
}

func TestSeedSQLiteThenFilter(t *testing.T) {
	source := workspace(t)
	target := "sqlite://" + filepath.Join(t.TempDir(), "p.db")
	out, errOut, code := run(t, "seed", "--source", source, "--target", target, "--to-table", "birds")
	if code != ExitSuccess {
		t.Fatalf("unexpected seed exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "seeded 3 records into birds") {
		t.Fatalf("unexpected seed output %q", out)
	}

	out, errOut, code = run(t, "filter", "--source", target, "--table", "birds", "--format", "json")
	if code != ExitSuccess {
		t.Fatalf("unexpected filter exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, `"count": 3`) {
		t.Fatalf("unexpected filter output %s", out)
	}
}

func TestSeedRejectsFileTarget(t *testing.T) {
	source := workspace(t)
	if _, _, code := run(t, "seed", "--source", source, "--target", "out.csv"); code != ExitFailure {
		t.Fatalf("expected seeding a csv target to fail")
	}
}

func TestNewAppServesDashboard(t *testing.T) {
	source := workspace(t)
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Dataset.Source = source
	cfg.Blob.Driver = "memory"

	ctx := context.Background()
	a, err := newApp(ctx, cfg, observability.Discard(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := a.close(context.Background()); err != nil {
			t.Errorf("unexpected close error: %v", err)
		}
	})

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var health struct {
		Records int    `json:"records"`
		Source  string `json:"source"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Records != 3 || health.Source != source {
		t.Fatalf("unexpected health %+v", health)
	}

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Penguins Dashboard") {
		t.Fatalf("unexpected page response %d", rec.Code)
	}
	if a.registry.Len() != 1 {
		t.Fatalf("expected one session, got %d", a.registry.Len())
	}
}

func TestNewAppRejectsUnknownBlobDriver(t *testing.T) {
	workspace(t)
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Blob.Driver = "ftp"
	if _, err := newApp(context.Background(), cfg, observability.Discard(), prometheus.NewRegistry()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
