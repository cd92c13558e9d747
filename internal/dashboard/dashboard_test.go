package dashboard

import (
	"database/sql"
	"encoding/json"
	"net/url"
	"reflect"
	"sync"
	"testing"

	"penguindash/internal/filter"
	"penguindash/internal/penguins"
	"penguindash/internal/summary"
)

func penguin(species string, mass int64, length, depth float64) penguins.Record {
	return penguins.Record{
		Species:      species,
		Island:       "Dream",
		BillLengthMM: sql.NullFloat64{Float64: length, Valid: true},
		BillDepthMM:  sql.NullFloat64{Float64: depth, Valid: true},
		BodyMassG:    sql.NullInt64{Int64: mass, Valid: true},
	}
}

func testDataset(t *testing.T) *penguins.Dataset {
	t.Helper()
	ds, err := penguins.New([]penguins.Record{
		penguin(penguins.SpeciesAdelie, 3000, 38.0, 18.0),
		penguin(penguins.SpeciesGentoo, 5000, 48.0, 15.0),
		penguin(penguins.SpeciesAdelie, 6000, 40.0, 19.0),
	}, "test")
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	return ds
}

func TestControls(t *testing.T) {
	controls := Controls()
	if len(controls) != 2 || controls[0].Name != ParamMass || controls[1].Name != ParamSpecies {
		t.Fatalf("unexpected controls %+v", controls)
	}
	if *controls[0].Min != 2000 || *controls[0].Max != 6000 {
		t.Fatalf("unexpected mass range")
	}
	if !reflect.DeepEqual(controls[1].Enum, penguins.AllSpecies) {
		t.Fatalf("unexpected species enum %v", controls[1].Enum)
	}
}

func TestParseSelectionDefaults(t *testing.T) {
	sel, errs := ParseSelection(nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	if !reflect.DeepEqual(sel, filter.DefaultSelection()) {
		t.Fatalf("expected default selection, got %+v", sel)
	}
}

func TestParseSelectionJSONBody(t *testing.T) {
	var body map[string]any
	if err := json.Unmarshal([]byte(`{"mass": 4000, "species": ["Gentoo", "Adelie", "Gentoo"]}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	sel, errs := ParseSelection(body)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	want := filter.Selection{Species: []string{penguins.SpeciesAdelie, penguins.SpeciesGentoo}, MassThreshold: 4000}
	if !reflect.DeepEqual(sel, want) {
		t.Fatalf("expected %+v, got %+v", want, sel)
	}
}

func TestParseSelectionErrors(t *testing.T) {
	cases := []struct {
		name     string
		supplied map[string]any
		param    string
	}{
		{"mass below range", map[string]any{"mass": "1500"}, ParamMass},
		{"mass not integer", map[string]any{"mass": "heavy"}, ParamMass},
		{"unknown species", map[string]any{"species": []string{"Emperor"}}, ParamSpecies},
		{"undeclared", map[string]any{"colour": "red"}, "colour"},
	}
	for _, tc := range cases {
		_, errs := ParseSelection(tc.supplied)
		if len(errs) != 1 || errs[0].Name != tc.param {
			t.Fatalf("%s: unexpected errors %v", tc.name, errs)
		}
	}
}

func TestParseValuesExplicitlyEmptySpecies(t *testing.T) {
	values := url.Values{"mass": {"5000"}, "species": {""}, "f.island": {"dream"}}
	sel, errs := ParseValues(values)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	if sel.Species == nil || len(sel.Species) != 0 || sel.MassThreshold != 5000 {
		t.Fatalf("expected an explicit empty species list, got %+v", sel)
	}
}

func TestParseValuesCheckboxes(t *testing.T) {
	values := url.Values{"species": {"", "Chinstrap", "Adelie"}}
	sel, errs := ParseValues(values)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	if want := []string{penguins.SpeciesAdelie, penguins.SpeciesChinstrap}; !reflect.DeepEqual(sel.Species, want) {
		t.Fatalf("unexpected species %v", sel.Species)
	}
	if sel.MassThreshold != filter.DefaultMassThreshold {
		t.Fatalf("expected default mass, got %v", sel.MassThreshold)
	}
}

func TestBuildAllSpecies(t *testing.T) {
	snap := Build(testDataset(t), filter.NewSelection(penguins.AllSpecies, 6000))
	if snap.Count != 2 {
		t.Fatalf("expected 2 penguins, got %d", snap.Count)
	}
	if snap.BillLengthLabel != "43.0 mm" || snap.BillDepthLabel != "16.5 mm" {
		t.Fatalf("unexpected labels %q %q", snap.BillLengthLabel, snap.BillDepthLabel)
	}
	if snap.Table.Len() != 2 || len(snap.Series) != 2 {
		t.Fatalf("expected grid and plot to share the view")
	}
}

func TestBuildEmptyViewShowsNA(t *testing.T) {
	snap := Build(testDataset(t), filter.NewSelection([]string{penguins.SpeciesGentoo}, 3000))
	if snap.Count != 0 {
		t.Fatalf("expected no penguins, got %d", snap.Count)
	}
	if snap.BillLengthLabel != summary.NoData || snap.BillDepthLabel != summary.NoData {
		t.Fatalf("expected N/A labels, got %q %q", snap.BillLengthLabel, snap.BillDepthLabel)
	}
	if len(snap.Series) != 0 || snap.Table.Len() != 0 {
		t.Fatalf("expected empty plot and grid")
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
}

func TestSessionMemoizesPerVersion(t *testing.T) {
	s := NewSession("s1", testDataset(t))
	first := s.Snapshot()
	second := s.Snapshot()
	if first.Version != 0 || second.Version != 0 || s.Computations() != 1 {
		t.Fatalf("expected one computation at version 0, got %d", s.Computations())
	}
	v := s.SetSelection(filter.NewSelection([]string{penguins.SpeciesAdelie}, 6000))
	if v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}
	snap := s.Snapshot()
	if snap.Version != 1 || snap.Count != 1 || s.Computations() != 2 {
		t.Fatalf("unexpected snapshot %+v after %d computations", snap.Selection, s.Computations())
	}
}

func TestSessionSetSelectionCanonicalizes(t *testing.T) {
	s := NewSession("s1", testDataset(t))
	s.SetSelection(filter.Selection{Species: []string{"Gentoo", "Adelie", "Adelie"}, MassThreshold: 4000})
	sel, _ := s.Selection()
	if want := []string{penguins.SpeciesAdelie, penguins.SpeciesGentoo}; !reflect.DeepEqual(sel.Species, want) {
		t.Fatalf("unexpected species %v", sel.Species)
	}
}

func TestSessionSubscribe(t *testing.T) {
	s := NewSession("s1", testDataset(t))
	var got []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })
	s.SetSelection(filter.NewSelection(nil, 6000))
	s.SetSelection(filter.NewSelection([]string{penguins.SpeciesGentoo}, 6000))
	unsubscribe()
	s.SetSelection(filter.DefaultSelection())
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Version != 1 || got[0].Count != 0 || got[1].Version != 2 || got[1].Count != 1 {
		t.Fatalf("unexpected notifications %+v", got)
	}
	if s.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestSessionConcurrentReadersShareVersion(t *testing.T) {
	s := NewSession("s1", testDataset(t))
	s.SetSelection(filter.NewSelection([]string{penguins.SpeciesAdelie}, 5000))
	var wg sync.WaitGroup
	counts := make([]int, 16)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i] = s.Snapshot().Count
		}(i)
	}
	wg.Wait()
	for _, c := range counts {
		if c != 1 {
			t.Fatalf("unexpected count %d", c)
		}
	}
	if s.Computations() != 1 {
		t.Fatalf("expected a single computation, got %d", s.Computations())
	}
}

func TestRegistryEvictsOldest(t *testing.T) {
	var evicted []string
	reg, err := NewRegistry(testDataset(t), 2, WithEvictHook(func(s *Session) { evicted = append(evicted, s.ID()) }))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	a := reg.Create()
	b := reg.Create()
	c := reg.Create()
	if reg.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", reg.Len())
	}
	if !reflect.DeepEqual(evicted, []string{a.ID()}) {
		t.Fatalf("expected %s evicted, got %v", a.ID(), evicted)
	}
	if _, ok := reg.Get(a.ID()); ok {
		t.Fatalf("expected evicted session to be gone")
	}
	for _, s := range []*Session{b, c} {
		if got, ok := reg.Get(s.ID()); !ok || got != s {
			t.Fatalf("expected session %s", s.ID())
		}
	}
}

func TestRegistryGetOrCreate(t *testing.T) {
	reg, err := NewRegistry(testDataset(t), 0)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	s, created := reg.GetOrCreate("forged-id")
	if !created || s.ID() == "forged-id" || s.ID() == "" {
		t.Fatalf("expected a fresh session, got %q created=%v", s.ID(), created)
	}
	again, created := reg.GetOrCreate(s.ID())
	if created || again != s {
		t.Fatalf("expected the existing session")
	}
	if _, ok := reg.Get(""); ok {
		t.Fatalf("empty id must not resolve")
	}
}

func TestRegistryBuildHookRunsOncePerVersion(t *testing.T) {
	var builds []int
	reg, err := NewRegistry(testDataset(t), 4, WithBuildHook(func(s Snapshot) { builds = append(builds, s.Count) }))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	s := reg.Create()
	s.Snapshot()
	s.Snapshot()
	s.SetSelection(filter.NewSelection([]string{penguins.SpeciesGentoo}, 6000))
	s.Snapshot()
	if !reflect.DeepEqual(builds, []int{2, 1}) {
		t.Fatalf("unexpected builds %v", builds)
	}
}

func TestDefaultLinks(t *testing.T) {
	want := []string{"GitHub Source", "GitHub App", "GitHub Issues", "PyShiny", "Template: Basic Dashboard", "See also"}
	if len(DefaultLinks) != len(want) {
		t.Fatalf("expected %d links, got %d", len(want), len(DefaultLinks))
	}
	for i, link := range DefaultLinks {
		if link.Title != want[i] {
			t.Fatalf("link %d: expected %q, got %q", i, want[i], link.Title)
		}
		if u, err := url.Parse(link.URL); err != nil || u.Scheme != "https" || u.Host == "" {
			t.Fatalf("link %q has unexpected url %q", link.Title, link.URL)
		}
	}
}
