package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"penguindash/internal/dashboard"
	"penguindash/internal/filter"
	"penguindash/internal/grid"
	"penguindash/internal/penguins"
	"penguindash/internal/render"
)

// Page titles and captions.
const (
	PageTitle    = "Penguins Dashboard"
	SidebarTitle = "Filtering Data Controls"
	LinksTitle   = "Links to the Project"
	PlotTitle    = "Bill Length and Depth"
	GridTitle    = "Penguin Data"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

type speciesOption struct {
	Name    string
	Checked bool
}

type gridColumn struct {
	Name    string
	Label   string
	Unit    string
	Expr    string
	SortURL string
	Sorted  string
}

type pageData struct {
	Title        string
	SidebarTitle string
	LinksTitle   string
	PlotTitle    string
	GridTitle    string
	MassMin      int
	MassMax      int
	Mass         int
	Species      []speciesOption
	Links        []dashboard.Link
	Snapshot     dashboard.Snapshot
	Plot         template.HTML
	Columns      []gridColumn
	Rows         [][]string
	GridError    string
	Sort         string
	CSVURL       string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	snap := sess.Snapshot()

	data := pageData{
		Title:        PageTitle,
		SidebarTitle: SidebarTitle,
		LinksTitle:   LinksTitle,
		PlotTitle:    PlotTitle,
		GridTitle:    GridTitle,
		MassMin:      filter.MinMassThreshold,
		MassMax:      filter.MaxMassThreshold,
		Mass:         int(snap.Selection.MassThreshold),
		Links:        s.links,
		Snapshot:     snap,
	}
	// ScatterSVG escapes every label it writes.
	data.Plot = template.HTML(render.ScatterSVG(snap.Series, render.DefaultOptions()))
	selected := snap.Selection.SpeciesSet()
	for _, name := range penguins.AllSpecies {
		data.Species = append(data.Species, speciesOption{Name: name, Checked: selected.Contains(name)})
	}

	q, err := grid.ParseQuery(r.URL.Query())
	if err != nil {
		data.GridError = err.Error()
		q = grid.Query{}
	}
	table := snap.Table.Apply(q)
	data.Rows = table.Cells()
	data.Columns = gridColumns(q)
	data.Sort = q.Values().Get(grid.SortParam)
	data.CSVURL = "/table.csv"
	if enc := q.Values().Encode(); enc != "" {
		data.CSVURL += "?" + enc
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.ErrorContext(r.Context(), "render page", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "render page failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// gridColumns describes the header cells, each with a link that sorts by the
// column and flips direction when it is already the sort column.
func gridColumns(q grid.Query) []gridColumn {
	out := make([]gridColumn, len(grid.Columns))
	for i, c := range grid.Columns {
		next := q
		next.SortBy = c.Name
		next.Descending = q.SortBy == c.Name && !q.Descending
		col := gridColumn{
			Name:    c.Name,
			Label:   c.Label,
			Unit:    c.Unit,
			Expr:    q.Expr(c.Name),
			SortURL: "/?" + next.Values().Encode(),
		}
		if q.SortBy == c.Name {
			col.Sorted = "ascending"
			if q.Descending {
				col.Sorted = "descending"
			}
		}
		out[i] = col
	}
	return out
}

// handleSelectionForm applies the sidebar form and redirects back to the
// page. Grid state posted alongside is carried into the redirect.
func (s *Server) handleSelectionForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	sel, errs := dashboard.ParseValues(r.PostForm)
	if len(errs) > 0 {
		writeParameterErrors(w, errs)
		return
	}
	s.session(w, r).SetSelection(sel)

	target := "/"
	gridValues := url.Values{}
	for key, values := range r.PostForm {
		if key == grid.SortParam || strings.HasPrefix(key, grid.FilterPrefix) {
			gridValues[key] = values
		}
	}
	if q, err := grid.ParseQuery(gridValues); err == nil {
		if enc := q.Values().Encode(); enc != "" {
			target += "?" + enc
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type eventPayload struct {
	Version         uint64           `json:"version"`
	Selection       filter.Selection `json:"selection"`
	Count           int              `json:"count"`
	BillLengthLabel string           `json:"bill_length_label"`
	BillDepthLabel  string           `json:"bill_depth_label"`
}

func newEventPayload(snap dashboard.Snapshot) eventPayload {
	return eventPayload{
		Version:         snap.Version,
		Selection:       snap.Selection,
		Count:           snap.Count,
		BillLengthLabel: snap.BillLengthLabel,
		BillDepthLabel:  snap.BillDepthLabel,
	}
}

// handleEvents streams the session's snapshot summary as server-sent events:
// the current state first, then one event per selection change. Slow readers
// only see the latest snapshot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	sess := s.session(w, r)

	updates := make(chan dashboard.Snapshot, 1)
	unsubscribe := sess.Subscribe(func(snap dashboard.Snapshot) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, sess.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-updates:
			if err := writeEvent(w, snap); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, snap dashboard.Snapshot) error {
	payload, err := json.Marshal(newEventPayload(snap))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Version, payload)
	return err
}

func (s *Server) handlePlotSVG(w http.ResponseWriter, r *http.Request) {
	snap := s.session(w, r).Snapshot()
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(render.ScatterSVG(snap.Series, plotOptions(r)))
}

func (s *Server) handlePlotPNG(w http.ResponseWriter, r *http.Request) {
	snap := s.session(w, r).Snapshot()
	payload, err := render.ScatterPNG(snap.Series, plotOptions(r))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "render png", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "render plot failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// plotOptions reads optional w and h query parameters, clamped to a sane range.
func plotOptions(r *http.Request) render.Options {
	opts := render.DefaultOptions()
	if v, err := strconv.Atoi(r.URL.Query().Get("w")); err == nil {
		opts.Width = clamp(v, 320, 2000)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("h")); err == nil {
		opts.Height = clamp(v, 240, 2000)
	}
	return opts
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func (s *Server) handleTableCSV(w http.ResponseWriter, r *http.Request) {
	q, err := grid.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	table := s.session(w, r).Snapshot().Table.Apply(q)
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, "write csv failed")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="penguins.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
