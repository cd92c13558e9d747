package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"penguindash/internal/adapters/exports"
	"penguindash/internal/dashboard"
	"penguindash/internal/filter"
	"penguindash/internal/grid"
	"penguindash/pkg/datasetapi"
)

type validationResponse struct {
	Error  string                      `json:"error"`
	Errors []datasetapi.ParameterError `json:"errors"`
}

func writeParameterErrors(w http.ResponseWriter, errs []datasetapi.ParameterError) {
	writeJSON(w, http.StatusBadRequest, validationResponse{Error: "invalid parameters", Errors: errs})
}

type selectionResponse struct {
	Selection filter.Selection `json:"selection"`
	Version   uint64           `json:"version"`
}

func (s *Server) handleControls(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"controls": dashboard.Controls()})
}

// handleView computes a snapshot for the query's selection without touching
// any session.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sel, errs := dashboard.ParseValues(query)
	if len(errs) > 0 {
		writeParameterErrors(w, errs)
		return
	}
	q, err := grid.ParseQuery(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, span := s.tracer.Start(r.Context(), "view")
	snap := dashboard.Build(s.dataset, sel)
	snap.Table = snap.Table.Apply(q)
	span.End(nil)
	writeJSON(w, http.StatusOK, map[string]any{"view": snap})
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	sel, version := s.session(w, r).Selection()
	writeJSON(w, http.StatusOK, selectionResponse{Selection: sel, Version: version})
}

func (s *Server) handlePutSelection(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid selection payload")
		return
	}
	sel, errs := dashboard.ParseSelection(body)
	if len(errs) > 0 {
		writeParameterErrors(w, errs)
		return
	}
	sess := s.session(w, r)
	version := sess.SetSelection(sel)
	current, _ := sess.Selection()
	writeJSON(w, http.StatusOK, selectionResponse{Selection: current, Version: version})
}

type exportRequest struct {
	Selection   map[string]any    `json:"selection"`
	Formats     []string          `json:"formats"`
	Grid        map[string]string `json:"grid"`
	RequestedBy string            `json:"requested_by"`
	Reason      string            `json:"reason"`
}

func (s *Server) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		writeError(w, http.StatusNotFound, "exports not configured")
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}

	sess := s.session(w, r)
	sel, _ := sess.Selection()
	if req.Selection != nil {
		var errs []datasetapi.ParameterError
		if sel, errs = dashboard.ParseSelection(req.Selection); len(errs) > 0 {
			writeParameterErrors(w, errs)
			return
		}
	}

	values := url.Values{}
	for k, v := range req.Grid {
		values.Set(k, v)
	}
	q, err := grid.ParseQuery(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	formats := make([]datasetapi.Format, len(req.Formats))
	for i, f := range req.Formats {
		formats[i] = datasetapi.Format(f)
	}
	requestedBy := req.RequestedBy
	if requestedBy == "" {
		requestedBy = "session:" + sess.ID()
	}

	record, err := s.exports.Enqueue(r.Context(), exports.Input{
		Selection:   sel,
		Grid:        q,
		Formats:     formats,
		RequestedBy: requestedBy,
		Reason:      req.Reason,
	})
	switch {
	case errors.Is(err, exports.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Location", "/api/v1/exports/"+record.ID)
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (s *Server) handleExportGet(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		writeError(w, http.StatusNotFound, "exports not configured")
		return
	}
	record, ok := s.exports.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func (s *Server) handleExportArtifact(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		writeError(w, http.StatusNotFound, "exports not configured")
		return
	}
	name := chi.URLParam(r, "artifact")
	artifact, payload, err := s.exports.Artifact(r.Context(), chi.URLParam(r, "id"), name)
	if errors.Is(err, exports.ErrNotFound) {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "read export artifact", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "artifact unavailable")
		return
	}
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
