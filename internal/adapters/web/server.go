// Package web serves the dashboard page, its live updates and the JSON API.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"penguindash/internal/adapters/exports"
	"penguindash/internal/dashboard"
	"penguindash/internal/observability"
	"penguindash/internal/penguins"
)

// Options carries the optional collaborators of a Server.
type Options struct {
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	Gatherer      prometheus.Gatherer
	Tracer        observability.Tracer
	Exports       *exports.Worker
	Links         []dashboard.Link
	SecureCookies bool
}

// Server routes dashboard requests to per-session state.
type Server struct {
	dataset  *penguins.Dataset
	registry *dashboard.Registry
	exports  *exports.Worker
	logger   *slog.Logger
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
	tracer   observability.Tracer
	links    []dashboard.Link
	secure   bool
}

// New constructs a Server over ds and its session registry.
func New(ds *penguins.Dataset, registry *dashboard.Registry, opts Options) *Server {
	s := &Server{
		dataset:  ds,
		registry: registry,
		exports:  opts.Exports,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		tracer:   opts.Tracer,
		links:    opts.Links,
		secure:   opts.SecureCookies,
	}
	if s.logger == nil {
		s.logger = observability.Discard()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.tracer == nil {
		s.tracer = observability.NoopTracer{}
	}
	if s.links == nil {
		s.links = dashboard.DefaultLinks
	}
	return s
}

// Router wires every endpoint onto a chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Post("/selection", s.handleSelectionForm)
	r.Get("/events", s.handleEvents)
	r.Get("/plot.svg", s.handlePlotSVG)
	r.Get("/plot.png", s.handlePlotPNG)
	r.Get("/table.csv", s.handleTableCSV)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/controls", s.handleControls)
		r.Get("/view", s.handleView)
		r.Get("/session/selection", s.handleGetSelection)
		r.Put("/session/selection", s.handlePutSelection)
		r.Post("/exports", s.handleExportCreate)
		r.Get("/exports/{id}", s.handleExportGet)
		r.Get("/exports/{id}/artifacts/{artifact}", s.handleExportArtifact)
	})
	return r
}

// instrument logs, traces and times each request under its route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		var spanErr error
		if status >= http.StatusInternalServerError {
			spanErr = errStatus(status)
		}
		span.End(spanErr)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.Observe(ctx, "http "+r.Method+" "+route, status < http.StatusInternalServerError, time.Since(start))
		s.logger.InfoContext(ctx, "request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type errStatus int

func (e errStatus) Error() string { return http.StatusText(int(e)) }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"records":  s.dataset.Len(),
		"source":   s.dataset.Source(),
		"sessions": s.registry.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
