package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"penguindash/internal/adapters/exports"
	"penguindash/internal/adapters/web"
	"penguindash/internal/blob"
	"penguindash/internal/config"
	"penguindash/internal/dashboard"
	"penguindash/internal/datasource"
	"penguindash/internal/observability"
	"penguindash/internal/penguins"
)

func (c *CLI) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.runServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// app is the fully wired server, ready to listen.
type app struct {
	dataset  *penguins.Dataset
	registry *dashboard.Registry
	worker   *exports.Worker
	handler  http.Handler
	shutdown []func(context.Context) error
}

// close stops the worker and flushes telemetry, last started first.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) (*app, error) {
	a := &app{}

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return nil, err
	}
	a.shutdown = append(a.shutdown, shutdownOTel)
	var tracer observability.Tracer = observability.NoopTracer{}
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer = observability.NewOTelTracer(nil, cfg.Telemetry.ServiceName)
	}

	metrics := observability.NewMetrics(reg)

	store, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = a.close(ctx)
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	ds, err := datasource.Open(ctx, cfg.Dataset.Source, datasource.Options{
		Table: cfg.Dataset.Table,
		Blob:  store,
		S3:    cfg.Blob.S3,
	})
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	a.dataset = ds
	logger.Info("dataset loaded", "source", ds.Source(), "records", ds.Len())

	a.registry, err = dashboard.NewRegistry(ds, cfg.Sessions.Max,
		dashboard.WithEvictHook(func(s *dashboard.Session) {
			logger.Debug("session evicted", "session", s.ID())
		}),
		dashboard.WithBuildHook(func(dashboard.Snapshot) {
			metrics.IncRecomputations()
		}),
	)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}

	a.worker = exports.NewWorker(ds, store,
		exports.WithAudit(exports.SlogAuditLogger{Logger: logger}),
		exports.WithMetrics(metrics),
		exports.WithTracer(tracer),
		exports.WithQueueSize(cfg.Exports.QueueSize),
		exports.WithRetention(cfg.Exports.Retention),
	)
	a.worker.Start()
	a.shutdown = append(a.shutdown, a.worker.Stop)

	a.handler = web.New(ds, a.registry, web.Options{
		Logger:        logger,
		Metrics:       metrics,
		Gatherer:      reg,
		Tracer:        tracer,
		Exports:       a.worker,
		Links:         cfg.Links,
		SecureCookies: cfg.Server.SecureCookies,
	}).Router()
	return a, nil
}

func (c *CLI) runServe(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a, err := newApp(ctx, c.cfg, c.logger, reg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: c.cfg.Server.ReadHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		c.logger.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("shutdown: %w", err)
	}
	if err := a.close(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}
