package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/spanfan/pkg/cli"
	"mercator-hq/spanfan/pkg/config"
	"mercator-hq/spanfan/pkg/server"
	"mercator-hq/spanfan/pkg/telemetry/health"
	"mercator-hq/spanfan/pkg/telemetry/logging"
	"mercator-hq/spanfan/pkg/telemetry/metrics"
	"mercator-hq/spanfan/pkg/telemetry/tracing"
)

const (
	// shutdownTimeout bounds the final flush of the remote exporter.
	shutdownTimeout = 10 * time.Second

	healthCheckTimeout = 2 * time.Second
)

// sinkFlags override telemetry.tracing from the command line.
type sinkFlags struct {
	chrome      string
	compress    bool
	endpoint    string
	exporter    string
	insecure    bool
	metricsAddr string
}

func addSinkFlags(cmd *cobra.Command, f *sinkFlags) {
	cmd.Flags().StringVar(&f.chrome, "chrome", "", "write the local Chrome trace to this path")
	cmd.Flags().BoolVar(&f.compress, "compress", false, "gzip the Chrome trace")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "forward non-skipped spans to this collector (host:port)")
	cmd.Flags().StringVar(&f.exporter, "exporter", "", "collector transport: otlp, otlphttp")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "disable TLS to the collector")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics and health probes on this address")
}

func (f *sinkFlags) apply(cfg *config.TracingConfig) {
	if f.chrome != "" {
		cfg.Chrome.Enabled = true
		cfg.Chrome.Path = f.chrome
	}
	if f.compress {
		cfg.Chrome.Compress = true
	}
	if f.endpoint != "" {
		cfg.Export.Enabled = true
		cfg.Export.Endpoint = f.endpoint
	}
	if f.exporter != "" {
		cfg.Export.Exporter = f.exporter
	}
	if f.insecure {
		cfg.Export.OTLP.Insecure = true
	}
}

// session bundles what a pipeline command needs.
type session struct {
	cfg       *config.Config
	logger    *logging.Logger
	collector *metrics.Collector
	guard     *tracing.Guard

	releaseOnce sync.Once
	releaseErr  error
}

// installPipeline loads configuration, applies flag overrides and installs
// the pipeline on the default scope.
func installPipeline(f *sinkFlags, extra ...tracing.Option) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	f.apply(&cfg.Telemetry.Tracing)

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	opts := []tracing.Option{
		tracing.WithLogger(logger),
		tracing.WithMetrics(collector),
		tracing.WithServiceVersion(Version),
	}
	if cfg.Telemetry.Tracing.Export.RedactPII && logger.Redactor() != nil {
		opts = append(opts, tracing.WithRedactor(logger.Redactor()))
	}
	opts = append(opts, extra...)

	guard, err := tracing.Init(&cfg.Telemetry.Tracing, opts...)
	if err != nil {
		if errors.Is(err, tracing.ErrNoSinks) {
			return nil, cli.NewConfigError("telemetry.tracing", "no sink enabled; pass --chrome or --endpoint")
		}
		return nil, err
	}

	return &session{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		guard:     guard,
	}, nil
}

// release closes the guard with a bounded flush. Commands defer it right
// after installPipeline so a panic still terminates the Chrome trace; later
// calls return the first result.
func (s *session) release() error {
	s.releaseOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.releaseErr = s.guard.Close(ctx)
	})
	return s.releaseErr
}

// observabilityMux serves the metrics collector (when enabled) and the
// health probes of the installed pipeline.
func (s *session) observabilityMux() *http.ServeMux {
	checker := health.New(healthCheckTimeout)
	checker.RegisterCheck("pipeline", health.PipelineCheck(s.guard.Pipeline()))
	if s.cfg.Telemetry.Tracing.Chrome.Enabled {
		checker.RegisterCheck("chrome", health.SinkCheck("chrome", s.guard.ChromeErr))
	}
	if s.cfg.Telemetry.Tracing.Export.Enabled {
		checker.RegisterCheck("export", health.SinkCheck("export", s.guard.ExportErr))
	}

	mux := http.NewServeMux()
	if s.collector != nil {
		mux.Handle(s.cfg.Telemetry.Metrics.Path, s.collector.Handler())
	}
	health.Mount(mux, checker, Version, GitCommit, BuildDate)
	return mux
}

// serveMetrics exposes metrics and health probes until the returned stop
// function is called.
func (s *session) serveMetrics(addr string) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}

	srv := server.New(server.Config{
		Address:         addr,
		ShutdownTimeout: shutdownTimeout,
		Logger:          s.logger.Slog(),
	}, s.observabilityMux())
	if err := srv.Start(context.Background()); err != nil {
		return nil, err
	}
	s.logger.Info("serving metrics and health probes",
		"address", srv.Addr(),
		"metrics", s.collector != nil,
		"path", s.cfg.Telemetry.Metrics.Path,
	)

	return func() { _ = srv.Shutdown(context.Background()) }, nil
}
