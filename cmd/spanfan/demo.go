package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/spanfan/pkg/cli"
	"mercator-hq/spanfan/pkg/telemetry/tracing"
)

var demoFlags struct {
	sinks      sinkFlags
	workers    int
	iterations int
	hold       bool
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Emit sample spans through the configured sinks",
	Long: `Emit a fixed set of spans and then a batch of concurrent worker spans.

The fixed set is span_with_export, span_without_export, manual_exported and
manual_skipped. The local trace gets all four; the collector only receives
span_with_export and manual_exported. Each worker draws on its own lane of
the Chrome trace and marks every other iteration as skipped.

Examples:
  # Local trace only
  spanfan demo --chrome ./trace.json

  # Both sinks, with metrics on :9090 until Ctrl-C
  spanfan demo --chrome ./trace.json --endpoint localhost:4317 --insecure \
      --metrics-addr :9090 --hold`,
	RunE: runDemoCommand,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	addSinkFlags(demoCmd, &demoFlags.sinks)
	demoCmd.Flags().IntVarP(&demoFlags.workers, "workers", "w", 4, "concurrent workers, each on its own lane")
	demoCmd.Flags().IntVar(&demoFlags.iterations, "iterations", 3, "spans per worker")
	demoCmd.Flags().BoolVar(&demoFlags.hold, "hold", false, "keep serving metrics and probes until interrupted")
}

var (
	withExportSite    = tracing.NewCallsite("span_with_export")
	withoutExportSite = tracing.NewCallsite("span_without_export", tracing.SkipExport())
	workerSite        = tracing.NewCallsite("worker_iteration")
)

func runDemoCommand(cmd *cobra.Command, args []string) error {
	if demoFlags.workers < 0 || demoFlags.iterations < 0 {
		return cli.NewConfigError("workers", "--workers and --iterations must not be negative")
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	s, err := installPipeline(&demoFlags.sinks)
	if err != nil {
		return err
	}
	defer func() { _ = s.release() }()

	stopMetrics, err := s.serveMetrics(demoFlags.sinks.metricsAddr)
	if err != nil {
		return err
	}
	defer stopMetrics()

	spans := runDemo(ctx, s.guard.Pipeline(), demoFlags.workers, demoFlags.iterations)
	s.logger.InfoContext(ctx, "demo spans emitted", "spans", spans)

	if demoFlags.hold && demoFlags.sinks.metricsAddr != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "serving metrics, press Ctrl-C to exit")
		<-ctx.Done()
	}

	if err := s.release(); err != nil {
		return cli.NewCommandError("demo", err)
	}

	tr := s.cfg.Telemetry.Tracing
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "emitted %d spans (%d workers)\n", spans, demoFlags.workers)
	if tr.Chrome.Enabled {
		fmt.Fprintf(out, "chrome trace: %s\n", tr.Chrome.Path)
	}
	if tr.Export.Enabled {
		fmt.Fprintf(out, "forwarded to: %s %s\n", tr.Export.Exporter, tr.Export.Endpoint)
	}
	return nil
}

// runDemo emits the fixed scenario followed by the worker batch and
// returns the number of spans opened. Workers stop early when ctx is
// cancelled.
func runDemo(ctx context.Context, p *tracing.Pipeline, workers, iterations int) int {
	spans := emitScenario(ctx, p)
	if workers == 0 {
		return spans
	}

	ctx, root := p.Start(ctx, "demo_workers", attribute.Int("workers", workers))
	defer root.End()
	spans++

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(ctx context.Context, worker int) {
			defer wg.Done()
			n := runWorker(ctx, p, worker, iterations)
			mu.Lock()
			total += n
			mu.Unlock()
		}(p.NewLane(ctx), w)
	}
	wg.Wait()

	return spans + total
}

// emitScenario opens the four named spans, each carrying one event.
func emitScenario(ctx context.Context, p *tracing.Pipeline) int {
	func() {
		ctx, span := withExportSite.Start(ctx, p)
		defer span.End()
		p.Event(ctx, "exported span event", attribute.String("note", "forwarded"))
	}()

	func() {
		ctx, span := withoutExportSite.Start(ctx, p)
		defer span.End()
		p.Event(ctx, "local only event", attribute.String("note", "chrome only"))
	}()

	_, manual := p.Start(ctx, "manual_exported")
	manual.Event("manual exported event")
	manual.End()

	_, manualSkipped := p.Start(ctx, "manual_skipped", tracing.SkipExport())
	manualSkipped.Event("manual skipped event")
	manualSkipped.End()

	return 4
}

var errDemoFailure = errors.New("simulated failure")

func runWorker(ctx context.Context, p *tracing.Pipeline, worker, iterations int) int {
	n := 0
	for i := 0; i < iterations; i++ {
		if ctx.Err() != nil {
			return n
		}

		fields := tracing.NewAttributeBuilder().
			WithCustom(tracing.AttrWorker, worker).
			WithCustom(tracing.AttrIteration, i).
			WithSkip(i%2 == 1).
			Attributes()

		itCtx, span := workerSite.Start(ctx, p, fields...)
		n++

		_, step := p.Start(itCtx, "step", attribute.Int("size", (i+1)*100))
		n++
		time.Sleep(time.Millisecond)
		step.SetFields(attribute.Int("processed", (i+1)*100))
		step.End()

		if i == iterations-1 && worker%2 == 0 {
			span.RecordError(errDemoFailure)
		}
		p.Event(itCtx, "iteration done")
		span.End()
	}
	return n
}
