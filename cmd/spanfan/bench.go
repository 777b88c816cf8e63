package main

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/spanfan/pkg/cli"
	"mercator-hq/spanfan/pkg/telemetry/tracing"
)

var benchFlags struct {
	sinks       sinkFlags
	spans       int
	concurrency int
	skipEvery   int
	format      string
	noProgress  bool
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure span throughput through the pipeline",
	Long: `Push synthetic spans through the configured sinks and report throughput
and per-span latency.

Each span is opened, given one event and closed on its own lane. With
--skip-every N, every Nth span carries opentelemetry.skip=true so the
cost of the local-only path can be compared with the forwarded one.

Latency covers Start, Event and End on the caller's goroutine. Remote
export runs in the batch processor and is not included.

Examples:
  # Chrome sink only
  spanfan bench --chrome /tmp/bench.json --spans 100000

  # Both sinks, half the spans skipped
  spanfan bench --chrome /tmp/bench.json --endpoint localhost:4317 --insecure \
      --skip-every 2 --concurrency 8`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	addSinkFlags(benchCmd, &benchFlags.sinks)
	benchCmd.Flags().IntVar(&benchFlags.spans, "spans", 10000, "number of spans to emit")
	benchCmd.Flags().IntVar(&benchFlags.concurrency, "concurrency", 4, "concurrent lanes")
	benchCmd.Flags().IntVar(&benchFlags.skipEvery, "skip-every", 0, "mark every Nth span opentelemetry.skip=true (0 = none)")
	benchCmd.Flags().StringVar(&benchFlags.format, "format", "text", "output format: text, json, csv")
	benchCmd.Flags().BoolVar(&benchFlags.noProgress, "no-progress", false, "do not draw a progress bar")
}

var benchSite = tracing.NewCallsite("bench_span")

// BenchResults is the outcome of a bench run.
type BenchResults struct {
	Spans       int     `json:"spans"`
	Skipped     int     `json:"skipped"`
	Workers     int     `json:"workers"`
	DurationMS  float64 `json:"duration_ms"`
	SpansPerSec float64 `json:"spans_per_sec"`
	MinUS       float64 `json:"min_us"`
	MeanUS      float64 `json:"mean_us"`
	P50US       float64 `json:"p50_us"`
	P95US       float64 `json:"p95_us"`
	P99US       float64 `json:"p99_us"`
	MaxUS       float64 `json:"max_us"`
}

// Table renders the results as metric/value rows.
func (r BenchResults) Table() cli.Table {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return cli.Table{
		Headers: []string{"metric", "value"},
		Rows: [][]string{
			{"spans", strconv.Itoa(r.Spans)},
			{"skipped", strconv.Itoa(r.Skipped)},
			{"workers", strconv.Itoa(r.Workers)},
			{"duration_ms", f(r.DurationMS)},
			{"spans_per_sec", f(r.SpansPerSec)},
			{"min_us", f(r.MinUS)},
			{"mean_us", f(r.MeanUS)},
			{"p50_us", f(r.P50US)},
			{"p95_us", f(r.P95US)},
			{"p99_us", f(r.P99US)},
			{"max_us", f(r.MaxUS)},
		},
	}
}

func runBench(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(benchFlags.format)
	if err != nil {
		return err
	}
	if benchFlags.spans <= 0 || benchFlags.concurrency <= 0 {
		return cli.NewConfigError("spans", "--spans and --concurrency must be positive")
	}
	if benchFlags.skipEvery < 0 {
		return cli.NewConfigError("skip-every", "--skip-every must not be negative")
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	s, err := installPipeline(&benchFlags.sinks)
	if err != nil {
		return err
	}
	defer func() { _ = s.release() }()

	stopMetrics, err := s.serveMetrics(benchFlags.sinks.metricsAddr)
	if err != nil {
		return err
	}
	defer stopMetrics()

	var progress cli.ProgressReporter
	if !benchFlags.noProgress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "spans")
	}

	results := runLoad(ctx, s.guard.Pipeline(), benchFlags.spans, benchFlags.concurrency, benchFlags.skipEvery, progress)

	s.logger.InfoContext(ctx, "bench finished",
		"spans", results.Spans,
		"spans_per_sec", results.SpansPerSec,
	)

	if err := s.release(); err != nil {
		return cli.NewCommandError("bench", err)
	}
	if ctx.Err() != nil {
		return cli.NewCommandError("bench", ctx.Err())
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), results)
}

// runLoad emits total spans across workers lanes and measures each one.
// It stops early when ctx is cancelled.
func runLoad(ctx context.Context, p *tracing.Pipeline, total, workers, skipEvery int, progress cli.ProgressReporter) BenchResults {
	if progress != nil {
		progress.Start(int64(total))
	}

	var (
		next      atomic.Int64
		done      atomic.Int64
		skipped   atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, total)
		wg        sync.WaitGroup
	)

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			lane := p.NewLane(ctx)
			local := make([]time.Duration, 0, total/workers+1)

			for ctx.Err() == nil {
				seq := int(next.Add(1))
				if seq > total {
					break
				}

				fields := []attribute.KeyValue{
					attribute.Int(tracing.AttrWorker, worker),
					attribute.Int(tracing.AttrSequence, seq),
				}
				if skipEvery > 0 && seq%skipEvery == 0 {
					fields = append(fields, tracing.SkipExport())
					skipped.Add(1)
				}

				spanStart := time.Now()
				_, span := benchSite.Start(lane, p, fields...)
				span.Event("tick")
				span.End()
				local = append(local, time.Since(spanStart))

				n := done.Add(1)
				if progress != nil {
					progress.Update(n)
				}
			}

			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if progress != nil {
		if ctx.Err() != nil {
			progress.Error(ctx.Err())
		} else {
			progress.Finish()
		}
	}

	results := BenchResults{
		Spans:      len(latencies),
		Skipped:    int(skipped.Load()),
		Workers:    workers,
		DurationMS: millis(elapsed),
	}
	if elapsed > 0 {
		results.SpansPerSec = float64(results.Spans) / elapsed.Seconds()
	}

	lat := calculatePercentiles(latencies)
	results.MinUS = micros(lat.min)
	results.MeanUS = micros(lat.mean)
	results.P50US = micros(lat.p50)
	results.P95US = micros(lat.p95)
	results.P99US = micros(lat.p99)
	results.MaxUS = micros(lat.max)
	return results
}

type percentiles struct {
	min, mean, p50, p95, p99, max time.Duration
}

func calculatePercentiles(latencies []time.Duration) percentiles {
	if len(latencies) == 0 {
		return percentiles{}
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}

	at := func(q float64) time.Duration {
		return sorted[int(float64(len(sorted)-1)*q)]
	}

	return percentiles{
		min:  sorted[0],
		mean: sum / time.Duration(len(sorted)),
		p50:  at(0.50),
		p95:  at(0.95),
		p99:  at(0.99),
		max:  sorted[len(sorted)-1],
	}
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}
