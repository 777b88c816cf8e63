package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/spanfan/pkg/cli"
	"mercator-hq/spanfan/pkg/telemetry/tracing"
)

var replayFlags struct {
	sinks      sinkFlags
	noProgress bool
}

var replayCmd = &cobra.Command{
	Use:   "replay <trace.json[.gz]>",
	Short: "Re-emit a recorded Chrome trace through the pipeline",
	Long: `Read a Chrome trace and open, annotate and close its spans again through
the configured sinks. Nesting, lanes, events and fields are preserved, so
spans recorded with opentelemetry.skip=true stay local. Timestamps are those
of the replay; every replayed span carries spanfan.replayed_from.

Chrome records carry no parent ids: spans on other lanes are attached to
the span open on the first lane when their lane first appears. Spans still
open at the end of the file are closed when the replay ends.

Examples:
  # Forward a trace captured offline
  spanfan replay ./trace.json --endpoint localhost:4317 --insecure

  # Re-write a gzipped trace uncompressed
  spanfan replay ./trace.json.gz --chrome ./trace-copy.json`,
	Args: cobra.ExactArgs(1),
	RunE: runReplayCommand,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	addSinkFlags(replayCmd, &replayFlags.sinks)
	replayCmd.Flags().BoolVar(&replayFlags.noProgress, "no-progress", false, "do not draw a progress bar")
}

// ReplayStats counts what a replay re-emitted.
type ReplayStats struct {
	Spans    int
	Events   int
	Unclosed int
	// Unmatched counts "E" records with no open span on their lane.
	Unmatched int
}

func runReplayCommand(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	records, err := tracing.ReadChromeTrace(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to read trace %q: %w", path, err)
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	s, err := installPipeline(&replayFlags.sinks)
	if err != nil {
		return err
	}
	defer func() { _ = s.release() }()

	stopMetrics, err := s.serveMetrics(replayFlags.sinks.metricsAddr)
	if err != nil {
		return err
	}
	defer stopMetrics()

	var progress cli.ProgressReporter
	if !replayFlags.noProgress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "records")
	}

	stats := replay(ctx, s.guard.Pipeline(), records, path, progress)
	s.logger.InfoContext(ctx, "trace replayed",
		"file", path,
		"spans", stats.Spans,
		"events", stats.Events,
		"unclosed", stats.Unclosed,
	)

	if err := s.release(); err != nil {
		return cli.NewCommandError("replay", err)
	}
	if err := ctx.Err(); err != nil {
		return cli.NewCommandError("replay", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "replayed %d spans and %d events from %s\n", stats.Spans, stats.Events, path)
	if stats.Unclosed > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "closed %d spans left open in the trace\n", stats.Unclosed)
	}
	return nil
}

type replayFrame struct {
	ctx  context.Context
	span *tracing.Span
}

type replayLane struct {
	ctx   context.Context
	stack []replayFrame
}

func (l *replayLane) top() context.Context {
	if n := len(l.stack); n > 0 {
		return l.stack[n-1].ctx
	}
	return l.ctx
}

type replayLaneID struct {
	pid int
	tid uint64
}

// replay re-emits records in file order. Each recorded (pid, tid) pair
// gets a lane of its own; a lane's root spans become children of the span
// open on the first lane when the lane first appears, which is how
// NewLane fan-out is recorded. It stops early when ctx is cancelled.
func replay(ctx context.Context, p *tracing.Pipeline, records []tracing.ChromeEvent, source string, progress cli.ProgressReporter) ReplayStats {
	var (
		stats ReplayStats
		first *replayLane
	)
	lanes := make(map[replayLaneID]*replayLane)

	laneFor := func(rec tracing.ChromeEvent) *replayLane {
		id := replayLaneID{pid: rec.Pid, tid: rec.Tid}
		l, ok := lanes[id]
		if ok {
			return l
		}
		if first == nil {
			l = &replayLane{ctx: ctx}
			first = l
		} else {
			l = &replayLane{ctx: p.NewLane(first.top())}
		}
		lanes[id] = l
		return l
	}

	if progress != nil {
		progress.Start(int64(len(records)))
	}

	for i, rec := range records {
		if ctx.Err() != nil {
			if progress != nil {
				progress.Error(ctx.Err())
			}
			break
		}

		switch rec.Ph {
		case tracing.PhaseBegin:
			l := laneFor(rec)
			fields := tracing.NewAttributeBuilder().
				WithMap(rec.Args).
				WithCustom(tracing.AttrReplayedAt, source).
				Attributes()
			spanCtx, span := p.Start(l.top(), rec.Name, fields...)
			l.stack = append(l.stack, replayFrame{ctx: spanCtx, span: span})
			stats.Spans++

		case tracing.PhaseEnd:
			l := laneFor(rec)
			n := len(l.stack)
			if n == 0 {
				stats.Unmatched++
				break
			}
			frame := l.stack[n-1]
			l.stack = l.stack[:n-1]
			closeReplayed(frame.span, rec.Args)

		case tracing.PhaseInstant:
			l := laneFor(rec)
			p.Event(l.top(), rec.Name, fieldsOf(rec.Args)...)
			stats.Events++
		}

		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}

	for _, l := range lanes {
		for n := len(l.stack); n > 0; n-- {
			l.stack[n-1].span.End()
			stats.Unclosed++
		}
		l.stack = nil
	}

	if progress != nil && ctx.Err() == nil {
		progress.Finish()
	}
	return stats
}

// closeReplayed restores the dynamic fields of an "E" record. A recorded
// error is replayed as an error so the remote status matches.
func closeReplayed(span *tracing.Span, args map[string]any) {
	rest := make(map[string]any, len(args))
	for k, v := range args {
		rest[k] = v
	}
	if msg, ok := args[tracing.AttrErrorMessage].(string); ok {
		span.RecordError(errors.New(msg))
		delete(rest, tracing.AttrError)
		delete(rest, tracing.AttrErrorMessage)
	}
	if fields := fieldsOf(rest); len(fields) > 0 {
		span.SetFields(fields...)
	}
	span.End()
}

func fieldsOf(args map[string]any) []attribute.KeyValue {
	if len(args) == 0 {
		return nil
	}
	return tracing.NewAttributeBuilder().WithMap(args).Attributes()
}
