package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/spanfan/pkg/cli"
	"mercator-hq/spanfan/pkg/config"
	"mercator-hq/spanfan/pkg/telemetry/tracing"
)

var inspectFlags struct {
	format string
	top    int
	watch  bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <trace.json[.gz]>",
	Short: "Summarize a Chrome trace",
	Long: `Summarize a Chrome trace written by spanfan: record and lane counts, spans
left open, and per-name span durations, longest total first.

Traces of a process that is still running (or that crashed) lack the closing
bracket; they are read up to the last complete record.

Examples:
  # Summary as a table
  spanfan inspect ./trace.json

  # Ten heaviest span names as CSV
  spanfan inspect ./trace.json.gz --top 10 --format csv

  # Re-render whenever the trace changes
  spanfan inspect ./trace.json --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFlags.format, "format", "text", "output format: text, json, csv")
	inspectCmd.Flags().IntVar(&inspectFlags.top, "top", 0, "only show the N heaviest span names (0 = all)")
	inspectCmd.Flags().BoolVar(&inspectFlags.watch, "watch", false, "re-render when the file changes")
}

// TraceReport is the printable summary of a Chrome trace.
type TraceReport struct {
	File        string      `json:"file"`
	ProcessName string      `json:"process_name"`
	Records     int         `json:"records"`
	Lanes       int         `json:"lanes"`
	Events      int         `json:"events"`
	Unclosed    int         `json:"unclosed"`
	DurationMS  float64     `json:"duration_ms"`
	Spans       []SpanStats `json:"spans"`
}

// SpanStats is one row of the per-name span table.
type SpanStats struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	TotalMS float64 `json:"total_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// Table renders the per-name span rows.
func (r TraceReport) Table() cli.Table {
	t := cli.Table{Headers: []string{"span", "count", "total_ms", "max_ms"}}
	for _, s := range r.Spans {
		t.Rows = append(t.Rows, []string{
			s.Name,
			strconv.Itoa(s.Count),
			strconv.FormatFloat(s.TotalMS, 'f', 3, 64),
			strconv.FormatFloat(s.MaxMS, 'f', 3, 64),
		})
	}
	return t
}

func newTraceReport(path string, summary tracing.TraceSummary, top int) TraceReport {
	report := TraceReport{
		File:        path,
		ProcessName: summary.ProcessName,
		Records:     summary.Records,
		Lanes:       summary.Lanes,
		Events:      summary.Events,
		Unclosed:    summary.Unclosed,
		DurationMS:  millis(summary.Duration),
		Spans:       make([]SpanStats, 0, len(summary.Spans)),
	}
	for i, s := range summary.Spans {
		if top > 0 && i >= top {
			break
		}
		report.Spans = append(report.Spans, SpanStats{
			Name:    s.Name,
			Count:   s.Count,
			TotalMS: millis(s.Total),
			MaxMS:   millis(s.Max),
		})
	}
	return report
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func runInspect(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(inspectFlags.format)
	if err != nil {
		return err
	}
	path := args[0]
	out := cmd.OutOrStdout()

	if err := inspectTrace(out, path, format, inspectFlags.top); err != nil {
		return err
	}
	if !inspectFlags.watch {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	return config.WatchFile(ctx, path, config.DefaultDebounceInterval, logger.Slog(), func() error {
		fmt.Fprintf(out, "\n--- %s ---\n", time.Now().Format(time.RFC3339))
		return inspectTrace(out, path, format, inspectFlags.top)
	})
}

// inspectTrace reads, summarizes and prints the trace at path.
func inspectTrace(w io.Writer, path string, format cli.OutputFormat, top int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	events, err := tracing.ReadChromeTrace(f)
	if err != nil {
		return fmt.Errorf("failed to read trace %q: %w", path, err)
	}

	report := newTraceReport(path, tracing.SummarizeChromeTrace(events), top)

	if format == cli.FormatText {
		fmt.Fprintf(w, "trace:    %s\n", report.File)
		fmt.Fprintf(w, "process:  %s\n", report.ProcessName)
		fmt.Fprintf(w, "records:  %d (%d events, %d lanes)\n", report.Records, report.Events, report.Lanes)
		fmt.Fprintf(w, "duration: %.3fms\n", report.DurationMS)
		if report.Unclosed > 0 {
			fmt.Fprintf(w, "unclosed: %d\n", report.Unclosed)
		}
		fmt.Fprintln(w)
	}
	return cli.NewFormatter(format).FormatTo(w, report)
}
