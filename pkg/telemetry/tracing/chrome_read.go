package tracing

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
)

// ErrEmptyTrace is returned by ReadChromeTrace for input with no records.
var ErrEmptyTrace = errors.New("empty chrome trace")

// ReadChromeTrace parses a trace written by ChromeWriter or any other
// producer of the JSON array format. Gzip input is detected by its magic
// bytes. A trace whose process died before Close (no closing bracket, last
// record possibly cut short) is read up to its last complete record.
func ReadChromeTrace(r io.Reader) ([]ChromeEvent, error) {
	br := bufio.NewReader(r)

	var src io.Reader = br
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip trace: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	data, err := io.ReadAll(src)
	if err != nil && !(errors.Is(err, io.ErrUnexpectedEOF) && len(data) > 0) {
		return nil, fmt.Errorf("read chrome trace: %w", err)
	}

	return parseChromeTrace(data)
}

func parseChromeTrace(data []byte) ([]ChromeEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyTrace
	}
	if trimmed[0] != '[' {
		return nil, errors.New("not a chrome trace: expected a JSON array")
	}

	var events []ChromeEvent
	if trimmed[len(trimmed)-1] == ']' {
		if err := sonic.ConfigStd.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("decode chrome trace: %w", err)
		}
		return events, nil
	}

	// unterminated: close the array ourselves
	body := bytes.TrimRight(trimmed, ", \t\r\n")
	candidate := append(body[:len(body):len(body)], ']')
	if err := sonic.ConfigStd.Unmarshal(candidate, &events); err == nil {
		return events, nil
	}

	// the last record was cut short; drop it
	i := bytes.LastIndex(body, []byte(",\n"))
	if i < 0 {
		return nil, ErrEmptyTrace
	}
	candidate = append(body[:i:i], ']')
	events = nil
	if err := sonic.ConfigStd.Unmarshal(candidate, &events); err != nil {
		return nil, fmt.Errorf("decode truncated chrome trace: %w", err)
	}
	return events, nil
}

// SpanStats aggregates the closed spans sharing a name.
type SpanStats struct {
	Name  string
	Count int
	Total time.Duration
	Max   time.Duration
}

// TraceSummary describes a Chrome trace.
type TraceSummary struct {
	ProcessName string
	Records     int
	Lanes       int
	Events      int
	Spans       []SpanStats
	// Unclosed counts "B" records with no matching "E".
	Unclosed int
	Duration time.Duration
}

type openRecord struct {
	name string
	ts   float64
}

type laneID struct {
	pid int
	tid uint64
}

// SummarizeChromeTrace pairs "B" and "E" records per lane and aggregates
// span durations by name. Spans are ordered by total duration, longest
// first.
func SummarizeChromeTrace(events []ChromeEvent) TraceSummary {
	summary := TraceSummary{Records: len(events)}

	stacks := make(map[laneID][]openRecord)
	lanes := make(map[laneID]struct{})
	stats := make(map[string]*SpanStats)

	first, last := 0.0, 0.0
	seen := false

	for _, ev := range events {
		if ev.Ph == PhaseMetadata {
			if ev.Name == "process_name" {
				if name, ok := ev.Args["name"].(string); ok {
					summary.ProcessName = name
				}
			}
			continue
		}

		if !seen || ev.Ts < first {
			first = ev.Ts
		}
		if !seen || ev.Ts > last {
			last = ev.Ts
		}
		seen = true

		lane := laneID{pid: ev.Pid, tid: ev.Tid}
		lanes[lane] = struct{}{}

		switch ev.Ph {
		case PhaseBegin:
			stacks[lane] = append(stacks[lane], openRecord{name: ev.Name, ts: ev.Ts})
		case PhaseEnd:
			stack := stacks[lane]
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].name != ev.Name {
					continue
				}
				d := microseconds(ev.Ts - stack[i].ts)
				st, ok := stats[ev.Name]
				if !ok {
					st = &SpanStats{Name: ev.Name}
					stats[ev.Name] = st
				}
				st.Count++
				st.Total += d
				if d > st.Max {
					st.Max = d
				}
				stacks[lane] = append(stack[:i], stack[i+1:]...)
				break
			}
		case PhaseInstant:
			summary.Events++
		}
	}

	for _, stack := range stacks {
		summary.Unclosed += len(stack)
	}
	summary.Lanes = len(lanes)
	summary.Duration = microseconds(last - first)

	summary.Spans = make([]SpanStats, 0, len(stats))
	for _, st := range stats {
		summary.Spans = append(summary.Spans, *st)
	}
	sort.Slice(summary.Spans, func(i, j int) bool {
		if summary.Spans[i].Total != summary.Spans[j].Total {
			return summary.Spans[i].Total > summary.Spans[j].Total
		}
		return summary.Spans[i].Name < summary.Spans[j].Name
	})

	return summary
}

func microseconds(us float64) time.Duration {
	return time.Duration(us * float64(time.Microsecond))
}
