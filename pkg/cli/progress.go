package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

const progressBarWidth = 40

// SimpleProgress draws a single-line progress bar. Redraws happen at
// most once per whole percent, and counts that go backwards are ignored
// so several workers can report into one bar.
type SimpleProgress struct {
	mu          sync.Mutex
	writer      io.Writer
	unit        string
	total       int64
	current     int64
	lastPercent int
	started     time.Time
	now         func() time.Time
}

// NewProgressReporter creates a new progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr. unit labels the rate, e.g.
// "records".
func NewProgressReporter(w io.Writer, unit string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	if unit == "" {
		unit = "items"
	}
	return &SimpleProgress{writer: w, unit: unit, now: time.Now}
}

func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.lastPercent = -1
	p.started = p.now()
	p.draw(true)
}

// Update moves the bar to current, clamped to the total.
func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current <= p.current {
		return
	}
	p.current = min(current, p.total)
	p.draw(false)
}

func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.draw(true)
	fmt.Fprintln(p.writer)
}

func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

func (p *SimpleProgress) draw(force bool) {
	if p.total <= 0 {
		return
	}
	percent := int(p.current * 100 / p.total)
	if !force && percent == p.lastPercent {
		return
	}
	p.lastPercent = percent
	io.WriteString(p.writer, p.line(p.now().Sub(p.started)))
}

func (p *SimpleProgress) line(elapsed time.Duration) string {
	frac := float64(p.current) / float64(p.total)
	filled := int(frac * progressBarWidth)

	var rate float64
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(p.current) / s
	}

	var sb strings.Builder
	sb.WriteString("\rProgress: [")
	sb.WriteString(strings.Repeat("█", filled))
	sb.WriteString(strings.Repeat("░", progressBarWidth-filled))
	fmt.Fprintf(&sb, "] %.1f%% (%d/%d) %.1f %s/s", frac*100, p.current, p.total, rate, p.unit)
	if rate > 0 && p.current < p.total {
		eta := time.Duration(float64(p.total-p.current) / rate * float64(time.Second))
		fmt.Fprintf(&sb, " eta %s", eta.Round(time.Second))
	}
	return sb.String()
}
