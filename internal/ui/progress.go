package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StageEvent records one finished pipeline stage.
type StageEvent struct {
	Name     string
	Rows     int
	Duration time.Duration
}

// StageProgress prints a line per finished stage and keeps the events for
// the closing summary.
type StageProgress struct {
	out    io.Writer
	total  int
	quiet  bool
	start  time.Time
	mu     sync.Mutex
	events []StageEvent
}

// NewStageProgress creates a tracker for total stages
func NewStageProgress(out io.Writer, total int, quiet bool) *StageProgress {
	return &StageProgress{out: out, total: total, quiet: quiet, start: time.Now()}
}

// Stage records a finished stage. Its signature matches pipeline.Deps.OnStage.
func (p *StageProgress) Stage(name string, rows int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, StageEvent{Name: name, Rows: rows, Duration: d})
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s [%d/%d] %-28s %8d rows  %s\n",
		ColorProgress(">"),
		len(p.events),
		p.total,
		name,
		rows,
		ColorDim(formatDuration(d)),
	)
}

// Events returns the recorded stages in order
func (p *StageProgress) Events() []StageEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StageEvent(nil), p.events...)
}

// Finish prints the elapsed time of the whole run
func (p *StageProgress) Finish(success bool) {
	if p.quiet {
		return
	}
	elapsed := formatDuration(time.Since(p.start))
	if success {
		fmt.Fprintf(p.out, "%s Completed in %s\n", ColorSuccess("OK"), elapsed)
		return
	}
	fmt.Fprintf(p.out, "%s Failed after %s\n", ColorError("FAILED"), elapsed)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
