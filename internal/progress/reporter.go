package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Reporter gives feedback while a command is dispatched from the CLI.
type Reporter interface {
	Start(message string)
	Step(message string)
	Finish(ok bool, summary string)
}

// NewReporter returns a TerminalReporter writing to stderr, or a CIReporter
// if the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{out: os.Stderr}
	}
	return &TerminalReporter{out: os.Stderr}
}

// TerminalReporter shows an indeterminate spinner while a dispatch runs.
type TerminalReporter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(message string) {
	r.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(message),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	go r.spin(r.bar)
}

// spin advances the spinner until the bar is finished.
func (r *TerminalReporter) spin(bar *progressbar.ProgressBar) {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for range t.C {
		if bar.IsFinished() {
			return
		}
		_ = bar.Add(1)
	}
}

func (r *TerminalReporter) Step(message string) {
	if r.bar != nil {
		r.bar.Describe(message)
	}
}

func (r *TerminalReporter) Finish(ok bool, summary string) {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
	fmt.Fprintf(r.out, "%s %s\n", mark(ok), summary)
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	out   io.Writer
	start time.Time
}

// NewCIReporter returns a CIReporter writing to w.
func NewCIReporter(w io.Writer) *CIReporter {
	return &CIReporter{out: w}
}

func (r *CIReporter) Start(message string) {
	r.start = time.Now()
	fmt.Fprintf(r.out, "%s\n", message)
}

func (r *CIReporter) Step(message string) {
	fmt.Fprintf(r.out, "  %s\n", message)
}

func (r *CIReporter) Finish(ok bool, summary string) {
	fmt.Fprintf(r.out, "%s %s (%s)\n", mark(ok), summary, time.Since(r.start).Round(time.Millisecond))
}

func mark(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
