// Package progress provides sim.ProgressSink implementations: a plain-text
// reporter for terminals and a websocket hub that broadcasts JSON events.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/hgana/hgana/sim"
)

// TextReporter writes phase announcements and progress lines to a writer.
// Safe for concurrent use by replica goroutines; whole lines are never
// interleaved.
type TextReporter struct {
	mu     sync.Mutex
	w      io.Writer
	tagged bool
}

// NewTextReporter returns a reporter writing to w. When tagged is true every
// line is prefixed with "[s<system> r<replica>] ", which keeps concurrent
// replicas apart.
func NewTextReporter(w io.Writer, tagged bool) *TextReporter {
	return &TextReporter{w: w, tagged: tagged}
}

// PhaseStarted prints the phase name, as "equilibration" or "production".
func (t *TextReporter) PhaseStarted(system, replica int, phase sim.Phase, steps int64) {
	t.println(system, replica, string(phase))
}

// Report prints one progress line.
func (t *TextReporter) Report(p sim.Progress) {
	t.println(p.System, p.Replica, p.String())
}

func (t *TextReporter) println(system, replica int, line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tagged {
		fmt.Fprintf(t.w, "[s%d r%d] %s\n", system, replica, line)
		return
	}
	fmt.Fprintln(t.w, line)
}

// MultiSink fans every call out to each sink in order.
type MultiSink []sim.ProgressSink

func (m MultiSink) PhaseStarted(system, replica int, phase sim.Phase, steps int64) {
	for _, s := range m {
		s.PhaseStarted(system, replica, phase, steps)
	}
}

func (m MultiSink) Report(p sim.Progress) {
	for _, s := range m {
		s.Report(p)
	}
}
