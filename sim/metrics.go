// Tracks per-phase move counters and the progress lines reported while a
// replica runs.

package sim

import (
	"fmt"
	"math"
	"strings"
)

// Phase names a stage of a replica run.
type Phase string

const (
	PhaseEquilibration Phase = "equilibration"
	PhaseProduction    Phase = "production"
)

// PhaseCounters counts accepted and rejected steps of one phase.
// Dead-end steps (no legal proposal) count as rejected.
type PhaseCounters struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
	DeadEnds int64 `json:"dead_ends"`
}

// Record adds one step outcome.
func (c *PhaseCounters) Record(out StepOutcome) {
	if out.Accepted {
		c.Accepted++
		return
	}
	c.Rejected++
	if out.Kind == MoveNone {
		c.DeadEnds++
	}
}

// Steps returns accepted + rejected.
func (c PhaseCounters) Steps() int64 { return c.Accepted + c.Rejected }

// AcceptanceFraction returns accepted/(accepted+rejected), 0 before any step.
func (c PhaseCounters) AcceptanceFraction() float64 {
	if c.Steps() == 0 {
		return 0
	}
	return float64(c.Accepted) / float64(c.Steps())
}

// AcceptRejectRatio returns accepted/rejected as printed in progress lines.
// +Inf when nothing was rejected yet, 0 before any step.
func (c PhaseCounters) AcceptRejectRatio() float64 {
	if c.Rejected == 0 {
		if c.Accepted == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return float64(c.Accepted) / float64(c.Rejected)
}

// PairProgress is the latest windowed estimate of one pair.
type PairProgress struct {
	Host   string  `json:"host"`
	Guest  string  `json:"guest"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Window bool    `json:"window"` // false until the first window completes
}

// Progress is one periodic report of a running replica.
type Progress struct {
	System   int            `json:"system"`
	Replica  int            `json:"replica"`
	Phase    Phase          `json:"phase"`
	Step     int64          `json:"step"` // 1-based within the phase
	Total    int64          `json:"total"`
	Counters PhaseCounters  `json:"counters"`
	Pairs    []PairProgress `json:"pairs"`
}

// String renders the progress line
// "step/total - acc/rej=<ratio>, p_b(<host>,<guest>)=<mean>+-<std>".
func (p Progress) String() string {
	width := len(fmt.Sprint(p.Total))
	var sb strings.Builder
	fmt.Fprintf(&sb, "%*d/%d - acc/rej=%.5f", width, p.Step, p.Total, p.Counters.AcceptRejectRatio())
	for _, pp := range p.Pairs {
		fmt.Fprintf(&sb, ", p_b(%s,%s)=%.5f+-%.5f", pp.Host, pp.Guest, pp.Mean, pp.Std)
	}
	return sb.String()
}

// ProgressSink receives phase announcements and periodic reports.
// Implementations must be safe for concurrent use by replica goroutines.
type ProgressSink interface {
	PhaseStarted(system, replica int, phase Phase, steps int64)
	Report(p Progress)
}

// discardSink drops everything.
type discardSink struct{}

func (discardSink) PhaseStarted(int, int, Phase, int64) {}
func (discardSink) Report(Progress)                     {}

// DiscardProgress is a ProgressSink that reports nothing.
var DiscardProgress ProgressSink = discardSink{}
