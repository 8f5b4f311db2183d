// sim/simulator.go
package sim

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/hgana/hgana/sim/trace"
)

// ctxCheckMask sets how often (in steps) a running phase polls its context.
const ctxCheckMask = 4095

// ReplicaConfig carries everything one replica needs besides the shared System.
type ReplicaConfig struct {
	System    int // composition index
	Replica   int
	Run       RunSpec    // defaults already applied
	Placement *rand.Rand // initial placement stream
	Moves     *rand.Rand // proposal and Metropolis stream
	Sink      ProgressSink
}

// ReplicaResult is the terminal state of one replica.
type ReplicaResult struct {
	System         int                 `json:"system"`
	Replica        int                 `json:"replica"`
	Equilibration  PhaseCounters       `json:"equilibration"`
	Production     PhaseCounters       `json:"production"`
	Pairs          []PairStats         `json:"pairs"`
	DroppedSamples int                 `json:"dropped_samples"` // partial trailing window
	FinalEnergy    float64             `json:"final_energy"`
	Final          []Placement         `json:"final"`
	TraceSummary   *trace.TraceSummary `json:"trace_summary,omitempty"` // production records only

	Trace *trace.SimulationTrace `json:"-"`
}

// BoundFraction returns the production bound fraction of pair i.
func (r *ReplicaResult) BoundFraction(i int) float64 {
	return r.Pairs[i].BoundFraction()
}

// Simulator runs one replica: equilibration followed by production on a
// private Occupancy. Grid and InteractionTable come from the shared System
// and are only read.
type Simulator struct {
	sys     *System
	cfg     ReplicaConfig
	occ     *Occupancy
	engine  *Engine
	tracker *BindingTracker
	trace   *trace.SimulationTrace
	sink    ProgressSink
	labels  [][2]string
	hasRun  bool
}

// NewSimulator places the initial configuration and wires the engine and
// binding tracker. All configuration errors surface here, before any step.
func NewSimulator(sys *System, cfg ReplicaConfig) (*Simulator, error) {
	if err := cfg.Run.Validate(); err != nil {
		return nil, err
	}
	if cfg.Placement == nil || cfg.Moves == nil {
		return nil, configErrorf("seed", ErrInvalidParameter, "replica %d has no RNG streams", cfg.Replica)
	}
	occ := NewOccupancy(sys.Grid, sys.Registry)
	if err := occ.PlaceInitial(cfg.Placement); err != nil {
		return nil, err
	}
	engine, err := NewEngine(occ, sys.Table, cfg.Moves, cfg.Run.EngineConfig())
	if err != nil {
		return nil, err
	}
	tracker, err := NewBindingTracker(occ, sys.Pairs, cfg.Run.Print)
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		sys:     sys,
		cfg:     cfg,
		occ:     occ,
		engine:  engine,
		tracker: tracker,
		sink:    cfg.Sink,
	}
	if s.sink == nil {
		s.sink = DiscardProgress
	}
	if cfg.Run.Trace {
		s.trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelSteps, Every: cfg.Run.TraceEvery})
	}
	for _, p := range sys.Pairs {
		s.labels = append(s.labels, [2]string{sys.Registry.Name(p.Host), sys.Registry.Name(p.Guest)})
	}
	return s, nil
}

// Occupancy exposes the replica state, mainly for tests.
func (s *Simulator) Occupancy() *Occupancy { return s.occ }

// Run executes both phases and returns the terminal state.
// Panics if called more than once.
func (s *Simulator) Run(ctx context.Context) (*ReplicaResult, error) {
	if s.hasRun {
		panic("Simulator.Run() called more than once")
	}
	s.hasRun = true
	run := s.cfg.Run
	res := &ReplicaResult{System: s.cfg.System, Replica: s.cfg.Replica}

	s.sink.PhaseStarted(s.cfg.System, s.cfg.Replica, PhaseEquilibration, run.EquilibrationSteps)
	if err := s.runPhase(ctx, PhaseEquilibration, run.EquilibrationSteps, &res.Equilibration); err != nil {
		return nil, err
	}

	// Equilibration statistics are discarded.
	s.tracker.Reset()

	s.sink.PhaseStarted(s.cfg.System, s.cfg.Replica, PhaseProduction, run.ProductionSteps)
	if err := s.runPhase(ctx, PhaseProduction, run.ProductionSteps, &res.Production); err != nil {
		return nil, err
	}
	res.DroppedSamples = s.tracker.Finish()
	if res.DroppedSamples > 0 {
		logrus.Debugf("system %d replica %d: dropped %d samples of a partial window (window=%d)",
			s.cfg.System, s.cfg.Replica, res.DroppedSamples, run.Print.WindowSize)
	}

	res.Pairs = append([]PairStats(nil), s.tracker.Stats()...)
	res.FinalEnergy = s.sys.Table.TotalEnergy(s.sys.Grid, s.occ)
	res.Final = s.occ.Snapshot()
	if s.trace != nil {
		res.Trace = s.trace
		res.TraceSummary = trace.SummarizePhase(s.trace, string(PhaseProduction))
	}
	return res, nil
}

func (s *Simulator) runPhase(ctx context.Context, phase Phase, steps int64, counters *PhaseCounters) error {
	production := phase == PhaseProduction
	every := s.cfg.Run.PrintEvery
	for step := int64(0); step < steps; step++ {
		if step&ctxCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("system %d replica %d %s step %d: %w", s.cfg.System, s.cfg.Replica, phase, step, err)
			}
		}
		out := s.engine.Step()
		counters.Record(out)
		if s.trace.Wants(step) {
			s.trace.RecordStep(trace.StepRecord{
				Phase:    string(phase),
				Step:     step,
				Kind:     out.Kind.String(),
				Instance: out.Instance,
				From:     out.From,
				To:       out.To,
				DeltaE:   out.DeltaE,
				Accepted: out.Accepted,
			})
		}
		if !production {
			continue
		}
		s.tracker.Observe(step)
		if every > 0 && ((step+1)%every == 0 || step == 0 || step == steps-1) {
			s.sink.Report(s.progress(phase, step+1, steps, *counters))
		}
	}
	return nil
}

func (s *Simulator) progress(phase Phase, step, total int64, counters PhaseCounters) Progress {
	p := Progress{
		System:   s.cfg.System,
		Replica:  s.cfg.Replica,
		Phase:    phase,
		Step:     step,
		Total:    total,
		Counters: counters,
	}
	for i, st := range s.tracker.Stats() {
		pp := PairProgress{Host: s.labels[i][0], Guest: s.labels[i][1]}
		if w, ok := st.Latest(); ok {
			pp.Mean, pp.Std, pp.Window = w.Mean, w.Std, true
		}
		p.Pairs = append(p.Pairs, pp)
	}
	return p
}
