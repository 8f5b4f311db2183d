package ensemble

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hgana/hgana/sim"
	"github.com/hgana/hgana/sim/results"
	"github.com/hgana/hgana/sim/trace"
)

// job is one replica of one composition.
type job struct {
	system  int
	replica int
	sim     *sim.Simulator
}

// Ensemble runs every composition of a SystemSpec with R independent
// replicas each. Systems and interaction tables are built once per
// composition and shared read-only by its replicas; occupancy, RNG streams
// and statistics are replica-local.
type Ensemble struct {
	spec    sim.SystemSpec
	run     sim.RunSpec
	systems []*sim.System
	jobs    []job
	rng     *sim.PartitionedRNG
	sink    sim.ProgressSink
	quiet   bool
	hasRun  bool
}

// New validates the spec, builds every composition and places every
// replica. Any configuration error is returned here, before a single MC
// step has executed.
func New(spec *sim.SystemSpec, sink sim.ProgressSink) (*Ensemble, error) {
	if spec == nil {
		return nil, &sim.ConfigurationError{Field: "spec", Err: sim.ErrInvalidParameter}
	}
	run := spec.Run.WithDefaults()
	if err := run.Validate(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = sim.DiscardProgress
	}
	e := &Ensemble{
		spec: *spec,
		run:  run,
		rng:  sim.NewPartitionedRNG(sim.NewSimulationKey(run.Seed)),
		sink: sink,
	}
	e.spec.Run = run

	for si, counts := range spec.Compositions() {
		sys, err := spec.Build(counts)
		if err != nil {
			return nil, fmt.Errorf("composition %v: %w", counts, err)
		}
		e.systems = append(e.systems, sys)
		for r := 0; r < run.Replicas; r++ {
			// Streams are derived here, on one goroutine; PartitionedRNG is not thread-safe.
			placement, moves := e.rng.ReplicaStreams(si, r)
			s, err := sim.NewSimulator(sys, sim.ReplicaConfig{
				System:    si,
				Replica:   r,
				Run:       run,
				Placement: placement,
				Moves:     moves,
				Sink:      sink,
			})
			if err != nil {
				return nil, fmt.Errorf("composition %v replica %d: %w", counts, r, err)
			}
			e.jobs = append(e.jobs, job{system: si, replica: r, sim: s})
		}
	}
	return e, nil
}

// Quiet demotes the run banners from Info to Debug, for callers that run
// many small ensembles.
func (e *Ensemble) Quiet() *Ensemble {
	e.quiet = true
	return e
}

func (e *Ensemble) infof(format string, args ...any) {
	if e.quiet {
		logrus.Debugf(format, args...)
		return
	}
	logrus.Infof(format, args...)
}

// Systems returns the built compositions in sweep order.
func (e *Ensemble) Systems() []*sim.System { return e.systems }

// Run executes all replicas on a pool of Workers goroutines, waits for all
// of them at a single barrier, aggregates the statistics, and persists the
// result when an output target is configured.
// Panics if called more than once.
func (e *Ensemble) Run(ctx context.Context) (*results.Result, error) {
	if e.hasRun {
		panic("Ensemble.Run() called more than once")
	}
	e.hasRun = true
	start := time.Now()

	e.infof("Running %d composition(s) x %d replica(s) on %d worker(s), T=%g, equilibration=%d, production=%d",
		len(e.systems), e.run.Replicas, e.run.Workers, e.run.Temperature, e.run.EquilibrationSteps, e.run.ProductionSteps)

	out := make([]*sim.ReplicaResult, len(e.jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.run.Workers)
	for i := range e.jobs {
		j := e.jobs[i]
		g.Go(func() error {
			res, err := j.sim.Run(gctx)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &results.Result{
		RunID:   uuid.NewString(),
		Created: start.UTC(),
		Spec:    e.spec,
	}
	for si, sys := range e.systems {
		replicas := make([]*sim.ReplicaResult, 0, e.run.Replicas)
		for i, j := range e.jobs {
			if j.system == si {
				replicas = append(replicas, out[i])
			}
		}
		sr := results.Summarize(si, sys, replicas)
		for _, p := range sr.Pairs {
			logrus.Debugf("system %d %v: p_b(%s,%s)=%.5f+-%.5f over %d replica(s)",
				si, sys.Counts, p.Host, p.Guest, p.BoundFraction.Mean, p.BoundFraction.Std, p.BoundFraction.Count)
		}
		result.Systems = append(result.Systems, sr)
	}
	result.Duration = time.Since(start)

	if e.run.Output != "" {
		if err := results.Save(e.run.Output, result); err != nil {
			return nil, fmt.Errorf("persisting result to %s: %w", e.run.Output, err)
		}
		e.infof("Result %s written to %s", result.RunID, e.run.Output)
		if e.run.Trace {
			if err := e.saveTraces(out); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// saveTraces writes the recorded steps of every replica next to the result.
func (e *Ensemble) saveTraces(out []*sim.ReplicaResult) error {
	traces := make([]trace.ReplicaTrace, 0, len(out))
	for _, r := range out {
		if r.Trace == nil {
			continue
		}
		traces = append(traces, trace.ReplicaTrace{
			System:  r.System,
			Replica: r.Replica,
			Every:   e.run.TraceEvery,
			Steps:   r.Trace.Steps,
		})
	}
	path := trace.PathFor(e.run.Output)
	if err := trace.Save(path, traces); err != nil {
		return fmt.Errorf("persisting trace to %s: %w", path, err)
	}
	e.infof("Trace of %d replica(s) written to %s", len(traces), path)
	return nil
}

// Run builds and executes an Ensemble in one call.
func Run(ctx context.Context, spec *sim.SystemSpec, sink sim.ProgressSink) (*results.Result, error) {
	e, err := New(spec, sink)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx)
}
