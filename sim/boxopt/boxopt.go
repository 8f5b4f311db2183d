// Package boxopt searches for the cubic box size at which a simulated
// binding probability reproduces a reference ratio of bound to unbound
// instances, N_b/N_u = p_b/(1-p_b).
package boxopt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/optimize"

	"github.com/hgana/hgana/sim"
	"github.com/hgana/hgana/sim/ensemble"
)

// Options bounds the search. Zero values select the defaults noted.
type Options struct {
	Counts         []int           // composition to simulate; default: first composition of the spec
	Pair           sim.BindingSpec // default: first binding pair of the spec
	Guess          int             // initial edge in cells; default: x edge of the spec grid
	MinEdge        int             // default: smallest edge that fits every instance
	MaxEvaluations int             // distinct simulations; default 30
}

// Evaluation is one simulated box.
type Evaluation struct {
	Edge       int     `json:"edge"` // cells per side
	PB         float64 `json:"p_b"`
	Ratio      float64 `json:"ratio"` // p_b/(1-p_b); 0 when saturated
	Difference float64 `json:"difference"`
	// Saturated marks a box where every sample was bound, so the ratio
	// diverges and the box is ranked last.
	Saturated bool `json:"saturated,omitempty"`
}

// Result is the best box found.
type Result struct {
	Target      float64      `json:"target"`
	Best        Evaluation   `json:"best"`
	Length      float64      `json:"length"` // edge times cell length
	Evaluations []Evaluation `json:"evaluations"`
	Status      string       `json:"status"`
}

// Optimizer evaluates candidate boxes with a fixed seed so the objective is
// a deterministic function of the edge length.
type Optimizer struct {
	spec   sim.SystemSpec
	opts   Options
	target float64
	seed   int64
	cache  map[int]Evaluation
	order  []int
	err    error
}

// New validates the inputs. target is the reference N_b/N_u.
func New(spec *sim.SystemSpec, target float64, opts Options) (*Optimizer, error) {
	if spec == nil {
		return nil, &sim.ConfigurationError{Field: "spec", Err: sim.ErrInvalidParameter}
	}
	if !(target > 0) || math.IsInf(target, 0) {
		return nil, &sim.ConfigurationError{Field: "target", Err: fmt.Errorf("%w: must be a positive finite ratio, got %v", sim.ErrInvalidParameter, target)}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if opts.Counts == nil {
		opts.Counts = spec.Compositions()[0]
	}
	if len(opts.Counts) != len(spec.Molecules) {
		return nil, &sim.ConfigurationError{Field: "counts", Err: fmt.Errorf("%w: %d counts for %d molecule types", sim.ErrInvalidParameter, len(opts.Counts), len(spec.Molecules))}
	}
	if opts.Pair == (sim.BindingSpec{}) {
		pairs := spec.BindingSpecs()
		if len(pairs) == 0 {
			return nil, &sim.ConfigurationError{Field: "binding", Err: fmt.Errorf("%w: no binding pair to optimize", sim.ErrInvalidParameter)}
		}
		opts.Pair = pairs[0]
	}
	total := 0
	for _, c := range opts.Counts {
		total += c
	}
	if opts.MinEdge == 0 {
		opts.MinEdge = int(math.Ceil(math.Cbrt(float64(total))))
		if opts.MinEdge < 1 {
			opts.MinEdge = 1
		}
	}
	if opts.Guess == 0 {
		opts.Guess = int(math.Round(spec.Grid.Size[0] / cellLength(spec)))
	}
	if opts.Guess < opts.MinEdge {
		opts.Guess = opts.MinEdge
	}
	if opts.MaxEvaluations == 0 {
		opts.MaxEvaluations = 30
	}

	o := &Optimizer{
		spec:   *spec,
		opts:   opts,
		target: target,
		cache:  make(map[int]Evaluation),
	}
	// Restrict to the single composition and pair being optimized.
	o.spec.Binding = []sim.BindingSpec{opts.Pair}
	o.spec.Molecules = append([]sim.MoleculeSpec(nil), spec.Molecules...)
	for i := range o.spec.Molecules {
		o.spec.Molecules[i].Count = opts.Counts[i]
		o.spec.Molecules[i].Counts = nil
	}
	o.spec.Run.Output = ""
	o.spec.Run.Trace = false
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(spec.Run.Seed))
	o.seed = rng.SeedFor(sim.SubsystemOptimizer)
	if err := o.spec.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func cellLength(spec *sim.SystemSpec) float64 {
	if spec.Grid.CellLength > 0 {
		return spec.Grid.CellLength
	}
	return sim.DefaultCellLength
}

// Evaluate simulates a cube of edge cells. Results are memoized per edge.
func (o *Optimizer) Evaluate(ctx context.Context, edge int) (Evaluation, error) {
	if edge < o.opts.MinEdge {
		edge = o.opts.MinEdge
	}
	if ev, ok := o.cache[edge]; ok {
		return ev, nil
	}
	spec := o.spec
	l := float64(edge) * cellLength(&o.spec)
	spec.Grid.Size = [3]float64{l, l, l}
	spec.Run.Seed = o.seed

	e, err := ensemble.New(&spec, nil)
	if err != nil {
		return Evaluation{}, fmt.Errorf("edge %d: %w", edge, err)
	}
	res, err := e.Quiet().Run(ctx)
	if err != nil {
		return Evaluation{}, fmt.Errorf("edge %d: %w", edge, err)
	}
	pair, _, ok := res.Systems[0].Pair(o.opts.Pair.Host, o.opts.Pair.Guest)
	if !ok {
		return Evaluation{}, fmt.Errorf("edge %d: pair (%s,%s) not tracked", edge, o.opts.Pair.Host, o.opts.Pair.Guest)
	}
	ev := Evaluation{Edge: edge, PB: pair.BoundFraction.Mean}
	if ev.PB >= 1 {
		ev.Saturated = true
		ev.Difference = math.MaxFloat64
	} else {
		ev.Ratio = ev.PB / (1 - ev.PB)
		ev.Difference = math.Abs(o.target - ev.Ratio)
	}
	logrus.Debugf("box edge %d: p_b=%.5f ratio=%.5f diff=%.5g saturated=%t", edge, ev.PB, ev.Ratio, ev.Difference, ev.Saturated)
	o.cache[edge] = ev
	o.order = append(o.order, edge)
	return ev, nil
}

// Run minimizes |target - p_b/(1-p_b)| over the edge length with Nelder-Mead.
// The edge is rounded to whole cells, so the simplex stops once it collapses
// onto a single integer or the evaluation budget is spent.
func (o *Optimizer) Run(ctx context.Context) (*Result, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if o.err != nil {
				return math.MaxFloat64
			}
			ev, err := o.Evaluate(ctx, int(math.Round(x[0])))
			if err != nil {
				o.err = err
				return math.MaxFloat64
			}
			return ev.Difference
		},
		Status: func() (optimize.Status, error) {
			if o.err != nil {
				return optimize.Failure, o.err
			}
			if len(o.cache) >= o.opts.MaxEvaluations {
				return optimize.FunctionEvaluationLimit, nil
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		Converger:       &optimize.FunctionConverge{Absolute: 1e-9, Iterations: 8},
		FuncEvaluations: 4 * o.opts.MaxEvaluations,
	}
	method := &optimize.NelderMead{SimplexSize: math.Max(1, float64(o.opts.Guess)/4)}

	logrus.Infof("Optimizing box edge for N_b/N_u=%g starting at %d cells", o.target, o.opts.Guess)
	res, err := optimize.Minimize(problem, []float64{float64(o.opts.Guess)}, settings, method)
	if o.err != nil {
		return nil, o.err
	}
	if len(o.cache) == 0 {
		if err == nil {
			err = errors.New("no box evaluated")
		}
		return nil, err
	}
	status := "unknown"
	if res != nil {
		status = res.Status.String()
	}
	if err != nil {
		logrus.Warnf("box optimization stopped early: %v", err)
	}

	out := &Result{Target: o.target, Status: status}
	for _, edge := range o.order {
		out.Evaluations = append(out.Evaluations, o.cache[edge])
	}
	best := append([]Evaluation(nil), out.Evaluations...)
	sort.SliceStable(best, func(i, j int) bool { return best[i].Difference < best[j].Difference })
	out.Best = best[0]
	out.Length = float64(out.Best.Edge) * cellLength(&o.spec)
	logrus.Infof("Best box edge %d cells (p_b=%.5f, ratio=%.5f) after %d simulation(s)",
		out.Best.Edge, out.Best.PB, out.Best.Ratio, len(out.Evaluations))
	return out, nil
}
