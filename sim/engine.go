package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// EngineConfig holds the thermodynamic and move-set parameters of an Engine.
type EngineConfig struct {
	Temperature float64     // same scale as Boltzmann; 0 is the ground-state limit
	Boltzmann   float64     // k_B; 0 selects BoltzmannKJPerMolK
	Moves       MoveWeights // zero value selects DefaultMoveWeights
}

// Validate checks temperature, Boltzmann factor and move weights.
func (c EngineConfig) Validate() error {
	if math.IsNaN(c.Temperature) || math.IsInf(c.Temperature, 0) || c.Temperature < 0 {
		return configErrorf("temperature", ErrInvalidParameter, "must be a finite non-negative number, got %v", c.Temperature)
	}
	if math.IsNaN(c.Boltzmann) || math.IsInf(c.Boltzmann, 0) || c.Boltzmann < 0 {
		return configErrorf("boltzmann", ErrInvalidParameter, "must be a finite non-negative number, got %v", c.Boltzmann)
	}
	if c.Moves.IsZero() {
		return nil
	}
	return c.Moves.Validate()
}

// KT returns k_B*T with defaults applied.
func (c EngineConfig) KT() float64 {
	kb := c.Boltzmann
	if kb == 0 {
		kb = BoltzmannKJPerMolK
	}
	return kb * c.Temperature
}

// StepOutcome describes one elementary MC step.
type StepOutcome struct {
	Kind     MoveKind
	Instance int // -1 for MoveNone
	From     int // Reservoir for insertions
	To       int // Reservoir for removals
	DeltaE   float64
	Accepted bool
}

// Engine proposes and accepts or rejects moves against one Occupancy.
// It owns neither the grid nor the table and never mutates them.
//
// Thread-safety: NOT thread-safe. One Engine per replica.
type Engine struct {
	grid    *Grid
	table   *InteractionTable
	occ     *Occupancy
	rng     *rand.Rand
	kT      float64
	movable []int // instance ids eligible for selection
	kinds   []MoveKind
	cum     []float64
	scratch []int
}

// NewEngine wires an engine to a populated occupancy. rng must be owned
// exclusively by this engine.
func NewEngine(occ *Occupancy, table *InteractionTable, rng *rand.Rand, cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table.NumTypes() != occ.Registry().Len() {
		return nil, configErrorf("interactions", ErrUnknownType,
			"table covers %d types, registry has %d", table.NumTypes(), occ.Registry().Len())
	}
	if rng == nil {
		return nil, configErrorf("seed", ErrInvalidParameter, "engine requires an RNG stream")
	}
	moves := cfg.Moves
	if moves.IsZero() {
		moves = DefaultMoveWeights()
	}
	e := &Engine{
		grid:  occ.Grid(),
		table: table,
		occ:   occ,
		rng:   rng,
		kT:    cfg.KT(),
	}
	e.kinds, e.cum = moves.families()
	for _, t := range occ.Registry().MovableTypes() {
		e.movable = append(e.movable, occ.InstancesOfType(t)...)
	}
	return e, nil
}

// KT returns the engine's k_B*T.
func (e *Engine) KT() float64 { return e.kT }

// Occupancy returns the state the engine mutates.
func (e *Engine) Occupancy() *Occupancy { return e.occ }

// Step performs Propose → Evaluate → Accept/Reject. A step without a
// legal candidate is reported as a rejected MoveNone and changes nothing.
func (e *Engine) Step() StepOutcome {
	out, ok := e.propose()
	if !ok {
		return out
	}
	out.DeltaE = e.deltaE(out)
	u := e.rng.Float64()
	out.Accepted = Metropolis(out.DeltaE, e.kT, u)
	if out.Accepted {
		e.apply(out)
	}
	return out
}

func (e *Engine) propose() (StepOutcome, bool) {
	none := StepOutcome{Kind: MoveNone, Instance: -1, From: Reservoir, To: Reservoir}
	if len(e.movable) == 0 {
		return none, false
	}
	kind := e.kinds[0]
	if len(e.kinds) > 1 {
		u := e.rng.Float64()
		for i, c := range e.cum {
			if u < c {
				kind = e.kinds[i]
				break
			}
			kind = e.kinds[i]
		}
	}
	inst := e.movable[e.rng.Intn(len(e.movable))]
	from := e.occ.CellOf(inst)
	out := StepOutcome{Kind: kind, Instance: inst, From: from, To: Reservoir}

	switch kind {
	case MoveHop:
		if from == Reservoir {
			return none, false
		}
		e.scratch = e.scratch[:0]
		for _, nb := range e.grid.Neighbors(from) {
			if _, taken := e.occ.InstanceAt(nb); !taken {
				e.scratch = append(e.scratch, nb)
			}
		}
		if len(e.scratch) == 0 {
			return none, false
		}
		out.To = e.scratch[e.rng.Intn(len(e.scratch))]
	case MoveJump:
		if from == Reservoir || e.occ.NumEmpty() == 0 {
			return none, false
		}
		out.To = e.occ.EmptyCell(e.rng.Intn(e.occ.NumEmpty()))
	case MoveInsert:
		if from != Reservoir {
			out.Kind = MoveRemove
			return out, true
		}
		if e.occ.NumEmpty() == 0 {
			return none, false
		}
		out.To = e.occ.EmptyCell(e.rng.Intn(e.occ.NumEmpty()))
	default:
		panic(fmt.Sprintf("Engine.propose: unexpected move kind %v", kind))
	}
	return out, true
}

// deltaE only looks at contacts of the moved instance; everything else is
// unchanged by a single-instance move.
func (e *Engine) deltaE(m StepOutcome) float64 {
	typ := e.occ.InstanceType(m.Instance)
	var before, after float64
	if m.From != Reservoir {
		before = e.table.energyAs(e.grid, e.occ, typ, m.From, m.Instance)
	}
	if m.To != Reservoir {
		after = e.table.energyAs(e.grid, e.occ, typ, m.To, m.Instance)
	}
	return after - before
}

func (e *Engine) apply(m StepOutcome) {
	var err error
	switch m.Kind {
	case MoveHop, MoveJump:
		err = e.occ.Move(m.Instance, m.To)
	case MoveInsert:
		err = e.occ.Place(m.Instance, m.To)
	case MoveRemove:
		err = e.occ.Remove(m.Instance)
	}
	if err != nil {
		// Proposals only name empty in-bounds cells, so this is a broken invariant.
		panic(fmt.Sprintf("Engine.apply: %v move of instance %d: %v", m.Kind, m.Instance, err))
	}
}
