package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// GridSpec configures the simulation box.
type GridSpec struct {
	Size          [3]float64   `yaml:"size" json:"size"`
	CellLength    float64      `yaml:"cell_length,omitempty" json:"cell_length,omitempty"`       // default 1
	ContactRadius int          `yaml:"contact_radius,omitempty" json:"contact_radius,omitempty"` // default 1
	Neighborhood  Neighborhood `yaml:"neighborhood,omitempty" json:"neighborhood,omitempty"`     // default moore
}

// MoleculeSpec registers one molecule type. Counts, when set, lists several
// instance counts to sweep over; Count is then ignored.
type MoleculeSpec struct {
	Name    string  `yaml:"name" json:"name"`
	Count   int     `yaml:"count,omitempty" json:"count,omitempty"`
	Counts  []int   `yaml:"counts,omitempty" json:"counts,omitempty"`
	Movable *bool   `yaml:"movable,omitempty" json:"movable,omitempty"` // default true
	Anchors []Coord `yaml:"anchors,omitempty" json:"anchors,omitempty"`
}

// IsMovable applies the default of true.
func (m MoleculeSpec) IsMovable() bool {
	return m.Movable == nil || *m.Movable
}

// CountOptions returns the counts this type is swept over.
func (m MoleculeSpec) CountOptions() []int {
	if len(m.Counts) > 0 {
		return m.Counts
	}
	return []int{m.Count}
}

// InteractionSpec sets one symmetric pair energy by type name.
type InteractionSpec struct {
	A      string  `yaml:"a" json:"a"`
	B      string  `yaml:"b" json:"b"`
	Energy float64 `yaml:"energy" json:"energy"`
}

// BindingSpec declares a tracked (host, guest) pair by type name.
type BindingSpec struct {
	Host  string `yaml:"host" json:"host"`
	Guest string `yaml:"guest" json:"guest"`
}

// RunSpec holds the run parameters. Zero values select the defaults noted
// on each field.
type RunSpec struct {
	Temperature        float64     `yaml:"temperature" json:"temperature"`
	Boltzmann          float64     `yaml:"boltzmann,omitempty" json:"boltzmann,omitempty"` // default BoltzmannKJPerMolK
	EquilibrationSteps int64       `yaml:"equilibration_steps" json:"equilibration_steps"`
	ProductionSteps    int64       `yaml:"production_steps" json:"production_steps"`
	Print              PrintSpec   `yaml:"print,omitempty" json:"print"`             // default DefaultPrintSpec
	PrintEvery         int64       `yaml:"print_every,omitempty" json:"print_every"` // 0 = phase announcements only
	Seed               int64       `yaml:"seed" json:"seed"`
	Parallel           bool        `yaml:"parallel,omitempty" json:"parallel"`
	Replicas           int         `yaml:"replicas,omitempty" json:"replicas"` // parallel default runtime.NumCPU()
	Workers            int         `yaml:"workers,omitempty" json:"workers"`   // default runtime.NumCPU()
	Moves              MoveWeights `yaml:"moves,omitempty" json:"moves"`       // default hop only
	Output             string      `yaml:"output,omitempty" json:"output,omitempty"`
	Trace              bool        `yaml:"trace,omitempty" json:"trace,omitempty"`
	TraceEvery         int64       `yaml:"trace_every,omitempty" json:"trace_every,omitempty"` // record every n-th step; default 1 when tracing
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (r RunSpec) WithDefaults() RunSpec {
	if r.Boltzmann == 0 {
		r.Boltzmann = BoltzmannKJPerMolK
	}
	if r.Print.SampleFrequency == 0 {
		r.Print.SampleFrequency = DefaultPrintSpec().SampleFrequency
	}
	if r.Print.WindowSize == 0 {
		r.Print.WindowSize = DefaultPrintSpec().WindowSize
	}
	if r.Moves.IsZero() {
		r.Moves = DefaultMoveWeights()
	}
	if r.Replicas == 0 {
		r.Replicas = 1
		if r.Parallel {
			r.Replicas = runtime.NumCPU()
		}
	}
	if r.Workers == 0 {
		r.Workers = runtime.NumCPU()
	}
	if !r.Parallel {
		r.Workers = 1
	}
	if r.Trace && r.TraceEvery == 0 {
		r.TraceEvery = 1
	}
	return r
}

// EngineConfig extracts the engine parameters.
func (r RunSpec) EngineConfig() EngineConfig {
	return EngineConfig{Temperature: r.Temperature, Boltzmann: r.Boltzmann, Moves: r.Moves}
}

// Validate checks run parameters. Call on the result of WithDefaults.
func (r RunSpec) Validate() error {
	if err := r.EngineConfig().Validate(); err != nil {
		return err
	}
	if r.EquilibrationSteps < 0 {
		return configErrorf("run.equilibration_steps", ErrInvalidParameter, "must be non-negative, got %d", r.EquilibrationSteps)
	}
	if r.ProductionSteps < 0 {
		return configErrorf("run.production_steps", ErrInvalidParameter, "must be non-negative, got %d", r.ProductionSteps)
	}
	if r.PrintEvery < 0 {
		return configErrorf("run.print_every", ErrInvalidParameter, "must be non-negative, got %d", r.PrintEvery)
	}
	if r.TraceEvery < 0 {
		return configErrorf("run.trace_every", ErrInvalidParameter, "must be non-negative, got %d", r.TraceEvery)
	}
	if err := r.Print.Validate(); err != nil {
		return err
	}
	if r.Replicas < 1 {
		return configErrorf("run.replicas", ErrInvalidParameter, "must be >= 1, got %d", r.Replicas)
	}
	if r.Workers < 1 {
		return configErrorf("run.workers", ErrInvalidParameter, "must be >= 1, got %d", r.Workers)
	}
	return nil
}

// SystemSpec is the full configuration of a host-guest system.
// Loaded from YAML via LoadSystemSpec(path).
type SystemSpec struct {
	Grid         GridSpec          `yaml:"grid" json:"grid"`
	Molecules    []MoleculeSpec    `yaml:"molecules" json:"molecules"`
	Interactions []InteractionSpec `yaml:"interactions,omitempty" json:"interactions,omitempty"`
	Binding      []BindingSpec     `yaml:"binding,omitempty" json:"binding,omitempty"`
	Run          RunSpec           `yaml:"run" json:"run"`
}

// LoadSystemSpec reads and parses a YAML system file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadSystemSpec(path string) (*SystemSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading system spec: %w", err)
	}
	var spec SystemSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing system spec: %w", err)
	}
	return &spec, nil
}

// BindingSpecs returns the declared pairs, defaulting to the first two
// molecule types when none are declared.
func (s *SystemSpec) BindingSpecs() []BindingSpec {
	if len(s.Binding) > 0 || len(s.Molecules) < 2 {
		return s.Binding
	}
	return []BindingSpec{{Host: s.Molecules[0].Name, Guest: s.Molecules[1].Name}}
}

// Validate checks names and references without building a grid. Capacity
// is checked per composition by Build.
func (s *SystemSpec) Validate() error {
	if len(s.Molecules) == 0 {
		return configErrorf("molecules", ErrInvalidParameter, "at least one molecule type required")
	}
	names := make(map[string]bool, len(s.Molecules))
	for i, m := range s.Molecules {
		prefix := fmt.Sprintf("molecules[%d]", i)
		if m.Name == "" {
			return configErrorf(prefix+".name", ErrInvalidParameter, "must not be empty")
		}
		if names[m.Name] {
			return configErrorf(prefix+".name", ErrInvalidParameter, "duplicate molecule name %q", m.Name)
		}
		names[m.Name] = true
		for j, c := range m.CountOptions() {
			if c < 0 {
				return configErrorf(fmt.Sprintf("%s.counts[%d]", prefix, j), ErrInvalidParameter, "must be non-negative, got %d", c)
			}
		}
	}
	for i, in := range s.Interactions {
		prefix := fmt.Sprintf("interactions[%d]", i)
		if !names[in.A] {
			return configErrorf(prefix+".a", ErrUnknownType, "%q", in.A)
		}
		if !names[in.B] {
			return configErrorf(prefix+".b", ErrUnknownType, "%q", in.B)
		}
		if math.IsNaN(in.Energy) || math.IsInf(in.Energy, 0) {
			return configErrorf(prefix+".energy", ErrInvalidParameter, "must be a finite number, got %v", in.Energy)
		}
	}
	for i, b := range s.BindingSpecs() {
		prefix := fmt.Sprintf("binding[%d]", i)
		if !names[b.Host] {
			return configErrorf(prefix+".host", ErrUnknownType, "%q", b.Host)
		}
		if !names[b.Guest] {
			return configErrorf(prefix+".guest", ErrUnknownType, "%q", b.Guest)
		}
	}
	return nil
}

// Compositions returns the cartesian product of every molecule's count
// options, first molecule varying slowest.
func (s *SystemSpec) Compositions() [][]int {
	out := [][]int{{}}
	for _, m := range s.Molecules {
		var next [][]int
		for _, prefix := range out {
			for _, c := range m.CountOptions() {
				combo := append(append([]int(nil), prefix...), c)
				next = append(next, combo)
			}
		}
		out = next
	}
	return out
}

// System is the immutable, shareable part of a simulation: grid, type
// registry, interaction table and tracked pairs.
type System struct {
	Grid     *Grid
	Registry *Registry
	Table    *InteractionTable
	Pairs    []BindingPair
	Counts   []int
}

// Build constructs the System for one composition (one count per molecule).
func (s *SystemSpec) Build(counts []int) (*System, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(counts) != len(s.Molecules) {
		return nil, configErrorf("molecules", ErrInvalidParameter, "%d counts for %d molecule types", len(counts), len(s.Molecules))
	}
	cellLength := s.Grid.CellLength
	if cellLength == 0 {
		cellLength = DefaultCellLength
	}
	radius := s.Grid.ContactRadius
	if radius == 0 {
		radius = 1
	}
	g, err := NewGrid(s.Grid.Size, cellLength, radius, s.Grid.Neighborhood)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry(g.NumCells())
	anchored := make(map[int]bool)
	for i, m := range s.Molecules {
		if _, err := reg.Register(MoleculeType{
			Name:    m.Name,
			Count:   counts[i],
			Movable: m.IsMovable(),
			Anchors: m.Anchors,
		}); err != nil {
			return nil, err
		}
		for j, a := range m.Anchors {
			field := fmt.Sprintf("molecules[%d].anchors[%d]", i, j)
			cell, err := g.CellAt(a)
			if err != nil {
				return nil, &ConfigurationError{Field: field, Err: err}
			}
			if anchored[cell] {
				return nil, configErrorf(field, ErrDuplicateAnchor, "cell %s", a)
			}
			anchored[cell] = true
		}
	}
	table := NewInteractionTable(reg)
	for _, in := range s.Interactions {
		a, _ := reg.Lookup(in.A)
		b, _ := reg.Lookup(in.B)
		if err := table.Set(a, b, in.Energy); err != nil {
			return nil, err
		}
	}
	var pairs []BindingPair
	for _, b := range s.BindingSpecs() {
		h, _ := reg.Lookup(b.Host)
		gst, _ := reg.Lookup(b.Guest)
		pairs = append(pairs, BindingPair{Host: h, Guest: gst})
	}
	return &System{
		Grid:     g,
		Registry: reg,
		Table:    table,
		Pairs:    pairs,
		Counts:   append([]int(nil), counts...),
	}, nil
}
