package sim

import (
	"fmt"
	"math/rand"
	"sort"
)

// Reservoir is the cell value of an instance that is not on the grid.
const Reservoir = -1

// Placement is one instance's position in an occupancy snapshot.
type Placement struct {
	Instance int    `json:"instance"`
	Type     TypeID `json:"type"`
	Cell     int    `json:"cell"` // Reservoir when absent
	Coord    *Coord `json:"coord,omitempty"`
}

// Occupancy maps cells to at most one molecule instance. Instance ids are
// dense and grouped by type in registration order. Instances are never
// created or destroyed after NewOccupancy; removal parks them in the
// reservoir so a later insertion is symmetric.
//
// Not thread-safe: each replica owns its Occupancy exclusively.
type Occupancy struct {
	grid     *Grid
	registry *Registry

	cells    []int // cell -> instance id + 1 (0 = empty)
	instCell []int // instance -> cell or Reservoir
	instType []TypeID
	byType   [][]int // type -> instance ids
	placed   []int   // type -> number of instances on the grid

	// empty is an indexed set of free cells for O(1) uniform sampling.
	empty    []int
	emptyPos []int // cell -> index in empty, -1 when occupied
}

// NewOccupancy creates an occupancy with every registered instance in the
// reservoir. Call PlaceInitial to populate the grid.
func NewOccupancy(g *Grid, reg *Registry) *Occupancy {
	n := g.NumCells()
	o := &Occupancy{
		grid:     g,
		registry: reg,
		cells:    make([]int, n),
		byType:   make([][]int, reg.Len()),
		placed:   make([]int, reg.Len()),
		empty:    make([]int, n),
		emptyPos: make([]int, n),
	}
	for c := 0; c < n; c++ {
		o.empty[c] = c
		o.emptyPos[c] = c
	}
	for t := 0; t < reg.Len(); t++ {
		for i := 0; i < reg.Type(TypeID(t)).Count; i++ {
			id := len(o.instType)
			o.instType = append(o.instType, TypeID(t))
			o.instCell = append(o.instCell, Reservoir)
			o.byType[t] = append(o.byType[t], id)
		}
	}
	return o
}

// PlaceInitial puts anchored instances on their cells and scatters the
// remaining instances uniformly over free cells using rng.
func (o *Occupancy) PlaceInitial(rng *rand.Rand) error {
	for t, ids := range o.byType {
		anchors := o.registry.Type(TypeID(t)).Anchors
		for i, a := range anchors {
			cell, err := o.grid.CellAt(a)
			if err != nil {
				return &ConfigurationError{Field: fmt.Sprintf("molecules[%d].anchors[%d]", t, i), Err: err}
			}
			if err := o.Place(ids[i], cell); err != nil {
				return &ConfigurationError{
					Field: fmt.Sprintf("molecules[%d].anchors[%d]", t, i),
					Err:   fmt.Errorf("anchor %s: %w", a, ErrDuplicateAnchor),
				}
			}
		}
	}
	for inst, cell := range o.instCell {
		if cell != Reservoir {
			continue
		}
		if len(o.empty) == 0 {
			return &ConfigurationError{Field: "molecules", Err: ErrCapacityExceeded}
		}
		if err := o.Place(inst, o.empty[rng.Intn(len(o.empty))]); err != nil {
			return err
		}
	}
	return nil
}

// Grid returns the grid this occupancy lives on.
func (o *Occupancy) Grid() *Grid { return o.grid }

// Registry returns the molecule registry.
func (o *Occupancy) Registry() *Registry { return o.registry }

// NumInstances returns the total number of registered instances.
func (o *Occupancy) NumInstances() int { return len(o.instType) }

// InstancesOfType returns the instance ids of a type. Shared; do not modify.
func (o *Occupancy) InstancesOfType(t TypeID) []int { return o.byType[t] }

// InstanceType returns the type of an instance.
func (o *Occupancy) InstanceType(inst int) TypeID { return o.instType[inst] }

// CellOf returns the cell of an instance, or Reservoir.
func (o *Occupancy) CellOf(inst int) int { return o.instCell[inst] }

// TypeAt returns the type of the occupant of cell, if any.
func (o *Occupancy) TypeAt(cell int) (TypeID, bool) {
	v := o.cells[cell]
	if v == 0 {
		return 0, false
	}
	return o.instType[v-1], true
}

// InstanceAt returns the occupant of cell, if any.
func (o *Occupancy) InstanceAt(cell int) (int, bool) {
	v := o.cells[cell]
	return v - 1, v != 0
}

// PlacedCount returns how many instances of t are on the grid.
func (o *Occupancy) PlacedCount(t TypeID) int { return o.placed[t] }

// NumEmpty returns the number of free cells.
func (o *Occupancy) NumEmpty() int { return len(o.empty) }

// EmptyCell returns the i-th free cell; i in [0, NumEmpty()).
func (o *Occupancy) EmptyCell(i int) int { return o.empty[i] }

// OccupantsOfType returns the cells holding instances of t, ascending.
func (o *Occupancy) OccupantsOfType(t TypeID) []int {
	out := make([]int, 0, o.placed[t])
	for _, inst := range o.byType[t] {
		if c := o.instCell[inst]; c != Reservoir {
			out = append(out, c)
		}
	}
	sort.Ints(out)
	return out
}

// Place moves a reservoir instance onto an empty cell.
func (o *Occupancy) Place(inst, cell int) error {
	if err := o.checkInstance(inst); err != nil {
		return err
	}
	if err := o.checkCell(cell); err != nil {
		return err
	}
	if o.instCell[inst] != Reservoir {
		return fmt.Errorf("place instance %d: already on cell %d: %w", inst, o.instCell[inst], ErrCellOccupied)
	}
	if o.cells[cell] != 0 {
		return fmt.Errorf("place instance %d on cell %d: %w", inst, cell, ErrCellOccupied)
	}
	o.occupy(inst, cell)
	o.placed[o.instType[inst]]++
	return nil
}

// Remove parks a placed instance in the reservoir.
func (o *Occupancy) Remove(inst int) error {
	if err := o.checkInstance(inst); err != nil {
		return err
	}
	cell := o.instCell[inst]
	if cell == Reservoir {
		return fmt.Errorf("remove instance %d: %w", inst, ErrInstanceNotFound)
	}
	o.vacate(cell)
	o.instCell[inst] = Reservoir
	o.placed[o.instType[inst]]--
	return nil
}

// Move relocates a placed instance to an empty cell.
func (o *Occupancy) Move(inst, cell int) error {
	if err := o.checkInstance(inst); err != nil {
		return err
	}
	if err := o.checkCell(cell); err != nil {
		return err
	}
	from := o.instCell[inst]
	if from == Reservoir {
		return fmt.Errorf("move instance %d: %w", inst, ErrInstanceNotFound)
	}
	if o.cells[cell] != 0 {
		return fmt.Errorf("move instance %d to cell %d: %w", inst, cell, ErrCellOccupied)
	}
	o.vacate(from)
	o.occupy(inst, cell)
	return nil
}

// Clone returns an independent copy sharing the grid and registry.
func (o *Occupancy) Clone() *Occupancy {
	c := *o
	c.cells = append([]int(nil), o.cells...)
	c.instCell = append([]int(nil), o.instCell...)
	c.placed = append([]int(nil), o.placed...)
	c.empty = append([]int(nil), o.empty...)
	c.emptyPos = append([]int(nil), o.emptyPos...)
	return &c
}

// Snapshot lists every instance with its cell and coordinate.
func (o *Occupancy) Snapshot() []Placement {
	out := make([]Placement, len(o.instType))
	for inst, cell := range o.instCell {
		p := Placement{Instance: inst, Type: o.instType[inst], Cell: cell}
		if cell != Reservoir {
			c := o.grid.CoordOf(cell)
			p.Coord = &c
		}
		out[inst] = p
	}
	return out
}

// CheckInvariants verifies single occupancy, cell/instance agreement and
// per-type conservation. Intended for tests and debug runs.
func (o *Occupancy) CheckInvariants() error {
	seen := 0
	for cell, v := range o.cells {
		if v == 0 {
			if o.emptyPos[cell] < 0 || o.empty[o.emptyPos[cell]] != cell {
				return fmt.Errorf("empty cell %d missing from free set", cell)
			}
			continue
		}
		seen++
		if o.instCell[v-1] != cell {
			return fmt.Errorf("cell %d holds instance %d which reports cell %d", cell, v-1, o.instCell[v-1])
		}
		if o.emptyPos[cell] != -1 {
			return fmt.Errorf("occupied cell %d listed as free", cell)
		}
	}
	if seen+len(o.empty) != len(o.cells) {
		return fmt.Errorf("occupied %d + free %d != cells %d", seen, len(o.empty), len(o.cells))
	}
	placed := 0
	for t, ids := range o.byType {
		if len(ids) != o.registry.Type(TypeID(t)).Count {
			return fmt.Errorf("type %d has %d instances, registered %d", t, len(ids), o.registry.Type(TypeID(t)).Count)
		}
		n := 0
		for _, inst := range ids {
			if c := o.instCell[inst]; c != Reservoir {
				if o.cells[c] != inst+1 {
					return fmt.Errorf("instance %d reports cell %d held by %d", inst, c, o.cells[c]-1)
				}
				n++
			}
		}
		if n != o.placed[t] {
			return fmt.Errorf("type %d placed count %d, counted %d", t, o.placed[t], n)
		}
		placed += n
	}
	if placed != seen {
		return fmt.Errorf("placed instances %d != occupied cells %d", placed, seen)
	}
	return nil
}

func (o *Occupancy) occupy(inst, cell int) {
	o.cells[cell] = inst + 1
	o.instCell[inst] = cell
	// swap-remove from the free set
	i := o.emptyPos[cell]
	last := o.empty[len(o.empty)-1]
	o.empty[i] = last
	o.emptyPos[last] = i
	o.empty = o.empty[:len(o.empty)-1]
	o.emptyPos[cell] = -1
}

func (o *Occupancy) vacate(cell int) {
	o.cells[cell] = 0
	o.emptyPos[cell] = len(o.empty)
	o.empty = append(o.empty, cell)
}

func (o *Occupancy) checkInstance(inst int) error {
	if inst < 0 || inst >= len(o.instType) {
		return fmt.Errorf("instance %d of %d: %w", inst, len(o.instType), ErrInstanceNotFound)
	}
	return nil
}

func (o *Occupancy) checkCell(cell int) error {
	if cell < 0 || cell >= len(o.cells) {
		return fmt.Errorf("cell %d of %d: %w", cell, len(o.cells), ErrOutOfBounds)
	}
	return nil
}
