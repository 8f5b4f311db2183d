package sim

import "fmt"

// OccupancyView is the read side of an occupancy needed for energy sums.
type OccupancyView interface {
	TypeAt(cell int) (TypeID, bool)
	InstanceAt(cell int) (int, bool)
}

// InteractionTable holds symmetric pair energies between molecule types.
// Unset pairs are zero. Set all entries before a run; the table is then
// shared read-only between replicas.
type InteractionTable struct {
	registry *Registry
	n        int
	e        []float64 // row-major n*n
}

// NewInteractionTable creates an all-zero table for the registered types.
// Types registered after this call are unknown to the table.
func NewInteractionTable(reg *Registry) *InteractionTable {
	n := reg.Len()
	return &InteractionTable{registry: reg, n: n, e: make([]float64, n*n)}
}

// Set stores energy for both (a, b) and (b, a).
func (t *InteractionTable) Set(a, b TypeID, energy float64) error {
	for _, id := range []TypeID{a, b} {
		if id < 0 || int(id) >= t.n {
			return configErrorf("interactions", ErrUnknownType, "type %d (registered: %d)", id, t.n)
		}
	}
	t.e[int(a)*t.n+int(b)] = energy
	t.e[int(b)*t.n+int(a)] = energy
	return nil
}

// Get returns the pair energy, 0 for unset pairs or unknown types.
func (t *InteractionTable) Get(a, b TypeID) float64 {
	if a < 0 || b < 0 || int(a) >= t.n || int(b) >= t.n {
		return 0
	}
	return t.e[int(a)*t.n+int(b)]
}

// NumTypes returns the table dimension.
func (t *InteractionTable) NumTypes() int { return t.n }

// Matrix returns a copy of the table as rows.
func (t *InteractionTable) Matrix() [][]float64 {
	out := make([][]float64, t.n)
	for i := range out {
		out[i] = append([]float64(nil), t.e[i*t.n:(i+1)*t.n]...)
	}
	return out
}

// EnergyAt sums the pair energies between the occupant of cell and the
// occupants of all adjacent cells. Empty cells contribute nothing.
func (t *InteractionTable) EnergyAt(g *Grid, occ OccupancyView, cell int) float64 {
	typ, ok := occ.TypeAt(cell)
	if !ok {
		return 0
	}
	self, _ := occ.InstanceAt(cell)
	return t.energyAs(g, occ, typ, cell, self)
}

// energyAs is the energy an instance of typ would have on cell, ignoring
// whatever the instance exclude contributes (its own old position during a hop).
func (t *InteractionTable) energyAs(g *Grid, occ OccupancyView, typ TypeID, cell, exclude int) float64 {
	row := t.e[int(typ)*t.n : (int(typ)+1)*t.n]
	var sum float64
	for _, nb := range g.Neighbors(cell) {
		inst, ok := occ.InstanceAt(nb)
		if !ok || inst == exclude {
			continue
		}
		other, _ := occ.TypeAt(nb)
		sum += row[other]
	}
	return sum
}

// TotalEnergy sums every contact on the grid once.
func (t *InteractionTable) TotalEnergy(g *Grid, occ OccupancyView) float64 {
	var sum float64
	for cell := 0; cell < g.NumCells(); cell++ {
		sum += t.EnergyAt(g, occ, cell)
	}
	return sum / 2
}

func (t *InteractionTable) String() string {
	return fmt.Sprintf("InteractionTable(%dx%d)", t.n, t.n)
}
