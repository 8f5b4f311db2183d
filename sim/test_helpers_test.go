package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	hostType  TypeID = 0
	guestType TypeID = 1
)

// hostGuest builds an n^3 grid with one fixed host anchored at anchor and
// guests movable guests, plus a table with host-guest energy e.
func hostGuest(t *testing.T, n int, anchor Coord, guests int, e float64) (*Grid, *Registry, *InteractionTable) {
	t.Helper()
	g := MustNewGrid([3]float64{float64(n), float64(n), float64(n)}, 1, 1, NeighborhoodMoore)
	reg := NewRegistry(g.NumCells())
	_, err := reg.Register(MoleculeType{Name: "host", Count: 1, Anchors: []Coord{anchor}})
	require.NoError(t, err)
	_, err = reg.Register(MoleculeType{Name: "guest", Count: guests, Movable: true})
	require.NoError(t, err)
	table := NewInteractionTable(reg)
	require.NoError(t, table.Set(hostType, guestType, e))
	return g, reg, table
}

// emptyOccupancy returns an occupancy with every instance in the reservoir.
func emptyOccupancy(t *testing.T, g *Grid, reg *Registry) *Occupancy {
	t.Helper()
	occ := NewOccupancy(g, reg)
	require.NoError(t, occ.CheckInvariants())
	return occ
}

// cell resolves a coordinate or fails the test.
func cell(t *testing.T, g *Grid, x, y, z int) int {
	t.Helper()
	c, err := g.CellAt(Coord{X: x, Y: y, Z: z})
	require.NoError(t, err)
	return c
}

// hostGuestSpec is a small end-to-end system spec.
func hostGuestSpec(guests int, seed int64) *SystemSpec {
	fixed := false
	return &SystemSpec{
		Grid: GridSpec{Size: [3]float64{6, 6, 6}},
		Molecules: []MoleculeSpec{
			{Name: "host", Count: 1, Movable: &fixed, Anchors: []Coord{{X: 3, Y: 3, Z: 3}}},
			{Name: "guest", Count: guests},
		},
		Interactions: []InteractionSpec{{A: "host", B: "guest", Energy: -15}},
		Binding:      []BindingSpec{{Host: "host", Guest: "guest"}},
		Run: RunSpec{
			Temperature:        298,
			EquilibrationSteps: 200,
			ProductionSteps:    2000,
			Print:              PrintSpec{SampleFrequency: 1, WindowSize: 100},
			Seed:               seed,
		},
	}
}
