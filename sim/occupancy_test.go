package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgana/hgana/sim/internal/testutil"
)

func TestOccupancy_StartsInReservoir(t *testing.T) {
	g, reg, _ := hostGuest(t, 4, Coord{X: 1, Y: 1, Z: 1}, 3, -1)
	occ := emptyOccupancy(t, g, reg)

	assert.Equal(t, 4, occ.NumInstances())
	assert.Equal(t, g.NumCells(), occ.NumEmpty())
	for inst := 0; inst < occ.NumInstances(); inst++ {
		assert.Equal(t, Reservoir, occ.CellOf(inst))
	}
	assert.Equal(t, []int{0}, occ.InstancesOfType(hostType))
	assert.Equal(t, []int{1, 2, 3}, occ.InstancesOfType(guestType))
}

func TestOccupancy_PlaceInitial_AnchorsAndConservation(t *testing.T) {
	anchor := Coord{X: 2, Y: 1, Z: 3}
	g, reg, _ := hostGuest(t, 4, anchor, 10, -1)
	occ := emptyOccupancy(t, g, reg)

	require.NoError(t, occ.PlaceInitial(testutil.Rand(1)))
	require.NoError(t, occ.CheckInvariants())

	assert.Equal(t, cell(t, g, 2, 1, 3), occ.CellOf(0))
	assert.Equal(t, 1, occ.PlacedCount(hostType))
	assert.Equal(t, 10, occ.PlacedCount(guestType))
	assert.Equal(t, g.NumCells()-11, occ.NumEmpty())
	assert.Len(t, occ.OccupantsOfType(guestType), 10)
}

func TestOccupancy_PlaceInitial_FullGrid(t *testing.T) {
	g := MustNewGrid([3]float64{2, 2, 2}, 1, 1, NeighborhoodMoore)
	reg := NewRegistry(g.NumCells())
	_, err := reg.Register(MoleculeType{Name: "a", Count: 8, Movable: true})
	require.NoError(t, err)
	occ := NewOccupancy(g, reg)
	require.NoError(t, occ.PlaceInitial(testutil.Rand(2)))
	assert.Equal(t, 0, occ.NumEmpty())
	require.NoError(t, occ.CheckInvariants())
}

func TestOccupancy_PlaceInitial_Deterministic(t *testing.T) {
	g, reg, _ := hostGuest(t, 5, Coord{}, 20, -1)
	a, b := NewOccupancy(g, reg), NewOccupancy(g, reg)
	require.NoError(t, a.PlaceInitial(testutil.Rand(9)))
	require.NoError(t, b.PlaceInitial(testutil.Rand(9)))
	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestOccupancy_Mutators(t *testing.T) {
	g, reg, _ := hostGuest(t, 3, Coord{}, 2, -1)
	occ := emptyOccupancy(t, g, reg)
	c0, c1, c2 := cell(t, g, 0, 0, 0), cell(t, g, 1, 0, 0), cell(t, g, 2, 2, 2)

	// Place
	require.NoError(t, occ.Place(1, c0))
	assert.ErrorIs(t, occ.Place(2, c0), ErrCellOccupied, "single occupancy")
	assert.ErrorIs(t, occ.Place(1, c1), ErrCellOccupied, "already placed")
	assert.ErrorIs(t, occ.Place(2, -1), ErrOutOfBounds)
	assert.ErrorIs(t, occ.Place(99, c1), ErrInstanceNotFound)

	inst, ok := occ.InstanceAt(c0)
	assert.True(t, ok)
	assert.Equal(t, 1, inst)
	typ, ok := occ.TypeAt(c0)
	assert.True(t, ok)
	assert.Equal(t, guestType, typ)
	_, ok = occ.TypeAt(c1)
	assert.False(t, ok)

	// Move
	require.NoError(t, occ.Place(2, c2))
	assert.ErrorIs(t, occ.Move(1, c2), ErrCellOccupied)
	require.NoError(t, occ.Move(1, c1))
	assert.Equal(t, c1, occ.CellOf(1))
	_, ok = occ.InstanceAt(c0)
	assert.False(t, ok)
	assert.ErrorIs(t, occ.Move(0, c0), ErrInstanceNotFound, "reservoir instances cannot move")

	// Remove
	require.NoError(t, occ.Remove(1))
	assert.Equal(t, Reservoir, occ.CellOf(1))
	assert.ErrorIs(t, occ.Remove(1), ErrInstanceNotFound)
	assert.Equal(t, 1, occ.PlacedCount(guestType))
	require.NoError(t, occ.CheckInvariants())
}

func TestOccupancy_EmptySetTracksFreeCells(t *testing.T) {
	g, reg, _ := hostGuest(t, 3, Coord{}, 5, -1)
	occ := emptyOccupancy(t, g, reg)
	rng := testutil.Rand(4)
	require.NoError(t, occ.PlaceInitial(rng))

	for i := 0; i < 200; i++ {
		inst := 1 + rng.Intn(5)
		to := occ.EmptyCell(rng.Intn(occ.NumEmpty()))
		require.NoError(t, occ.Move(inst, to))
	}
	require.NoError(t, occ.CheckInvariants())
	free := map[int]bool{}
	for i := 0; i < occ.NumEmpty(); i++ {
		c := occ.EmptyCell(i)
		_, taken := occ.InstanceAt(c)
		assert.False(t, taken)
		assert.False(t, free[c], "duplicate free cell")
		free[c] = true
	}
	assert.Equal(t, g.NumCells()-6, len(free))
}

func TestOccupancy_CloneIsIndependent(t *testing.T) {
	g, reg, _ := hostGuest(t, 3, Coord{}, 2, -1)
	occ := emptyOccupancy(t, g, reg)
	require.NoError(t, occ.PlaceInitial(testutil.Rand(5)))
	before := occ.Snapshot()

	c := occ.Clone()
	require.NoError(t, c.Remove(1))

	assert.Equal(t, before, occ.Snapshot())
	assert.NotEqual(t, before, c.Snapshot())
	require.NoError(t, occ.CheckInvariants())
	require.NoError(t, c.CheckInvariants())
}

func TestOccupancy_SnapshotCoordinates(t *testing.T) {
	g, reg, _ := hostGuest(t, 3, Coord{X: 1, Y: 2, Z: 0}, 1, -1)
	occ := emptyOccupancy(t, g, reg)
	require.NoError(t, occ.Place(0, cell(t, g, 1, 2, 0)))

	snap := occ.Snapshot()
	require.Len(t, snap, 2)
	require.NotNil(t, snap[0].Coord)
	assert.Equal(t, Coord{X: 1, Y: 2, Z: 0}, *snap[0].Coord)
	assert.Equal(t, Reservoir, snap[1].Cell)
	assert.Nil(t, snap[1].Coord)
}
