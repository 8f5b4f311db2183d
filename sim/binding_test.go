package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBound_AdjacencyPredicate(t *testing.T) {
	// GIVEN a fixed host at a known cell
	g, reg, _ := hostGuest(t, 6, Coord{X: 2, Y: 2, Z: 2}, 1, -1)
	occ := emptyOccupancy(t, g, reg)
	require.NoError(t, occ.Place(0, cell(t, g, 2, 2, 2)))
	pair := BindingPair{Host: hostType, Guest: guestType}

	// WHEN the guest is in the reservoir THEN unbound
	assert.False(t, IsBound(occ, pair))

	// WHEN the guest sits in an adjacent cell THEN bound
	require.NoError(t, occ.Place(1, cell(t, g, 3, 2, 2)))
	assert.True(t, IsBound(occ, pair))
	assert.True(t, IsBound(occ, BindingPair{Host: guestType, Guest: hostType}), "predicate is symmetric")

	// WHEN the guest moves beyond the contact radius THEN unbound on the next evaluation
	require.NoError(t, occ.Move(1, cell(t, g, 4, 2, 2)))
	assert.False(t, IsBound(occ, pair))

	// WHEN it comes back diagonally THEN bound again (Moore)
	require.NoError(t, occ.Move(1, cell(t, g, 3, 3, 3)))
	assert.True(t, IsBound(occ, pair))
}

func TestIsBound_SameTypePair(t *testing.T) {
	g := MustNewGrid([3]float64{4, 4, 4}, 1, 1, NeighborhoodVonNeumann)
	reg := NewRegistry(g.NumCells())
	_, err := reg.Register(MoleculeType{Name: "a", Count: 2, Movable: true})
	require.NoError(t, err)
	occ := emptyOccupancy(t, g, reg)
	require.NoError(t, occ.Place(0, cell(t, g, 0, 0, 0)))
	require.NoError(t, occ.Place(1, cell(t, g, 1, 1, 0)))
	pair := BindingPair{Host: 0, Guest: 0}

	assert.False(t, IsBound(occ, pair), "diagonal is not a von Neumann contact")
	require.NoError(t, occ.Move(1, cell(t, g, 1, 0, 0)))
	assert.True(t, IsBound(occ, pair))
}

func TestNewBindingTracker_Validation(t *testing.T) {
	g, reg, _ := hostGuest(t, 3, Coord{}, 1, -1)
	occ := emptyOccupancy(t, g, reg)

	_, err := NewBindingTracker(occ, []BindingPair{{Host: 0, Guest: 5}}, DefaultPrintSpec())
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = NewBindingTracker(occ, nil, PrintSpec{SampleFrequency: 0, WindowSize: 1})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewBindingTracker(occ, nil, PrintSpec{SampleFrequency: 1, WindowSize: 0})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBindingTracker_WindowsAndPartialDrop(t *testing.T) {
	// GIVEN a tracker sampling every 2nd step in windows of 3 samples
	g, reg, _ := hostGuest(t, 6, Coord{X: 2, Y: 2, Z: 2}, 1, -1)
	occ := emptyOccupancy(t, g, reg)
	require.NoError(t, occ.Place(0, cell(t, g, 2, 2, 2)))
	require.NoError(t, occ.Place(1, cell(t, g, 3, 2, 2)))
	far, near := cell(t, g, 5, 5, 5), cell(t, g, 3, 2, 2)
	tr, err := NewBindingTracker(occ, []BindingPair{{Host: hostType, Guest: guestType}}, PrintSpec{SampleFrequency: 2, WindowSize: 3})
	require.NoError(t, err)

	// bound pattern per sampled step: 1 1 0 | 0 0 0 | 1 (partial)
	pattern := map[int64]int{0: near, 2: near, 4: far, 6: far, 8: far, 10: far, 12: near}
	for step := int64(0); step < 14; step++ {
		if c, ok := pattern[step]; ok && occ.CellOf(1) != c {
			require.NoError(t, occ.Move(1, c))
		}
		tr.Observe(step)
	}

	st := tr.Stats()[0]
	require.Len(t, st.Windows, 2)
	assert.Equal(t, int64(4), st.Windows[0].EndStep)
	assert.InDelta(t, 2.0/3, st.Windows[0].Mean, 1e-12)
	assert.InDelta(t, 0.4714045207910317, st.Windows[0].Std, 1e-12)
	assert.Equal(t, int64(10), st.Windows[1].EndStep)
	assert.Equal(t, 0.0, st.Windows[1].Mean)
	assert.Equal(t, 0.0, st.Windows[1].Std)
	assert.Equal(t, 1, tr.Pending())

	// WHEN the phase ends THEN the partial window is dropped but its sample counts
	assert.Equal(t, 1, tr.Finish())
	assert.Equal(t, 0, tr.Pending())
	st = tr.Stats()[0]
	assert.Len(t, st.Windows, 2)
	assert.Equal(t, int64(7), st.Samples)
	assert.Equal(t, int64(3), st.BoundSamples)
	assert.InDelta(t, 3.0/7, st.BoundFraction(), 1e-12)

	latest, ok := st.Latest()
	assert.True(t, ok)
	assert.Equal(t, int64(10), latest.EndStep)
	mean, std := st.WindowMeanStd()
	assert.InDelta(t, 1.0/3, mean, 1e-12)
	assert.InDelta(t, 1.0/3, std, 1e-12)
}

func TestBindingTracker_Reset(t *testing.T) {
	g, reg, _ := hostGuest(t, 3, Coord{}, 1, -1)
	occ := emptyOccupancy(t, g, reg)
	require.NoError(t, occ.Place(0, 0))
	require.NoError(t, occ.Place(1, 1))
	tr, err := NewBindingTracker(occ, []BindingPair{{Host: hostType, Guest: guestType}}, PrintSpec{SampleFrequency: 1, WindowSize: 2})
	require.NoError(t, err)
	for s := int64(0); s < 5; s++ {
		tr.Observe(s)
	}
	tr.Reset()

	st := tr.Stats()[0]
	assert.Empty(t, st.Windows)
	assert.Zero(t, st.Samples)
	assert.Zero(t, tr.Pending())
	assert.Equal(t, BindingPair{Host: hostType, Guest: guestType}, st.Pair)
	_, ok := st.Latest()
	assert.False(t, ok)
	assert.Equal(t, 0.0, st.BoundFraction())
}
