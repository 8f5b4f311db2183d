package sim

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExampleConfigs_HostGuest verifies that host_guest.yaml loads and
// builds the single-composition 10x10x10 scenario.
func TestExampleConfigs_HostGuest(t *testing.T) {
	// GIVEN the host_guest.yaml example config
	spec, err := LoadSystemSpec(filepath.Join("..", "examples", "host_guest.yaml"))
	require.NoError(t, err, "failed to load host_guest.yaml")

	// THEN validation passes
	require.NoError(t, spec.Validate())
	require.NoError(t, spec.Run.WithDefaults().Validate())

	// THEN there is exactly one composition: 1 host, 20 guests
	comps := spec.Compositions()
	require.Equal(t, [][]int{{1, 20}}, comps)

	sys, err := spec.Build(comps[0])
	require.NoError(t, err)
	assert.Equal(t, 1000, sys.Grid.NumCells())
	assert.Equal(t, -15.0, sys.Table.Get(0, 1))
	assert.Equal(t, []TypeID{1}, sys.Registry.MovableTypes(), "host is fixed")
	assert.Equal(t, 1000, spec.Run.Print.WindowSize)
}

// TestExampleConfigs_Isotherm verifies the sweep example expands into the
// cartesian product of its count options.
func TestExampleConfigs_Isotherm(t *testing.T) {
	spec, err := LoadSystemSpec(filepath.Join("..", "examples", "isotherm.yaml"))
	require.NoError(t, err, "failed to load isotherm.yaml")
	require.NoError(t, spec.Validate())

	run := spec.Run.WithDefaults()
	require.NoError(t, run.Validate())
	assert.Equal(t, 4, run.Replicas)
	assert.Equal(t, MoveWeights{Hop: 0.8, Jump: 0.2}, run.Moves)

	comps := spec.Compositions()
	assert.Len(t, comps, 10)
	for _, c := range comps {
		_, err := spec.Build(c)
		require.NoError(t, err, "composition %v", c)
	}
}
