package boxopt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgana/hgana/sim"
)

func pairSpec() *sim.SystemSpec {
	return &sim.SystemSpec{
		Grid: sim.GridSpec{Size: [3]float64{4, 4, 4}},
		Molecules: []sim.MoleculeSpec{
			{Name: "host", Count: 1},
			{Name: "guest", Count: 1},
		},
		Interactions: []sim.InteractionSpec{{A: "host", B: "guest", Energy: -5}},
		Run: sim.RunSpec{
			Temperature:        300,
			EquilibrationSteps: 50,
			ProductionSteps:    400,
			Print:              sim.PrintSpec{SampleFrequency: 1, WindowSize: 100},
			Seed:               7,
		},
	}
}

func TestNew_RejectsBadInputs(t *testing.T) {
	tests := []struct {
		name   string
		spec   *sim.SystemSpec
		target float64
		opts   Options
	}{
		{"nil spec", nil, 1, Options{}},
		{"zero target", pairSpec(), 0, Options{}},
		{"negative target", pairSpec(), -1, Options{}},
		{"count mismatch", pairSpec(), 1, Options{Counts: []int{1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.spec, tc.target, tc.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, sim.ErrInvalidParameter))
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	o, err := New(pairSpec(), 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, o.opts.Counts)
	assert.Equal(t, sim.BindingSpec{Host: "host", Guest: "guest"}, o.opts.Pair)
	assert.Equal(t, 4, o.opts.Guess)
	assert.Equal(t, 2, o.opts.MinEdge) // ceil(cbrt(2))
	assert.Equal(t, 30, o.opts.MaxEvaluations)
}

func TestEvaluate_MemoizesAndClamps(t *testing.T) {
	o, err := New(pairSpec(), 1, Options{})
	require.NoError(t, err)

	a, err := o.Evaluate(context.Background(), 3)
	require.NoError(t, err)
	b, err := o.Evaluate(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Edges below the minimum are clamped.
	c, err := o.Evaluate(context.Background(), -5)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Edge)

	assert.Len(t, o.order, 2)
	assert.GreaterOrEqual(t, a.PB, 0.0)
	assert.LessOrEqual(t, a.PB, 1.0)
}

func TestRun_FindsBestEvaluatedEdgeDeterministically(t *testing.T) {
	run := func() *Result {
		o, err := New(pairSpec(), 0.5, Options{MaxEvaluations: 5})
		require.NoError(t, err)
		res, err := o.Run(context.Background())
		require.NoError(t, err)
		return res
	}
	first := run()
	second := run()

	require.NotEmpty(t, first.Evaluations)
	for _, ev := range first.Evaluations {
		assert.GreaterOrEqual(t, ev.Difference, first.Best.Difference)
		assert.GreaterOrEqual(t, ev.Edge, 2)
	}
	assert.Equal(t, float64(first.Best.Edge), first.Length)
	assert.Equal(t, first.Best, second.Best)
	assert.Equal(t, first.Evaluations, second.Evaluations)
}

func TestRun_CancelledContext(t *testing.T) {
	o, err := New(pairSpec(), 1, Options{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_SaturatedBoxEncodes(t *testing.T) {
	// GIVEN a 1:1 system whose smallest box (2x2x2, every cell in contact) is always bound
	o, err := New(pairSpec(), 1, Options{Guess: 2, MaxEvaluations: 3})
	require.NoError(t, err)

	sat, err := o.Evaluate(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sat.PB)
	assert.True(t, sat.Saturated)
	assert.Zero(t, sat.Ratio)

	// WHEN the search runs and its result is encoded
	res, err := o.Run(context.Background())
	require.NoError(t, err)
	data, err := json.MarshalIndent(res, "", "  ")

	// THEN encoding succeeds and the saturated box is never the best
	require.NoError(t, err)
	assert.Contains(t, string(data), `"saturated": true`)
	assert.False(t, res.Best.Saturated)
	assert.Contains(t, res.Evaluations, sat)
}

func TestEvaluate_RunBannersStayAtDebug(t *testing.T) {
	// GIVEN a logger at Info level with a capture hook
	hook := logtest.NewGlobal()
	defer hook.Reset()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetLevel(level)

	o, err := New(pairSpec(), 1, Options{})
	require.NoError(t, err)

	// WHEN several boxes are evaluated
	for _, edge := range []int{2, 3, 4} {
		_, err := o.Evaluate(context.Background(), edge)
		require.NoError(t, err)
	}

	// THEN no per-evaluation ensemble banner reaches Info
	for _, entry := range hook.AllEntries() {
		assert.False(t, strings.HasPrefix(entry.Message, "Running "), "info line %q", entry.Message)
	}
}
