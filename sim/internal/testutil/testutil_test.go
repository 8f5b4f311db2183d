package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRand_IsDeterministic(t *testing.T) {
	a, b := Rand(3), Rand(3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Int63(), b.Int63())
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := WriteFile(t, "x.yaml", "a: 1\n")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", string(data))
}

func TestAssertFloat64Equal_WithinTolerance(t *testing.T) {
	AssertFloat64Equal(t, "close", 1.0, 1.0+1e-12, 1e-9)
	AssertFloat64Equal(t, "zero", 0, 0, 1e-9)
	AssertProbability(t, "half", 0.5)
}
