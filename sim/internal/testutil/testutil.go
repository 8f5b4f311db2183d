// Package testutil provides shared assertion and fixture helpers for the
// sim test packages. It must not import sim so that in-package tests can
// use it.
package testutil

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertProbability fails unless v lies in [0, 1].
func AssertProbability(t *testing.T, name string, v float64) {
	t.Helper()
	if math.IsNaN(v) || v < 0 || v > 1 {
		t.Errorf("%s: %v is not a probability", name, v)
	}
}

// Rand returns a fresh deterministic stream.
func Rand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// WriteFile writes content to name inside a per-test temp dir and returns
// the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
