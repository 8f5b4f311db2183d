package sim

import (
	"fmt"
	"math"
)

// MoveKind identifies an elementary MC move.
type MoveKind int

const (
	// MoveNone marks a step with no legal proposal.
	MoveNone MoveKind = iota
	// MoveHop relocates an instance to an empty adjacent cell.
	MoveHop
	// MoveJump relocates an instance to any empty cell.
	MoveJump
	// MoveInsert places a reservoir instance on an empty cell.
	MoveInsert
	// MoveRemove parks a placed instance in the reservoir.
	MoveRemove
)

var moveKindNames = map[MoveKind]string{
	MoveNone:   "none",
	MoveHop:    "hop",
	MoveJump:   "jump",
	MoveInsert: "insert",
	MoveRemove: "remove",
}

func (k MoveKind) String() string {
	if s, ok := moveKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("MoveKind(%d)", int(k))
}

// MoveWeights sets the relative frequency of each move family. Exchange
// covers both insertion and removal; which one applies depends on whether
// the chosen instance is in the reservoir.
type MoveWeights struct {
	Hop      float64 `yaml:"hop" json:"hop"`
	Jump     float64 `yaml:"jump" json:"jump"`
	Exchange float64 `yaml:"exchange" json:"exchange"`
}

// DefaultMoveWeights proposes nearest-neighbour hops only.
func DefaultMoveWeights() MoveWeights {
	return MoveWeights{Hop: 1}
}

// IsZero reports whether no move family is enabled.
func (w MoveWeights) IsZero() bool {
	return w.Hop == 0 && w.Jump == 0 && w.Exchange == 0
}

// Validate checks that weights are finite, non-negative and not all zero.
func (w MoveWeights) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"hop", w.Hop}, {"jump", w.Jump}, {"exchange", w.Exchange}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return configErrorf("moves."+f.name, ErrInvalidParameter, "must be a finite non-negative number, got %v", f.v)
		}
	}
	if w.IsZero() {
		return configErrorf("moves", ErrInvalidParameter, "at least one move weight must be positive")
	}
	return nil
}

// families returns the enabled families in fixed order with cumulative weights.
func (w MoveWeights) families() ([]MoveKind, []float64) {
	var kinds []MoveKind
	var cum []float64
	total := 0.0
	for _, f := range []struct {
		kind MoveKind
		w    float64
	}{{MoveHop, w.Hop}, {MoveJump, w.Jump}, {MoveInsert, w.Exchange}} {
		if f.w <= 0 {
			continue
		}
		total += f.w
		kinds = append(kinds, f.kind)
		cum = append(cum, total)
	}
	for i := range cum {
		cum[i] /= total
	}
	return kinds, cum
}
