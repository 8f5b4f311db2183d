package sim

import (
	"math"
	"math/rand"
	"testing"
)

// === SimulationKey Tests ===

func TestSimulationKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewSimulationKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewSimulationKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// BDD: Same key+name produces same sequence
	rng1 := NewPartitionedRNG(NewSimulationKey(42))
	rng2 := NewPartitionedRNG(NewSimulationKey(42))

	name := SubsystemReplica(SubsystemMoves, 0, 3)
	for i := 0; i < 3; i++ {
		v1 := rng1.ForSubsystem(name).Float64()
		v2 := rng2.ForSubsystem(name).Float64()
		if v1 != v2 {
			t.Errorf("Value %d: got %v and %v, want identical", i, v1, v2)
		}
	}
}

func TestPartitionedRNG_ReplicaIsolation(t *testing.T) {
	// BDD: Drawing from replica 0 doesn't affect replica 1
	rngA := NewPartitionedRNG(NewSimulationKey(42))
	rngB := NewPartitionedRNG(NewSimulationKey(42))

	r0 := SubsystemReplica(SubsystemMoves, 0, 0)
	r1 := SubsystemReplica(SubsystemMoves, 0, 1)

	for i := 0; i < 10; i++ {
		rngA.ForSubsystem(r0).Float64()
	}
	aFirst := rngA.ForSubsystem(r1).Float64()
	bFirst := rngB.ForSubsystem(r1).Float64()

	if aFirst != bFirst {
		t.Errorf("replica 1 first value = %v, want %v (isolation broken)", aFirst, bFirst)
	}
}

func TestPartitionedRNG_ReplicasDiffer(t *testing.T) {
	// BDD: Two replicas of the same system get different streams
	rng := NewPartitionedRNG(NewSimulationKey(7))
	a := rng.ForSubsystem(SubsystemReplica(SubsystemMoves, 0, 0))
	b := rng.ForSubsystem(SubsystemReplica(SubsystemMoves, 0, 1))

	same := true
	for i := 0; i < 8; i++ {
		if a.Int63() != b.Int63() {
			same = false
		}
	}
	if same {
		t.Error("replica streams produced identical sequences")
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	// BDD: Same name returns same *rand.Rand instance
	rng := NewPartitionedRNG(NewSimulationKey(42))

	rng1 := rng.ForSubsystem(SubsystemPlacement)
	rng2 := rng.ForSubsystem(SubsystemPlacement)

	if rng1 != rng2 {
		t.Error("ForSubsystem returned different instances for same name")
	}
}

func TestPartitionedRNG_SeedForMatchesStream(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(99))
	name := SubsystemReplica(SubsystemPlacement, 2, 5)

	direct := newRandFromSeed(rng.SeedFor(name))
	stream := rng.ForSubsystem(name)
	for i := 0; i < 5; i++ {
		if got, want := stream.Float64(), direct.Float64(); got != want {
			t.Errorf("Value %d: stream = %v, direct = %v", i, got, want)
		}
	}
}

func TestPartitionedRNG_ReplicaStreams(t *testing.T) {
	// BDD: ReplicaStreams returns the named placement and move streams
	rng := NewPartitionedRNG(NewSimulationKey(3))
	placement, moves := rng.ReplicaStreams(1, 2)

	if placement != rng.ForSubsystem(SubsystemReplica(SubsystemPlacement, 1, 2)) {
		t.Error("placement stream is not the cached replica placement stream")
	}
	if moves != rng.ForSubsystem(SubsystemReplica(SubsystemMoves, 1, 2)) {
		t.Error("moves stream is not the cached replica moves stream")
	}
	if placement == moves {
		t.Error("placement and moves share one stream")
	}
}

func TestPartitionedRNG_Key(t *testing.T) {
	seed := int64(12345)
	rng := NewPartitionedRNG(NewSimulationKey(seed))

	if rng.Key() != SimulationKey(seed) {
		t.Errorf("Key() = %v, want %v", rng.Key(), seed)
	}
}

func TestPartitionedRNG_NegativeSeed(t *testing.T) {
	// BDD: MinInt64 seed works correctly
	rng := NewPartitionedRNG(NewSimulationKey(math.MinInt64))

	moves := rng.ForSubsystem(SubsystemMoves)
	if moves == nil {
		t.Fatal("ForSubsystem returned nil with MinInt64 seed")
	}
	val := moves.Float64()
	if val < 0 || val >= 1 {
		t.Errorf("Float64() returned %v, want [0, 1)", val)
	}
}

func TestPartitionedRNG_LazyInitialization(t *testing.T) {
	// BDD: Subsystems map is empty until ForSubsystem is called
	rng := NewPartitionedRNG(NewSimulationKey(42))

	if len(rng.subsystems) != 0 {
		t.Errorf("New PartitionedRNG has %d subsystems, want 0", len(rng.subsystems))
	}

	rng.ForSubsystem(SubsystemMoves)

	if len(rng.subsystems) != 1 {
		t.Errorf("After one ForSubsystem call, have %d subsystems, want 1", len(rng.subsystems))
	}
}

// === fnv1a64 Tests ===

func TestFnv1a64_Collision(t *testing.T) {
	// Different subsystem names should produce different hashes (spot check)
	names := []string{
		SubsystemPlacement,
		SubsystemMoves,
		SubsystemOptimizer,
		SubsystemReplica(SubsystemMoves, 0, 0),
		SubsystemReplica(SubsystemMoves, 0, 1),
		SubsystemReplica(SubsystemMoves, 1, 0),
		SubsystemReplica(SubsystemPlacement, 0, 0),
		"",
	}

	hashes := make(map[int64]string)
	for _, name := range names {
		h := fnv1a64(name)
		if existing, ok := hashes[h]; ok {
			t.Errorf("Hash collision: %q and %q both hash to %d", name, existing, h)
		}
		hashes[h] = name
	}
}

func TestSubsystemReplica(t *testing.T) {
	tests := []struct {
		kind            string
		system, replica int
		want            string
	}{
		{SubsystemMoves, 0, 0, "system_0/replica_0/moves"},
		{SubsystemPlacement, 3, 12, "system_3/replica_12/placement"},
	}

	for _, tt := range tests {
		got := SubsystemReplica(tt.kind, tt.system, tt.replica)
		if got != tt.want {
			t.Errorf("SubsystemReplica(%q, %d, %d) = %q, want %q", tt.kind, tt.system, tt.replica, got, tt.want)
		}
	}
}

// === Benchmark ===

func BenchmarkPartitionedRNG_ForSubsystem_CacheHit(b *testing.B) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	rng.ForSubsystem(SubsystemMoves)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rng.ForSubsystem(SubsystemMoves)
	}
}

// === Helper ===

// newRandFromSeed creates a *rand.Rand with the given seed.
func newRandFromSeed(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
