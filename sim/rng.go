package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical accept/reject sequences.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemPlacement is the RNG subsystem for initial random placement.
	SubsystemPlacement = "placement"

	// SubsystemMoves is the RNG subsystem for move proposals and the
	// Metropolis test.
	SubsystemMoves = "moves"

	// SubsystemOptimizer is the RNG subsystem for box-size search runs.
	SubsystemOptimizer = "optimizer"
)

// SubsystemReplica returns the subsystem name of stream kind for one
// replica of one composition. Every (system, replica, kind) triple gets its
// own stream so replicas never share state.
func SubsystemReplica(kind string, system, replica int) string {
	return fmt.Sprintf("system_%d/replica_%d/%s", system, replica, kind)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Derive every stream before handing them to
// replica goroutines; each returned *rand.Rand then belongs to one goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.SeedFor(name)))
	p.subsystems[name] = rng
	return rng
}

// SeedFor returns the derived seed of a subsystem without creating a stream.
func (p *PartitionedRNG) SeedFor(name string) int64 {
	return int64(p.key) ^ fnv1a64(name)
}

// ReplicaStreams returns the placement and move streams of one replica of
// one composition.
func (p *PartitionedRNG) ReplicaStreams(system, replica int) (placement, moves *rand.Rand) {
	return p.ForSubsystem(SubsystemReplica(SubsystemPlacement, system, replica)),
		p.ForSubsystem(SubsystemReplica(SubsystemMoves, system, replica))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
