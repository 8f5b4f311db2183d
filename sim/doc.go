// Package sim provides the grid-based Monte Carlo engine for host-guest
// adsorption.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - grid.go: cubic lattice with precomputed contact neighbourhoods
//   - occupancy.go: the bidirectional cell <-> instance map of one replica
//   - engine.go: one Metropolis step (propose, evaluate ΔE, accept or reject)
//   - simulator.go: equilibration and production phases of one replica
//
// # Architecture
//
// A System (grid, type registry, interaction table, binding pairs) is built
// once per composition and shared read-only. Every replica owns its
// Occupancy, its RNG streams and its statistics, so replicas run on separate
// goroutines without locking.
//
// Sub-packages build on the kernel:
//   - sim/ensemble/: composition sweeps and parallel replicas
//   - sim/results/: aggregation, persistence and curve extraction
//   - sim/progress/: text and websocket progress sinks
//   - sim/plot/: PNG rendering of isotherms and binding curves
//   - sim/boxopt/: box-size search for a target bound fraction
//   - sim/trace/: per-step move recording
//
// # Randomness
//
// All randomness flows from PartitionedRNG. Each named subsystem gets a
// stream seeded from the master seed and the subsystem name, so a replica's
// trajectory depends only on (seed, composition, replica) and never on
// scheduling.
package sim
