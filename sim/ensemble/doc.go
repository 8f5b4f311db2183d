// Package ensemble orchestrates multi-replica Monte Carlo runs.
//
// An Ensemble expands a sim.SystemSpec into its compositions (the cartesian
// product of every molecule's count options), builds one immutable
// sim.System per composition and R replicas per system. Each replica owns an
// Occupancy and two RNG streams derived from the run seed:
//
//	system_<s>/replica_<r>/placement
//	system_<s>/replica_<r>/moves
//
// Replicas run on an errgroup-bounded worker pool and share nothing mutable.
// errgroup.Wait is the only synchronization point; after it, per-replica
// production bound fractions are reduced to mean and standard deviation.
package ensemble
