// Package results holds the terminal state of a run (occupancy snapshots and
// aggregated binding statistics) and persists it as JSON.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/hgana/hgana/sim"
)

// Distribution captures the spread of a per-replica quantity.
type Distribution struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"` // population standard deviation across replicas
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// NewDistribution computes a Distribution from raw values.
// Returns zero-value Distribution for empty input.
func NewDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mean, std := stat.PopMeanStdDev(sorted, nil)
	return Distribution{
		Mean:   mean,
		Std:    std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Count:  len(sorted),
	}
}

// PairSummary aggregates one binding pair over all replicas of a system.
type PairSummary struct {
	Host  string `json:"host"`
	Guest string `json:"guest"`
	// BoundFraction is taken over each replica's production bound fraction.
	BoundFraction Distribution `json:"bound_fraction"`
	// WindowMean and WindowStd pool the window means of every replica.
	WindowMean float64 `json:"window_mean"`
	WindowStd  float64 `json:"window_std"`
	Windows    int     `json:"windows"`
}

// SystemResult is the outcome of one composition.
type SystemResult struct {
	Index      int                  `json:"index"`
	Counts     map[string]int       `json:"counts"`
	Acceptance Distribution         `json:"acceptance"` // production acceptance fraction per replica
	Pairs      []PairSummary        `json:"pairs"`
	Replicas   []*sim.ReplicaResult `json:"replicas"`
}

// Result is the persisted terminal state of a run.
type Result struct {
	RunID    string         `json:"run_id"`
	Created  time.Time      `json:"created"`
	Duration time.Duration  `json:"duration_ns"`
	Spec     sim.SystemSpec `json:"spec"`
	Systems  []SystemResult `json:"systems"`
}

// Summarize builds the SystemResult of one composition from its replicas.
// Replicas must share the same System.
func Summarize(index int, sys *sim.System, replicas []*sim.ReplicaResult) SystemResult {
	sr := SystemResult{
		Index:    index,
		Counts:   make(map[string]int, sys.Registry.Len()),
		Replicas: replicas,
	}
	for t := 0; t < sys.Registry.Len(); t++ {
		sr.Counts[sys.Registry.Name(sim.TypeID(t))] = sys.Counts[t]
	}
	acc := make([]float64, len(replicas))
	for i, r := range replicas {
		acc[i] = r.Production.AcceptanceFraction()
	}
	sr.Acceptance = NewDistribution(acc)

	for pi, p := range sys.Pairs {
		ps := PairSummary{Host: sys.Registry.Name(p.Host), Guest: sys.Registry.Name(p.Guest)}
		fractions := make([]float64, len(replicas))
		var means []float64
		for i, r := range replicas {
			fractions[i] = r.BoundFraction(pi)
			for _, w := range r.Pairs[pi].Windows {
				means = append(means, w.Mean)
			}
		}
		ps.BoundFraction = NewDistribution(fractions)
		ps.Windows = len(means)
		if len(means) > 0 {
			ps.WindowMean, ps.WindowStd = stat.PopMeanStdDev(means, nil)
		}
		sr.Pairs = append(sr.Pairs, ps)
	}
	return sr
}

// Pair returns the summary of the host/guest pair, if tracked.
func (s *SystemResult) Pair(host, guest string) (PairSummary, int, bool) {
	for i, p := range s.Pairs {
		if p.Host == host && p.Guest == guest {
			return p, i, true
		}
	}
	return PairSummary{}, -1, false
}

// Save writes the result as indented JSON. The file is replaced atomically.
func Save(path string, r *Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing result: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming result: %w", err)
	}
	return nil
}

// Load reads a result written by Save.
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return &r, nil
}
