package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReplicaTrace is the recorded step sequence of one replica.
type ReplicaTrace struct {
	System  int          `json:"system"`
	Replica int          `json:"replica"`
	Every   int64        `json:"every"`
	Steps   []StepRecord `json:"steps"`
}

// PathFor returns the trace file written next to a result file:
// "out/run.json" becomes "out/run.trace.json".
func PathFor(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".trace.json"
}

// Save writes the traces as indented JSON.
func Save(path string, traces []ReplicaTrace) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating trace directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(traces); err != nil {
		f.Close()
		return fmt.Errorf("writing trace: %w", err)
	}
	return f.Close()
}

// Load reads a trace file written by Save.
func Load(path string) ([]ReplicaTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	var traces []ReplicaTrace
	if err := json.Unmarshal(data, &traces); err != nil {
		return nil, fmt.Errorf("decoding trace: %w", err)
	}
	return traces, nil
}
