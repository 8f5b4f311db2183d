// Package trace provides per-step move recording for replica runs.
// This package has no dependencies on sim/ or sim/ensemble/; it stores pure data types.
package trace

// StepRecord captures a single elementary MC step.
type StepRecord struct {
	Phase    string  `json:"phase"`
	Step     int64   `json:"step"` // 0-based within the phase
	Kind     string  `json:"kind"` // hop, jump, insert, remove, none
	Instance int     `json:"instance"`
	From     int     `json:"from"` // -1 = reservoir
	To       int     `json:"to"`   // -1 = reservoir
	DeltaE   float64 `json:"delta_e"`
	Accepted bool    `json:"accepted"`
}
