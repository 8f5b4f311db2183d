package trace

// TraceLevel controls the verbosity of step tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelSteps captures every proposal with its outcome.
	TraceLevelSteps TraceLevel = "steps"
)

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	Every int64 // keep every n-th step of a phase; <= 1 keeps all
}

// SimulationTrace collects step records during one replica run.
type SimulationTrace struct {
	Config TraceConfig
	Steps  []StepRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Steps:  make([]StepRecord, 0),
	}
}

// Enabled reports whether records are kept. Safe on a nil trace.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelSteps
}

// Wants reports whether the step at 0-based index step of a phase is kept.
func (st *SimulationTrace) Wants(step int64) bool {
	if !st.Enabled() {
		return false
	}
	return st.Config.Every <= 1 || step%st.Config.Every == 0
}

// RecordStep appends a step record when tracing is enabled.
func (st *SimulationTrace) RecordStep(record StepRecord) {
	if !st.Enabled() {
		return
	}
	st.Steps = append(st.Steps, record)
}

// Decisions returns the accept/reject sequence of the recorded steps.
func (st *SimulationTrace) Decisions() []bool {
	if st == nil {
		return nil
	}
	out := make([]bool, len(st.Steps))
	for i, s := range st.Steps {
		out[i] = s.Accepted
	}
	return out
}
