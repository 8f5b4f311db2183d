package trace

// KindSummary counts proposals and acceptances of one move kind.
type KindSummary struct {
	Proposed int64 `json:"proposed"`
	Accepted int64 `json:"accepted"`
}

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalSteps    int                    `json:"total_steps"`
	AcceptedCount int                    `json:"accepted"`
	RejectedCount int                    `json:"rejected"`
	MeanDeltaE    float64                `json:"mean_accepted_delta_e"`
	MaxDeltaE     float64                `json:"max_accepted_delta_e"`
	ByKind        map[string]KindSummary `json:"by_kind"`
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	return summarize(st, func(StepRecord) bool { return true })
}

// SummarizePhase is Summarize restricted to the records of one phase.
func SummarizePhase(st *SimulationTrace, phase string) *TraceSummary {
	return summarize(st, func(s StepRecord) bool { return s.Phase == phase })
}

func summarize(st *SimulationTrace, keep func(StepRecord) bool) *TraceSummary {
	summary := &TraceSummary{
		ByKind: make(map[string]KindSummary),
	}
	if st == nil {
		return summary
	}

	total := 0.0
	for _, s := range st.Steps {
		if !keep(s) {
			continue
		}
		summary.TotalSteps++
		k := summary.ByKind[s.Kind]
		k.Proposed++
		if s.Accepted {
			k.Accepted++
			summary.AcceptedCount++
			total += s.DeltaE
			if summary.AcceptedCount == 1 || s.DeltaE > summary.MaxDeltaE {
				summary.MaxDeltaE = s.DeltaE
			}
		} else {
			summary.RejectedCount++
		}
		summary.ByKind[s.Kind] = k
	}
	if summary.AcceptedCount > 0 {
		summary.MeanDeltaE = total / float64(summary.AcceptedCount)
	}
	return summary
}
