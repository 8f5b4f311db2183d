package sim

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// BindingPair names a (host, guest) pair whose contact is tracked.
type BindingPair struct {
	Host  TypeID `json:"host"`
	Guest TypeID `json:"guest"`
}

func (p BindingPair) String() string {
	return fmt.Sprintf("(%d,%d)", p.Host, p.Guest)
}

// PrintSpec is the sampling cadence of the binding tracker: the bound
// predicate is sampled every SampleFrequency steps and collected into
// non-overlapping windows of WindowSize samples.
type PrintSpec struct {
	SampleFrequency int `yaml:"sample_frequency" json:"sample_frequency"`
	WindowSize      int `yaml:"window_size" json:"window_size"`
}

// DefaultPrintSpec samples every step in windows of 1000.
func DefaultPrintSpec() PrintSpec {
	return PrintSpec{SampleFrequency: 1, WindowSize: 1000}
}

// Validate checks that both values are positive.
func (p PrintSpec) Validate() error {
	if p.SampleFrequency < 1 {
		return configErrorf("print.sample_frequency", ErrInvalidParameter, "must be >= 1, got %d", p.SampleFrequency)
	}
	if p.WindowSize < 1 {
		return configErrorf("print.window_size", ErrInvalidParameter, "must be >= 1, got %d", p.WindowSize)
	}
	return nil
}

// IsBound reports whether any host instance sits adjacent to any guest
// instance. The smaller of the two placed populations is scanned.
func IsBound(occ *Occupancy, pair BindingPair) bool {
	scan, other := pair.Host, pair.Guest
	if occ.PlacedCount(other) < occ.PlacedCount(scan) {
		scan, other = other, scan
	}
	if occ.PlacedCount(scan) == 0 || occ.PlacedCount(other) == 0 {
		return false
	}
	g := occ.Grid()
	for _, inst := range occ.InstancesOfType(scan) {
		cell := occ.CellOf(inst)
		if cell == Reservoir {
			continue
		}
		for _, nb := range g.Neighbors(cell) {
			if t, ok := occ.TypeAt(nb); ok && t == other {
				return true
			}
		}
	}
	return false
}

// WindowStat summarizes one full window of 0/1 bound samples.
type WindowStat struct {
	EndStep int64   `json:"end_step"` // phase step index of the last sample
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"` // population standard deviation
}

// PairStats accumulates the binding statistics of one pair over a phase.
type PairStats struct {
	Pair         BindingPair  `json:"pair"`
	Windows      []WindowStat `json:"windows"`
	Samples      int64        `json:"samples"`
	BoundSamples int64        `json:"bound_samples"`
}

// BoundFraction is the fraction of all samples in which the pair was bound,
// partial trailing window included.
func (p *PairStats) BoundFraction() float64 {
	if p.Samples == 0 {
		return 0
	}
	return float64(p.BoundSamples) / float64(p.Samples)
}

// Latest returns the most recent full window.
func (p *PairStats) Latest() (WindowStat, bool) {
	if len(p.Windows) == 0 {
		return WindowStat{}, false
	}
	return p.Windows[len(p.Windows)-1], true
}

// WindowMeanStd returns the mean and population std of the window means.
func (p *PairStats) WindowMeanStd() (mean, std float64) {
	if len(p.Windows) == 0 {
		return 0, 0
	}
	means := make([]float64, len(p.Windows))
	for i, w := range p.Windows {
		means[i] = w.Mean
	}
	return stat.PopMeanStdDev(means, nil)
}

// BindingTracker samples the bound predicate of each pair and folds the
// samples into windowed statistics. A window that is not full when the
// phase ends is dropped from Windows; its samples still count in
// BoundFraction.
type BindingTracker struct {
	occ   *Occupancy
	spec  PrintSpec
	stats []PairStats
	buf   [][]float64
}

// NewBindingTracker validates pairs against the occupancy's registry.
func NewBindingTracker(occ *Occupancy, pairs []BindingPair, spec PrintSpec) (*BindingTracker, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	reg := occ.Registry()
	b := &BindingTracker{occ: occ, spec: spec}
	for i, p := range pairs {
		if !reg.Has(p.Host) {
			return nil, configErrorf(fmt.Sprintf("binding[%d].host", i), ErrUnknownType, "type %d", p.Host)
		}
		if !reg.Has(p.Guest) {
			return nil, configErrorf(fmt.Sprintf("binding[%d].guest", i), ErrUnknownType, "type %d", p.Guest)
		}
		b.stats = append(b.stats, PairStats{Pair: p})
		b.buf = append(b.buf, make([]float64, 0, spec.WindowSize))
	}
	return b, nil
}

// Observe is called after phase step index step (0-based) completed.
func (b *BindingTracker) Observe(step int64) {
	if step%int64(b.spec.SampleFrequency) != 0 {
		return
	}
	for i := range b.stats {
		s := &b.stats[i]
		v := 0.0
		if IsBound(b.occ, s.Pair) {
			v = 1
			s.BoundSamples++
		}
		s.Samples++
		b.buf[i] = append(b.buf[i], v)
		if len(b.buf[i]) == b.spec.WindowSize {
			mean, std := stat.PopMeanStdDev(b.buf[i], nil)
			s.Windows = append(s.Windows, WindowStat{EndStep: step, Mean: mean, Std: std})
			b.buf[i] = b.buf[i][:0]
		}
	}
}

// Pending returns the number of samples in the open window.
func (b *BindingTracker) Pending() int {
	if len(b.buf) == 0 {
		return 0
	}
	return len(b.buf[0])
}

// Finish drops the open partial window and returns how many samples it held.
func (b *BindingTracker) Finish() int {
	n := b.Pending()
	for i := range b.buf {
		b.buf[i] = b.buf[i][:0]
	}
	return n
}

// Reset discards everything observed so far.
func (b *BindingTracker) Reset() {
	for i := range b.stats {
		b.stats[i] = PairStats{Pair: b.stats[i].Pair}
		b.buf[i] = b.buf[i][:0]
	}
}

// Stats returns the per-pair statistics. The slice is shared until Reset.
func (b *BindingTracker) Stats() []PairStats { return b.stats }
