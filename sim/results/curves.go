package results

import (
	"fmt"
	"sort"
)

// Quantity selects the y value of an isotherm point.
type Quantity string

const (
	// QuantityProbability plots the mean bound fraction p_b.
	QuantityProbability Quantity = "pb"
	// QuantityBound plots p_b times the host count.
	QuantityBound Quantity = "bound"
	// QuantityUnbound plots (1 - p_b) times the host count.
	QuantityUnbound Quantity = "unbound"
)

// validQuantities maps accepted quantity names.
var validQuantities = map[Quantity]bool{
	QuantityProbability: true,
	QuantityBound:       true,
	QuantityUnbound:     true,
}

// IsValidQuantity reports whether name is a recognized isotherm quantity.
func IsValidQuantity(name string) bool {
	return validQuantities[Quantity(name)]
}

// Series is one plotted line.
type Series struct {
	Label string    `json:"label"`
	X     []float64 `json:"x"`
	Y     []float64 `json:"y"`
	Err   []float64 `json:"err,omitempty"`
}

// IsothermQuery selects the data of an isotherm.
type IsothermQuery struct {
	Host, Guest string
	X           string   // molecule whose count is the x axis
	GroupBy     string   // molecule whose count splits series; empty = one series
	Quantity    Quantity // default QuantityProbability
}

// Isotherm returns, for each GroupBy count, the chosen quantity against the
// count of molecule X. Points within a series are sorted by x.
func Isotherm(r *Result, q IsothermQuery) ([]Series, error) {
	if q.Quantity == "" {
		q.Quantity = QuantityProbability
	}
	if !validQuantities[q.Quantity] {
		return nil, fmt.Errorf("unknown quantity %q; valid: pb, bound, unbound", q.Quantity)
	}
	groups := make(map[int]*Series)
	for i := range r.Systems {
		s := &r.Systems[i]
		pair, _, ok := s.Pair(q.Host, q.Guest)
		if !ok {
			return nil, fmt.Errorf("system %d does not track pair (%s,%s)", s.Index, q.Host, q.Guest)
		}
		x, ok := s.Counts[q.X]
		if !ok {
			return nil, fmt.Errorf("unknown molecule %q", q.X)
		}
		key := 0
		label := fmt.Sprintf("p_b(%s,%s)", q.Host, q.Guest)
		if q.GroupBy != "" {
			if key, ok = s.Counts[q.GroupBy]; !ok {
				return nil, fmt.Errorf("unknown molecule %q", q.GroupBy)
			}
			label = fmt.Sprintf("%s=%d", q.GroupBy, key)
		}
		pb := pair.BoundFraction.Mean
		y, e := pb, pair.BoundFraction.Std
		hosts := float64(s.Counts[q.Host])
		switch q.Quantity {
		case QuantityBound:
			y, e = pb*hosts, e*hosts
		case QuantityUnbound:
			y, e = (1-pb)*hosts, e*hosts
		}
		ser, ok := groups[key]
		if !ok {
			ser = &Series{Label: label}
			groups[key] = ser
		}
		ser.X = append(ser.X, float64(x))
		ser.Y = append(ser.Y, y)
		ser.Err = append(ser.Err, e)
	}
	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]Series, 0, len(keys))
	for _, k := range keys {
		ser := groups[k]
		sortSeries(ser)
		out = append(out, *ser)
	}
	return out, nil
}

// BindingCurve returns the window means of a pair for one system, averaged
// across replicas window by window, against the production step at which
// each window closed.
func BindingCurve(r *Result, system int, host, guest string) (Series, error) {
	if system < 0 || system >= len(r.Systems) {
		return Series{}, fmt.Errorf("system %d out of range [0,%d)", system, len(r.Systems))
	}
	s := &r.Systems[system]
	_, pi, ok := s.Pair(host, guest)
	if !ok {
		return Series{}, fmt.Errorf("system %d does not track pair (%s,%s)", system, host, guest)
	}
	ser := Series{Label: fmt.Sprintf("p_b(%s,%s)", host, guest)}
	n := -1
	for _, rep := range s.Replicas {
		if w := len(rep.Pairs[pi].Windows); n < 0 || w < n {
			n = w
		}
	}
	for w := 0; w < n; w++ {
		sum := 0.0
		for _, rep := range s.Replicas {
			sum += rep.Pairs[pi].Windows[w].Mean
		}
		ser.X = append(ser.X, float64(s.Replicas[0].Pairs[pi].Windows[w].EndStep+1))
		ser.Y = append(ser.Y, sum/float64(len(s.Replicas)))
	}
	return ser, nil
}

func sortSeries(s *Series) {
	idx := make([]int, len(s.X))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return s.X[idx[a]] < s.X[idx[b]] })
	x, y, e := make([]float64, len(idx)), make([]float64, len(idx)), make([]float64, len(idx))
	for i, j := range idx {
		x[i], y[i], e[i] = s.X[j], s.Y[j], s.Err[j]
	}
	s.X, s.Y, s.Err = x, y, e
}
