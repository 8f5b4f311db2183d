// Package plot renders result curves as PNG charts.
package plot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/hgana/hgana/sim/results"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

// Options controls chart size and labels.
type Options struct {
	Title      string
	XLabel     string
	YLabel     string
	Width      int  // default 1024
	Height     int  // default 640
	ErrorBands bool // draw mean ± err as dashed lines when Err is set
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = 1024
	}
	if o.Height == 0 {
		o.Height = 640
	}
	return o
}

// Render draws every series onto one chart and writes it as PNG.
func Render(w io.Writer, series []results.Series, opts Options) error {
	opts = opts.withDefaults()
	var cs []chart.Series
	var xs, ys []float64
	for i, s := range series {
		if len(s.X) == 0 {
			continue
		}
		if len(s.X) != len(s.Y) {
			return fmt.Errorf("series %q: %d x values for %d y values", s.Label, len(s.X), len(s.Y))
		}
		color := chart.GetDefaultColor(i)
		cs = append(cs, chart.ContinuousSeries{
			Name:    s.Label,
			XValues: s.X,
			YValues: s.Y,
			Style:   chart.Style{StrokeColor: color, StrokeWidth: 3.0, DotColor: color, DotWidth: 4.0},
		})
		xs = append(xs, s.X...)
		ys = append(ys, s.Y...)
		if opts.ErrorBands && len(s.Err) == len(s.Y) {
			lo, hi := make([]float64, len(s.Y)), make([]float64, len(s.Y))
			for j := range s.Y {
				lo[j], hi[j] = s.Y[j]-s.Err[j], s.Y[j]+s.Err[j]
			}
			band := chart.Style{StrokeColor: color.WithAlpha(128), StrokeWidth: 1.0, StrokeDashArray: []float64{5.0, 5.0}}
			cs = append(cs,
				chart.ContinuousSeries{XValues: s.X, YValues: lo, Style: band},
				chart.ContinuousSeries{XValues: s.X, YValues: hi, Style: band},
			)
			ys = append(ys, lo...)
			ys = append(ys, hi...)
		}
	}
	if len(cs) == 0 {
		return ErrNoData
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  opts.XLabel,
			Style: chart.Style{FontSize: 10.0},
			Range: axisRange(xs),
		},
		YAxis: chart.YAxis{
			Name:  opts.YLabel,
			Style: chart.Style{FontSize: 10.0},
			Range: axisRange(ys),
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.3g", v.(float64))
			},
		},
		Series: cs,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.PNG, w)
}

// axisRange pads a degenerate range so single-valued data still renders.
func axisRange(v []float64) chart.Range {
	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if hi == lo {
		lo, hi = lo-1, hi+1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

// SaveFile renders series into a PNG file, creating parent directories.
func SaveFile(path string, series []results.Series, opts Options) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating plot directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating plot file: %w", err)
	}
	if err := Render(f, series, opts); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Isotherm renders an isotherm query of r.
func Isotherm(w io.Writer, r *results.Result, q results.IsothermQuery, opts Options) error {
	series, err := results.Isotherm(r, q)
	if err != nil {
		return err
	}
	if opts.XLabel == "" {
		opts.XLabel = "N(" + q.X + ")"
	}
	if opts.YLabel == "" {
		opts.YLabel = string(q.Quantity)
		if opts.YLabel == "" {
			opts.YLabel = string(results.QuantityProbability)
		}
	}
	return Render(w, series, opts)
}

// BindingCurve renders the windowed bound fraction of one system over
// production steps.
func BindingCurve(w io.Writer, r *results.Result, system int, host, guest string, opts Options) error {
	s, err := results.BindingCurve(r, system, host, guest)
	if err != nil {
		return err
	}
	if opts.XLabel == "" {
		opts.XLabel = "production step"
	}
	if opts.YLabel == "" {
		opts.YLabel = "p_b"
	}
	return Render(w, []results.Series{s}, opts)
}
