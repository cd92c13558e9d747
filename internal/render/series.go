// Package render draws the bill length/depth scatter plot as SVG or PNG.
package render

import (
	"math"
	"sort"

	"penguindash/internal/penguins"
)

// Palette assigns each known species a fixed colour.
var Palette = map[string]string{
	penguins.SpeciesAdelie:    "#4C72B0",
	penguins.SpeciesGentoo:    "#DD8452",
	penguins.SpeciesChinstrap: "#55A868",
}

// fallback colours for species outside the palette, cycled in order.
var fallback = []string{"#C44E52", "#8172B3", "#937860", "#DA8BC3", "#8C8C8C"}

// Point is one plotted observation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series groups the points of one species.
type Series struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Points []Point `json:"points"`
}

// Rows is the record sequence a plot is built from.
type Rows interface {
	Len() int
	At(i int) penguins.Record
}

// SeriesFromRows groups rows by species into bill length (x) against bill
// depth (y). Rows missing either measurement or the species are skipped.
// Known species come first in control order, then others by name; species
// with no plottable rows are omitted.
func SeriesFromRows(rows Rows) []Series {
	points := make(map[string][]Point)
	for i := 0; i < rows.Len(); i++ {
		r := rows.At(i)
		if r.Species == "" || !r.BillLengthMM.Valid || !r.BillDepthMM.Valid {
			continue
		}
		points[r.Species] = append(points[r.Species], Point{X: r.BillLengthMM.Float64, Y: r.BillDepthMM.Float64})
	}

	var names []string
	for _, s := range penguins.AllSpecies {
		if _, ok := points[s]; ok {
			names = append(names, s)
		}
	}
	var others []string
	for name := range points {
		if _, known := Palette[name]; !known {
			others = append(others, name)
		}
	}
	sort.Strings(others)
	names = append(names, others...)

	out := make([]Series, 0, len(names))
	unknown := 0
	for _, name := range names {
		color, ok := Palette[name]
		if !ok {
			color = fallback[unknown%len(fallback)]
			unknown++
		}
		out = append(out, Series{Name: name, Color: color, Points: points[name]})
	}
	return out
}

// Options control plot geometry and labels.
type Options struct {
	Width  int
	Height int
	Title  string
	XLabel string
	YLabel string
}

// DefaultOptions returns the dashboard's plot settings.
func DefaultOptions() Options {
	return Options{
		Width:  640,
		Height: 420,
		Title:  "Bill Length and Depth",
		XLabel: "Bill length (mm)",
		YLabel: "Bill depth (mm)",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

const (
	marginLeft   = 60
	marginRight  = 130
	marginTop    = 40
	marginBottom = 50
	pointRadius  = 3
)

// frame maps data coordinates to pixel coordinates.
type frame struct {
	opts           Options
	xTicks, yTicks []float64
	x0, x1, y0, y1 float64
	empty          bool
}

func newFrame(series []Series, opts Options) frame {
	f := frame{opts: opts, empty: true}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, p := range s.Points {
			f.empty = false
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if f.empty {
		f.x0, f.x1, f.y0, f.y1 = 0, 1, 0, 1
		return f
	}
	f.xTicks = niceTicks(minX, maxX, 6)
	f.yTicks = niceTicks(minY, maxY, 6)
	f.x0, f.x1 = f.xTicks[0], f.xTicks[len(f.xTicks)-1]
	f.y0, f.y1 = f.yTicks[0], f.yTicks[len(f.yTicks)-1]
	return f
}

func (f frame) left() int   { return marginLeft }
func (f frame) right() int  { return f.opts.Width - marginRight }
func (f frame) top() int    { return marginTop }
func (f frame) bottom() int { return f.opts.Height - marginBottom }

func (f frame) px(x float64) float64 {
	return float64(f.left()) + (x-f.x0)/(f.x1-f.x0)*float64(f.right()-f.left())
}

func (f frame) py(y float64) float64 {
	return float64(f.bottom()) - (y-f.y0)/(f.y1-f.y0)*float64(f.bottom()-f.top())
}

// niceTicks returns evenly spaced round values covering [lo, hi].
func niceTicks(lo, hi float64, target int) []float64 {
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	step := niceNum((hi-lo)/float64(target-1))
	start := math.Floor(lo/step) * step
	end := math.Ceil(hi/step) * step
	var ticks []float64
	for v := start; v <= end+step/2; v += step {
		ticks = append(ticks, math.Round(v/step)*step)
	}
	return ticks
}

// niceNum rounds x to 1, 2 or 5 times a power of ten.
func niceNum(x float64) float64 {
	exp := math.Floor(math.Log10(x))
	f := x / math.Pow(10, exp)
	var nf float64
	switch {
	case f < 1.5:
		nf = 1
	case f < 3:
		nf = 2
	case f < 7:
		nf = 5
	default:
		nf = 10
	}
	return nf * math.Pow(10, exp)
}
