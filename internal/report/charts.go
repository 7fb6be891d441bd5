package report

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/equipment.report/internal/equipment"
	"github.com/banshee-data/equipment.report/internal/stats"
)

// Palette colours, shared by the static and interactive charts.
var (
	chartPalette = []string{"#818cf8", "#34d399", "#a78bfa", "#fb923c", "#fbbf24", "#38bdf8"}

	colorPrimary   = "#10b981"
	colorSecondary = "#334155"
	colorAccentRed = "#ef4444"
	colorAccent    = "#3b82f6"
	colorLightBg   = "#f8fafc"
	colorBorder    = "#e2e8f0"
)

// Chart image names inside the workspace.
const (
	ChartTypeBar    = "type_distribution_bar.png"
	ChartTypePie    = "type_distribution_pie.png"
	ChartComparison = "measurement_comparison.png"
)

// ChartRenderer renders the chart set for a dataset into a workspace.
type ChartRenderer interface {
	RenderCharts(ws *Workspace, ds *equipment.Dataset) ([]Chart, error)
}

// PlotRenderer renders PNG charts with gonum/plot.
type PlotRenderer struct {
	Width  vg.Length
	Height vg.Length
}

func (r PlotRenderer) size() (vg.Length, vg.Length) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = 7 * vg.Inch
	}
	if h <= 0 {
		h = 4 * vg.Inch
	}
	return w, h
}

// RenderCharts draws the type-count bar, type-count pie and min/avg/max
// comparison charts.
func (r PlotRenderer) RenderCharts(ws *Workspace, ds *equipment.Dataset) ([]Chart, error) {
	dist := ds.Summary.TypeDistribution
	if len(dist) == 0 {
		return nil, fmt.Errorf("dataset %s has no type distribution", ds.ID)
	}
	types := stats.SortedTypes(dist)
	counts := make([]float64, len(types))
	for i, t := range types {
		counts[i] = float64(dist[t])
	}

	builders := []struct {
		chart Chart
		build func() (*plot.Plot, error)
	}{
		{Chart{Title: "Equipment Type Distribution", File: ChartTypeBar}, func() (*plot.Plot, error) { return typeBarPlot(types, counts) }},
		{Chart{Title: "Type Distribution Breakdown", File: ChartTypePie}, func() (*plot.Plot, error) { return typePiePlot(types, counts) }},
		{Chart{Title: "Parameter Comparison Analysis", File: ChartComparison}, func() (*plot.Plot, error) { return comparisonPlot(ds.Summary) }},
	}

	w, h := r.size()
	charts := make([]Chart, 0, len(builders))
	for _, b := range builders {
		p, err := b.build()
		if err != nil {
			return nil, fmt.Errorf("failed to build %s: %w", b.chart.File, err)
		}
		if err := savePlot(ws, p, w, h, b.chart.File); err != nil {
			return nil, err
		}
		charts = append(charts, b.chart)
	}
	return charts, nil
}

func savePlot(ws *Workspace, p *plot.Plot, w, h vg.Length, name string) error {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	f, err := ws.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	return nil
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Color = hexColor(colorSecondary)
	p.BackgroundColor = color.White
	return p
}

func typeBarPlot(types []string, counts []float64) (*plot.Plot, error) {
	p := newPlot("Equipment Type Distribution")
	p.X.Label.Text = "Equipment Type"
	p.Y.Label.Text = "Count"
	p.Y.Min = 0

	// One single-value bar per type so each gets its own palette colour.
	for i, c := range counts {
		bar, err := plotter.NewBarChart(plotter.Values{c}, vg.Points(28))
		if err != nil {
			return nil, err
		}
		bar.XMin = float64(i)
		bar.Color = paletteColor(i)
		bar.LineStyle.Width = 0
		p.Add(bar)
	}
	p.Add(plotter.NewGrid())
	p.NominalX(types...)
	return p, nil
}

func typePiePlot(types []string, counts []float64) (*plot.Plot, error) {
	var total float64
	for _, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("negative count %v", c)
		}
		total += c
	}
	if total == 0 {
		return nil, fmt.Errorf("pie chart needs at least one non-zero count")
	}

	p := newPlot("Type Distribution Breakdown")
	p.HideAxes()
	pie := &pieChart{Values: counts, Total: total}
	p.Add(pie)
	p.Legend.Top = true
	for i, t := range types {
		p.Legend.Add(t, swatch{paletteColor(i)})
	}
	return p, nil
}

func comparisonPlot(s equipment.Summary) (*plot.Plot, error) {
	p := newPlot("Parameter Comparison (Min/Avg/Max)")
	p.Y.Label.Text = "Value"

	series := []struct {
		name string
		col  string
		pick func(equipment.MeasurementSummary) float64
	}{
		{"Min", colorAccent, func(m equipment.MeasurementSummary) float64 { return m.Min }},
		{"Avg", colorPrimary, func(m equipment.MeasurementSummary) float64 { return m.Avg }},
		{"Max", colorAccentRed, func(m equipment.MeasurementSummary) float64 { return m.Max }},
	}

	w := vg.Points(18)
	for i, sr := range series {
		vals := make(plotter.Values, len(equipment.NumericColumns))
		for j, col := range equipment.NumericColumns {
			vals[j] = sr.pick(s.Measurement(col))
		}
		bar, err := plotter.NewBarChart(vals, w)
		if err != nil {
			return nil, err
		}
		bar.Color = hexColor(sr.col)
		bar.LineStyle.Width = 0
		bar.Offset = vg.Length(i-1) * w
		p.Add(bar)
		p.Legend.Add(sr.name, bar)
	}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	p.NominalX(equipment.NumericColumns...)
	return p, nil
}

// pieChart draws slices clockwise from twelve o'clock with percentage
// labels. gonum/plot has no pie plotter of its own.
type pieChart struct {
	Values []float64
	Total  float64
}

func (pc *pieChart) Plot(c draw.Canvas, plt *plot.Plot) {
	size := c.Size()
	radius := vg.Length(math.Min(float64(size.X), float64(size.Y))) * 0.45
	center := vg.Point{X: (c.Min.X + c.Max.X) / 2, Y: (c.Min.Y + c.Max.Y) / 2}

	sty := plt.Legend.TextStyle
	sty.Color = color.White
	sty.XAlign = text.XCenter
	sty.YAlign = text.YCenter

	start := math.Pi / 2
	for i, v := range pc.Values {
		if v == 0 {
			continue
		}
		sweep := 2 * math.Pi * v / pc.Total
		var path vg.Path
		path.Move(center)
		path.Arc(center, radius, start, -sweep)
		path.Close()
		c.SetColor(paletteColor(i))
		c.Fill(path)

		mid := start - sweep/2
		at := vg.Point{
			X: center.X + radius*0.6*vg.Length(math.Cos(mid)),
			Y: center.Y + radius*0.6*vg.Length(math.Sin(mid)),
		}
		c.FillText(sty, at, fmt.Sprintf("%.1f%%", 100*v/pc.Total))
		start -= sweep
	}
}

// swatch is a solid legend entry.
type swatch struct{ color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.Color, pts)
}

func paletteColor(i int) color.RGBA {
	return hexColor(chartPalette[i%len(chartPalette)])
}

// hexColor parses "#rrggbb". Malformed input yields opaque black.
func hexColor(s string) color.RGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil || len(strings.TrimPrefix(s, "#")) != 6 {
		return color.RGBA{A: 0xff}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
