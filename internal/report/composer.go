// Package report turns a stored dataset into a multi-section document
// and renders it as PDF, XLSX or an interactive HTML chart page.
package report

import (
	"bytes"
	"fmt"
	"image/png"
	"strconv"
	"time"

	"github.com/banshee-data/equipment.report/internal/equipment"
	"github.com/banshee-data/equipment.report/internal/fsutil"
	"github.com/banshee-data/equipment.report/internal/monitoring"
	"github.com/banshee-data/equipment.report/internal/stats"
)

const (
	Title     = "Equipment Analytics Report"
	Generator = "Equipment Analytics"

	UploadTimeLayout = "January 2, 2006 at 15:04:05"
	FooterDateLayout = "January 2, 2006"

	DefaultDetailRows = 20
	DefaultNameWidth  = 25
)

// Composer builds report documents. The zero value is usable.
type Composer struct {
	// DetailRows caps the record detail table.
	DetailRows int
	// NameWidth is the maximum number of characters of an equipment
	// name shown in the detail table.
	NameWidth int
	// Charts renders the chart set. Nil means PlotRenderer.
	Charts ChartRenderer
	// Logf receives chart failures and other non-fatal diagnostics.
	Logf func(format string, v ...interface{})
	// FS hosts report workspaces created by Generate. Nil means the OS.
	FS fsutil.FileSystem
}

// NewComposer returns a Composer with the default limits and a
// "[report] " tagged log sink.
func NewComposer() *Composer {
	return &Composer{
		DetailRows: DefaultDetailRows,
		NameWidth:  DefaultNameWidth,
		Charts:     PlotRenderer{},
		Logf:       monitoring.Prefixed("[report] "),
	}
}

func (c *Composer) detailRows() int {
	if c.DetailRows <= 0 {
		return DefaultDetailRows
	}
	return c.DetailRows
}

func (c *Composer) nameWidth() int {
	if c.NameWidth <= 0 {
		return DefaultNameWidth
	}
	return c.NameWidth
}

func (c *Composer) charts() ChartRenderer {
	if c.Charts == nil {
		return PlotRenderer{}
	}
	return c.Charts
}

func (c *Composer) logf(format string, v ...interface{}) {
	if c.Logf != nil {
		c.Logf(format, v...)
		return
	}
	monitoring.Logf(format, v...)
}

// Compose assembles the report sections for ds in their fixed order.
// Summary figures come from the stored summary; median, spread and the
// per-type breakdown come from records. A chart failure is logged and
// the chart section omitted; any other failure is a report-generation
// error.
func (c *Composer) Compose(ws *Workspace, ds *equipment.Dataset, records []equipment.Record) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, equipment.ReportGenerationFailed(fmt.Errorf("panic while composing: %v", r))
		}
	}()

	if ds == nil {
		return nil, equipment.ReportGenerationFailed(fmt.Errorf("no dataset to report on"))
	}
	if ws == nil {
		return nil, equipment.ReportGenerationFailed(fmt.Errorf("no workspace for dataset %s", ds.ID))
	}

	doc = &Document{Title: Title, Workspace: ws}
	add := func(s Section) { doc.Sections = append(doc.Sections, s) }

	add(Section{Kind: SectionHeader, Title: Title, Text: ds.Filename})
	add(c.metadata(ds))
	add(summarySection(ds.Summary))
	add(extendedSection(stats.Extended(records)))
	add(breakdownSection(stats.Breakdown(records)))

	if charts := c.renderCharts(ws, ds); len(charts) > 0 {
		add(Section{Kind: SectionCharts, Title: "Data Visualizations", Charts: charts})
	}

	add(c.detailSection(records))
	add(Section{
		Kind: SectionFooter,
		Text: fmt.Sprintf("Generated by %s | %s", Generator, ds.CreatedAt.Format(FooterDateLayout)),
	})
	return doc, nil
}

func (c *Composer) metadata(ds *equipment.Dataset) Section {
	return Section{
		Kind:  SectionMetadata,
		Title: "Dataset Information",
		Fields: []Field{
			{Label: "Filename", Value: ds.Filename},
			{Label: "Upload Date", Value: ds.CreatedAt.Format(UploadTimeLayout)},
			{Label: "Total Records", Value: strconv.Itoa(ds.RecordCount)},
		},
	}
}

// renderCharts returns nil when the chart set should be omitted.
func (c *Composer) renderCharts(ws *Workspace, ds *equipment.Dataset) (charts []Chart) {
	if len(ds.Summary.TypeDistribution) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			monitoring.ChartFailures.Inc()
			c.logf("chart rendering panicked for dataset %s, continuing without charts: %v", ds.ID, r)
			charts = nil
		}
	}()

	charts, err := c.charts().RenderCharts(ws, ds)
	if err == nil {
		err = checkCharts(ws, charts)
	}
	if err != nil {
		monitoring.ChartFailures.Inc()
		c.logf("chart rendering failed for dataset %s, continuing without charts: %v", ds.ID, err)
		return nil
	}
	return charts
}

// checkCharts makes sure every rendered chart is a readable, non-empty
// PNG before it reaches a document renderer.
func checkCharts(ws *Workspace, charts []Chart) error {
	for _, ch := range charts {
		data, err := ws.ReadFile(ch.File)
		if err != nil {
			return fmt.Errorf("failed to read chart %s: %w", ch.File, err)
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("chart %s is not a PNG: %w", ch.File, err)
		}
		if cfg.Width == 0 || cfg.Height == 0 {
			return fmt.Errorf("chart %s is empty", ch.File)
		}
	}
	return nil
}

func summarySection(s equipment.Summary) Section {
	t := &Table{Columns: []string{"Parameter", "Minimum", "Average", "Maximum"}}
	for _, col := range equipment.NumericColumns {
		m := s.Measurement(col)
		t.Rows = append(t.Rows, []string{col, formatValue(m.Min), formatValue(m.Avg), formatValue(m.Max)})
	}
	return Section{Kind: SectionSummary, Title: "Summary Statistics", Table: t}
}

func extendedSection(e stats.ExtendedStats) Section {
	t := &Table{Columns: []string{"Parameter", "Median", "Std Deviation", "Variance"}}
	for _, col := range equipment.NumericColumns {
		sp := e.Measurement(col)
		t.Rows = append(t.Rows, []string{col, formatValue(sp.Median), formatValue(sp.StdDev), formatValue(sp.Variance)})
	}
	return Section{Kind: SectionExtended, Title: "Advanced Statistics", Table: t}
}

func breakdownSection(rows []stats.CategoryStats) Section {
	t := &Table{Columns: []string{"Equipment Type", "Count", "Avg Flowrate", "Avg Pressure", "Avg Temperature"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Type,
			strconv.Itoa(r.Count),
			formatValue(r.AvgFlowrate),
			formatValue(r.AvgPressure),
			formatValue(r.AvgTemperature),
		})
	}
	return Section{Kind: SectionBreakdown, Title: "Equipment Type Breakdown", Table: t}
}

func (c *Composer) detailSection(records []equipment.Record) Section {
	t := &Table{Columns: []string{"Name", "Type", "Flowrate", "Pressure", "Temperature"}}
	n := len(records)
	if limit := c.detailRows(); n > limit {
		n = limit
	}
	for _, r := range records[:n] {
		t.Rows = append(t.Rows, []string{
			truncate(r.Name, c.nameWidth()),
			r.Type,
			formatValue(r.Flowrate),
			formatValue(r.Pressure),
			formatValue(r.Temperature),
		})
	}
	return Section{Kind: SectionDetail, Title: "Equipment Records Details", Table: t}
}

// formatValue renders a measurement with exactly two decimals.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Artifact is a rendered report.
type Artifact struct {
	Format   Format
	Data     []byte
	Charts   bool
	Duration time.Duration
}

// Generate composes the report for ds in a fresh workspace, renders it
// in the requested format and removes the workspace before returning.
func (c *Composer) Generate(ds *equipment.Dataset, records []equipment.Record, format Format) (*Artifact, error) {
	start := time.Now()
	if format == "" {
		format = FormatPDF
	}
	render, ok := renderers[format]
	if !ok {
		return nil, equipment.ReportGenerationFailed(fmt.Errorf("unknown report format %q", format))
	}

	ws, err := NewWorkspace(c.FS)
	if err != nil {
		return nil, equipment.ReportGenerationFailed(err)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			c.logf("%v", cerr)
		}
	}()

	doc, err := c.Compose(ws, ds, records)
	if err != nil {
		return nil, err
	}
	data, err := render(doc)
	if err != nil {
		return nil, equipment.ReportGenerationFailed(err)
	}

	_, hasCharts := doc.Section(SectionCharts)
	elapsed := time.Since(start)
	monitoring.ReportDuration.WithLabelValues(string(format)).Observe(elapsed.Seconds())
	return &Artifact{Format: format, Data: data, Charts: hasCharts, Duration: elapsed}, nil
}
