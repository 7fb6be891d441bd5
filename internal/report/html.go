package report

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/equipment.report/internal/equipment"
	"github.com/banshee-data/equipment.report/internal/stats"
)

// ChartPage renders the report's chart set as an interactive HTML page.
// assetsHost overrides where the echarts scripts are loaded from; empty
// uses the library default.
func ChartPage(ds *equipment.Dataset, assetsHost string) ([]byte, error) {
	if ds == nil {
		return nil, equipment.ReportGenerationFailed(fmt.Errorf("no dataset to chart"))
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s - %s", Title, ds.Filename)
	if assetsHost != "" {
		page.SetAssetsHost(assetsHost)
	}

	initOpts := opts.Initialization{Width: "900px", Height: "480px", AssetsHost: assetsHost}
	subtitle := fmt.Sprintf("%s | %d records | %s", ds.Filename, ds.RecordCount, ds.CreatedAt.Format(UploadTimeLayout))

	if dist := ds.Summary.TypeDistribution; len(dist) > 0 {
		types := stats.SortedTypes(dist)

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(initOpts),
			charts.WithTitleOpts(opts.Title{Title: "Equipment Type Distribution", Subtitle: subtitle}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		)
		barData := make([]opts.BarData, len(types))
		for i, t := range types {
			barData[i] = opts.BarData{
				Value:     dist[t],
				ItemStyle: &opts.ItemStyle{Color: chartPalette[i%len(chartPalette)]},
			}
		}
		bar.SetXAxis(types).AddSeries("Count", barData,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

		pie := charts.NewPie()
		pie.SetGlobalOptions(
			charts.WithInitializationOpts(initOpts),
			charts.WithTitleOpts(opts.Title{Title: "Type Distribution Breakdown"}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithColorsOpts(opts.Colors(chartPalette)),
		)
		pieData := make([]opts.PieData, len(types))
		for i, t := range types {
			pieData[i] = opts.PieData{Name: t, Value: dist[t]}
		}
		pie.AddSeries("Types", pieData,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
			charts.WithPieChartOpts(opts.PieChart{Radius: []string{"35%", "70%"}}),
		)

		page.AddCharts(bar, pie)
	}

	cmp := charts.NewBar()
	cmp.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: "Parameter Comparison (Min/Avg/Max)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	cmp.SetXAxis(equipment.NumericColumns)
	for _, sr := range []struct {
		name  string
		color string
		pick  func(equipment.MeasurementSummary) float64
	}{
		{"Min", colorAccent, func(m equipment.MeasurementSummary) float64 { return m.Min }},
		{"Avg", colorPrimary, func(m equipment.MeasurementSummary) float64 { return m.Avg }},
		{"Max", colorAccentRed, func(m equipment.MeasurementSummary) float64 { return m.Max }},
	} {
		data := make([]opts.BarData, len(equipment.NumericColumns))
		for i, col := range equipment.NumericColumns {
			data[i] = opts.BarData{Value: formatValue(sr.pick(ds.Summary.Measurement(col)))}
		}
		cmp.AddSeries(sr.name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: sr.color}))
	}
	page.AddCharts(cmp)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, equipment.ReportGenerationFailed(fmt.Errorf("render error: %w", err))
	}
	return buf.Bytes(), nil
}
