// Package stats computes descriptive statistics over equipment records.
//
// All functions are pure. Values are float64 and unrounded; rounding for
// display happens in the report package.
package stats

import (
	"math"
	"sort"

	"github.com/banshee-data/equipment.report/internal/equipment"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Compute derives the stored summary for a set of records. It fails with
// a no-valid-data error when records is empty.
func Compute(records []equipment.Record) (equipment.Summary, error) {
	if len(records) == 0 {
		return equipment.Summary{}, equipment.NoValidData("no records to summarise")
	}

	flow, pressure, temp := Columns(records)
	dist := make(map[string]int)
	for _, r := range records {
		dist[r.Type]++
	}

	return equipment.Summary{
		TotalCount:       len(records),
		Flowrate:         summarise(flow),
		Pressure:         summarise(pressure),
		Temperature:      summarise(temp),
		TypeDistribution: dist,
	}, nil
}

func summarise(x []float64) equipment.MeasurementSummary {
	return equipment.MeasurementSummary{
		Min: floats.Min(x),
		Avg: stat.Mean(x, nil),
		Max: floats.Max(x),
	}
}

// Columns splits records into per-measurement slices in record order.
func Columns(records []equipment.Record) (flow, pressure, temp []float64) {
	flow = make([]float64, len(records))
	pressure = make([]float64, len(records))
	temp = make([]float64, len(records))
	for i, r := range records {
		flow[i] = r.Flowrate
		pressure[i] = r.Pressure
		temp[i] = r.Temperature
	}
	return flow, pressure, temp
}

// Spread holds median and dispersion for one measurement.
type Spread struct {
	Median   float64
	StdDev   float64
	Variance float64
}

// ExtendedStats is the spread of every measurement.
type ExtendedStats struct {
	Flowrate    Spread
	Pressure    Spread
	Temperature Spread
}

// Measurement returns the spread for a numeric column name.
func (e ExtendedStats) Measurement(column string) Spread {
	switch column {
	case equipment.ColumnFlowrate:
		return e.Flowrate
	case equipment.ColumnPressure:
		return e.Pressure
	case equipment.ColumnTemperature:
		return e.Temperature
	}
	return Spread{}
}

// Extended computes median, population standard deviation and
// population variance per measurement. Empty input yields zeros.
func Extended(records []equipment.Record) ExtendedStats {
	flow, pressure, temp := Columns(records)
	return ExtendedStats{
		Flowrate:    spread(flow),
		Pressure:    spread(pressure),
		Temperature: spread(temp),
	}
}

func spread(x []float64) Spread {
	if len(x) == 0 {
		return Spread{}
	}
	_, variance := stat.PopMeanVariance(x, nil)
	return Spread{
		Median:   Median(x),
		StdDev:   math.Sqrt(variance),
		Variance: variance,
	}
}

// Median returns the middle value of x, averaging the two central values
// when len(x) is even. x is not modified.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// CategoryStats is the per-type row of the breakdown table.
type CategoryStats struct {
	Type           string
	Count          int
	AvgFlowrate    float64
	AvgPressure    float64
	AvgTemperature float64
}

// Breakdown groups records by type and averages each measurement. Rows
// are sorted by type name ascending.
func Breakdown(records []equipment.Record) []CategoryStats {
	type acc struct {
		n                 int
		flow, press, temp float64
	}
	groups := make(map[string]*acc)
	for _, r := range records {
		a, ok := groups[r.Type]
		if !ok {
			a = &acc{}
			groups[r.Type] = a
		}
		a.n++
		a.flow += r.Flowrate
		a.press += r.Pressure
		a.temp += r.Temperature
	}

	out := make([]CategoryStats, 0, len(groups))
	for typ, a := range groups {
		n := float64(a.n)
		out = append(out, CategoryStats{
			Type:           typ,
			Count:          a.n,
			AvgFlowrate:    a.flow / n,
			AvgPressure:    a.press / n,
			AvgTemperature: a.temp / n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// SortedTypes returns the keys of a type distribution in ascending order.
func SortedTypes(dist map[string]int) []string {
	types := make([]string, 0, len(dist))
	for t := range dist {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
