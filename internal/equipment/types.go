// Package equipment holds the domain types shared by the ingestion,
// statistics, storage and report packages.
package equipment

import (
	"encoding/json"
	"fmt"
	"time"
)

// Column names expected in an uploaded CSV header.
const (
	ColumnName        = "Equipment Name"
	ColumnType        = "Type"
	ColumnFlowrate    = "Flowrate"
	ColumnPressure    = "Pressure"
	ColumnTemperature = "Temperature"
)

// RequiredColumns is the default required header set, in reporting order.
var RequiredColumns = []string{ColumnName, ColumnType, ColumnFlowrate, ColumnPressure, ColumnTemperature}

// NumericColumns are the measurement columns that must parse as floats.
var NumericColumns = []string{ColumnFlowrate, ColumnPressure, ColumnTemperature}

// Record is one validated equipment row. Records are immutable once stored.
type Record struct {
	Position    int     `json:"position"`
	Name        string  `json:"equipment_name"`
	Type        string  `json:"equipment_type"`
	Flowrate    float64 `json:"flowrate"`
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
}

// Measurement returns the named numeric column value of the record.
func (r Record) Measurement(column string) (float64, error) {
	switch column {
	case ColumnFlowrate:
		return r.Flowrate, nil
	case ColumnPressure:
		return r.Pressure, nil
	case ColumnTemperature:
		return r.Temperature, nil
	}
	return 0, fmt.Errorf("unknown measurement column %q", column)
}

func (r Record) String() string {
	return fmt.Sprintf("%s (%s) flow=%.2f pressure=%.2f temp=%.2f",
		r.Name, r.Type, r.Flowrate, r.Pressure, r.Temperature)
}

// Dataset is the persisted representation of one ingested CSV.
type Dataset struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	CreatedAt   time.Time `json:"uploaded_at"`
	RecordCount int       `json:"total_records"`
	Summary     Summary   `json:"summary"`
}

// MeasurementSummary holds the scalar aggregates for one numeric column.
type MeasurementSummary struct {
	Min float64
	Avg float64
	Max float64
}

// Summary is the statistics summary stored alongside a Dataset.
//
// Fields absent from a stored summary decode as zero, so older or
// hand-edited rows never fail to load.
type Summary struct {
	TotalCount       int
	Flowrate         MeasurementSummary
	Pressure         MeasurementSummary
	Temperature      MeasurementSummary
	TypeDistribution map[string]int
}

// Measurement returns the aggregates for a numeric column name. Unknown
// names yield a zero MeasurementSummary.
func (s Summary) Measurement(column string) MeasurementSummary {
	switch column {
	case ColumnFlowrate:
		return s.Flowrate
	case ColumnPressure:
		return s.Pressure
	case ColumnTemperature:
		return s.Temperature
	}
	return MeasurementSummary{}
}

// summaryJSON is the flat wire layout of a Summary.
type summaryJSON struct {
	TotalCount       int            `json:"total_count"`
	AvgFlowrate      float64        `json:"avg_flowrate"`
	AvgPressure      float64        `json:"avg_pressure"`
	AvgTemperature   float64        `json:"avg_temperature"`
	MinFlowrate      float64        `json:"min_flowrate"`
	MaxFlowrate      float64        `json:"max_flowrate"`
	MinPressure      float64        `json:"min_pressure"`
	MaxPressure      float64        `json:"max_pressure"`
	MinTemperature   float64        `json:"min_temperature"`
	MaxTemperature   float64        `json:"max_temperature"`
	TypeDistribution map[string]int `json:"type_distribution"`
}

// MarshalJSON writes the summary with flat keys such as "avg_flowrate".
func (s Summary) MarshalJSON() ([]byte, error) {
	dist := s.TypeDistribution
	if dist == nil {
		dist = map[string]int{}
	}
	return json.Marshal(summaryJSON{
		TotalCount:       s.TotalCount,
		AvgFlowrate:      s.Flowrate.Avg,
		AvgPressure:      s.Pressure.Avg,
		AvgTemperature:   s.Temperature.Avg,
		MinFlowrate:      s.Flowrate.Min,
		MaxFlowrate:      s.Flowrate.Max,
		MinPressure:      s.Pressure.Min,
		MaxPressure:      s.Pressure.Max,
		MinTemperature:   s.Temperature.Min,
		MaxTemperature:   s.Temperature.Max,
		TypeDistribution: dist,
	})
}

// UnmarshalJSON reads the flat layout written by MarshalJSON.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var w summaryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Summary{
		TotalCount:       w.TotalCount,
		Flowrate:         MeasurementSummary{Min: w.MinFlowrate, Avg: w.AvgFlowrate, Max: w.MaxFlowrate},
		Pressure:         MeasurementSummary{Min: w.MinPressure, Avg: w.AvgPressure, Max: w.MaxPressure},
		Temperature:      MeasurementSummary{Min: w.MinTemperature, Avg: w.AvgTemperature, Max: w.MaxTemperature},
		TypeDistribution: w.TypeDistribution,
	}
	return nil
}

// DecodeSummary parses a stored summary. An empty or malformed value
// yields the zero Summary, matching how reports treat missing keys.
func DecodeSummary(raw string) Summary {
	var s Summary
	if raw == "" {
		return s
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Summary{}
	}
	return s
}
