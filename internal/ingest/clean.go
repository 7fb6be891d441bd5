package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/equipment.report/internal/equipment"
)

// Columns maps the header names the cleaner reads. The zero value uses
// the standard equipment header. The measurement columns are always
// Flowrate, Pressure and Temperature; Required may add further columns
// that must be non-empty.
type Columns struct {
	Required []string
	Name     string
	Type     string
}

// DefaultColumns returns the standard equipment header mapping.
func DefaultColumns() Columns {
	return Columns{
		Required: equipment.RequiredColumns,
		Name:     equipment.ColumnName,
		Type:     equipment.ColumnType,
	}
}

// Normalize fills unset fields and appends every column a Record is
// built from to Required, so a header without them fails validation
// instead of emptying the table.
func (c Columns) Normalize() Columns {
	d := DefaultColumns()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Type == "" {
		c.Type = d.Type
	}
	required := append([]string(nil), c.Required...)
	if len(required) == 0 {
		required = append(required, d.Required...)
	}
	for _, col := range append([]string{c.Name, c.Type}, equipment.NumericColumns...) {
		if !containsString(required, col) {
			required = append(required, col)
		}
	}
	c.Required = required
	return c
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Cleaned is the output of Clean.
type Cleaned struct {
	Records []equipment.Record

	// DroppedIncomplete counts rows removed for empty required cells.
	DroppedIncomplete int
	// DroppedInvalid counts rows removed because a numeric cell did not
	// parse or violated its constraint.
	DroppedInvalid int
}

// Clean removes rows with empty required values, then rows whose
// numeric cells do not parse as finite floats. Surviving rows keep their
// original relative order and are numbered by Position.
func Clean(t *Table, cols Columns) (*Cleaned, error) {
	cols = cols.Normalize()
	out := &Cleaned{}

	complete := make([]int, 0, t.Len())
	for i := range t.Rows {
		if rowComplete(t, i, cols.Required) {
			complete = append(complete, i)
		} else {
			out.DroppedIncomplete++
		}
	}
	if len(complete) == 0 {
		return nil, equipment.NoValidData("no valid data found in CSV after removing missing values")
	}

	for _, i := range complete {
		rec, ok := buildRecord(t, i, cols)
		if !ok {
			out.DroppedInvalid++
			continue
		}
		rec.Position = len(out.Records)
		out.Records = append(out.Records, rec)
	}
	if len(out.Records) == 0 {
		return nil, equipment.NoValidData("no valid data found in CSV after validating numeric columns")
	}
	return out, nil
}

func rowComplete(t *Table, i int, required []string) bool {
	for _, name := range required {
		v, ok := t.Cell(i, name)
		if !ok || strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func buildRecord(t *Table, i int, cols Columns) (equipment.Record, bool) {
	name, _ := t.Cell(i, cols.Name)
	typ, _ := t.Cell(i, cols.Type)
	rec := equipment.Record{
		Name: strings.TrimSpace(name),
		Type: strings.TrimSpace(typ),
	}
	if rec.Name == "" || rec.Type == "" {
		return rec, false
	}

	for _, col := range equipment.NumericColumns {
		raw, ok := t.Cell(i, col)
		if !ok {
			return rec, false
		}
		v, err := ParseMeasurement(raw)
		if err != nil {
			return rec, false
		}
		switch col {
		case equipment.ColumnFlowrate:
			if v < 0 {
				return rec, false
			}
			rec.Flowrate = v
		case equipment.ColumnPressure:
			if v < 0 {
				return rec, false
			}
			rec.Pressure = v
		case equipment.ColumnTemperature:
			rec.Temperature = v
		}
	}
	return rec, true
}

// ParseMeasurement parses a numeric cell. Surrounding whitespace is
// ignored; NaN and infinities are rejected.
func ParseMeasurement(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}
