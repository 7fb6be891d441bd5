package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const xlsxCoverSheet = "Report"

var xlsxSheetNames = map[SectionKind]string{
	SectionSummary:   "Summary",
	SectionExtended:  "Advanced",
	SectionBreakdown: "Breakdown",
	SectionDetail:    "Records",
}

// RenderXLSX writes the document as a workbook: a cover sheet with the
// title, metadata and footer, one sheet per table and a Charts sheet
// holding the chart images.
func RenderXLSX(doc *Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	x, err := newXLSXWriter(f)
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetName("Sheet1", xlsxCoverSheet); err != nil {
		return nil, fmt.Errorf("failed to name cover sheet: %w", err)
	}

	row := 1
	for _, s := range doc.Sections {
		var err error
		switch s.Kind {
		case SectionHeader:
			err = x.cell(xlsxCoverSheet, 1, row, s.Title, x.title)
			row += 2
		case SectionMetadata:
			err = x.cell(xlsxCoverSheet, 1, row, s.Title, x.header)
			for _, fld := range s.Fields {
				row++
				if err == nil {
					err = x.cell(xlsxCoverSheet, 1, row, fld.Label, x.label)
				}
				if err == nil {
					err = x.cell(xlsxCoverSheet, 2, row, fld.Value, 0)
				}
			}
			row += 2
		case SectionSummary, SectionExtended, SectionBreakdown, SectionDetail:
			err = x.table(xlsxSheetNames[s.Kind], s.Table)
		case SectionCharts:
			err = x.charts(doc.Workspace, s.Charts)
		case SectionFooter:
			err = x.cell(xlsxCoverSheet, 1, row, s.Text, 0)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write %s section: %w", s.Kind, err)
		}
	}
	if err := f.SetColWidth(xlsxCoverSheet, "A", "A", 22); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(xlsxCoverSheet, "B", "B", 48); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type xlsxWriter struct {
	f       *excelize.File
	title   int
	header  int
	label   int
	numeric int
}

func newXLSXWriter(f *excelize.File) (*xlsxWriter, error) {
	hex := func(s string) string { return strings.ToUpper(strings.TrimPrefix(s, "#")) }
	x := &xlsxWriter{f: f}
	styles := []struct {
		dst *int
		st  *excelize.Style
	}{
		{&x.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 18, Color: hex(colorPrimary)}}},
		{&x.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hex(colorSecondary)}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}},
		{&x.label, &excelize.Style{
			Font: &excelize.Font{Bold: true, Color: hex(colorSecondary)},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hex(colorLightBg)}},
		}},
		{&x.numeric, &excelize.Style{NumFmt: 2}},
	}
	for _, s := range styles {
		id, err := f.NewStyle(s.st)
		if err != nil {
			return nil, fmt.Errorf("failed to create workbook style: %w", err)
		}
		*s.dst = id
	}
	return x, nil
}

func (x *xlsxWriter) cell(sheet string, col, row int, value interface{}, style int) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := x.f.SetCellValue(sheet, name, value); err != nil {
		return err
	}
	if style != 0 {
		return x.f.SetCellStyle(sheet, name, name, style)
	}
	return nil
}

// table writes t to its own sheet. Measurement cells are stored as
// numbers with a two-decimal format so they stay usable in formulas.
func (x *xlsxWriter) table(sheet string, t *Table) error {
	if _, err := x.f.NewSheet(sheet); err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	for i, col := range t.Columns {
		if err := x.cell(sheet, i+1, 1, col, x.header); err != nil {
			return err
		}
	}
	for r, row := range t.Rows {
		for i, v := range row {
			var err error
			if n, ok := x.number(t.Columns, i, v); ok {
				err = x.cell(sheet, i+1, r+2, n, x.numeric)
			} else {
				err = x.cell(sheet, i+1, r+2, v, 0)
			}
			if err != nil {
				return err
			}
		}
	}
	last, err := excelize.ColumnNumberToName(len(t.Columns))
	if err != nil {
		return err
	}
	return x.f.SetColWidth(sheet, "A", last, 18)
}

func (x *xlsxWriter) number(columns []string, i int, v string) (float64, bool) {
	if i == 0 || i >= len(columns) {
		return 0, false
	}
	switch columns[i] {
	case "Type", "Count":
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	return n, err == nil
}

// charts places each image on the Charts sheet, one below the other.
func (x *xlsxWriter) charts(ws *Workspace, charts []Chart) error {
	const sheet = "Charts"
	if _, err := x.f.NewSheet(sheet); err != nil {
		return err
	}
	row := 1
	for _, c := range charts {
		data, err := ws.ReadFile(c.File)
		if err != nil {
			return fmt.Errorf("failed to read chart %s: %w", c.File, err)
		}
		if err := x.cell(sheet, 1, row, c.Title, x.label); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(1, row+1)
		pic := &excelize.Picture{
			Extension: ".png",
			File:      data,
			Format:    &excelize.GraphicOptions{AltText: c.Title, ScaleX: 0.8, ScaleY: 0.8},
		}
		if err := x.f.AddPictureFromBytes(sheet, cell, pic); err != nil {
			return fmt.Errorf("failed to insert chart %s: %w", c.File, err)
		}
		row += 25
	}
	return nil
}
