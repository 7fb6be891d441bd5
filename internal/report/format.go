package report

import (
	"strings"

	"github.com/banshee-data/equipment.report/internal/equipment"
)

// Format is a report output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

var renderers = map[Format]func(*Document) ([]byte, error){
	FormatPDF:  RenderPDF,
	FormatXLSX: RenderXLSX,
}

// ParseFormat maps a query value to a Format. Empty means PDF.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPDF, nil
	case FormatPDF, FormatXLSX:
		return f, nil
	default:
		return "", equipment.UnsupportedFormat(nil, "unsupported report format %q (use pdf or xlsx)", s)
	}
}

// ContentType is the MIME type of the rendered artifact.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/pdf"
	}
}

// Filename is the download name for a dataset's report.
func (f Format) Filename(datasetID string) string {
	return "equipment_report_" + datasetID + "." + string(f)
}
