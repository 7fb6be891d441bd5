package report

import (
	"bytes"
	"fmt"

	"codeberg.org/go-pdf/fpdf"
)

const (
	pdfMarginX = 0.75
	pdfMarginY = 1.0
	pdfRowH    = 0.3
)

// RenderPDF lays the document out on US Letter pages. Each chart and the
// detail table start on a new page.
func RenderPDF(doc *Document) ([]byte, error) {
	pdf := fpdf.New("P", "in", "Letter", "")
	pdf.SetMargins(pdfMarginX, pdfMarginY, pdfMarginX)
	pdf.SetAutoPageBreak(true, pdfMarginY)
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(Generator, true)
	pdf.SetCreator(Generator, true)
	pdf.SetSubject("Equipment Analysis Report", true)

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), ws: doc.Workspace}
	pageW, _ := pdf.GetPageSize()
	w.width = pageW - 2*pdfMarginX

	pdf.AddPage()
	for _, s := range doc.Sections {
		switch s.Kind {
		case SectionHeader:
			w.header(s)
		case SectionMetadata:
			w.fields(s)
		case SectionSummary, SectionExtended, SectionBreakdown:
			w.heading(s.Title)
			w.table(s.Table, colorPrimary)
		case SectionCharts:
			if err := w.charts(s); err != nil {
				return nil, err
			}
		case SectionDetail:
			pdf.AddPage()
			w.heading(s.Title)
			w.table(s.Table, colorSecondary)
		case SectionFooter:
			w.footer(s)
		}
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("failed to render %s section: %w", s.Kind, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	ws    *Workspace
	width float64
}

func (w *pdfWriter) fill(hex string) {
	c := hexColor(hex)
	w.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func (w *pdfWriter) text(hex string) {
	c := hexColor(hex)
	w.pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}

func (w *pdfWriter) header(s Section) {
	w.fill(colorPrimary)
	w.text("#ffffff")
	w.pdf.SetFont("Helvetica", "B", 24)
	w.pdf.CellFormat(w.width, 0.9, w.tr(s.Title), "", 1, "CM", true, 0, "")
	w.pdf.Ln(0.3)
}

func (w *pdfWriter) fields(s Section) {
	border := hexColor(colorBorder)
	w.pdf.SetDrawColor(int(border.R), int(border.G), int(border.B))

	w.fill(colorSecondary)
	w.text("#ffffff")
	w.pdf.SetFont("Helvetica", "B", 14)
	w.pdf.CellFormat(w.width, 0.4, w.tr(s.Title), "1", 1, "CM", true, 0, "")

	labelW := 2.0
	for _, f := range s.Fields {
		w.fill(colorLightBg)
		w.text(colorSecondary)
		w.pdf.SetFont("Helvetica", "B", 10)
		w.pdf.CellFormat(labelW, 0.35, w.tr(f.Label+":"), "1", 0, "LM", true, 0, "")
		w.text("#000000")
		w.pdf.SetFont("Helvetica", "", 10)
		w.pdf.CellFormat(w.width-labelW, 0.35, w.tr(f.Value), "1", 1, "LM", false, 0, "")
	}
	w.pdf.Ln(0.3)
}

func (w *pdfWriter) heading(title string) {
	w.text(colorSecondary)
	w.pdf.SetFont("Helvetica", "B", 16)
	w.pdf.CellFormat(w.width, 0.4, w.tr(title), "", 1, "LM", false, 0, "")
	w.pdf.Ln(0.1)
}

// table draws t with a coloured header row and banded body rows. The
// first column gets a larger share of the width.
func (w *pdfWriter) table(t *Table, headerHex string) {
	if t == nil || len(t.Columns) == 0 {
		return
	}
	widths := make([]float64, len(t.Columns))
	share := w.width / (float64(len(t.Columns)) + 0.5)
	for i := range widths {
		widths[i] = share
	}
	widths[0] = share * 1.5

	border := hexColor(colorBorder)
	w.pdf.SetDrawColor(int(border.R), int(border.G), int(border.B))

	w.fill(headerHex)
	w.text("#ffffff")
	w.pdf.SetFont("Helvetica", "B", 10)
	for i, col := range t.Columns {
		w.pdf.CellFormat(widths[i], pdfRowH, w.tr(col), "1", 0, "CM", true, 0, "")
	}
	w.pdf.Ln(-1)

	w.text("#000000")
	w.pdf.SetFont("Helvetica", "", 9)
	for r, row := range t.Rows {
		if r%2 == 1 {
			w.fill(colorLightBg)
		} else {
			w.fill("#ffffff")
		}
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			w.pdf.CellFormat(widths[i], pdfRowH, w.tr(cell), "1", 0, "CM", true, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.pdf.Ln(0.3)
}

func (w *pdfWriter) charts(s Section) error {
	for _, c := range s.Charts {
		data, err := w.ws.ReadFile(c.File)
		if err != nil {
			return fmt.Errorf("failed to read chart %s: %w", c.File, err)
		}
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		info := w.pdf.RegisterImageOptionsReader(c.File, opts, bytes.NewReader(data))
		if err := w.pdf.Error(); err != nil {
			return fmt.Errorf("failed to register chart %s: %w", c.File, err)
		}
		if info == nil || info.Width() == 0 {
			return fmt.Errorf("chart %s has no image data", c.File)
		}

		w.pdf.AddPage()
		w.heading(c.Title)
		imgH := w.width * info.Height() / info.Width()
		w.pdf.ImageOptions(c.File, w.pdf.GetX(), w.pdf.GetY(), w.width, imgH, true, opts, 0, "")
	}
	return nil
}

func (w *pdfWriter) footer(s Section) {
	w.pdf.Ln(0.5)
	w.text("#64748b")
	w.pdf.SetFont("Helvetica", "", 8)
	w.pdf.CellFormat(w.width, 0.3, w.tr(s.Text), "", 1, "CM", false, 0, "")
}
