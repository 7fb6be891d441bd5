package report

// SectionKind identifies a report section. Sections always appear in
// the order the kinds are declared.
type SectionKind int

const (
	SectionHeader SectionKind = iota
	SectionMetadata
	SectionSummary
	SectionExtended
	SectionBreakdown
	SectionCharts
	SectionDetail
	SectionFooter
)

var sectionNames = [...]string{
	SectionHeader:    "header",
	SectionMetadata:  "metadata",
	SectionSummary:   "summary",
	SectionExtended:  "extended",
	SectionBreakdown: "breakdown",
	SectionCharts:    "charts",
	SectionDetail:    "detail",
	SectionFooter:    "footer",
}

func (k SectionKind) String() string {
	if k < 0 || int(k) >= len(sectionNames) {
		return "unknown"
	}
	return sectionNames[k]
}

// Field is a label/value pair, used by the metadata block.
type Field struct {
	Label string
	Value string
}

// Table is a rendered table. Cells are already formatted for display.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Chart is a rendered chart image stored in the report workspace.
type Chart struct {
	Title string
	// File is the image's name inside the workspace.
	File string
}

// Section is one block of the report. Which fields are set depends on Kind.
type Section struct {
	Kind   SectionKind
	Title  string
	Text   string
	Fields []Field
	Table  *Table
	Charts []Chart
}

// Document is a composed report. Chart files live in Workspace and are
// only readable until the workspace is closed.
type Document struct {
	Title     string
	Sections  []Section
	Workspace *Workspace
}

// Kinds lists the section kinds in document order.
func (d *Document) Kinds() []SectionKind {
	out := make([]SectionKind, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = s.Kind
	}
	return out
}

// Section returns the first section of the given kind.
func (d *Document) Section(kind SectionKind) (*Section, bool) {
	for i := range d.Sections {
		if d.Sections[i].Kind == kind {
			return &d.Sections[i], true
		}
	}
	return nil, false
}
