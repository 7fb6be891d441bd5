package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/banshee-data/equipment.report/internal/equipment"
)

// DefaultExtensions are the accepted upload extensions.
var DefaultExtensions = []string{".csv"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser decodes uploads into Tables.
type Parser struct {
	// Extensions lists accepted filename extensions, lower case with the
	// leading dot. Empty means DefaultExtensions.
	Extensions []string
}

// Parse decodes content with the default extension list.
func Parse(filename string, content []byte) (*Table, error) {
	return Parser{}.Parse(filename, content)
}

// Parse checks the filename extension and decodes content as a
// comma-delimited table whose first row is the header.
func (p Parser) Parse(filename string, content []byte) (*Table, error) {
	if !p.acceptsExtension(filename) {
		return nil, equipment.UnsupportedFormat(nil, "file %q must be one of %s", filename, strings.Join(p.extensions(), ", "))
	}

	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return nil, equipment.UnsupportedFormat(nil, "file %q is not valid UTF-8 text", filename)
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = 0

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, equipment.UnsupportedFormat(nil, "file %q has no header row", filename)
	}
	if err != nil {
		return nil, equipment.UnsupportedFormat(err, "error reading CSV header")
	}

	// header names are matched exactly, surrounding whitespace included
	seen := make(map[string]struct{}, len(header))
	for _, name := range header {
		if _, dup := seen[name]; dup {
			return nil, equipment.UnsupportedFormat(nil, "duplicate column %q", name)
		}
		seen[name] = struct{}{}
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, equipment.UnsupportedFormat(err, "error reading CSV file")
		}
		rows = append(rows, rec)
	}

	if len(rows) == 0 {
		return nil, equipment.EmptyInput("CSV file has no data rows")
	}

	return newTable(header, rows), nil
}

func (p Parser) extensions() []string {
	if len(p.Extensions) == 0 {
		return DefaultExtensions
	}
	return p.Extensions
}

func (p Parser) acceptsExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range p.extensions() {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
