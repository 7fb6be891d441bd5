package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	safeDir := filepath.Join(tmpDir, "reports")
	outside := filepath.Join(tmpDir, "outside")
	require.NoError(t, os.MkdirAll(safeDir, 0755))
	require.NoError(t, os.MkdirAll(outside, 0755))

	link := filepath.Join(safeDir, "linked")
	require.NoError(t, os.Symlink(outside, link))

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"new file", filepath.Join(safeDir, "equipment_report.pdf"), false},
		{"new nested file", filepath.Join(safeDir, "2025", "equipment_report.pdf"), false},
		{"dot dot", filepath.Join(safeDir, "..", "outside", "x.pdf"), true},
		{"relative escape", "../../../etc/passwd", true},
		{"absolute outside", "/etc/passwd", true},
		{"through symlink", filepath.Join(link, "x.pdf"), true},
		{"symlink itself", link, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, safeDir)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()

	assert.NoError(t, ValidatePathWithinAllowedDirs(filepath.Join(b, "data.csv"), []string{a, b}))
	assert.Error(t, ValidatePathWithinAllowedDirs("/etc/passwd", []string{a, b}))
	assert.Error(t, ValidatePathWithinAllowedDirs(filepath.Join(a, "data.csv"), nil))
}

func TestValidateReportPath(t *testing.T) {
	assert.NoError(t, ValidateReportPath(filepath.Join(os.TempDir(), "equipment_report_x.pdf")))
	assert.NoError(t, ValidateReportPath("equipment_report_x.xlsx"))
	assert.Error(t, ValidateReportPath("/etc/equipment_report_x.pdf"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"equipment_report_1.pdf": "equipment_report_1.pdf",
		"pumps & valves.csv":     "pumps_valves.csv",
		"../../etc/passwd":       "etc_passwd",
		"Pumpe für Halle.csv":    "Pumpe_f_r_Halle.csv",
		"":                       "unknown",
		"...":                    "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}

	long := SanitizeFilename(strings.Repeat("a", 300))
	assert.Len(t, long, 128)
}
