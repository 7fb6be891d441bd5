package api

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/equipment.report/internal/db"
	"github.com/banshee-data/equipment.report/internal/monitoring"
)

// templatePath is a migrated database that each test copies, so the
// migrations run once per package rather than once per test.
var templatePath string

func TestMain(m *testing.M) {
	os.Exit(runTestMain(m))
}

func runTestMain(m *testing.M) int {
	monitoring.SetLogger(nil)

	tmpDir, err := os.MkdirTemp("", "equipment-api-template-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create template directory: %v\n", err)
		return 1
	}
	defer os.RemoveAll(tmpDir)

	templatePath = filepath.Join(tmpDir, "template.db")
	template, err := db.NewDB(templatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise template DB: %v\n", err)
		return 1
	}
	if _, err := template.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to checkpoint template DB: %v\n", err)
		template.Close()
		return 1
	}
	if err := template.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close template DB: %v\n", err)
		return 1
	}
	return m.Run()
}

func cloneTestDB(t *testing.T) *db.DB {
	t.Helper()
	if templatePath == "" {
		t.Fatal("template DB not initialised")
	}
	path := filepath.Join(t.TempDir(), "test.db")
	if err := copyFile(templatePath, path); err != nil {
		t.Fatalf("failed to clone template DB: %v", err)
	}
	d, err := db.NewDB(path)
	if err != nil {
		t.Fatalf("failed to open cloned DB: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
