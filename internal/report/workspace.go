package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/equipment.report/internal/fsutil"
)

// Workspace is a scoped scratch directory for intermediate report
// artifacts such as chart images. Close removes it and everything in it.
type Workspace struct {
	fs     fsutil.FileSystem
	dir    string
	closed bool
}

// NewWorkspace creates a fresh scratch directory on fsys. A nil fsys
// means the operating system's temporary directory.
func NewWorkspace(fsys fsutil.FileSystem) (*Workspace, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	dir, err := fsys.MkdirTemp("", "equipment-report-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create report workspace: %w", err)
	}
	return &Workspace{fs: fsys, dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the absolute path of a workspace-relative file name.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// Create creates a file inside the workspace.
func (w *Workspace) Create(name string) (io.WriteCloser, error) {
	if w.closed {
		return nil, fmt.Errorf("workspace %s is closed", w.dir)
	}
	return w.fs.Create(w.Path(name))
}

// ReadFile reads a file previously written to the workspace.
func (w *Workspace) ReadFile(name string) ([]byte, error) {
	return w.fs.ReadFile(w.Path(name))
}

// Close removes the workspace. It is safe to call more than once.
func (w *Workspace) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.fs.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove report workspace %s: %w", w.dir, err)
	}
	return nil
}
