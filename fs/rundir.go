package fs

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/akiwatch"
)

// Ensure RunDir implements akiwatch.ArtifactSink at compile time.
var _ akiwatch.ArtifactSink = (*RunDir)(nil)

// RunDir stores diagnostic artifacts of one run in its own directory,
// named after the run's start time: baseDir/run-YYYYMMDD-HHMM.
type RunDir struct {
	path string
}

// NewRunDir creates the run directory under baseDir.
func NewRunDir(baseDir string, startedAt time.Time) (*RunDir, error) {
	path := filepath.Join(baseDir, "run-"+startedAt.Format("20060102-1504"))
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	return &RunDir{path: path}, nil
}

// Path returns the run directory.
func (d *RunDir) Path() string {
	return d.path
}

// Save writes content to name inside the run directory, replacing any
// earlier artifact of the same name.
func (d *RunDir) Save(name, content string) error {
	full, err := d.resolve(name)
	if err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0644)
}

// OpenAppend opens name inside the run directory for appending, creating
// it if needed. Used for the run's JSON-lines log.
func (d *RunDir) OpenAppend(name string) (*os.File, error) {
	full, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
}

func (d *RunDir) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", akiwatch.Errorf(akiwatch.EINVALID, "invalid artifact name %q: path traversal", name)
	}
	return filepath.Join(d.path, name), nil
}
