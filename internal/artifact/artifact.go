// Package artifact names the files a coverage run generates and removes them afterwards.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/zjy-dev/ccover/internal/logger"
)

const (
	// BinaryName is the name of the instrumented test binary.
	BinaryName = "test"

	counterPrefix = BinaryName + "-"
	isolatedDir   = ".ccover-"
)

// Set is the ArtifactSet of one run: every generated file name is derived from it.
type Set struct {
	// Root is the directory the run was started from. Retained reports end up here.
	Root string
	// Dir is where artifacts are generated. Equal to Root unless the run is isolated.
	Dir string
	// Base is the source file's base name, e.g. "source.c".
	Base string
	// Stem is Base without its extension, e.g. "source".
	Stem string
}

// NewSet returns the artifact set for source with artifacts generated directly in dir.
func NewSet(dir, source string) Set {
	base := filepath.Base(source)
	return Set{
		Root: dir,
		Dir:  dir,
		Base: base,
		Stem: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// NewIsolatedSet creates a fresh per-run directory under root and returns a set
// generating its artifacts there, so concurrent runs in root do not collide.
func NewIsolatedSet(afs afero.Fs, root, source string) (Set, error) {
	s := NewSet(root, source)
	s.Dir = filepath.Join(root, isolatedDir+uuid.NewString())
	if err := afs.MkdirAll(s.Dir, 0755); err != nil {
		return Set{}, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return s, nil
}

// Isolated reports whether artifacts live in their own per-run directory.
func (s Set) Isolated() bool {
	return filepath.Clean(s.Dir) != filepath.Clean(s.Root)
}

// ObjectFile is the compile-only output, <stem>.o.
func (s Set) ObjectFile() string {
	return filepath.Join(s.Dir, s.Stem+".o")
}

// Binary is the instrumented test binary.
func (s Set) Binary() string {
	return filepath.Join(s.Dir, BinaryName)
}

// Report is the annotation file gcov writes, <base>.gcov.
func (s Set) Report() string {
	return filepath.Join(s.Dir, s.Base+".gcov")
}

// RetainedReport is where a kept annotation file is left after the run.
func (s Set) RetainedReport() string {
	return filepath.Join(s.Root, s.Base+".gcov")
}

// GcovTarget is the name gcov is pointed at, relative to Dir. The link step
// prefixes every object with the binary name, so notes and counters for
// source.c are test-source.gcno and test-source.gcda.
func (s Set) GcovTarget() string {
	return counterPrefix + s.Base
}

// BuildPath is path as the compiler should be given it. gcov opens the source
// recorded in the notes file relative to its own working directory, which for
// an isolated set is Dir, so isolated builds use absolute paths.
func (s Set) BuildPath(path string) (string, error) {
	if !s.Isolated() || filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

// Counters returns the instrumentation files expected for the source.
func (s Set) Counters() []string {
	return []string{
		filepath.Join(s.Dir, counterPrefix+s.Stem+".gcda"),
		filepath.Join(s.Dir, counterPrefix+s.Stem+".gcno"),
	}
}

// IsCounter reports whether name is an instrumentation file of the test binary.
func IsCounter(name string) bool {
	return strings.HasPrefix(name, counterPrefix) &&
		(strings.HasSuffix(name, ".gcda") || strings.HasSuffix(name, ".gcno"))
}

// Cleaner removes the artifacts of a Set. It is idempotent and best-effort:
// files that are already gone count as clean.
type Cleaner struct {
	fs  afero.Fs
	set Set
}

// NewCleaner creates a Cleaner for set.
func NewCleaner(afs afero.Fs, set Set) *Cleaner {
	return &Cleaner{fs: afs, set: set}
}

// Clean deletes counters, the object file, the binary and, unless keepReport
// is set, the annotation file. Failures other than not-exist are collected
// and returned after every file has been tried.
func (c *Cleaner) Clean(keepReport bool) error {
	var errs []error

	entries, err := afero.ReadDir(c.fs, c.set.Dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("failed to list %s: %w", c.set.Dir, err))
	}
	for _, e := range entries {
		if e.IsDir() || !IsCounter(e.Name()) {
			continue
		}
		errs = append(errs, c.remove(filepath.Join(c.set.Dir, e.Name())))
	}

	errs = append(errs, c.remove(c.set.ObjectFile()), c.remove(c.set.Binary()))
	if !keepReport {
		errs = append(errs, c.remove(c.set.Report()))
	}

	return errors.Join(errs...)
}

// Release finishes an isolated run: a kept report is moved to Root and the
// per-run directory is removed. It does nothing for non-isolated sets.
func (c *Cleaner) Release(keepReport bool) error {
	if !c.set.Isolated() {
		return nil
	}
	if keepReport {
		if _, err := c.fs.Stat(c.set.Report()); err == nil {
			if err := c.fs.Rename(c.set.Report(), c.set.RetainedReport()); err != nil {
				return fmt.Errorf("failed to retain %s: %w", c.set.Base+".gcov", err)
			}
		}
	}
	if err := c.fs.RemoveAll(c.set.Dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", c.set.Dir, err)
	}
	return nil
}

func (c *Cleaner) remove(path string) error {
	err := c.fs.Remove(path)
	if err == nil {
		logger.Debug("removed %s", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to remove %s: %w", path, err)
}
