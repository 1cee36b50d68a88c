package build

import (
	"path/filepath"

	"github.com/spf13/afero"
)

// SourceUnit is a C source file and the test file that exercises it.
type SourceUnit struct {
	Source string
	Test   string
}

// Plan is the ordered, de-duplicated set of files compiled into the test binary.
type Plan struct {
	files []string
	seen  map[string]struct{}
}

// NewPlan creates a plan holding paths in order, skipping duplicates.
func NewPlan(paths ...string) *Plan {
	p := &Plan{seen: make(map[string]struct{})}
	for _, path := range paths {
		p.Add(path)
	}
	return p
}

// ForUnit is the initial plan of a unit: its source and its test.
func ForUnit(u SourceUnit) *Plan {
	return NewPlan(u.Source, u.Test)
}

// Add appends path unless an equivalent path is already planned.
func (p *Plan) Add(path string) bool {
	key := filepath.Clean(path)
	if _, ok := p.seen[key]; ok {
		return false
	}
	p.seen[key] = struct{}{}
	p.files = append(p.files, path)
	return true
}

// AddExisting adds the paths that exist as files in fs and returns the ones
// that were dropped because they do not.
func (p *Plan) AddExisting(fs afero.Fs, paths ...string) (dropped []string) {
	for _, path := range paths {
		info, err := fs.Stat(path)
		if err != nil || info.IsDir() {
			dropped = append(dropped, path)
			continue
		}
		p.Add(path)
	}
	return dropped
}

// Files returns the planned files in order.
func (p *Plan) Files() []string {
	return append([]string(nil), p.files...)
}

// Len returns the number of planned files.
func (p *Plan) Len() int {
	return len(p.files)
}
