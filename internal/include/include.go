// Package include counts local include directives in C source files.
package include

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

const directive = "#include"

// Scanner counts quoted #include lines. It never opens the included files.
type Scanner struct {
	fs afero.Fs
}

// NewScanner creates a Scanner reading through fs.
func NewScanner(fs afero.Fs) *Scanner {
	return &Scanner{fs: fs}
}

// Count returns the number of lines in path that are local includes.
func (s *Scanner) Count(path string) (int, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if IsLocal(scanner.Text()) {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return count, nil
}

// IsLocal reports whether line is an include whose argument is double-quoted.
// A directive with no argument is not an include of anything.
func IsLocal(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, directive) {
		return false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return false
	}
	return strings.HasPrefix(fields[1], `"`)
}
