package coverage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/zjy-dev/ccover/internal/artifact"
	"github.com/zjy-dev/ccover/internal/exec"
	"github.com/zjy-dev/ccover/internal/logger"
)

// UncoveredMarker starts the count column of a line gcov saw but never executed.
const UncoveredMarker = "#####"

// Classify classifies one line of a gcov text annotation.
//
// Lines are trimmed first. The uncovered marker means uncovered; a leading
// decimal digit is an execution count and means covered. Everything else
// ("-:" non-executable lines, blanks) is not executable.
func Classify(raw string) LineKind {
	line := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(line, UncoveredMarker):
		return Uncovered
	case line != "" && line[0] >= '0' && line[0] <= '9':
		return Covered
	default:
		return NotExecutable
	}
}

// ParseLine classifies raw and extracts its source line number, the second
// ':' separated column of "count:lineno:source".
func ParseLine(raw string) Line {
	l := Line{Kind: Classify(raw)}
	if l.Kind == NotExecutable {
		return l
	}
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 3)
	if len(parts) >= 2 {
		if n, err := strconv.Atoi(strings.TrimFunc(parts[1], unicode.IsSpace)); err == nil {
			l.Number = n
		}
	}
	return l
}

// GcovParser parses the text annotation produced by gcov.
type GcovParser struct{}

// Parse implements Parser.
func (GcovParser) Parse(r io.Reader) (*Summary, error) {
	s := &Summary{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.Add(ParseLine(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read coverage report: %w", err)
	}
	if err := s.Finish(); err != nil {
		return nil, err
	}
	return s, nil
}

// Gcov invokes the gcov annotation tool for one artifact set.
type Gcov struct {
	executor  exec.Executor
	path      string
	artifacts artifact.Set
}

// NewGcov creates a Gcov runner. path is the gcov executable.
func NewGcov(executor exec.Executor, path string, artifacts artifact.Set) *Gcov {
	return &Gcov{executor: executor, path: path, artifacts: artifacts}
}

// Annotate runs gcov on the instrumented source inside the artifact
// directory, writing <base>.gcov there. Its output is captured and dropped.
// A non-zero exit is only logged: a missing report surfaces when it is loaded.
func (g *Gcov) Annotate(ctx context.Context) error {
	cmd := exec.Command{Path: g.path, Args: []string{g.artifacts.GcovTarget()}}
	if g.artifacts.Dir != "." {
		cmd.Dir = g.artifacts.Dir
	}
	logger.Debug("annotate: %s (dir %q)", cmd, cmd.Dir)

	result, err := g.executor.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", g.path, err)
	}
	if result.ExitCode != 0 {
		logger.Warn("%s exited with code %d: %s", g.path, result.ExitCode, result.Output())
	}
	return nil
}
