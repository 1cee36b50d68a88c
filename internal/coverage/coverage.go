// Package coverage runs gcov and turns its per-line annotation into a summary.
package coverage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"

	"github.com/spf13/afero"
)

var (
	// ErrReportMissing means the annotation file gcov was expected to write is absent.
	ErrReportMissing = errors.New("coverage report missing")
	// ErrNoExecutableLines means the report had no covered or uncovered lines.
	ErrNoExecutableLines = errors.New("no executable lines in coverage report")
)

// LineKind classifies one annotated source line.
type LineKind int

const (
	NotExecutable LineKind = iota
	Covered
	Uncovered
)

func (k LineKind) String() string {
	switch k {
	case Covered:
		return "covered"
	case Uncovered:
		return "uncovered"
	default:
		return "not-executable"
	}
}

// Line is one classified annotation line. Number is the source line number,
// or 0 when the annotation did not carry one.
type Line struct {
	Kind   LineKind
	Number int
}

// Summary holds the line coverage of one source file.
type Summary struct {
	TotalLines   int
	CoveredLines int
	// Percentage is 100*CoveredLines/TotalLines rounded to two decimals.
	Percentage float64
	// UncoveredLines lists source line numbers of uncovered lines, in report order.
	UncoveredLines []int
}

// Add counts l towards the totals. Percentage is not updated; call Finish.
func (s *Summary) Add(l Line) {
	switch l.Kind {
	case Uncovered:
		s.TotalLines++
		if l.Number > 0 {
			s.UncoveredLines = append(s.UncoveredLines, l.Number)
		}
	case Covered:
		s.TotalLines++
		s.CoveredLines++
	}
}

// Finish computes Percentage, failing when nothing was executable.
func (s *Summary) Finish() error {
	p, err := Percentage(s.CoveredLines, s.TotalLines)
	if err != nil {
		return err
	}
	s.Percentage = p
	return nil
}

// Percentage returns 100*covered/total rounded to two decimals, exact ties
// to even (1/160 is 0.62).
func Percentage(covered, total int) (float64, error) {
	if total <= 0 {
		return 0, ErrNoExecutableLines
	}
	if covered < 0 || covered > total {
		return 0, fmt.Errorf("covered lines %d out of range [0, %d]", covered, total)
	}
	return math.RoundToEven(float64(covered)*10000/float64(total)) / 100, nil
}

// Parser turns an annotation report into a Summary. Implementations own the
// report format; callers only see the Summary.
type Parser interface {
	Parse(r io.Reader) (*Summary, error)
}

// Load opens the report at path and parses it with p.
func Load(afs afero.Fs, path string, p Parser) (*Summary, error) {
	f, err := afs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrReportMissing, path)
		}
		return nil, fmt.Errorf("failed to open coverage report: %w", err)
	}
	defer f.Close()

	return p.Parse(f)
}
