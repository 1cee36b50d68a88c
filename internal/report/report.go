// Package report presents coverage results on a terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/zjy-dev/ccover/internal/coverage"
)

// ColorMode selects when output is colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto" // color when the output is a terminal
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Reporter presents the outcome of a run.
type Reporter interface {
	Coverage(source string, s *coverage.Summary)
	Failure(err error)
}

// Options configures a Terminal.
type Options struct {
	Threshold     float64 // percentages below it are shown as failing
	BarWidth      int
	ShowUncovered bool
	Color         ColorMode
}

// Terminal renders reports as colored text.
type Terminal struct {
	out  io.Writer
	opts Options

	pass *color.Color
	fail *color.Color
	bar  *color.Color
	dim  *color.Color
}

// NewTerminal creates a Terminal writing to out.
func NewTerminal(out io.Writer, opts Options) *Terminal {
	if opts.BarWidth <= 0 {
		opts.BarWidth = 40
	}
	t := &Terminal{
		out:  out,
		opts: opts,
		pass: color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		bar:  color.New(color.FgGreen),
		dim:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{t.pass, t.fail, t.bar, t.dim} {
		switch opts.Color {
		case ColorAlways:
			c.EnableColor()
		case ColorNever:
			c.DisableColor()
		}
	}
	return t
}

// Passes reports whether percentage meets the threshold.
func (t *Terminal) Passes(percentage float64) bool {
	return percentage >= t.opts.Threshold
}

// Coverage prints the percentage, the line counts and a completion bar.
func (t *Terminal) Coverage(source string, s *coverage.Summary) {
	style := t.fail
	if t.Passes(s.Percentage) {
		style = t.pass
	}
	style.Fprintf(t.out, "Coverage for `%s`: %s%%\n%d/%d lines covered\n",
		source, FormatPercent(s.Percentage), s.CoveredLines, s.TotalLines)

	fmt.Fprintln(t.out, t.Bar(s.Percentage))

	if t.opts.ShowUncovered && len(s.UncoveredLines) > 0 {
		nums := make([]string, len(s.UncoveredLines))
		for i, n := range s.UncoveredLines {
			nums[i] = strconv.Itoa(n)
		}
		t.dim.Fprintf(t.out, "Uncovered lines: %s\n", strings.Join(nums, ", "))
	}
}

// Bar renders a completion bar for percentage followed by the percentage.
func (t *Terminal) Bar(percentage float64) string {
	width := t.opts.BarWidth
	filled := int(float64(width) * percentage / 100)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var sb strings.Builder
	sb.WriteString("[")
	if filled > 0 {
		sb.WriteString(t.bar.Sprint(strings.Repeat("█", filled)))
	}
	if empty := width - filled; empty > 0 {
		sb.WriteString(t.dim.Sprint(strings.Repeat("░", empty)))
	}
	sb.WriteString("] ")
	sb.WriteString(FormatPercent(percentage))
	sb.WriteString("%")
	return sb.String()
}

// Failure prints err in bold red.
func (t *Terminal) Failure(err error) {
	t.fail.Fprintln(t.out, err.Error())
}

// FormatPercent prints p with as many decimals as it has, but at least one:
// 80 is "80.0", 66.67 is "66.67".
func FormatPercent(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
