package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zjy-dev/ccover/internal/coverage"
)

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "80.0", FormatPercent(80))
	assert.Equal(t, "100.0", FormatPercent(100))
	assert.Equal(t, "0.0", FormatPercent(0))
	assert.Equal(t, "66.67", FormatPercent(66.67))
	assert.Equal(t, "12.5", FormatPercent(12.5))
}

func TestTerminal_Coverage_Plain(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, Options{Threshold: 80, BarWidth: 10, Color: ColorNever})

	term.Coverage("source.c", &coverage.Summary{TotalLines: 10, CoveredLines: 8, Percentage: 80})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"Coverage for `source.c`: 80.0%",
		"8/10 lines covered",
		"[████████░░] 80.0%",
	}, lines)
}

func TestTerminal_Coverage_ThresholdColors(t *testing.T) {
	const green, red = "\x1b[32;1m", "\x1b[31;1m"

	tests := []struct {
		name string
		pct  float64
		want string
		not  string
	}{
		{"at threshold", 80, green, red},
		{"above", 93.75, green, red},
		{"below", 79.99, red, green},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			term := NewTerminal(&buf, Options{Threshold: 80, Color: ColorAlways})
			term.Coverage("source.c", &coverage.Summary{TotalLines: 100, CoveredLines: 80, Percentage: tt.pct})

			first := strings.SplitN(buf.String(), "\n", 2)[0]
			assert.True(t, strings.HasPrefix(first, tt.want), "got %q", first)
			assert.NotContains(t, first, tt.not)
		})
	}
}

func TestTerminal_Passes(t *testing.T) {
	term := NewTerminal(&bytes.Buffer{}, Options{Threshold: 80})
	assert.True(t, term.Passes(80.0))
	assert.False(t, term.Passes(79.99))
}

func TestTerminal_Bar(t *testing.T) {
	term := NewTerminal(&bytes.Buffer{}, Options{BarWidth: 4, Color: ColorNever})
	assert.Equal(t, "[░░░░] 0.0%", term.Bar(0))
	assert.Equal(t, "[██░░] 50.0%", term.Bar(50))
	assert.Equal(t, "[████] 100.0%", term.Bar(100))
}

func TestTerminal_ShowUncovered(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, Options{ShowUncovered: true, Color: ColorNever})
	term.Coverage("source.c", &coverage.Summary{TotalLines: 3, CoveredLines: 1, Percentage: 33.33, UncoveredLines: []int{7, 12}})

	assert.Contains(t, buf.String(), "Uncovered lines: 7, 12")
}

func TestTerminal_Failure(t *testing.T) {
	var buf bytes.Buffer
	NewTerminal(&buf, Options{Color: ColorNever}).Failure(errors.New("source file `source.c` does not exist"))
	assert.Equal(t, "source file `source.c` does not exist\n", buf.String())
}
