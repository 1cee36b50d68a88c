package coverage

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/ccover/internal/artifact"
	"github.com/zjy-dev/ccover/internal/exec"
)

const sampleReport = `        -:    0:Source:source.c
        -:    0:Graph:test-source.gcno
        -:    0:Data:test-source.gcda
        -:    0:Runs:1
        -:    1:#include "source.h"
        -:    2:
        3:    3:int add(int a, int b) {
        3:    4:    return a + b;
        -:    5:}
        -:    6:
    #####:    7:int sub(int a, int b) {
    #####:    8:    return a - b;
        -:    9:}
       1*:   10:int twice(int a) { return add(a, a); }
`

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want LineKind
	}{
		{"        3:    4:    return a + b;", Covered},
		{"   12345:   99:x++;", Covered},
		{"       1*:   10:int twice(int a)", Covered},
		{"    #####:    7:int sub(int a, int b) {", Uncovered},
		{"#####:1:", Uncovered},
		{"        -:    5:}", NotExecutable},
		{"        -:    0:Source:source.c", NotExecutable},
		{"", NotExecutable},
		{"     ", NotExecutable},
		{"=====:  3:throw;", NotExecutable},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.line))
		})
	}
}

func TestParseLine_Number(t *testing.T) {
	assert.Equal(t, Line{Kind: Uncovered, Number: 7}, ParseLine("    #####:    7:int sub(int a, int b) {"))
	assert.Equal(t, Line{Kind: Covered, Number: 4}, ParseLine("        3:    4:    return a + b;"))
	assert.Equal(t, Line{Kind: Uncovered}, ParseLine("#####"))
	assert.Equal(t, Line{Kind: NotExecutable}, ParseLine("        -:    2:"))
}

func TestGcovParser_Sample(t *testing.T) {
	s, err := GcovParser{}.Parse(strings.NewReader(sampleReport))
	require.NoError(t, err)

	assert.Equal(t, 5, s.TotalLines)
	assert.Equal(t, 3, s.CoveredLines)
	assert.Equal(t, 60.0, s.Percentage)
	assert.Equal(t, []int{7, 8}, s.UncoveredLines)
}

// synthetic builds a report with u marker lines, c digit-led lines and b
// blank or comment lines, interleaved.
func synthetic(u, c, b int) string {
	var sb strings.Builder
	n := 1
	for i := 0; i < max(u, c, b); i++ {
		if i < c {
			fmt.Fprintf(&sb, "%9d:%5d:x++;\n", i+1, n)
			n++
		}
		if i < u {
			fmt.Fprintf(&sb, "    #####:%5d:y++;\n", n)
			n++
		}
		if i < b {
			if i%2 == 0 {
				fmt.Fprintf(&sb, "        -:%5d:// comment\n", n)
			} else {
				sb.WriteString("\n")
			}
			n++
		}
	}
	return sb.String()
}

func TestGcovParser_Counts(t *testing.T) {
	tests := []struct {
		u, c, b int
		want    float64
	}{
		{2, 8, 0, 80.0},
		{2, 8, 5, 80.0},
		{0, 3, 1, 100.0},
		{3, 0, 2, 0.0},
		{1, 2, 0, 66.67},
		{2, 1, 4, 33.33},
		{7, 1, 0, 12.5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("u=%d,c=%d,b=%d", tt.u, tt.c, tt.b), func(t *testing.T) {
			s, err := GcovParser{}.Parse(strings.NewReader(synthetic(tt.u, tt.c, tt.b)))
			require.NoError(t, err)
			assert.Equal(t, tt.u+tt.c, s.TotalLines)
			assert.Equal(t, tt.c, s.CoveredLines)
			assert.Equal(t, tt.want, s.Percentage)
			assert.Len(t, s.UncoveredLines, tt.u)
		})
	}
}

func TestGcovParser_NoExecutableLines(t *testing.T) {
	for _, report := range []string{"", synthetic(0, 0, 4)} {
		_, err := GcovParser{}.Parse(strings.NewReader(report))
		assert.ErrorIs(t, err, ErrNoExecutableLines)
	}
}

func TestPercentage(t *testing.T) {
	p, err := Percentage(8, 10)
	require.NoError(t, err)
	assert.Equal(t, 80.0, p)

	p, err = Percentage(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 33.33, p)

	_, err = Percentage(0, 0)
	assert.ErrorIs(t, err, ErrNoExecutableLines)

	_, err = Percentage(4, 3)
	assert.Error(t, err)
}

func TestPercentage_TiesToEven(t *testing.T) {
	tests := []struct {
		covered, total int
		want           float64
	}{
		{1, 160, 0.62},
		{13, 160, 8.12},
		{1, 800, 0.12},
		{3, 800, 0.38},
		{1, 8, 12.5},
		{2, 3, 66.67},
		{10, 10, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.covered, tt.total), func(t *testing.T) {
			p, err := Percentage(tt.covered, tt.total)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/w/source.c.gcov", []byte(sampleReport), 0644))

	s, err := Load(fs, "/w/source.c.gcov", GcovParser{})
	require.NoError(t, err)
	assert.Equal(t, 60.0, s.Percentage)
}

func TestLoad_ReportMissing(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/w/source.c.gcov", GcovParser{})
	assert.ErrorIs(t, err, ErrReportMissing)
	assert.Contains(t, err.Error(), "source.c.gcov")
}

// MockExecutor is a mock implementation of exec.Executor for testing.
type MockExecutor struct {
	RunFunc func(c exec.Command) (*exec.ExecutionResult, error)
	Calls   []exec.Command
}

func (m *MockExecutor) Run(_ context.Context, c exec.Command) (*exec.ExecutionResult, error) {
	m.Calls = append(m.Calls, c)
	if m.RunFunc != nil {
		return m.RunFunc(c)
	}
	return &exec.ExecutionResult{ExitCode: 0}, nil
}

func TestGcov_Annotate(t *testing.T) {
	m := &MockExecutor{}
	g := NewGcov(m, "gcov", artifact.NewSet(".", "src/source.c"))

	require.NoError(t, g.Annotate(context.Background()))
	require.Len(t, m.Calls, 1)
	assert.Equal(t, "gcov", m.Calls[0].Path)
	assert.Equal(t, []string{"test-source.c"}, m.Calls[0].Args)
	assert.Empty(t, m.Calls[0].Dir)
	assert.False(t, m.Calls[0].Attach)
}

func TestGcov_Annotate_IsolatedDir(t *testing.T) {
	m := &MockExecutor{}
	set := artifact.NewSet(".", "source.c")
	set.Dir = ".ccover-1"

	require.NoError(t, NewGcov(m, "gcov-12", set).Annotate(context.Background()))
	assert.Equal(t, ".ccover-1", m.Calls[0].Dir)
}

func TestGcov_Annotate_NonZeroExitIsNotAnError(t *testing.T) {
	m := &MockExecutor{
		RunFunc: func(c exec.Command) (*exec.ExecutionResult, error) {
			return &exec.ExecutionResult{ExitCode: 1, Stderr: "test-source.gcno:cannot open notes file"}, nil
		},
	}
	assert.NoError(t, NewGcov(m, "gcov", artifact.NewSet(".", "source.c")).Annotate(context.Background()))
}

func TestGcov_Annotate_LaunchFailure(t *testing.T) {
	m := &MockExecutor{
		RunFunc: func(c exec.Command) (*exec.ExecutionResult, error) {
			return nil, fmt.Errorf("exec: %q: executable file not found in $PATH", c.Path)
		},
	}
	err := NewGcov(m, "gcov", artifact.NewSet(".", "source.c")).Annotate(context.Background())
	assert.ErrorContains(t, err, "failed to run gcov")
}
