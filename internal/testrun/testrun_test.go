package testrun

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/ccover/internal/exec"
)

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

func TestRunner_Run(t *testing.T) {
	m := &MockExecutor{}
	code, err := NewRunner(m).Run(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	require.Len(t, m.Calls, 1)
	assert.Equal(t, "./test", m.Calls[0].Path)
	assert.Empty(t, m.Calls[0].Args)
	assert.True(t, m.Calls[0].Attach, "test output must be visible to the operator")
}

func TestRunner_Run_FailingTestIsNotAnError(t *testing.T) {
	m := &MockExecutor{
		RunFunc: func(c exec.Command) (*exec.ExecutionResult, error) {
			return &exec.ExecutionResult{ExitCode: 134}, nil
		},
	}
	code, err := NewRunner(m).Run(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, 134, code)
}

func TestRunner_Run_LaunchFailure(t *testing.T) {
	m := &MockExecutor{
		RunFunc: func(c exec.Command) (*exec.ExecutionResult, error) {
			return nil, errors.New("permission denied")
		},
	}
	_, err := NewRunner(m).Run(context.Background(), "test")

	assert.ErrorContains(t, err, "failed to launch test")
}

func TestExecutable(t *testing.T) {
	assert.Equal(t, "./test", Executable("test"))
	assert.Equal(t, "./.ccover-1/test", Executable(".ccover-1/test"))
	assert.Equal(t, "./test", Executable("./test"))
	assert.Equal(t, "../bin/test", Executable("../bin/test"))
	assert.Equal(t, "/tmp/test", Executable("/tmp/test"))
}
