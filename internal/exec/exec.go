package exec

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ExecutionResult holds the outcome of a command execution.
type ExecutionResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns the captured stdout and stderr as one trimmed string.
func (r *ExecutionResult) Output() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Stdout + r.Stderr)
}

// Command describes a single external process invocation.
type Command struct {
	Path string
	Args []string
	// Dir is the working directory of the process. Empty means the caller's.
	Dir string
	// Attach connects the process to the executor's standard streams instead
	// of capturing its output.
	Attach bool
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Executor defines an interface for running external commands.
// This allows for mocking in tests.
type Executor interface {
	Run(ctx context.Context, c Command) (*ExecutionResult, error)
}

// CommandExecutor is a concrete implementation of the Executor interface
// that runs actual commands on the host system.
type CommandExecutor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewCommandExecutor creates a CommandExecutor whose attached commands share
// the standard streams of the current process.
func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the given command and returns its result.
func (e *CommandExecutor) Run(ctx context.Context, c Command) (*ExecutionResult, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	if c.Attach {
		cmd.Stdin = e.Stdin
		cmd.Stdout = e.Stdout
		cmd.Stderr = e.Stderr
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	result := &ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	// cmd.Run() returns an error for non-zero exit codes, but we handle
	// the exit code explicitly. So, we only return other kinds of errors
	// (e.g., command not found).
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, err
		}
	}

	return result, nil
}
