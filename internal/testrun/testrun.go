// Package testrun executes the instrumented test binary.
package testrun

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zjy-dev/ccover/internal/exec"
	"github.com/zjy-dev/ccover/internal/logger"
)

// Runner executes a test binary with the operator's terminal attached.
type Runner struct {
	executor exec.Executor
}

// NewRunner creates a Runner.
func NewRunner(executor exec.Executor) *Runner {
	return &Runner{executor: executor}
}

// Run executes binary without arguments and returns its exit code. A failing
// test program is not an error; only failing to start it is. There is no
// timeout: a test that never exits blocks until ctx is canceled.
func (r *Runner) Run(ctx context.Context, binary string) (int, error) {
	cmd := exec.Command{Path: Executable(binary), Attach: true}
	logger.Debug("run: %s", cmd)

	result, err := r.executor.Run(ctx, cmd)
	if err != nil {
		return -1, fmt.Errorf("failed to launch %s: %w", binary, err)
	}
	if result.ExitCode != 0 {
		logger.Warn("%s exited with code %d", binary, result.ExitCode)
	}
	return result.ExitCode, nil
}

// Executable makes a relative binary path explicit ("test" becomes "./test")
// so it is not looked up in PATH.
func Executable(binary string) string {
	if filepath.IsAbs(binary) || strings.HasPrefix(binary, "."+string(filepath.Separator)) || strings.HasPrefix(binary, ".."+string(filepath.Separator)) {
		return binary
	}
	return "." + string(filepath.Separator) + binary
}
