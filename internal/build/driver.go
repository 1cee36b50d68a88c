package build

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjy-dev/ccover/internal/artifact"
	"github.com/zjy-dev/ccover/internal/exec"
	"github.com/zjy-dev/ccover/internal/logger"
)

// ErrBuildFailed is matched by every compile or link failure.
var ErrBuildFailed = errors.New("build failed")

// StepError describes a failed compiler invocation.
type StepError struct {
	Step     string // "compile" or "link"
	ExitCode int    // -1 when the compiler could not be started
	Output   string // captured compiler output, empty for the attached compile step
	Err      error  // launch error, if any
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s step failed with exit code %d", e.Step, e.ExitCode)
}

func (e *StepError) Is(target error) bool { return target == ErrBuildFailed }

func (e *StepError) Unwrap() error { return e.Err }

// ObjectFile is the result of a compile-only step.
type ObjectFile struct {
	Path string
}

// Binary is the instrumented test binary.
type Binary struct {
	Path  string
	Files []string // files linked into it
}

// DriverConfig holds the configuration for Driver.
type DriverConfig struct {
	CompilerPath  string   // e.g. "gcc"
	CFlags        []string // added to both steps
	CoverageFlags []string // instrumentation flags for the link step
	Artifacts     artifact.Set
}

// Driver runs the compiler: an object-only compile of the source, then the
// instrumented multi-file link into the test binary.
type Driver struct {
	executor      exec.Executor
	compilerPath  string
	cflags        []string
	coverageFlags []string
	artifacts     artifact.Set
}

// NewDriver creates a Driver.
func NewDriver(executor exec.Executor, cfg DriverConfig) *Driver {
	return &Driver{
		executor:      executor,
		compilerPath:  cfg.CompilerPath,
		cflags:        cfg.CFlags,
		coverageFlags: cfg.CoverageFlags,
		artifacts:     cfg.Artifacts,
	}
}

// CompileObject compiles source into <stem>.o. The compiler shares the
// terminal, so its diagnostics reach the operator.
func (d *Driver) CompileObject(ctx context.Context, source string) (*ObjectFile, error) {
	var args []string
	args = append(args, d.cflags...)
	args = append(args, "-c", source, "-o", d.artifacts.ObjectFile())

	if err := d.run(ctx, "compile", args, true); err != nil {
		return nil, err
	}
	return &ObjectFile{Path: d.artifacts.ObjectFile()}, nil
}

// LinkInstrumented compiles and links every planned file with coverage
// instrumentation into the test binary. Compiler output is captured, not shown.
func (d *Driver) LinkInstrumented(ctx context.Context, plan *Plan) (*Binary, error) {
	files := plan.Files()

	var args []string
	args = append(args, d.cflags...)
	args = append(args, d.coverageFlags...)
	args = append(args, files...)
	args = append(args, "-o", d.artifacts.Binary())

	if err := d.run(ctx, "link", args, false); err != nil {
		return nil, err
	}
	return &Binary{Path: d.artifacts.Binary(), Files: files}, nil
}

func (d *Driver) run(ctx context.Context, step string, args []string, attach bool) error {
	cmd := exec.Command{Path: d.compilerPath, Args: args, Attach: attach}
	logger.Debug("%s: %s", step, cmd)

	result, err := d.executor.Run(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &StepError{Step: step, ExitCode: -1, Err: err}
	}
	if result.ExitCode != 0 {
		logger.Debug("%s output:\n%s", step, result.Output())
		return &StepError{Step: step, ExitCode: result.ExitCode, Output: result.Output()}
	}
	return nil
}
