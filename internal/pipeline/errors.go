package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrPreconditionMissing is matched when an input file does not exist.
	ErrPreconditionMissing = errors.New("precondition missing")
	// ErrPipelineFailed is matched by every unrecovered stage failure.
	ErrPipelineFailed = errors.New("pipeline failed")
)

// MissingInputError reports an input file that does not exist.
type MissingInputError struct {
	Role string // "Source" or "Test"
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s file `%s` does not exist", e.Role, e.Path)
}

func (e *MissingInputError) Is(target error) bool { return target == ErrPreconditionMissing }

// StageError wraps the failure of a pipeline stage that could not be recovered.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("error running tests: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Is(target error) bool { return target == ErrPipelineFailed }

func (e *StageError) Unwrap() error { return e.Err }
