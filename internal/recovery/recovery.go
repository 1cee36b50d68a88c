// Package recovery retries a failed instrumented link once, after asking the
// operator for the extra files the sources' local includes probably need.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/zjy-dev/ccover/internal/build"
	"github.com/zjy-dev/ccover/internal/logger"
	"github.com/zjy-dev/ccover/internal/prompt"
)

const filesQuestion = "Enter the files that need to be imported"

// Counts holds the local include counts of a unit's files.
type Counts struct {
	Source int
	Test   int
}

// Linker performs the instrumented link.
type Linker interface {
	LinkInstrumented(ctx context.Context, plan *build.Plan) (*build.Binary, error)
}

// Cleaner removes the artifacts of a failed attempt.
type Cleaner interface {
	Clean(keepReport bool) error
}

// Negotiator recovers from a failed link. It prompts at most once and
// retries at most once.
type Negotiator struct {
	fs       afero.Fs
	prompter prompt.Prompter
	linker   Linker
	cleaner  Cleaner
}

// NewNegotiator creates a Negotiator.
func NewNegotiator(fs afero.Fs, p prompt.Prompter, l Linker, c Cleaner) *Negotiator {
	return &Negotiator{fs: fs, prompter: p, linker: l, cleaner: c}
}

// Question returns the confirmation question for the given include counts,
// and false when neither file has local includes and nothing is asked.
func (n *Negotiator) Question(u build.SourceUnit, c Counts) (string, bool) {
	switch {
	case c.Source > 0 && c.Test > 0:
		return fmt.Sprintf("There are %d missing imports from %s and %s. Do you want to continue?",
			c.Source+c.Test, u.Source, u.Test), true
	case c.Source > 0:
		return fmt.Sprintf("Source file `%s` has %d imports. Do you want to continue?", u.Source, c.Source), true
	case c.Test > 0:
		return fmt.Sprintf("Test file `%s` has %d imports. Do you want to continue?", u.Test, c.Test), true
	default:
		return "", false
	}
}

// Extras asks the operator for additional files to link. It returns nil when
// there is nothing to ask about or the operator declines.
func (n *Negotiator) Extras(u build.SourceUnit, c Counts) ([]string, error) {
	question, ok := n.Question(u, c)
	if !ok {
		return nil, nil
	}

	confirmed, err := n.prompter.Confirm(question)
	if errors.Is(err, prompt.ErrNoInput) {
		logger.Warn("no answer on input, continuing without extra files")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, nil
	}

	answer, err := n.prompter.Ask(filesQuestion)
	if errors.Is(err, prompt.ErrNoInput) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return strings.Fields(answer), nil
}

// Plan is the retry plan: the unit's files plus the extras that exist.
func (n *Negotiator) Plan(u build.SourceUnit, extras []string) *build.Plan {
	plan := build.ForUnit(u)
	if dropped := plan.AddExisting(n.fs, extras...); len(dropped) > 0 {
		logger.Debug("ignoring files that do not exist: %s", strings.Join(dropped, " "))
	}
	return plan
}

// Recover collects extra files, cleans up the failed attempt and links again.
// When neither file has local includes the retry uses the unchanged plan.
// A failed retry is returned as is; there is no second attempt.
func (n *Negotiator) Recover(ctx context.Context, u build.SourceUnit, c Counts) (*build.Binary, error) {
	extras, err := n.Extras(u, c)
	if err != nil {
		return nil, fmt.Errorf("failed to collect extra files: %w", err)
	}

	if err := n.cleaner.Clean(false); err != nil {
		logger.Warn("cleanup before retry: %v", err)
	}

	plan := n.Plan(u, extras)
	logger.Info("retrying link with %d files: %s", plan.Len(), strings.Join(plan.Files(), " "))

	bin, err := n.linker.LinkInstrumented(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("retry failed: %w", err)
	}
	return bin, nil
}
