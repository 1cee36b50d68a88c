// Package pipeline builds an instrumented test binary for a C source file,
// runs it, and turns gcov's annotation into a coverage summary.
//
// A run is strictly sequential. Artifact names are fixed unless the run is
// isolated, so two non-isolated runs must not share a working directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/zjy-dev/ccover/internal/artifact"
	"github.com/zjy-dev/ccover/internal/build"
	"github.com/zjy-dev/ccover/internal/coverage"
	"github.com/zjy-dev/ccover/internal/exec"
	"github.com/zjy-dev/ccover/internal/include"
	"github.com/zjy-dev/ccover/internal/logger"
	"github.com/zjy-dev/ccover/internal/prompt"
	"github.com/zjy-dev/ccover/internal/recovery"
	"github.com/zjy-dev/ccover/internal/report"
	"github.com/zjy-dev/ccover/internal/testrun"
)

// Deps are the capabilities a pipeline acts through.
type Deps struct {
	Fs       afero.Fs
	Executor exec.Executor
	Prompter prompt.Prompter
	Reporter report.Reporter
	// Parser reads the annotation report. Defaults to coverage.GcovParser.
	Parser coverage.Parser
}

// Settings are the tool settings of a pipeline.
type Settings struct {
	// Root is the working directory artifacts are generated in. Defaults to ".".
	Root          string
	CompilerPath  string
	CFlags        []string
	CoverageFlags []string
	GcovPath      string
	// Isolate generates artifacts in a per-run directory under Root.
	Isolate bool
}

// Options are per-run options.
type Options struct {
	// KeepReport leaves <base>.gcov on disk after a successful run.
	KeepReport bool
}

// Pipeline runs coverage measurements.
type Pipeline struct {
	deps     Deps
	settings Settings
}

// New creates a Pipeline.
func New(deps Deps, settings Settings) *Pipeline {
	if deps.Parser == nil {
		deps.Parser = coverage.GcovParser{}
	}
	if settings.Root == "" {
		settings.Root = "."
	}
	return &Pipeline{deps: deps, settings: settings}
}

// run holds the per-invocation components, all bound to one artifact set.
type run struct {
	artifacts  artifact.Set
	driver     *build.Driver
	negotiator *recovery.Negotiator
	tests      *testrun.Runner
	gcov       *coverage.Gcov
	cleaner    *artifact.Cleaner
}

// Run measures the coverage of u.Source exercised by u.Test and reports it.
//
// Missing inputs fail before anything is executed. Every later failure
// cleans up the artifacts generated so far; the report is only kept for a
// parse failure or a successful run, and only when opts.KeepReport is set.
func (p *Pipeline) Run(ctx context.Context, u build.SourceUnit, opts Options) (*coverage.Summary, error) {
	if err := p.validate(u); err != nil {
		return nil, err
	}

	counts, err := p.scan(u)
	if err != nil {
		return nil, &StageError{Stage: "scan", Err: err}
	}

	r, err := p.newRun(u)
	if err != nil {
		return nil, &StageError{Stage: "prepare", Err: err}
	}

	bu, err := r.buildUnit(u)
	if err != nil {
		r.finish(false)
		return nil, &StageError{Stage: "prepare", Err: err}
	}

	summary, err := r.execute(ctx, p.deps, bu, counts)
	if err != nil {
		keep := opts.KeepReport && (errors.Is(err, coverage.ErrReportMissing) || errors.Is(err, coverage.ErrNoExecutableLines))
		r.finish(keep)
		return nil, err
	}

	p.deps.Reporter.Coverage(u.Source, summary)
	r.finish(opts.KeepReport)
	return summary, nil
}

func (p *Pipeline) validate(u build.SourceUnit) error {
	for _, in := range []struct{ role, path string }{{"Source", u.Source}, {"Test", u.Test}} {
		info, err := p.deps.Fs.Stat(in.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &MissingInputError{Role: in.role, Path: in.path}
			}
			return fmt.Errorf("failed to check %s: %w", in.path, err)
		}
		if info.IsDir() {
			return &MissingInputError{Role: in.role, Path: in.path}
		}
	}
	return nil
}

func (p *Pipeline) scan(u build.SourceUnit) (recovery.Counts, error) {
	s := include.NewScanner(p.deps.Fs)
	src, err := s.Count(u.Source)
	if err != nil {
		return recovery.Counts{}, err
	}
	tst, err := s.Count(u.Test)
	if err != nil {
		return recovery.Counts{}, err
	}
	logger.Debug("local includes: %s=%d %s=%d", u.Source, src, u.Test, tst)
	return recovery.Counts{Source: src, Test: tst}, nil
}

func (p *Pipeline) newRun(u build.SourceUnit) (*run, error) {
	set := artifact.NewSet(p.settings.Root, u.Source)
	if p.settings.Isolate {
		var err error
		if set, err = artifact.NewIsolatedSet(p.deps.Fs, p.settings.Root, u.Source); err != nil {
			return nil, err
		}
		logger.Debug("artifacts isolated in %s", set.Dir)
	}

	driver := build.NewDriver(p.deps.Executor, build.DriverConfig{
		CompilerPath:  p.settings.CompilerPath,
		CFlags:        p.settings.CFlags,
		CoverageFlags: p.settings.CoverageFlags,
		Artifacts:     set,
	})
	cleaner := artifact.NewCleaner(p.deps.Fs, set)

	return &run{
		artifacts:  set,
		driver:     driver,
		negotiator: recovery.NewNegotiator(p.deps.Fs, p.deps.Prompter, driver, cleaner),
		tests:      testrun.NewRunner(p.deps.Executor),
		gcov:       coverage.NewGcov(p.deps.Executor, p.settings.GcovPath, set),
		cleaner:    cleaner,
	}, nil
}

// buildUnit is u with paths as the compiler should see them.
func (r *run) buildUnit(u build.SourceUnit) (build.SourceUnit, error) {
	src, err := r.artifacts.BuildPath(u.Source)
	if err != nil {
		return build.SourceUnit{}, err
	}
	tst, err := r.artifacts.BuildPath(u.Test)
	if err != nil {
		return build.SourceUnit{}, err
	}
	return build.SourceUnit{Source: src, Test: tst}, nil
}

func (r *run) execute(ctx context.Context, deps Deps, u build.SourceUnit, counts recovery.Counts) (*coverage.Summary, error) {
	// The object file is a by-product, not a gate: a failed compile still
	// goes on to the link, which reports the real problem.
	if _, err := r.driver.CompileObject(ctx, u.Source); err != nil {
		if ctx.Err() != nil {
			return nil, &StageError{Stage: "compile", Err: ctx.Err()}
		}
		logger.Warn("compiling %s failed, linking anyway: %v", u.Source, err)
	}

	bin, err := r.driver.LinkInstrumented(ctx, build.ForUnit(u))
	if err != nil {
		if ctx.Err() != nil {
			return nil, &StageError{Stage: "link", Err: ctx.Err()}
		}
		logger.Info("link failed, attempting recovery: %v", err)
		if bin, err = r.negotiator.Recover(ctx, u, counts); err != nil {
			return nil, &StageError{Stage: "link", Err: err}
		}
	}

	if _, err := r.tests.Run(ctx, bin.Path); err != nil {
		return nil, &StageError{Stage: "test", Err: err}
	}

	for _, c := range r.artifacts.Counters() {
		if ok, _ := afero.Exists(deps.Fs, c); !ok {
			logger.Warn("%s was not generated", c)
		}
	}

	if err := r.gcov.Annotate(ctx); err != nil {
		return nil, &StageError{Stage: "annotate", Err: err}
	}

	return coverage.Load(deps.Fs, r.artifacts.Report(), deps.Parser)
}

func (r *run) finish(keepReport bool) {
	if err := r.cleaner.Clean(keepReport); err != nil {
		logger.Warn("cleanup: %v", err)
	}
	if err := r.cleaner.Release(keepReport); err != nil {
		logger.Warn("cleanup: %v", err)
	}
}
