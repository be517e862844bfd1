// Package actions contains the core business logic for cematrix operations
package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cematrix/cematrix/internal/godbolt"
	"github.com/cematrix/cematrix/internal/matrix"
	"github.com/cematrix/cematrix/internal/report"
	"github.com/cematrix/cematrix/internal/suite"
	"github.com/cematrix/cematrix/internal/toolchain"
)

var (
	// ErrNoCompilers is returned when a compiler filter matches nothing.
	ErrNoCompilers = errors.New("no compilers matching")
	// ErrNoTests is returned when a test or group filter matches nothing.
	ErrNoTests = errors.New("no tests matching")
	// ErrNothingToRun is returned when the suite leaves no work to do.
	ErrNothingToRun = errors.New("no compilers or tests to run")
)

// RunOptions configures a matrix run. Filter slices are matched against
// compiler nicknames, test names or variants, and group names respectively.
type RunOptions struct {
	SuiteFile  string
	ResultsDir string
	TableFile  string

	CompilerFilter []string
	TestFilter     []string
	GroupFilter    []string

	All            bool
	Table          bool
	Debug          bool
	PreprocessOnly bool

	Delay    time.Duration
	Language string

	GodboltURL   string
	APITimeout   time.Duration
	BuildTimeout time.Duration
	RunTimeout   time.Duration
}

// Run executes the test matrix described by a suite file and reports to
// writer. The returned outcome tells the caller whether every effective
// pairing passed; errors cover setup problems, not test failures.
func Run(ctx context.Context, log logrus.FieldLogger, writer io.Writer, opts RunOptions) (*matrix.Outcome, error) {
	s, err := suite.NewLoader(log).Load(opts.SuiteFile)
	if err != nil {
		return nil, fmt.Errorf("loading suite: %w", err)
	}

	compilers := s.Compilers
	tests := s.Tests

	if len(opts.CompilerFilter) > 0 {
		compilers = suite.FilterCompilers(compilers, opts.CompilerFilter)
		if len(compilers) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoCompilers, strings.Join(opts.CompilerFilter, ", "))
		}
	}

	if len(opts.TestFilter) > 0 {
		tests = suite.FilterTests(tests, opts.TestFilter)
		if len(tests) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoTests, strings.Join(opts.TestFilter, ", "))
		}
	}

	if len(opts.GroupFilter) > 0 {
		tests = suite.FilterGroups(tests, opts.GroupFilter)
		if len(tests) == 0 {
			return nil, fmt.Errorf("%w groups: %s", ErrNoTests, strings.Join(opts.GroupFilter, ", "))
		}
	}

	// A table needs every variant, so --table implies --all.
	runAll := opts.All || opts.Table

	// Without --all or an explicit test filter, run only auto-detection
	// variants, keeping whole groups that have none.
	if !runAll && len(opts.TestFilter) == 0 {
		tests = suite.AutoOnly(tests)
	}

	if len(compilers) == 0 || len(tests) == 0 {
		return nil, ErrNothingToRun
	}

	if err := matrix.PrepareResultsDir(opts.ResultsDir); err != nil {
		return nil, fmt.Errorf("preparing results dir: %w", err)
	}

	client := godbolt.NewClient(log, opts.GodboltURL, opts.APITimeout)
	driver := toolchain.NewDriver(log, opts.BuildTimeout, opts.RunTimeout)

	runner := matrix.NewRunner(log, client, driver, matrix.RunnerConfig{
		ResultsDir: opts.ResultsDir,
		Language:   opts.Language,
		Delay:      opts.Delay,
		Debug:      opts.Debug,
	})

	collector := matrix.NewCollector(log)
	if err := collector.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting metrics collector: %w", err)
	}

	defer func() {
		if stopErr := collector.Stop(); stopErr != nil {
			log.WithError(stopErr).Warn("Failed to stop metrics collector")
		}
	}()

	orchestrator := matrix.NewOrchestrator(matrix.OrchestratorConfig{
		Logger:         log,
		Runner:         runner,
		Collector:      collector,
		Writer:         writer,
		ResultsDir:     opts.ResultsDir,
		RunAll:         runAll,
		PreprocessOnly: opts.PreprocessOnly,
	})

	outcome, err := orchestrator.Run(ctx, tests, compilers)
	if err != nil {
		return nil, err
	}

	renderer := report.NewRenderer(log, writer)

	if err := renderer.RenderText(""); err != nil {
		return outcome, err
	}

	if err := report.NewFailuresFormatter(log, renderer).Format(outcome.Results); err != nil {
		return outcome, err
	}

	if err := report.NewSummaryFormatter(log, renderer).Format(outcome, collector.Summary()); err != nil {
		return outcome, err
	}

	if opts.Table {
		tablePath := opts.TableFile
		if tablePath == "" {
			tablePath = filepath.Join(opts.ResultsDir, "table.md")
		}

		table := report.NewMatrixTable(log, driver)
		if err := table.WriteFile(ctx, tablePath, outcome.Results, compilers, tests); err != nil {
			return outcome, err
		}

		if err := renderer.RenderText("Table written to: " + tablePath); err != nil {
			return outcome, err
		}
	}

	return outcome, nil
}
