package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/cematrix/cematrix/internal/suite"
)

// OrchestratorConfig contains configuration for matrix orchestration.
type OrchestratorConfig struct {
	Logger         logrus.FieldLogger
	Runner         Runner
	Collector      Collector
	Writer         io.Writer
	ResultsDir     string
	RunAll         bool
	PreprocessOnly bool
}

// Orchestrator walks the test/compiler matrix sequentially. Auto variants
// seed a per-(compiler, group) cache keyed by the probed value; a later
// variant expecting that value reuses the cached result instead of running.
type Orchestrator struct {
	log            logrus.FieldLogger
	runner         Runner
	collector      Collector
	writer         io.Writer
	resultsDir     string
	runAll         bool
	preprocessOnly bool
}

// Outcome is the aggregate of one matrix run.
type Outcome struct {
	Results   []*Result
	Passed    int
	Effective int
}

// AllPassed reports whether every counted pairing passed.
func (o *Outcome) AllPassed() bool {
	return o.Passed == o.Effective
}

// NewOrchestrator creates a matrix orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	return &Orchestrator{
		log:            cfg.Logger.WithField("component", "orchestrator"),
		runner:         cfg.Runner,
		collector:      cfg.Collector,
		writer:         writer,
		resultsDir:     cfg.ResultsDir,
		runAll:         cfg.RunAll,
		preprocessOnly: cfg.PreprocessOnly,
	}
}

type reuseKey struct {
	compilerDisplay string
	group           string
}

// Run executes every test/compiler pairing in order and writes summary.json
// into the results dir. When the full matrix runs, auto variants do not
// count toward the total: each exists to seed the reuse cache, and the
// variant that matches its probed value is counted instead.
func (o *Orchestrator) Run(ctx context.Context, tests []suite.Variant, compilers []suite.Compiler) (*Outcome, error) {
	nonAuto := 0

	for i := range tests {
		if !tests[i].IsAuto {
			nonAuto++
		}
	}

	skipAutoCount := o.runAll && nonAuto > 0

	effective := len(tests) * len(compilers)
	if skipAutoCount {
		effective = nonAuto * len(compilers)
	}

	o.log.WithFields(logrus.Fields{
		"tests":     len(tests),
		"compilers": len(compilers),
		"pairings":  effective,
	}).Info("running test matrix")

	results := make([]*Result, 0, len(tests)*len(compilers))
	autoResults := make(map[reuseKey]map[int]*Result)

	passed := 0
	done := 0

	for i := range tests {
		test := &tests[i]

		for k := range compilers {
			compiler := &compilers[k]

			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("matrix run interrupted: %w", err)
			}

			key := reuseKey{compilerDisplay: compiler.DisplayName, group: test.Group}

			if !test.IsAuto && test.DetectValue != nil {
				if hit, ok := autoResults[key][*test.DetectValue]; ok {
					reused := hit.ReuseFor(test)
					results = append(results, reused)
					o.collector.RecordReuse()

					if reused.Passed {
						passed++
					}

					done++
					o.printResult(reused, done, effective, true, true)

					o.log.WithFields(logrus.Fields{
						"test":     test.TestName,
						"compiler": compiler.DisplayName,
						"value":    *test.DetectValue,
					}).Debug("reused auto result")

					continue
				}
			}

			start := time.Now()

			var result *Result
			if o.preprocessOnly {
				result = o.runner.Preprocess(ctx, test, compiler)
			} else {
				result = o.runner.Run(ctx, test, compiler)
			}

			results = append(results, result)

			o.collector.RecordJob(JobMetric{
				TestName:        test.TestName,
				CompilerDisplay: compiler.DisplayName,
				Stage:           result.Stage,
				Passed:          result.Passed,
				APIError:        result.APIError,
				Duration:        time.Since(start),
				Timestamp:       time.Now(),
			})

			if test.IsAuto && result.ImplValue != nil {
				if autoResults[key] == nil {
					autoResults[key] = make(map[int]*Result)
				}

				autoResults[key][*result.ImplValue] = result
			}

			if skipAutoCount && test.IsAuto {
				o.printResult(result, done, effective, false, false)

				continue
			}

			if result.Passed {
				passed++
			}

			done++
			o.printResult(result, done, effective, true, false)
		}
	}

	if err := o.writeSummary(results); err != nil {
		return nil, err
	}

	return &Outcome{Results: results, Passed: passed, Effective: effective}, nil
}

func (o *Orchestrator) printResult(result *Result, done, effective int, counted, reused bool) {
	switch {
	case counted && result.Passed:
		suffix := ""
		if reused {
			suffix = " (reused)"
		}

		fmt.Fprintf(o.writer, "[%d/%d] %s %s on %s%s\n",
			done, effective, color.GreenString("✓"), result.TestName, result.CompilerDisplay, suffix)
	case counted:
		fmt.Fprintf(o.writer, "[%d/%d] %s %s on %s (stage: %s)\n",
			done, effective, color.RedString("✗"), result.TestName, result.CompilerDisplay, result.Stage)
	case !result.Passed:
		fmt.Fprintf(o.writer, "%s %s on %s (stage: %s)\n",
			color.RedString("✗"), result.TestName, result.CompilerDisplay, result.Stage)
	}
}

func (o *Orchestrator) writeSummary(results []*Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	path := filepath.Join(o.resultsDir, "summary.json")

	//nolint:gosec // G306: results are meant to be user-readable
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	o.log.WithField("path", path).Debug("wrote run summary")

	return nil
}
