package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cematrix/cematrix/internal/actions"
	"github.com/cematrix/cematrix/internal/config"
)

var (
	runResultsDir     string
	runTableFile      string
	runCompilerFilter []string
	runTestFilter     []string
	runGroupFilter    []string
	runAllTests       bool
	runTable          bool
	runDebug          bool
	runPreprocessOnly bool
	runDelay          float64
	runLanguage       string
)

var runCmd = &cobra.Command{
	Use:   "run <suite.yaml>",
	Short: "Run a test suite across the configured compilers",
	Long: `Run every selected test variant against every selected compiler and
write per-job artifacts, a summary.json and (optionally) a markdown
compatibility table under the results directory.

By default only auto-detection variants run, plus whole groups that define
none. Use --all to run every variant; --table implies --all.

Examples:
  cematrix run tests.yaml
  cematrix run tests.yaml --all
  cematrix run tests.yaml --table -o out
  cematrix run tests.yaml -c gcc -c clang -t va_opt_native
  cematrix run tests.yaml --preprocess-only --group va_opt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		opts := actions.RunOptions{
			SuiteFile:      args[0],
			ResultsDir:     runResultsDir,
			TableFile:      runTableFile,
			CompilerFilter: runCompilerFilter,
			TestFilter:     runTestFilter,
			GroupFilter:    runGroupFilter,
			All:            runAllTests,
			Table:          runTable,
			Debug:          runDebug,
			PreprocessOnly: runPreprocessOnly,
			Delay:          time.Duration(runDelay * float64(time.Second)),
			Language:       runLanguage,
			GodboltURL:     cfg.GodboltURL,
			APITimeout:     cfg.APITimeout,
			BuildTimeout:   cfg.BuildTimeout,
			RunTimeout:     cfg.RunTimeout,
		}

		// Flags left at their defaults fall back to env configuration.
		if !cmd.Flags().Changed("results-dir") {
			opts.ResultsDir = cfg.ResultsDir
		}

		if !cmd.Flags().Changed("delay") {
			opts.Delay = cfg.RequestDelay
		}

		if !cmd.Flags().Changed("language") {
			opts.Language = cfg.Language
		}

		outcome, err := actions.Run(cmd.Context(), Logger, os.Stdout, opts)
		if err != nil {
			return err
		}

		if !outcome.AllPassed() {
			os.Exit(1)
		}

		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runResultsDir, "results-dir", "o", "results", "Directory for output files")
	runCmd.Flags().StringVar(&runTableFile, "table-file", "", "Path for the markdown table (default: <results-dir>/table.md)")
	runCmd.Flags().StringArrayVarP(&runCompilerFilter, "compiler", "c", nil, "Filter by compiler nickname (can be repeated)")
	runCmd.Flags().StringArrayVarP(&runTestFilter, "test", "t", nil, "Filter by test name or variant (can be repeated)")
	runCmd.Flags().StringArrayVarP(&runGroupFilter, "group", "g", nil, "Filter by test group (can be repeated)")
	runCmd.Flags().BoolVarP(&runAllTests, "all", "a", false, "Run all tests (default: only auto tests)")
	runCmd.Flags().BoolVarP(&runTable, "table", "T", false, "Generate markdown summary table (implies --all)")
	runCmd.Flags().BoolVarP(&runDebug, "debug", "d", false, "Save full API responses for debugging")
	runCmd.Flags().BoolVarP(&runPreprocessOnly, "preprocess-only", "P", false, "Only run preprocessing and save results (no compilation or execution)")
	runCmd.Flags().Float64Var(&runDelay, "delay", 0.5, "Delay between API requests in seconds")
	runCmd.Flags().StringVar(&runLanguage, "language", "c", "Programming language")
	rootCmd.AddCommand(runCmd)
}
