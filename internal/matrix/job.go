package matrix

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/sirupsen/logrus"

	"github.com/cematrix/cematrix/internal/godbolt"
	"github.com/cematrix/cematrix/internal/suite"
	"github.com/cematrix/cematrix/internal/toolchain"
)

// RunnerConfig carries the run-wide settings every job shares.
type RunnerConfig struct {
	ResultsDir string
	Language   string
	Delay      time.Duration
	Debug      bool
}

// Runner executes a single test variant against a single compiler. Run
// performs the full preprocess-compile-execute pipeline; Preprocess stops
// after the first stage. Neither returns an error: every failure mode is
// folded into the Result so one bad pairing never aborts the matrix.
type Runner interface {
	Run(ctx context.Context, test *suite.Variant, compiler *suite.Compiler) *Result
	Preprocess(ctx context.Context, test *suite.Variant, compiler *suite.Compiler) *Result
}

type runner struct {
	log    logrus.FieldLogger
	client godbolt.Client
	driver toolchain.Driver
	cfg    RunnerConfig
}

// NewRunner creates a job runner on top of a remote compiler client and a
// local toolchain driver.
func NewRunner(log logrus.FieldLogger, client godbolt.Client, driver toolchain.Driver, cfg RunnerConfig) Runner {
	return &runner{
		log:    log.WithField("component", "runner"),
		client: client,
		driver: driver,
		cfg:    cfg,
	}
}

// Run executes the full pipeline for one pairing. The execution mode after
// preprocessing depends on the compiler: remote execution by default, or one
// of the two local fallbacks for compilers the service cannot run.
func (r *runner) Run(ctx context.Context, test *suite.Variant, compiler *suite.Compiler) *Result {
	log := r.log.WithFields(logrus.Fields{
		"test":     test.TestName,
		"compiler": compiler.DisplayName,
	})

	arts, err := newArtifactSet(log, r.cfg.ResultsDir, test.TestName, compiler.DisplayName, false, r.cfg.Debug)
	if err != nil {
		return setupFailure(test, compiler, err)
	}

	j := newJob(test, compiler, arts)

	extraFlags := slices.Clone(compiler.ExtraFlags)

	// Clang's integrated assembler accepts slightly different directives
	// than GNU as, so ask for classic assembly when it will be assembled
	// locally.
	if compiler.LocalASM && strings.Contains(strings.ToLower(compiler.APIName), "clang") &&
		!slices.Contains(extraFlags, "-fno-integrated-as") {
		extraFlags = append(extraFlags, "-fno-integrated-as")
	}

	project, failure := r.prepare(log, j, extraFlags)
	if failure != nil {
		return failure
	}

	preprocessErr := project.Preprocess(ctx, godbolt.PreprocessOptions{
		FilterHeaders:   true,
		RestoreIncludes: true,
		TrimEmptyLines:  true,
	})
	r.pause(ctx)

	if preprocessErr != nil {
		arts.writeText(artifactPreprocessErr, preprocessErr.Error())

		return j.failed(StagePreprocessing, resultFlags{apiError: true}, preprocessErr.Error())
	}

	r.dumpResponse(arts, project)

	j.stderr["preprocess"] = project.CompilerStderr()
	warnings := project.HasWarnings()

	if project.HasErrors() {
		arts.writeText(artifactPreprocessErr, project.CompilerStderr())

		return j.result(StagePreprocessing, false, resultFlags{warnings: warnings, errors: true})
	}

	preprocessed, ok := project.Preprocessed()
	if !ok || strings.TrimSpace(preprocessed) == "" {
		arts.writeText(artifactPreprocessErr, "No preprocessed output")

		return j.result(StagePreprocessing, false, resultFlags{warnings: warnings})
	}

	arts.writeText(artifactPreprocessed, preprocessed)

	implValue := probeValue(project, test)

	switch compiler.Mode() {
	case suite.ModeLocalASM:
		return r.runLocalASM(ctx, j, project, implValue, warnings)
	case suite.ModeLocalCompile:
		return r.runLocalCompile(ctx, j, project, preprocessed, implValue, warnings)
	default:
		return r.runRemote(ctx, j, project, implValue, warnings)
	}
}

// Preprocess runs only the first stage and records its outcome. The job
// passes when preprocessing produced output without compiler errors.
func (r *runner) Preprocess(ctx context.Context, test *suite.Variant, compiler *suite.Compiler) *Result {
	log := r.log.WithFields(logrus.Fields{
		"test":     test.TestName,
		"compiler": compiler.DisplayName,
	})

	arts, err := newArtifactSet(log, r.cfg.ResultsDir, test.TestName, compiler.DisplayName, true, r.cfg.Debug)
	if err != nil {
		return setupFailure(test, compiler, err)
	}

	j := newJob(test, compiler, arts)

	project, failure := r.prepare(log, j, slices.Clone(compiler.ExtraFlags))
	if failure != nil {
		return failure
	}

	preprocessErr := project.Preprocess(ctx, godbolt.PreprocessOptions{
		FilterHeaders:   true,
		RestoreIncludes: true,
		TrimEmptyLines:  true,
	})
	r.pause(ctx)

	if preprocessErr != nil {
		arts.writeText(artifactPreprocessErr, preprocessErr.Error())

		return j.failed(StagePreprocessing, resultFlags{apiError: true}, preprocessErr.Error())
	}

	r.dumpResponse(arts, project)

	j.stderr["preprocess"] = project.CompilerStderr()
	warnings := project.HasWarnings()
	hasErrors := project.HasErrors()

	if hasErrors {
		arts.writeText(artifactPreprocessErr, project.CompilerStderr())
	}

	preprocessed, ok := project.Preprocessed()
	if !ok || strings.TrimSpace(preprocessed) == "" {
		arts.writeText(artifactPreprocessErr, "No preprocessed output")

		return j.result(StagePreprocessing, false, resultFlags{warnings: warnings})
	}

	arts.writeText(artifactPreprocessed, preprocessed)

	return j.result(StagePreprocessing, !hasErrors, resultFlags{
		implValue: probeValue(project, test),
		warnings:  warnings,
		errors:    hasErrors,
	})
}

// prepare reads and instruments the source and assembles the remote project:
// prepend lines, auxiliary files and the macro probe.
func (r *runner) prepare(log logrus.FieldLogger, j *job, extraFlags []string) (*godbolt.Project, *Result) {
	source, err := os.ReadFile(j.test.FileName)
	if err != nil {
		return nil, j.failed(StagePreprocessing, resultFlags{apiError: true}, fmt.Sprintf("Failed to read source: %v", err))
	}

	src := string(source)
	if len(j.test.PrependLines) > 0 {
		src = strings.Join(j.test.PrependLines, "\n") + "\n" + src
	}

	project := godbolt.NewProject(log, r.client, godbolt.ProjectConfig{
		Source:   src,
		Compiler: j.compiler.APIName,
		Language: r.cfg.Language,
		UserArgs: shellescape.QuoteCommand(extraFlags),
	})

	if len(j.test.AdditionalFiles) > 0 || len(j.test.IncludeDirs) > 0 {
		for _, f := range suite.LoadFiles(log, j.test) {
			project.AddFile(f.Name, f.Contents)
		}
	}

	if j.test.DetectMacro != "" {
		project.AddMacroProbe(j.test.DetectMacro)
	}

	return project, nil
}

// runLocalASM compiles to assembly remotely, then assembles, links and runs
// the program with the local toolchain.
func (r *runner) runLocalASM(ctx context.Context, j *job, project *godbolt.Project, implValue *int, warnings bool) *Result {
	// Unfiltered assembly keeps .globl and the other directives the local
	// assembler needs.
	compileErr := project.CompileToAsm(ctx, godbolt.AsmOptions{})
	r.pause(ctx)

	if compileErr != nil {
		j.stderr["compile"] = compileErr.Error()
		j.arts.writeText(artifactCompileErr, compileErr.Error())

		return j.result(StageCompilation, false, resultFlags{
			implValue: implValue,
			warnings:  warnings || project.HasWarnings(),
			apiError:  true,
		})
	}

	if project.HasErrors() {
		j.stderr["compile"] = project.CompilerStderr()
		j.arts.writeText(artifactCompileErr, project.CompilerStderr())

		return j.result(StageCompilation, false, resultFlags{
			implValue: implValue,
			warnings:  warnings || project.HasWarnings(),
			errors:    true,
		})
	}

	assembly := project.Assembly()
	j.arts.register(artifactAssembly, "output.s")
	j.arts.writeText(artifactAssembly, assembly)

	warnings = warnings || project.HasWarnings()

	run, err := r.driver.AssembleAndRun(ctx, assembly, toolchain.AssembleOptions{
		Assembler:     j.compiler.Assembler,
		AssemblerArgs: j.compiler.AssemblerArgs,
		Linker:        j.compiler.Linker,
		LinkerArgs:    j.compiler.LocalLinkerArgs,
	})
	if err != nil {
		j.stderr["compile"] = err.Error()
		j.arts.writeText(artifactCompileErr, err.Error())

		return j.result(StageCompilation, false, resultFlags{implValue: implValue, warnings: warnings})
	}

	return j.finishRun(run.Stdout, run.Stderr, run.ExitCode, true, implValue, warnings)
}

// runLocalCompile compiles the preprocessed source with a local compiler and
// runs the binary, for targets the remote service can only preprocess.
func (r *runner) runLocalCompile(ctx context.Context, j *job, project *godbolt.Project, preprocessed string, implValue *int, warnings bool) *Result {
	files := project.Files()

	aux := make(map[string]string, len(files))
	for _, f := range files {
		aux[f.Filename] = f.Contents
	}

	run, err := r.driver.CompileAndRun(ctx, preprocessed, aux, toolchain.CompileOptions{
		Compiler:     j.compiler.LocalCompiler,
		CompilerArgs: j.compiler.LocalCompilerArgs,
	})
	if err != nil {
		j.stderr["compile"] = err.Error()
		j.arts.writeText(artifactCompileErr, err.Error())

		return j.result(StageCompilation, false, resultFlags{
			implValue: implValue,
			warnings:  warnings || project.HasWarnings(),
		})
	}

	return j.finishRun(run.Stdout, run.Stderr, run.ExitCode, true, implValue, warnings || project.HasWarnings())
}

// runRemote executes the program on the remote service.
func (r *runner) runRemote(ctx context.Context, j *job, project *godbolt.Project, implValue *int, warnings bool) *Result {
	execErr := project.Execute(ctx, godbolt.ExecuteOptions{})
	r.pause(ctx)

	if execErr != nil {
		j.stderr["compile"] = execErr.Error()
		j.arts.writeText(artifactCompileErr, execErr.Error())

		return j.result(StageCompilation, false, resultFlags{
			implValue: implValue,
			warnings:  warnings || project.HasWarnings(),
			apiError:  true,
		})
	}

	if !project.DidExecute() {
		j.stderr["compile"] = project.CompilerStderr()

		if project.HasErrors() {
			j.arts.writeText(artifactCompileErr, project.CompilerStderr())

			return j.result(StageCompilation, false, resultFlags{
				implValue: implValue,
				warnings:  warnings || project.HasWarnings(),
				errors:    true,
			})
		}
	}

	code, known := project.ExitCode()

	return j.finishRun(project.Stdout(), project.Stderr(), code, known, implValue, warnings || project.HasWarnings())
}

// pause enforces the inter-request delay toward the remote service. It is
// called after every remote call, including failed ones.
func (r *runner) pause(ctx context.Context) {
	if r.cfg.Delay <= 0 {
		return
	}

	select {
	case <-time.After(r.cfg.Delay):
	case <-ctx.Done():
	}
}

func (r *runner) dumpResponse(arts *artifactSet, project *godbolt.Project) {
	if !r.cfg.Debug {
		return
	}

	if resp := project.Response(); resp != nil {
		arts.writeJSON(artifactDebug, resp)
	}
}

func probeValue(project *godbolt.Project, test *suite.Variant) *int {
	if test.DetectMacro == "" {
		return nil
	}

	v, ok := project.MacroValue(test.DetectMacro)
	if !ok {
		return nil
	}

	return &v
}

// job bundles the identity and accumulating state of one pairing while it
// moves through the stages.
type job struct {
	test     *suite.Variant
	compiler *suite.Compiler
	arts     *artifactSet
	stderr   map[string]string
}

func newJob(test *suite.Variant, compiler *suite.Compiler, arts *artifactSet) *job {
	return &job{
		test:     test,
		compiler: compiler,
		arts:     arts,
		stderr:   map[string]string{"preprocess": "", "compile": "", "run": ""},
	}
}

type resultFlags struct {
	implValue *int
	warnings  bool
	errors    bool
	apiError  bool
}

// result finalizes the job at the given stage and persists result.json.
func (j *job) result(stage string, passed bool, f resultFlags) *Result {
	res := &Result{
		TestName:         j.test.TestName,
		Group:            j.test.Group,
		Variant:          j.test.Variant,
		VariantDisplay:   j.test.DisplayName,
		IsAuto:           j.test.IsAuto,
		DetectValue:      j.test.DetectValue,
		CompilerNickname: j.compiler.Nickname,
		CompilerDisplay:  j.compiler.DisplayName,
		CompilerAPI:      j.compiler.APIName,
		Stage:            stage,
		Passed:           passed,
		HasWarnings:      f.warnings,
		HasErrors:        f.errors,
		APIError:         f.apiError,
		ImplValue:        f.implValue,
		Files:            j.arts.files,
		Stderr:           j.stderr,
	}

	j.arts.writeJSON(artifactResult, res)

	return res
}

// failed records a failure, routing msg into the preprocess stderr slot when
// nothing else claimed it.
func (j *job) failed(stage string, f resultFlags, msg string) *Result {
	if msg != "" && j.stderr["preprocess"] == "" {
		j.stderr["preprocess"] = msg
	}

	return j.result(stage, false, f)
}

// finishRun records the program streams and decides between the runtime and
// success stages based on the exit code.
func (j *job) finishRun(stdout, stderr string, exitCode int, exitKnown bool, implValue *int, warnings bool) *Result {
	j.arts.writeText(artifactRunStdout, stdout)
	j.arts.writeText(artifactRunStderr, stderr)
	j.stderr["run"] = stderr

	warnings = warnings || stderr != ""

	if !exitKnown || exitCode != 0 {
		return j.result(StageRuntime, false, resultFlags{implValue: implValue, warnings: warnings})
	}

	return j.result(StageSuccess, true, resultFlags{implValue: implValue, warnings: warnings})
}

// setupFailure covers the rare case where the artifact directory itself
// cannot be created, leaving nowhere to persist result.json.
func setupFailure(test *suite.Variant, compiler *suite.Compiler, err error) *Result {
	return &Result{
		TestName:         test.TestName,
		Group:            test.Group,
		Variant:          test.Variant,
		VariantDisplay:   test.DisplayName,
		IsAuto:           test.IsAuto,
		DetectValue:      test.DetectValue,
		CompilerNickname: compiler.Nickname,
		CompilerDisplay:  compiler.DisplayName,
		CompilerAPI:      compiler.APIName,
		Stage:            StagePreprocessing,
		APIError:         true,
		Files:            map[string]string{},
		Stderr:           map[string]string{"preprocess": err.Error(), "compile": "", "run": ""},
	}
}
