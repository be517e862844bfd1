// Package toolchain drives local compilers for the two local execution
// modes: assembling remote-produced assembly on a same-architecture host,
// and compiling remotely preprocessed source from scratch.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/sirupsen/logrus"
)

var (
	// ErrAssembleFailed indicates the local assembler rejected the input.
	ErrAssembleFailed = errors.New("assembly failed")
	// ErrLinkFailed indicates the local linker rejected the object file.
	ErrLinkFailed = errors.New("linking failed")
	// ErrCompileFailed indicates the local compiler rejected the source.
	ErrCompileFailed = errors.New("local compilation failed")
	// ErrTimedOut indicates a toolchain step exceeded its deadline.
	ErrTimedOut = errors.New("timed out")
)

// Older compilers emit absolute-address operands that will not link on
// systems where PIE is the default.
var nonPIEPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bmovl?\s+\$\.?[A-Za-z_]`),
	regexp.MustCompile(`\bmovq?\s+\$\.?[A-Za-z_]`),
	regexp.MustCompile(`\bpush[lq]?\s+\$\.?[A-Za-z_]`),
}

const versionDetectTimeout = 5 * time.Second

// RunResult captures a locally executed program.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// AssembleOptions configures an assemble-link-run cycle.
type AssembleOptions struct {
	Assembler     string
	AssemblerArgs []string
	Linker        string
	LinkerArgs    []string
	ProgramArgs   []string
	Stdin         string
}

// CompileOptions configures a compile-run cycle.
type CompileOptions struct {
	Compiler     string
	CompilerArgs []string
	ProgramArgs  []string
	Stdin        string
}

// Version identifies a local toolchain binary.
type Version struct {
	Name    string
	Version string
}

// String renders the version as "name version", e.g. "gcc 13.2.0".
func (v *Version) String() string {
	return v.Name + " " + v.Version
}

// Driver runs local toolchain steps. Errors cover toolchain failures
// including step timeouts; a nonzero program exit status is reported
// through RunResult, not as an error.
type Driver interface {
	AssembleAndRun(ctx context.Context, assembly string, opts AssembleOptions) (*RunResult, error)
	CompileAndRun(ctx context.Context, source string, files map[string]string, opts CompileOptions) (*RunResult, error)
	DetectVersion(ctx context.Context, command string) (*Version, bool)
}

type driver struct {
	log          logrus.FieldLogger
	buildTimeout time.Duration
	runTimeout   time.Duration
}

var _ Driver = (*driver)(nil)

// NewDriver creates a Driver. buildTimeout bounds each compile, assemble
// and link step; runTimeout bounds program execution.
func NewDriver(log logrus.FieldLogger, buildTimeout, runTimeout time.Duration) Driver {
	return &driver{
		log:          log.WithField("component", "toolchain"),
		buildTimeout: buildTimeout,
		runTimeout:   runTimeout,
	}
}

// AssembleAndRun writes assembly to a scratch dir, assembles and links it,
// runs the binary, and cleans up. The -no-pie flag is appended to the link
// step when the assembly uses absolute-address patterns.
func (d *driver) AssembleAndRun(ctx context.Context, assembly string, opts AssembleOptions) (*RunResult, error) {
	dir, err := os.MkdirTemp("", "cematrix-asm-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(dir)
	}()

	asmPath := filepath.Join(dir, "input.s")
	if err := os.WriteFile(asmPath, []byte(assembly), 0o644); err != nil { //nolint:gosec // G306: scratch file in private temp dir
		return nil, fmt.Errorf("writing assembly: %w", err)
	}

	objPath := filepath.Join(dir, "input.o")
	binPath := filepath.Join(dir, "prog")

	asmArgs := append([]string{}, opts.AssemblerArgs...)
	asmArgs = append(asmArgs, "-o", objPath, asmPath)

	step, err := d.runStep(ctx, d.buildTimeout, "", "", opts.Assembler, asmArgs...)
	if err != nil {
		return nil, fmt.Errorf("assembling: %w", err)
	}

	if step.exitCode != 0 {
		return nil, fmt.Errorf("%w:\n%s", ErrAssembleFailed, step.stderr)
	}

	linkArgs := append([]string{}, opts.LinkerArgs...)
	if needsNoPIE(assembly) && !slices.Contains(linkArgs, "-no-pie") {
		linkArgs = append(linkArgs, "-no-pie")
	}
	linkArgs = append(linkArgs, "-o", binPath, objPath)

	step, err = d.runStep(ctx, d.buildTimeout, "", "", opts.Linker, linkArgs...)
	if err != nil {
		return nil, fmt.Errorf("linking: %w", err)
	}

	if step.exitCode != 0 {
		return nil, fmt.Errorf("%w:\n%s", ErrLinkFailed, step.stderr)
	}

	return d.runBinary(ctx, binPath, opts.ProgramArgs, opts.Stdin)
}

// CompileAndRun writes source and auxiliary files to a scratch dir,
// compiles from inside it so relative includes resolve, runs the binary,
// and cleans up.
func (d *driver) CompileAndRun(ctx context.Context, source string, files map[string]string, opts CompileOptions) (*RunResult, error) {
	dir, err := os.MkdirTemp("", "cematrix-build-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(dir)
	}()

	srcPath := filepath.Join(dir, "source.c")
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil { //nolint:gosec // G306: scratch file in private temp dir
		return nil, fmt.Errorf("writing source: %w", err)
	}

	for name, contents := range files {
		path := filepath.Join(dir, name)
		if sub := filepath.Dir(path); sub != dir {
			if err := os.MkdirAll(sub, 0o755); err != nil { //nolint:gosec // G301: scratch subdir in private temp dir
				return nil, fmt.Errorf("creating dir for %s: %w", name, err)
			}
		}

		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil { //nolint:gosec // G306: scratch file in private temp dir
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	}

	binPath := filepath.Join(dir, "prog")

	args := append([]string{}, opts.CompilerArgs...)
	args = append(args, "-o", binPath, srcPath)

	step, err := d.runStep(ctx, d.buildTimeout, dir, "", opts.Compiler, args...)
	if err != nil {
		return nil, fmt.Errorf("compiling: %w", err)
	}

	if step.exitCode != 0 {
		return nil, fmt.Errorf("%w:\n%s", ErrCompileFailed, step.stderr)
	}

	return d.runBinary(ctx, binPath, opts.ProgramArgs, opts.Stdin)
}

// DetectVersion identifies a local compiler by running `command --version`
// and matching known gcc, clang and tcc version banners.
func (d *driver) DetectVersion(ctx context.Context, command string) (*Version, bool) {
	step, err := d.runStep(ctx, versionDetectTimeout, "", "", command, "--version")
	if err != nil {
		return nil, false
	}

	v := parseVersionOutput(step.stdout + step.stderr)
	if v == nil {
		return nil, false
	}

	return v, true
}

func (d *driver) runBinary(ctx context.Context, binary string, args []string, stdin string) (*RunResult, error) {
	step, err := d.runStep(ctx, d.runTimeout, "", stdin, binary, args...)
	if err != nil {
		return nil, fmt.Errorf("program execution: %w", err)
	}

	return &RunResult{
		Stdout:   step.stdout,
		Stderr:   step.stderr,
		ExitCode: step.exitCode,
	}, nil
}

type stepResult struct {
	stdout   string
	stderr   string
	exitCode int
}

func (d *driver) runStep(ctx context.Context, timeout time.Duration, dir, stdin, name string, args ...string) (*stepResult, error) {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(stepCtx, name, args...) //nolint:gosec // G204: toolchain commands come from suite configuration
	cmd.Dir = dir

	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	d.log.WithField("command", shellescape.QuoteCommand(append([]string{name}, args...))).Debug("running local command")

	err := cmd.Run()

	res := &stepResult{
		stdout: stdout.String(),
		stderr: stderr.String(),
	}

	if err != nil {
		if stepCtx.Err() == context.DeadlineExceeded {
			return nil, ErrTimedOut
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.exitCode = exitErr.ExitCode()

			return res, nil
		}

		return nil, err
	}

	return res, nil
}

func needsNoPIE(assembly string) bool {
	for _, pattern := range nonPIEPatterns {
		if pattern.MatchString(assembly) {
			return true
		}
	}

	return false
}
