package godbolt

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cematrix/cematrix/internal/instrument"
)

// Project owns one compilation unit: its source text, auxiliary files,
// requested libraries, probe state and the most recent service response.
// A Project is not safe for concurrent use.
type Project struct {
	log       logrus.FieldLogger
	client    Client
	compiler  string
	language  string
	userArgs  string
	source    string
	files     []File
	libraries []Library
	probes    *instrument.ProbeSet
	resp      *Response
}

// ProjectConfig describes the compilation unit a Project starts from.
type ProjectConfig struct {
	Source   string
	Compiler string
	Language string
	UserArgs string
}

// PreprocessOptions controls a preprocess-only request.
type PreprocessOptions struct {
	FilterHeaders   bool
	ClangFormat     bool
	TrimEmptyLines  bool
	RestoreIncludes bool
}

// AsmOptions controls a compile-to-assembly request.
type AsmOptions struct {
	IntelSyntax      bool
	FilterDirectives bool
	FilterLabels     bool
	FilterComments   bool
}

// ExecuteOptions controls a remote execute request.
type ExecuteOptions struct {
	Args  []string
	Stdin string
}

// NewProject creates a Project that talks to the service through client.
func NewProject(log logrus.FieldLogger, c Client, cfg ProjectConfig) *Project {
	return &Project{
		log:      log.WithField("component", "project"),
		client:   c,
		compiler: cfg.Compiler,
		language: cfg.Language,
		userArgs: cfg.UserArgs,
		source:   cfg.Source,
		probes:   instrument.NewProbeSet(),
	}
}

// AddFile attaches an auxiliary file that is submitted with every request.
func (p *Project) AddFile(filename, contents string) {
	p.files = append(p.files, File{Filename: filename, Contents: contents})
}

// AddLibrary requests a library/version pair on every request.
func (p *Project) AddLibrary(id, version string) {
	p.libraries = append(p.libraries, Library{ID: id, Version: version})
}

// AddMacroProbe appends a probe variable for the named macro to the source,
// so the next preprocess call can capture the macro's integer value.
func (p *Project) AddMacroProbe(name string) {
	p.source = p.probes.InjectMacroProbe(p.source, name)
}

// MacroValue returns the integer value captured for the named macro by the
// most recent preprocess call.
func (p *Project) MacroValue(name string) (int, bool) {
	return p.probes.MacroValue(name)
}

// Files returns the auxiliary files attached to the project.
func (p *Project) Files() []File {
	return p.files
}

// Preprocess runs the source through the remote preprocessor. With
// RestoreIncludes set, include directives are swapped for probe markers
// before submission so their expansions can be collapsed back into the
// original directives afterwards.
func (p *Project) Preprocess(ctx context.Context, opts PreprocessOptions) error {
	original := p.source
	if opts.RestoreIncludes {
		p.source = p.probes.InjectIncludeProbes(original)
	}

	req := p.baseRequest()
	req.Options.CompilerOptions = CompilerOptions{
		ProducePp: &PreprocessorOptions{
			FilterHeaders: opts.FilterHeaders,
			ClangFormat:   opts.ClangFormat,
		},
		Overrides: []interface{}{},
	}
	req.Options.Filters = Filters{
		CommentOnly: true,
		Demangle:    true,
		Directives:  true,
		Intel:       true,
		Labels:      true,
		LibraryCode: true,
	}

	p.log.WithFields(logrus.Fields{
		"filter_headers":   opts.FilterHeaders,
		"restore_includes": opts.RestoreIncludes,
	}).Debug("preprocessing source")

	resp, err := p.client.Compile(ctx, p.compiler, req)

	// The probe-instrumented text must never leak into later requests.
	p.source = original

	if err != nil {
		return err
	}

	p.resp = resp

	if resp.PpOutput == nil {
		return nil
	}

	if opts.RestoreIncludes {
		resp.PpOutput.Output = p.probes.RestoreIncludes(resp.PpOutput.Output)
	}

	// Value extraction reads the probe assignments, so it has to happen
	// before the probe lines are stripped.
	if p.probes.HasMacroProbes() {
		p.probes.ExtractMacroValues(resp.PpOutput.Output)
		resp.PpOutput.Output = p.probes.StripMacroProbes(resp.PpOutput.Output)
	}

	if opts.TrimEmptyLines {
		resp.PpOutput.Output = strings.TrimSpace(resp.PpOutput.Output)
	}

	return nil
}

// CompileToAsm compiles the source remotely and keeps the generated
// assembly in the response.
func (p *Project) CompileToAsm(ctx context.Context, opts AsmOptions) error {
	req := p.baseRequest()
	req.Options.CompilerOptions = CompilerOptions{
		Overrides: []interface{}{},
	}
	req.Options.Filters = Filters{
		CommentOnly: opts.FilterComments,
		Demangle:    true,
		Directives:  opts.FilterDirectives,
		Intel:       opts.IntelSyntax,
		Labels:      opts.FilterLabels,
	}

	p.log.Debug("compiling to assembly")

	resp, err := p.client.Compile(ctx, p.compiler, req)
	if err != nil {
		return err
	}

	p.resp = resp

	return nil
}

// Execute compiles and runs the source on the remote service.
func (p *Project) Execute(ctx context.Context, opts ExecuteOptions) error {
	args := opts.Args
	if args == nil {
		args = []string{}
	}

	req := p.baseRequest()
	req.Options.ExecuteParameters = ExecuteParameters{
		Args:         args,
		Stdin:        opts.Stdin,
		RuntimeTools: []interface{}{},
	}
	req.Options.CompilerOptions = CompilerOptions{
		ExecutorRequest: true,
		Overrides:       []interface{}{},
	}
	req.Options.Filters = Filters{
		Execute: true,
	}

	p.log.WithField("args", len(args)).Debug("executing remotely")

	resp, err := p.client.Compile(ctx, p.compiler, req)
	if err != nil {
		return err
	}

	p.resp = resp

	return nil
}

// Response returns the most recent service response, or nil.
func (p *Project) Response() *Response {
	return p.resp
}

// Preprocessed returns the preprocessed source from the last preprocess
// call. The second return is false when no preprocessor output exists.
func (p *Project) Preprocessed() (string, bool) {
	if p.resp == nil || p.resp.PpOutput == nil {
		return "", false
	}

	return p.resp.PpOutput.Output, true
}

// Assembly returns the generated assembly from the last compile call,
// joined into a single text.
func (p *Project) Assembly() string {
	if p.resp == nil || len(p.resp.Asm) == 0 {
		return ""
	}

	parts := make([]string, 0, len(p.resp.Asm))
	for _, line := range p.resp.Asm {
		parts = append(parts, line.Text)
	}

	return strings.Join(parts, "\n")
}

// Stdout returns the program's stdout from the last execute call.
func (p *Project) Stdout() string {
	if p.resp == nil {
		return ""
	}

	return joinText(p.resp.Stdout)
}

// Stderr returns the program's stderr from the last execute call.
func (p *Project) Stderr() string {
	if p.resp == nil {
		return ""
	}

	return joinText(p.resp.Stderr)
}

// ExitCode returns the exit status reported by the last response. The
// second return is false when the response carried no status at all.
func (p *Project) ExitCode() (int, bool) {
	if p.resp == nil || p.resp.Code == nil {
		return 0, false
	}

	return *p.resp.Code, true
}

// DidExecute reports whether the remote service actually ran the program.
func (p *Project) DidExecute() bool {
	return p.resp != nil && p.resp.DidExecute
}

// HasErrors reports whether the last response signalled compiler errors.
func (p *Project) HasErrors() bool {
	return p.resp.HasErrors()
}

// HasWarnings reports whether the last response carried compiler warnings.
func (p *Project) HasWarnings() bool {
	return p.resp.HasWarnings()
}

// CompilerStderr returns the compiler diagnostics of the last response.
func (p *Project) CompilerStderr() string {
	return p.resp.CompilerStderr()
}

func (p *Project) baseRequest() *Request {
	files := p.files
	if files == nil {
		files = []File{}
	}

	libraries := p.libraries
	if libraries == nil {
		libraries = []Library{}
	}

	return &Request{
		Source:              p.source,
		Compiler:            p.compiler,
		Lang:                p.language,
		Files:               files,
		AllowStoreCodeDebug: true,
		Options: Options{
			UserArguments: p.userArgs,
			Tools:         []interface{}{},
			Libraries:     libraries,
			ExecuteParameters: ExecuteParameters{
				Args: []string{},
			},
		},
	}
}
