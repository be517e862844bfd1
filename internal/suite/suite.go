// Package suite loads and models the YAML test-suite definition: the
// compiler matrix, grouped test variants, and the files they reference.
package suite

// Execution modes derived from a compiler's local-fallback flags.
const (
	ModeRemote       = "remote"
	ModeLocalASM     = "local_asm"
	ModeLocalCompile = "local_compile"
)

// Compiler describes one compiler row of the matrix: a remote compiler
// identity plus optional local-fallback parameters. At most one of LocalASM
// and LocalCompile is active; with neither set the program runs remotely.
type Compiler struct {
	APIName           string
	DisplayName       string
	Nickname          string
	ExtraFlags        []string
	LocalASM          bool
	Assembler         string
	AssemblerArgs     []string
	Linker            string
	LocalLinkerArgs   []string
	LocalCompile      bool
	LocalCompiler     string
	LocalCompilerArgs []string
}

// Mode reports how results for this compiler are produced.
func (c *Compiler) Mode() string {
	switch {
	case c.LocalASM:
		return ModeLocalASM
	case c.LocalCompile:
		return ModeLocalCompile
	default:
		return ModeRemote
	}
}

// AuxFile pairs the logical name an auxiliary file is submitted under with
// its location on disk. The logical name may contain relative separators,
// which the remote service preserves.
type AuxFile struct {
	Name string
	Path string
}

// Variant is one test case after group defaults have been applied.
type Variant struct {
	TestName        string
	Variant         string
	Group           string
	FileName        string
	DisplayName     string
	PrependLines    []string
	DetectMacro     string
	DetectValue     *int
	IsAuto          bool
	IncludeInTable  bool
	AdditionalFiles []AuxFile
	IncludeDirs     []string
}

// Suite is a parsed test-suite definition.
type Suite struct {
	Compilers []Compiler
	Tests     []Variant
}

// LoadedFile is an auxiliary file read into memory under its logical name.
type LoadedFile struct {
	Name     string
	Contents string
}
