// Package godbolt provides a client for the Compiler Explorer compilation
// API and a Project type that manages one compilation unit across
// preprocess, compile and execute calls.
package godbolt

import (
	"fmt"
	"strconv"
	"strings"
)

// File is an auxiliary source file submitted alongside the main source.
// Filename may contain relative path separators; the service preserves them.
type File struct {
	Filename string `json:"filename"`
	Contents string `json:"contents"`
}

// Library identifies a library/version pair to make available remotely.
type Library struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// ExecuteParameters carries program arguments and stdin for execute requests.
type ExecuteParameters struct {
	Args         []string      `json:"args"`
	Stdin        string        `json:"stdin"`
	RuntimeTools []interface{} `json:"runtimeTools,omitempty"`
}

// PreprocessorOptions mirrors the service's producePp block. Wire names are
// hyphenated.
type PreprocessorOptions struct {
	FilterHeaders bool `json:"filter-headers"`
	ClangFormat   bool `json:"clang-format"`
}

// CompilerOptions selects what the remote service produces for a request.
type CompilerOptions struct {
	ProducePp       *PreprocessorOptions `json:"producePp,omitempty"`
	SkipAsm         bool                 `json:"skipAsm"`
	ExecutorRequest bool                 `json:"executorRequest"`
	Overrides       []interface{}        `json:"overrides"`
}

// Filters controls post-processing of the service's output streams.
type Filters struct {
	Binary       bool `json:"binary"`
	BinaryObject bool `json:"binaryObject"`
	CommentOnly  bool `json:"commentOnly"`
	DebugCalls   bool `json:"debugCalls"`
	Demangle     bool `json:"demangle"`
	Directives   bool `json:"directives"`
	Execute      bool `json:"execute"`
	Intel        bool `json:"intel"`
	Labels       bool `json:"labels"`
	LibraryCode  bool `json:"libraryCode"`
	Trim         bool `json:"trim"`
}

// Options is the options block of a compile request.
type Options struct {
	UserArguments     string            `json:"userArguments"`
	Tools             []interface{}     `json:"tools"`
	Libraries         []Library         `json:"libraries"`
	ExecuteParameters ExecuteParameters `json:"executeParameters"`
	CompilerOptions   CompilerOptions   `json:"compilerOptions"`
	Filters           Filters           `json:"filters"`
}

// Request is the payload POSTed to {base}/{compilerID}/compile.
type Request struct {
	Source              string  `json:"source"`
	Compiler            string  `json:"compiler"`
	Lang                string  `json:"lang"`
	Files               []File  `json:"files"`
	BypassCache         bool    `json:"bypassCache"`
	AllowStoreCodeDebug bool    `json:"allowStoreCodeDebug"`
	Options             Options `json:"options"`
}

// TextLine is one line of program or compiler output.
type TextLine struct {
	Text string `json:"text"`
}

// AsmLine is one line of generated assembly.
type AsmLine struct {
	Text string `json:"text"`
}

// PreprocessorOutput carries the preprocessed source text.
type PreprocessorOutput struct {
	NumberOfLinesFiltered int    `json:"numberOfLinesFiltered"`
	Output                string `json:"output"`
}

// BuildResult nests the compiler-stage outcome inside an execute response;
// the top-level stdout/stderr of such a response belong to the program.
type BuildResult struct {
	Code     *int       `json:"code"`
	Stdout   []TextLine `json:"stdout"`
	Stderr   []TextLine `json:"stderr"`
	ExecTime FlexInt    `json:"execTime"`
}

// Response is the service's reply to a compile, preprocess or execute
// request. Which fields are populated depends on the request kind.
type Response struct {
	Code        *int                `json:"code"`
	OKToCache   bool                `json:"okToCache"`
	Stdout      []TextLine          `json:"stdout"`
	Stderr      []TextLine          `json:"stderr"`
	DidExecute  bool                `json:"didExecute"`
	ExecTime    FlexInt             `json:"execTime"`
	Asm         []AsmLine           `json:"asm"`
	PpOutput    *PreprocessorOutput `json:"ppOutput"`
	BuildResult *BuildResult        `json:"buildResult"`
}

// FlexInt decodes a JSON number that the service sometimes sends as a
// quoted string, and occasionally as a float.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		*f = FlexInt(v)
		return nil
	}

	fv, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil {
		return fmt.Errorf("parsing %q as integer: %w", s, err)
	}
	*f = FlexInt(fv)

	return nil
}
