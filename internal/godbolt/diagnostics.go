package godbolt

import (
	"regexp"
	"strings"
)

var (
	warningPattern      = regexp.MustCompile(`(?i)\bwarning\b`)
	errorCountPattern   = regexp.MustCompile(`(?i)\berror:`)
	warningCountPattern = regexp.MustCompile(`(?i)\bwarning:`)
)

// CompilerStreams returns the stderr and stdout line lists that carry
// compiler diagnostics. Execute responses nest them under buildResult while
// the top-level streams belong to the program; all other responses carry
// diagnostics at the top level.
func (r *Response) CompilerStreams() (stderr, stdout []TextLine) {
	if r == nil {
		return nil, nil
	}

	if r.BuildResult != nil && (r.BuildResult.Stderr != nil || r.BuildResult.Stdout != nil) {
		return r.BuildResult.Stderr, r.BuildResult.Stdout
	}

	return r.Stderr, r.Stdout
}

// HasErrors reports whether the compiler stage failed. A missing code means
// the stage did not fail; a nonzero runtime exit status on an execute
// response does not count as a compiler error.
func (r *Response) HasErrors() bool {
	return r != nil && r.Code != nil && *r.Code != 0
}

// HasWarnings reports whether the word "warning" appears in either compiler
// diagnostic stream, case-insensitively and on word boundaries.
func (r *Response) HasWarnings() bool {
	stderrLines, stdoutLines := r.CompilerStreams()

	var chunks []string
	for _, lines := range [][]TextLine{stderrLines, stdoutLines} {
		if len(lines) > 0 {
			chunks = append(chunks, joinText(lines))
		}
	}

	if len(chunks) == 0 {
		return false
	}

	return warningPattern.MatchString(strings.Join(chunks, "\n"))
}

// CompilerStderr returns the compiler diagnostic text, falling back to the
// diagnostic stdout stream when stderr is empty.
func (r *Response) CompilerStderr() string {
	stderrLines, stdoutLines := r.CompilerStreams()

	lines := stderrLines
	if len(lines) == 0 {
		lines = stdoutLines
	}

	return joinText(lines)
}

// ErrorCount counts "error:" markers in the compiler diagnostics.
func (r *Response) ErrorCount() int {
	text := r.CompilerStderr()
	if text == "" {
		return 0
	}

	return len(errorCountPattern.FindAllString(text, -1))
}

// WarningCount counts "warning:" markers in the compiler diagnostics.
func (r *Response) WarningCount() int {
	text := r.CompilerStderr()
	if text == "" {
		return 0
	}

	return len(warningCountPattern.FindAllString(text, -1))
}

func joinText(lines []TextLine) string {
	if len(lines) == 0 {
		return ""
	}

	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.Text)
	}

	return strings.Join(parts, "\n")
}
