// Package instrument rewrites C source text so preprocessor behaviour
// becomes observable in compiler output and recoverable afterwards.
//
// Two kinds of probe are supported: include probes, which bracket every
// #include directive with marker declarations so the original directive can
// be restored after header expansion, and macro probes, which append an
// initialized global whose value survives preprocessing and can be read back
// out of the preprocessed text.
package instrument

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// includePattern matches an #include directive at the start of a line:
// optional indentation, `#include` (whitespace allowed after the hash),
// then a <system> or "local" header path.
var includePattern = regexp.MustCompile(`^(\s*)(#\s*include\s*)([<"])([^>"]+)([>"])`)

// IncludeProbe records one instrumented #include directive.
type IncludeProbe struct {
	StartMarker string
	EndMarker   string
	Original    string
}

// ProbeSet holds the instrumentation state for a single compilation unit.
// It is an explicit owned object, not shared state: create one per unit,
// populate it via the inject methods, and consume it after preprocessing.
type ProbeSet struct {
	includes []IncludeProbe
	macros   []string
	values   map[string]int
}

// NewProbeSet creates an empty probe set.
func NewProbeSet() *ProbeSet {
	return &ProbeSet{values: make(map[string]int)}
}

// IncludeProbes returns the recorded include probes in declaration order.
func (p *ProbeSet) IncludeProbes() []IncludeProbe {
	return p.includes
}

// InjectIncludeProbes brackets every #include directive in source with
// marker forward declarations and records the original directive text.
// Probe numbering starts at 1 and increments per include across the whole
// file. Lines without an include directive are passed through untouched.
func (p *ProbeSet) InjectIncludeProbes(source string) string {
	p.includes = nil

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	counter := 1

	for _, line := range lines {
		m := includePattern.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}

		indent, directive, open, header, closing := m[1], m[2], m[3], m[4], m[5]

		kind := "local"
		if open == "<" {
			kind = "system"
		}

		encoded := encodeHeaderPath(header)
		start := fmt.Sprintf("__godbolt_start_probe%d_%s_%s", counter, kind, encoded)
		end := fmt.Sprintf("__godbolt_end_probe%d_%s_%s", counter, kind, encoded)

		p.includes = append(p.includes, IncludeProbe{
			StartMarker: start,
			EndMarker:   end,
			Original:    directive + open + header + closing,
		})

		// (void) keeps the declarations valid in strict C dialects.
		out = append(out, indent+"void "+start+"(void);")
		out = append(out, line)
		out = append(out, indent+"void "+end+"(void);")

		counter++
	}

	return strings.Join(out, "\n")
}

// RestoreIncludes replaces each instrumented span in preprocessed text with
// its original #include directive. The span runs from the start-marker
// declaration through the matching end-marker declaration, crossing any
// expanded header content between them. When the end marker never made it
// into the output (e.g. the header failed to resolve), only the start-marker
// declaration is replaced. Splicing is done on literal indices, so header
// paths containing backslashes are never misread as pattern references.
func (p *ProbeSet) RestoreIncludes(text string) string {
	for _, probe := range p.includes {
		loc := markerDeclPattern(probe.StartMarker).FindStringIndex(text)
		if loc == nil {
			continue
		}

		rest := text[loc[1]:]
		if end := markerDeclPattern(probe.EndMarker).FindStringIndex(rest); end != nil {
			text = text[:loc[0]] + probe.Original + rest[end[1]:]
		} else {
			text = text[:loc[0]] + probe.Original + rest
		}
	}

	return text
}

// InjectMacroProbe appends a probe declaration for the named macro to source
// and registers the name. Repeated calls with the same name are no-ops, so
// at most one probe line exists per macro. Trailing newlines are trimmed
// before appending so the probe always sits on its own final lines.
func (p *ProbeSet) InjectMacroProbe(source, name string) string {
	for _, m := range p.macros {
		if m == name {
			return source
		}
	}

	p.macros = append(p.macros, name)

	return strings.TrimRight(source, "\n") + "\nint " + macroProbeName(name) + " = (int)(" + name + ");\n"
}

// HasMacroProbes reports whether any macro probes are registered.
func (p *ProbeSet) HasMacroProbes() bool {
	return len(p.macros) > 0
}

// ExtractMacroValues scans text for every registered macro probe and caches
// the integer each one resolved to. Must run on the text BEFORE probe lines
// are stripped; stripping deletes the very lines extraction reads.
func (p *ProbeSet) ExtractMacroValues(text string) {
	p.values = make(map[string]int, len(p.macros))

	for _, name := range p.macros {
		if v, ok := extractMacroValue(text, name); ok {
			p.values[name] = v
		}
	}
}

// MacroValue returns the cached value extracted for the named macro probe.
// The second return is false when the probe never resolved to an integer.
func (p *ProbeSet) MacroValue(name string) (int, bool) {
	v, ok := p.values[name]
	return v, ok
}

// StripMacroProbes removes every line containing a registered macro probe
// marker. All other lines are preserved verbatim and in order.
func (p *ProbeSet) StripMacroProbes(text string) string {
	if len(p.macros) == 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		if p.isProbeLine(line) {
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

func (p *ProbeSet) isProbeLine(line string) bool {
	for _, name := range p.macros {
		if strings.Contains(line, macroProbeName(name)) {
			return true
		}
	}
	return false
}

// encodeHeaderPath replaces path characters with identifier-safe tokens so a
// header path survives inside a C function name.
func encodeHeaderPath(path string) string {
	return strings.NewReplacer(
		".", "__PERIOD",
		"/", "__SLASH",
		`\`, "__BACKSLASH",
	).Replace(path)
}

func macroProbeName(name string) string {
	return "__GODBOLT_MACRO_PROBE_" + name + "__"
}

// markerDeclPattern matches a marker's forward declaration, tolerating ()
// or (void) and arbitrary interior whitespace.
func markerDeclPattern(marker string) *regexp.Regexp {
	return regexp.MustCompile(`void\s+` + regexp.QuoteMeta(marker) + `\s*\(\s*(?:void\s*)?\)\s*;`)
}

// extractMacroValue finds the first assignment to the named probe and parses
// its integer literal: an optional cast, an optional open parenthesis, then
// a signed decimal or 0x hexadecimal literal.
func extractMacroValue(text, name string) (int, bool) {
	pattern := regexp.MustCompile(
		regexp.QuoteMeta(macroProbeName(name)) +
			`\s*=\s*(?:\([^)]*\)\s*)?\(?\s*(-?0x[0-9a-fA-F]+|-?\d+)\s*\)?`)

	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	// Base 0 auto-detects hex vs decimal.
	v, err := strconv.ParseInt(m[1], 0, 64)
	if err != nil {
		return 0, false
	}

	return int(v), true
}
