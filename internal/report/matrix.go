package report

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/sirupsen/logrus"

	"github.com/cematrix/cematrix/internal/matrix"
	"github.com/cematrix/cematrix/internal/suite"
	"github.com/cematrix/cematrix/internal/toolchain"
)

// VersionDetector resolves local toolchain versions for table footnotes.
// toolchain.Driver satisfies it.
type VersionDetector interface {
	DetectVersion(ctx context.Context, command string) (*toolchain.Version, bool)
}

// footnoteMarkers is the marker pool for local-mode footnotes. Distinct
// configurations past the pool go unmarked.
var footnoteMarkers = []string{"*", "**", "***", "****"}

type footnote struct {
	marker  string
	mode    string
	version string
}

// MatrixTable builds the markdown compatibility matrix: one row per
// compiler, one column per table-visible variant, an emoji status per cell,
// and a star on the variant matching the compiler's detected implementation.
type MatrixTable struct {
	log      logrus.FieldLogger
	detector VersionDetector
}

// NewMatrixTable creates a markdown matrix builder. The detector resolves
// the versions of local toolchains named in footnotes.
func NewMatrixTable(log logrus.FieldLogger, detector VersionDetector) *MatrixTable {
	return &MatrixTable{
		log:      log.WithField("component", "matrix_table"),
		detector: detector,
	}
}

// Render produces the markdown document for the given results. Compilers
// and tests keep their configured order; variants excluded from the table
// and auto-detection variants contribute no column.
func (m *MatrixTable) Render(ctx context.Context, results []*matrix.Result, compilers []suite.Compiler, tests []suite.Variant) string {
	columns := make([]suite.Variant, 0, len(tests))
	for _, t := range tests {
		if t.IncludeInTable && !t.IsAuto {
			columns = append(columns, t)
		}
	}

	// Group-qualified labels only when the suite spans several groups.
	multiGroup := countGroups(tests) > 1

	// compiler display -> group -> variant -> result
	lookup := make(map[string]map[string]map[string]*matrix.Result)

	for _, r := range results {
		byGroup, ok := lookup[r.CompilerDisplay]
		if !ok {
			byGroup = make(map[string]map[string]*matrix.Result)
			lookup[r.CompilerDisplay] = byGroup
		}

		byVariant, ok := byGroup[r.Group]
		if !ok {
			byVariant = make(map[string]*matrix.Result)
			byGroup[r.Group] = byVariant
		}

		byVariant[r.Variant] = r
	}

	footnotes := m.assignFootnotes(ctx, compilers)

	rows := make([][]string, 0, len(compilers)+1)

	header := make([]string, 0, len(columns)+1)
	header = append(header, "CC")

	for _, t := range columns {
		label := t.DisplayName
		if multiGroup {
			label = t.Group + ":" + t.DisplayName
		}

		header = append(header, label)
	}

	rows = append(rows, header)

	for _, compiler := range compilers {
		byGroup := lookup[compiler.DisplayName]

		autoVals := make(map[string]int)

		for group, variants := range byGroup {
			for _, r := range variants {
				if r.IsAuto && r.ImplValue != nil {
					autoVals[group] = *r.ImplValue
				}
			}
		}

		name := compiler.DisplayName
		if fn, ok := footnotes[compiler.DisplayName]; ok {
			name += fn.marker
		}

		row := make([]string, 0, len(columns)+1)
		row = append(row, name)

		for _, t := range columns {
			cell := statusIcon(byGroup[t.Group][t.Variant])

			if autoVal, ok := autoVals[t.Group]; ok && t.DetectValue != nil && autoVal == *t.DetectValue {
				cell = "⭐" + cell
			}

			row = append(row, cell)
		}

		rows = append(rows, row)
	}

	widths := make([]int, len(header))

	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+len(footnotes)+2)
	lines = append(lines, formatRow(rows[0], widths))
	lines = append(lines, separatorRow(widths))

	for _, row := range rows[1:] {
		lines = append(lines, formatRow(row, widths))
	}

	lines = append(lines, footnoteLines(compilers, footnotes)...)

	return strings.Join(lines, "\n") + "\n"
}

// WriteFile renders the matrix and writes it to path.
func (m *MatrixTable) WriteFile(ctx context.Context, path string, results []*matrix.Result, compilers []suite.Compiler, tests []suite.Variant) error {
	content := m.Render(ctx, results, compilers, tests)

	//nolint:gosec // G306: the table is a report meant to be read.
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing table file: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"path": path,
		"size": len(content),
	}).Info("Wrote markdown table")

	return nil
}

// assignFootnotes gives each distinct (mode, version) local configuration a
// marker, assigned in compiler order. The pool holds four markers;
// configurations past that leave their compilers unmarked.
func (m *MatrixTable) assignFootnotes(ctx context.Context, compilers []suite.Compiler) map[string]footnote {
	type configKey struct {
		mode    string
		version string
	}

	assigned := make(map[configKey]string)
	byCompiler := make(map[string]footnote)
	next := 0

	for _, compiler := range compilers {
		var mode, command string

		switch compiler.Mode() {
		case suite.ModeLocalCompile:
			mode, command = suite.ModeLocalCompile, compiler.LocalCompiler
		case suite.ModeLocalASM:
			// The linker doubles as the local toolchain for assembled output.
			mode, command = suite.ModeLocalASM, compiler.Linker
		default:
			continue
		}

		version := m.localVersion(ctx, command)
		key := configKey{mode: mode, version: version}

		marker, ok := assigned[key]
		if !ok && next < len(footnoteMarkers) {
			marker = footnoteMarkers[next]
			assigned[key] = marker
			next++
			ok = true
		}

		if ok {
			byCompiler[compiler.DisplayName] = footnote{
				marker:  marker,
				mode:    mode,
				version: version,
			}
		}
	}

	return byCompiler
}

// localVersion resolves the human-readable version of a local command,
// falling back to the command string itself.
func (m *MatrixTable) localVersion(ctx context.Context, command string) string {
	if v, ok := m.detector.DetectVersion(ctx, command); ok {
		return v.String()
	}

	m.log.WithField("command", command).Debug("Could not detect local toolchain version")

	return command
}

// statusIcon maps a result to its table cell. Legend: ✅ passed, ❌ failed
// to preprocess or compile, ⚠️ runtime failure, ℹ️ appended when a pass had
// warnings, — no result. API errors render empty.
func statusIcon(result *matrix.Result) string {
	if result == nil {
		return "—"
	}

	if result.APIError {
		return ""
	}

	var icon string

	switch {
	case result.Passed:
		icon = "✅"
	case result.Stage == matrix.StagePreprocessing || result.Stage == matrix.StageCompilation:
		icon = "❌"
	default:
		icon = "⚠️"
	}

	if result.HasWarnings && result.Passed {
		icon += "ℹ️"
	}

	return icon
}

func footnoteLines(compilers []suite.Compiler, footnotes map[string]footnote) []string {
	if len(footnotes) == 0 {
		return nil
	}

	seen := make(map[string]footnote, len(footnotes))

	for _, compiler := range compilers {
		fn, ok := footnotes[compiler.DisplayName]
		if !ok {
			continue
		}

		if _, dup := seen[fn.marker]; !dup {
			seen[fn.marker] = fn
		}
	}

	lines := []string{""}

	for _, marker := range footnoteMarkers {
		fn, ok := seen[marker]
		if !ok {
			continue
		}

		// Markdown reads a leading asterisk as a list bullet, so escape it.
		switch fn.mode {
		case suite.ModeLocalCompile:
			lines = append(lines, fmt.Sprintf("\\%s This compiler was only used for preprocessing and then the result was compiled locally with %s.  ", marker, fn.version))
		case suite.ModeLocalASM:
			lines = append(lines, fmt.Sprintf("\\%s This compiler outputted assembly which was then assembled and run locally with %s.  ", marker, fn.version))
		}
	}

	return lines
}

func formatRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))

	for i, cell := range cells {
		padded[i] = cell + strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell))
	}

	return "| " + strings.Join(padded, " | ") + " |"
}

func separatorRow(widths []int) string {
	cells := make([]string, len(widths))

	for i, w := range widths {
		cells[i] = strings.Repeat("-", w)
	}

	return "| " + strings.Join(cells, " | ") + " |"
}

func countGroups(tests []suite.Variant) int {
	groups := make(map[string]struct{}, len(tests))

	for _, t := range tests {
		groups[t.Group] = struct{}{}
	}

	return len(groups)
}
