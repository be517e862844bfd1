package report

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cematrix/cematrix/internal/matrix"
)

// maxDetailWidth caps the error excerpt column so tool output does not
// wreck the table layout.
const maxDetailWidth = 100

// FailuresFormatter renders one row per failed pairing with the captured
// error text.
type FailuresFormatter struct {
	log      logrus.FieldLogger
	renderer Renderer
}

// NewFailuresFormatter creates a failure-details formatter.
func NewFailuresFormatter(log logrus.FieldLogger, renderer Renderer) *FailuresFormatter {
	return &FailuresFormatter{
		log:      log.WithField("component", "failures_formatter"),
		renderer: renderer,
	}
}

// Format renders failure details. Runs without failures render nothing.
func (f *FailuresFormatter) Format(results []*matrix.Result) error {
	failed := make([]*matrix.Result, 0, len(results))

	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}

	if len(failed) == 0 {
		return nil
	}

	colors := f.renderer.Colors()

	rows := make([][]string, 0, len(failed))

	for _, r := range failed {
		stage := r.Stage
		if r.APIError {
			stage += " (api)"
		}

		rows = append(rows, []string{
			r.TestName,
			r.CompilerDisplay,
			colors.Failure(stage),
			excerpt(failureDetail(r), maxDetailWidth),
		})
	}

	if err := f.renderer.RenderTable([]string{"Test", "Compiler", "Stage", "Detail"}, rows, WithTitle("Failures")); err != nil {
		return fmt.Errorf("rendering failure table: %w", err)
	}

	return nil
}

// failureDetail picks the most relevant captured stderr for a failure: the
// failing stage's text first, then any other non-empty capture.
func failureDetail(r *matrix.Result) string {
	order := []string{"compile", "run", "preprocess"}

	switch r.Stage {
	case matrix.StagePreprocessing:
		order = []string{"preprocess", "compile", "run"}
	case matrix.StageRuntime:
		order = []string{"run", "compile", "preprocess"}
	}

	for _, key := range order {
		if text := strings.TrimSpace(r.Stderr[key]); text != "" {
			return text
		}
	}

	return ""
}

// excerpt reduces multi-line tool output to a single trimmed line.
func excerpt(text string, limit int) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)

	runes := []rune(line)
	if len(runes) <= limit {
		return line
	}

	return string(runes[:limit-1]) + "…"
}
