package report

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cematrix/cematrix/internal/matrix"
)

// SummaryFormatter renders the end-of-run summary table.
type SummaryFormatter struct {
	log      logrus.FieldLogger
	renderer Renderer
}

// NewSummaryFormatter creates a summary formatter.
func NewSummaryFormatter(log logrus.FieldLogger, renderer Renderer) *SummaryFormatter {
	return &SummaryFormatter{
		log:      log.WithField("component", "summary_formatter"),
		renderer: renderer,
	}
}

// Format renders the outcome counters and collector statistics, followed by
// the pass/fail status line.
func (f *SummaryFormatter) Format(outcome *matrix.Outcome, summary matrix.RunSummary) error {
	colors := f.renderer.Colors()

	rows := [][]string{
		{"Pairings", fmt.Sprintf("%d", outcome.Effective)},
		{"Passed", colors.FormatPassRate(outcome.Passed, outcome.Effective)},
		{"Executed jobs", fmt.Sprintf("%d", summary.ExecutedJobs)},
		{"Reused results", fmt.Sprintf("%d", summary.ReusedResults)},
		{"API errors", f.formatAPIErrors(summary.APIErrors)},
		{"Duration", Duration(summary.TotalDuration)},
	}

	for _, stage := range []string{matrix.StagePreprocessing, matrix.StageCompilation, matrix.StageRuntime} {
		if count := summary.StageFailures[stage]; count > 0 {
			rows = append(rows, []string{"Failed in " + stage, colors.Failure(fmt.Sprintf("%d", count))})
		}
	}

	if err := f.renderer.RenderTable([]string{"Metric", "Value"}, rows, WithTitle("Summary")); err != nil {
		return fmt.Errorf("rendering summary table: %w", err)
	}

	status := fmt.Sprintf("Results: %d/%d passed", outcome.Passed, outcome.Effective)
	if outcome.AllPassed() {
		status = colors.Success(status)
	} else {
		status = colors.Failure(status)
	}

	return f.renderer.RenderText(status)
}

func (f *SummaryFormatter) formatAPIErrors(count int) string {
	colors := f.renderer.Colors()

	if count == 0 {
		return colors.Muted("0")
	}

	return colors.Failure(fmt.Sprintf("%d", count))
}
