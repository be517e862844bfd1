package actions

import (
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/cematrix/cematrix/internal/report"
	"github.com/cematrix/cematrix/internal/suite"
)

// List prints the compilers and test variants a suite file defines.
func List(log logrus.FieldLogger, writer io.Writer, suiteFile string) error {
	s, err := suite.NewLoader(log).Load(suiteFile)
	if err != nil {
		return fmt.Errorf("loading suite: %w", err)
	}

	renderer := report.NewRenderer(log, writer)

	compilerRows := make([][]string, 0, len(s.Compilers))
	for _, c := range s.Compilers {
		compilerRows = append(compilerRows, []string{
			c.Nickname,
			c.DisplayName,
			c.APIName,
			c.Mode(),
		})
	}

	if err := renderer.RenderTable(
		[]string{"Nickname", "Display", "API Name", "Mode"},
		compilerRows,
		report.WithTitle(fmt.Sprintf("Compilers (%d)", len(s.Compilers))),
	); err != nil {
		return fmt.Errorf("rendering compilers: %w", err)
	}

	testRows := make([][]string, 0, len(s.Tests))
	for _, t := range s.Tests {
		testRows = append(testRows, []string{
			t.Group,
			t.TestName,
			t.DisplayName,
			flag(t.IsAuto),
			detectColumn(t),
			flag(t.IncludeInTable),
		})
	}

	if err := renderer.RenderTable(
		[]string{"Group", "Test", "Display", "Auto", "Detect", "In Table"},
		testRows,
		report.WithTitle(fmt.Sprintf("Tests (%d)", len(s.Tests))),
	); err != nil {
		return fmt.Errorf("rendering tests: %w", err)
	}

	return nil
}

func detectColumn(t suite.Variant) string {
	if t.DetectValue != nil {
		return strconv.Itoa(*t.DetectValue)
	}

	if t.DetectMacro != "" {
		return t.DetectMacro
	}

	return "—"
}

func flag(v bool) string {
	if v {
		return "yes"
	}

	return ""
}
