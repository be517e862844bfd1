package actions

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/cematrix/cematrix/internal/report"
	"github.com/cematrix/cematrix/internal/suite"
)

// Validate loads a suite file, applying full parse validation, and checks
// that every referenced source and auxiliary file exists on disk.
func Validate(ctx context.Context, log logrus.FieldLogger, writer io.Writer, suiteFile string) error {
	s, err := suite.NewLoader(log).Load(suiteFile)
	if err != nil {
		return fmt.Errorf("loading suite: %w", err)
	}

	if err := s.Preflight(ctx); err != nil {
		return fmt.Errorf("checking referenced files: %w", err)
	}

	renderer := report.NewRenderer(log, writer)
	colors := renderer.Colors()

	return renderer.RenderText(colors.Success(fmt.Sprintf(
		"✓ %s is valid: %d compilers, %d tests",
		suiteFile, len(s.Compilers), len(s.Tests),
	)))
}
