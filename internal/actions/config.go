package actions

import (
	"fmt"
	"io"

	"github.com/cematrix/cematrix/internal/config"
)

// ShowConfig displays the current environment configuration.
func ShowConfig(writer io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, err := fmt.Fprintln(writer, cfg.String()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
