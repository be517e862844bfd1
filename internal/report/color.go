package report

import (
	"fmt"

	"github.com/fatih/color"
)

// ColorHelper provides colored output formatting
type ColorHelper struct {
	enabled bool
}

// NewColorHelper creates a new color helper
func NewColorHelper() *ColorHelper {
	return &ColorHelper{
		enabled: !color.NoColor,
	}
}

// Success formats text as success (green)
func (c *ColorHelper) Success(text string) string {
	if !c.enabled {
		return text
	}

	return color.GreenString(text)
}

// Failure formats text as failure (red)
func (c *ColorHelper) Failure(text string) string {
	if !c.enabled {
		return text
	}

	return color.RedString(text)
}

// Warning formats text as warning (yellow)
func (c *ColorHelper) Warning(text string) string {
	if !c.enabled {
		return text
	}

	return color.YellowString(text)
}

// Info formats text as info (cyan)
func (c *ColorHelper) Info(text string) string {
	if !c.enabled {
		return text
	}

	return color.CyanString(text)
}

// Muted formats text as muted (dark gray)
func (c *ColorHelper) Muted(text string) string {
	if !c.enabled {
		return text
	}

	return color.HiBlackString(text)
}

// Bold formats text as bold
func (c *ColorHelper) Bold(text string) string {
	if !c.enabled {
		return text
	}

	return color.New(color.Bold).Sprint(text)
}

// Header formats text as a header (bold cyan)
func (c *ColorHelper) Header(text string) string {
	if !c.enabled {
		return text
	}

	return color.New(color.FgCyan, color.Bold).Sprint(text)
}

// FormatStatus formats a pass/fail status with the appropriate color
func (c *ColorHelper) FormatStatus(passed bool) string {
	if passed {
		return c.Success("✓ passed")
	}

	return c.Failure("✗ failed")
}

// FormatPassRate formats a passed/total ratio, colored by how healthy it is
func (c *ColorHelper) FormatPassRate(passed, total int) string {
	if total == 0 {
		return c.Muted("0/0")
	}

	text := fmt.Sprintf("%d/%d", passed, total)

	switch {
	case passed == total:
		return c.Success(text)
	case passed == 0:
		return c.Failure(text)
	default:
		return c.Warning(text)
	}
}
