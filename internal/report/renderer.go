package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
)

// Renderer draws tables and text on a console writer.
type Renderer interface {
	// RenderTable renders a table with the given headers and rows.
	RenderTable(headers []string, rows [][]string, opts ...RenderOption) error
	// RenderText renders a plain text line.
	RenderText(text string) error
	// Colors returns the color helper shared by formatters.
	Colors() *ColorHelper
}

// RenderOption configures table rendering.
type RenderOption func(*renderOptions)

type renderOptions struct {
	title string
}

// WithTitle renders a header line above the table.
func WithTitle(title string) RenderOption {
	return func(o *renderOptions) {
		o.title = title
	}
}

type renderer struct {
	log    logrus.FieldLogger
	writer io.Writer
	colors *ColorHelper
}

// NewRenderer creates a console renderer writing to the given writer.
func NewRenderer(log logrus.FieldLogger, writer io.Writer) Renderer {
	return &renderer{
		log:    log.WithField("component", "report_renderer"),
		writer: writer,
		colors: NewColorHelper(),
	}
}

func (r *renderer) RenderTable(headers []string, rows [][]string, opts ...RenderOption) error {
	options := &renderOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.title != "" {
		if err := r.RenderText(r.colors.Header("▸ " + options.title)); err != nil {
			return err
		}
	}

	table := tablewriter.NewWriter(r.writer)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetBorder(true)
	table.SetTablePadding(" ")
	table.SetNoWhiteSpace(false)
	table.AppendBulk(rows)
	table.Render()

	return nil
}

func (r *renderer) RenderText(text string) error {
	if _, err := fmt.Fprintln(r.writer, text); err != nil {
		return fmt.Errorf("writing text: %w", err)
	}

	return nil
}

func (r *renderer) Colors() *ColorHelper {
	return r.colors
}

var _ Renderer = (*renderer)(nil)
