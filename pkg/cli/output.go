package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is an aligned table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV with a header row.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatCSV:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or csv)", s)
	}
}

var (
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
)

// Printer writes command results and status lines.
type Printer struct {
	Out    io.Writer
	Err    io.Writer
	Format OutputFormat
}

// NewPrinter creates a Printer.
func NewPrinter(out, errOut io.Writer, format OutputFormat) *Printer {
	return &Printer{Out: out, Err: errOut, Format: format}
}

// Success prints a green status line.
func (p *Printer) Success(format string, args ...any) {
	green.Fprint(p.Out, "✓ ")
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// Warning prints a yellow warning line to the error stream.
func (p *Printer) Warning(format string, args ...any) {
	yellow.Fprint(p.Err, "Warning: ")
	fmt.Fprintf(p.Err, format+"\n", args...)
}

// Error prints a red error line to the error stream.
func (p *Printer) Error(format string, args ...any) {
	red.Fprint(p.Err, "Error: ")
	fmt.Fprintf(p.Err, format+"\n", args...)
}

// Result prints rows in the configured format. data is what JSON output
// encodes; headers and rows feed the text and CSV renderings.
func (p *Printer) Result(data any, headers []string, rows [][]string) error {
	switch p.Format {
	case FormatJSON:
		encoder := json.NewEncoder(p.Out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case FormatCSV:
		w := csv.NewWriter(p.Out)
		if err := w.Write(headers); err != nil {
			return err
		}
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		return w.Error()
	default:
		p.Table(headers, rows)
		return nil
	}
}

// Table renders an aligned, borderless table.
func (p *Printer) Table(headers []string, rows [][]string) {
	table := tablewriter.NewWriter(p.Out)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
