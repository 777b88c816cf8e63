package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bytedance/sonic"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output. Only tabular results can be written as CSV.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", NewConfigError("format", fmt.Sprintf("unsupported output format %q (want text, json or csv)", s))
	}
}

// Table is a header plus rows of pre-rendered cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tabular is implemented by results that can be rendered as a table.
type Tabular interface {
	Table() Table
}

// Formatter formats command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TextFormatter formats output as plain text. Tabular data is aligned in
// columns; anything else is printed with %v.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	table, ok := asTable(data)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(table.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(table.Headers, "\t"))
	}
	for _, row := range table.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if f.Indent {
		return sonic.ConfigStd.MarshalIndent(data, "", "  ")
	}
	return sonic.ConfigStd.Marshal(data)
}

// FormatTo writes data to writer in JSON format, followed by a newline.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	out, err := f.Format(data)
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

// CSVFormatter formats tabular output as CSV. Headers, when set, replace
// the table's own header row.
type CSVFormatter struct {
	Headers []string
}

// Format converts data to CSV format.
func (f *CSVFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	table, ok := asTable(data)
	if !ok {
		return fmt.Errorf("CSV output requires tabular data, got %T", data)
	}

	headers := table.Headers
	if len(f.Headers) > 0 {
		headers = f.Headers
	}

	csvWriter := csv.NewWriter(w)
	if len(headers) > 0 {
		if err := csvWriter.Write(headers); err != nil {
			return err
		}
	}
	if err := csvWriter.WriteAll(table.Rows); err != nil {
		return err
	}
	return csvWriter.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}

func asTable(data any) (Table, bool) {
	switch v := data.(type) {
	case Table:
		return v, true
	case *Table:
		if v == nil {
			return Table{}, false
		}
		return *v, true
	case [][]string:
		return Table{Rows: v}, true
	case Tabular:
		return v.Table(), true
	default:
		return Table{}, false
	}
}
