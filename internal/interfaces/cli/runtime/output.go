package runtime

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Table is the tabular rendering of a value.
type Table struct {
	Header []string
	Rows   [][]string
}

// Printer renders command results in the selected format.
type Printer struct {
	format string
	w      io.Writer
}

func NewPrinter(format string, w io.Writer) (*Printer, error) {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return &Printer{format: format, w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (table, json, yaml)", format)
	}
}

// Print writes v as JSON or YAML, or t as an aligned table.
func (p *Printer) Print(v any, t Table) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
		if len(t.Header) > 0 {
			fmt.Fprintln(tw, strings.Join(t.Header, "\t"))
		}
		for _, row := range t.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	}
}
