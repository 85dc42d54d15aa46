package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Tabular values can be printed as a table.
type Tabular interface {
	TableHeader() []string
	TableRows() [][]string
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - yaml
// - table (values implementing Tabular; anything else falls back to json)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "yaml":
		return WriteYAML(w, v)
	case "table":
		if t, ok := v.(Tabular); ok {
			return WriteTable(w, t, pretty)
		}
		return WriteJSON(w, v, pretty)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// Valid reports whether format is accepted by Write.
func Valid(format string) bool {
	switch format {
	case "", "json", "yaml", "table":
		return true
	}
	return false
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// WriteTable renders t with a rounded border. Without pretty the header is
// plain so the output stays readable when piped.
func WriteTable(w io.Writer, t Tabular, pretty bool) error {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(t.TableHeader()...).
		Rows(t.TableRows()...)
	if pretty {
		header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
		cell := lipgloss.NewStyle().Padding(0, 1)
		tbl = tbl.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	}
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}
